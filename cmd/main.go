package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/tmarkov/yt-verdict/internal/analysis"
	"github.com/tmarkov/yt-verdict/internal/captions"
	"github.com/tmarkov/yt-verdict/internal/config"
	"github.com/tmarkov/yt-verdict/internal/llm"
	"github.com/tmarkov/yt-verdict/internal/media"
	"github.com/tmarkov/yt-verdict/internal/metadata"
	"github.com/tmarkov/yt-verdict/internal/persistence"
	"github.com/tmarkov/yt-verdict/internal/service"
	"github.com/tmarkov/yt-verdict/internal/subtitle"
	"github.com/tmarkov/yt-verdict/internal/transcript"
	"github.com/tmarkov/yt-verdict/pkg/log"
)

const previewChars = 500

type options struct {
	Overwrite     bool `short:"o" long:"overwrite" description:"Replace any stored transcript for the video"`
	ForceExtract  bool `short:"E" long:"force-extract" description:"Re-extract the transcript even when one is stored"`
	ForceAnalysis bool `short:"A" long:"force-analysis" description:"Re-run the analysis even when a verdict is cached"`
	ExtractOnly   bool `long:"extract-only" description:"Stop after storing the transcript, skip analysis"`
	List          int  `short:"n" long:"list" optional:"yes" optional-value:"10" description:"List the most recent stored transcripts and exit"`

	Args struct {
		Reference string `positional-arg-name:"URL|VIDEO_ID"`
	} `positional-args:"yes"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[OPTIONS] [URL|VIDEO_ID]"

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if cfg.System.LogFile != "" {
		fileLogger, err := log.InitFileLogger(cfg.System.LogFile, cfg.System.LogLevel)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open log file: %v\n", err)
			os.Exit(1)
		}
		defer fileLogger.Close()
	} else {
		log.InitLogger(cfg.System.LogLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, &opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts *options) error {
	store, err := persistence.NewSQLiteStore(cfg.Storage.DBPath, cfg.Storage.TranscriptsDir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	ytdlp := media.NewYtDlp(cfg.Fetch.YtDlpPath, time.Duration(cfg.Fetch.FetchTimeout)*time.Second)
	store.SetMetadataLookup(metadata.NewService(store, ytdlp))

	source := captions.NewClient(captions.Config{
		Timeout: time.Duration(cfg.Fetch.FetchTimeout) * time.Second,
	})
	fetcher := transcript.NewFetcher(source, subtitleTool{ytdlp}, subtitle.ParseVTT,
		transcript.WithLanguages(cfg.Fetch.Languages))

	pipeline := service.NewPipeline(fetcher, store, nil)

	if opts.List > 0 {
		return listTranscripts(ctx, pipeline, opts.List)
	}

	reference := strings.TrimSpace(opts.Args.Reference)
	if reference == "" {
		reference, err = promptForReference()
		if err != nil {
			return err
		}
	}

	if opts.ExtractOnly {
		rec, fromCache, err := pipeline.AcquireTranscript(ctx, reference, opts.Overwrite || opts.ForceExtract)
		if err != nil {
			return err
		}
		printTranscript(rec, fromCache)
		return nil
	}

	analyzer, err := buildAnalyzer(cfg, store)
	if err != nil {
		return err
	}
	pipeline = service.NewPipeline(fetcher, store, analyzer)

	result, err := pipeline.ProcessVideo(ctx, reference, opts.Overwrite || opts.ForceExtract, opts.ForceAnalysis)
	if err != nil {
		return err
	}
	printTranscript(result.Record, result.FromCache)
	printVerdict(result)
	return nil
}

func buildAnalyzer(cfg *config.Config, store *persistence.SQLiteStore) (*analysis.Analyzer, error) {
	client, err := llm.NewClient(&llm.Config{
		APIKey:      cfg.LLM.APIKey,
		APIURL:      cfg.LLM.APIURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		SiteURL:     cfg.LLM.SiteURL,
		AppName:     cfg.LLM.AppName,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM client unavailable (set LLM_API_KEY, or use --extract-only): %w", err)
	}
	return analysis.NewAnalyzer(client, store, cfg.Storage.ResultsDir), nil
}

// subtitleTool adapts the download operator to the fetcher's raw-text
// boundary.
type subtitleTool struct {
	op media.Operator
}

func (t subtitleTool) DownloadSubtitles(ctx context.Context, videoID string, languages []string) (string, string, error) {
	dl, err := t.op.DownloadSubtitles(ctx, videoID, languages)
	if err != nil {
		return "", "", err
	}
	return dl.Content, dl.Language, nil
}

func promptForReference() (string, error) {
	fmt.Print("Enter a YouTube URL or video ID: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("no video reference given")
	}
	return line, nil
}

func listTranscripts(ctx context.Context, pipeline *service.Pipeline, limit int) error {
	records, err := pipeline.ListTranscripts(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No transcripts stored yet.")
		return nil
	}
	for _, rec := range records {
		fmt.Printf("%4d | %s | %s | %s\n",
			rec.ID, rec.ExtractionDate.Format("2006-01-02"), rec.VideoID, rec.Title)
	}
	return nil
}

func printTranscript(rec transcript.Record, fromCache bool) {
	origin := "extracted"
	if fromCache {
		origin = "stored"
	}
	fmt.Printf("\nTranscript for %q (%s, language=%s, %s)\n", rec.Title, rec.VideoID, rec.Language, origin)

	preview := rec.Text
	if len(preview) > previewChars {
		preview = preview[:previewChars] + "..."
	}
	fmt.Println(preview)
}

func printVerdict(result *service.Result) {
	verdict := result.Verdict
	if verdict == nil {
		return
	}
	origin := "fresh"
	if result.VerdictFromCache {
		origin = "cached"
	}
	fmt.Printf("\nVerdict (%s): %s\n", origin, verdict.Answer)
	fmt.Printf("Reasoning: %s\n", verdict.Reasoning)
	for i, quote := range verdict.Evidence {
		fmt.Printf("Evidence %d: %s\n", i+1, quote)
	}
	if verdict.Model != "" {
		fmt.Printf("Model: %s (%d tokens)\n", verdict.Model, verdict.TokensUsed)
	}
}
