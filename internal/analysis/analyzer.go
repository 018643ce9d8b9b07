package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tmarkov/yt-verdict/internal/llm"
	"github.com/tmarkov/yt-verdict/internal/persistence"
	"github.com/tmarkov/yt-verdict/internal/transcript"
	"github.com/tmarkov/yt-verdict/pkg/file"
	"github.com/tmarkov/yt-verdict/pkg/log"
)

// Transcripts longer than this are truncated before prompting.
const maxTranscriptChars = 90_000

// ChatClient is the LLM boundary the analyzer needs.
type ChatClient interface {
	ChatCompletion(ctx context.Context, messages []llm.Message, opts *llm.ChatCompletionOptions) (*llm.ChatResponse, error)
	Model() string
}

// VerdictStore persists analysis results and serves cached ones.
type VerdictStore interface {
	SaveVerdict(ctx context.Context, verdict persistence.VerdictRow) error
	LatestVerdictForVideo(ctx context.Context, videoID string) (persistence.VerdictRow, bool, error)
}

// Analyzer turns a stored transcript into a structured Verdict via the LLM
// and records the result.
type Analyzer struct {
	client     ChatClient
	store      VerdictStore
	resultsDir string
}

func NewAnalyzer(client ChatClient, store VerdictStore, resultsDir string) *Analyzer {
	return &Analyzer{
		client:     client,
		store:      store,
		resultsDir: resultsDir,
	}
}

// Analyze runs the incitement analysis on rec and persists the verdict.
func (a *Analyzer) Analyze(ctx context.Context, rec transcript.Record) (*Verdict, error) {
	text := rec.Text
	if len(text) > maxTranscriptChars {
		text = text[:maxTranscriptChars] + "... [truncated]"
		log.Info("Transcript for %s truncated to %d chars before analysis", rec.VideoID, maxTranscriptChars)
	}

	userContent := fmt.Sprintf("Video: %s\nChannel: %s\n\nTranscript:\n%s", rec.Title, rec.Channel, text)

	opts := llm.NewChatCompletionOptions().
		WithSystemPrompt(SystemPrompt()).
		WithTemperature(0).
		WithJSONMode()

	log.Info("Analyzing transcript %d (video %s) with %s", rec.ID, rec.VideoID, a.client.Model())
	resp, err := a.client.ChatCompletion(ctx, []llm.Message{
		{Role: "user", Content: userContent},
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("analysis response contained no choices")
	}

	raw := resp.Choices[0].Message.Content
	var verdict Verdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		return nil, fmt.Errorf("model returned invalid JSON: %w", err)
	}
	if err := verdict.Validate(); err != nil {
		return nil, fmt.Errorf("model returned invalid verdict: %w", err)
	}

	verdict.Model = resp.Model
	if verdict.Model == "" {
		verdict.Model = a.client.Model()
	}
	verdict.TokensUsed = resp.Usage.TotalTokens
	verdict.VideoTitle = rec.Title
	verdict.Timestamp = time.Now().UTC()

	if err := a.store.SaveVerdict(ctx, persistence.VerdictRow{
		TranscriptID: rec.ID,
		Answer:       verdict.Answer,
		Reasoning:    verdict.Reasoning,
		Evidence:     verdict.Evidence,
		Model:        verdict.Model,
		TokensUsed:   verdict.TokensUsed,
		AnalysisDate: verdict.Timestamp,
	}); err != nil {
		return nil, fmt.Errorf("failed to save verdict: %w", err)
	}

	a.writeArtifact(rec.VideoID, &verdict)
	return &verdict, nil
}

// CachedVerdict returns the latest stored verdict for a video, if any.
func (a *Analyzer) CachedVerdict(ctx context.Context, videoID string) (*Verdict, bool, error) {
	row, found, err := a.store.LatestVerdictForVideo(ctx, videoID)
	if err != nil || !found {
		return nil, false, err
	}
	return &Verdict{
		Answer:     row.Answer,
		Reasoning:  row.Reasoning,
		Evidence:   row.Evidence,
		Model:      row.Model,
		TokensUsed: row.TokensUsed,
		Timestamp:  row.AnalysisDate,
	}, true, nil
}

// writeArtifact drops a pretty-printed JSON copy of the verdict next to the
// database. Failures are logged, never fatal.
func (a *Analyzer) writeArtifact(videoID string, verdict *Verdict) {
	if a.resultsDir == "" {
		return
	}
	if err := os.MkdirAll(a.resultsDir, 0o755); err != nil {
		log.Warn("Could not create results dir %s: %v", a.resultsDir, err)
		return
	}

	name := fmt.Sprintf("analysis_%s_%s.json", file.SanitizeID(videoID), verdict.Timestamp.Format("20060102_150405"))
	path := filepath.Join(a.resultsDir, name)

	data, err := json.MarshalIndent(verdict, "", "  ")
	if err != nil {
		log.Warn("Could not marshal verdict for %s: %v", videoID, err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Warn("Could not write analysis artifact %s: %v", path, err)
		return
	}
	log.Debug("Analysis artifact written to %s", path)
}
