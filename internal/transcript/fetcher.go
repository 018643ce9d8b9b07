package transcript

import (
	"context"

	"github.com/abadojack/whatlanggo"

	"github.com/tmarkov/yt-verdict/pkg/log"
)

// CaptionSource is the primary captions API boundary. Both operations return
// normalized segments plus the language code of the track that was used.
type CaptionSource interface {
	// FetchPreferred requests captions in the given preference order.
	FetchPreferred(ctx context.Context, videoID string, languages []string) ([]Segment, string, error)
	// FetchAny enumerates every available track and fetches the best
	// candidate under the manual-preferred > auto-preferred > any policy.
	FetchAny(ctx context.Context, videoID string, languages []string) ([]Segment, string, error)
}

// SubtitleTool is the external download tool boundary, used as a last resort.
// It returns raw cue text that still needs parsing.
type SubtitleTool interface {
	DownloadSubtitles(ctx context.Context, videoID string, languages []string) (raw string, language string, err error)
}

// CueParser converts raw cue text into segments. Malformed blocks are
// skipped, so an empty result means nothing was parseable.
type CueParser func(raw string) []Segment

// Fetcher drives the tier chain: preferred captions, then the track listing,
// then the external tool plus cue parsing. Tiers are strictly sequential;
// each is materially more expensive than the last.
type Fetcher struct {
	source    CaptionSource
	tool      SubtitleTool
	parse     CueParser
	languages []string
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithLanguages overrides the default preferred language order.
func WithLanguages(languages []string) FetcherOption {
	return func(f *Fetcher) {
		if len(languages) > 0 {
			f.languages = languages
		}
	}
}

func NewFetcher(source CaptionSource, tool SubtitleTool, parse CueParser, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		source:    source,
		tool:      tool,
		parse:     parse,
		languages: []string{"en"},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch obtains a transcript for videoID or fails with either a terminal
// TierError or a FetchError aggregating every tier attempted.
func (f *Fetcher) Fetch(ctx context.Context, videoID string) ([]Segment, string, error) {
	attempts := make([]*TierError, 0, 4)

	segments, lang, err := f.source.FetchPreferred(ctx, videoID, f.languages)
	if err == nil {
		return f.finish(segments, lang), lang, nil
	}
	te := AsTier(err, TierPreferred)
	if te.Kind.Terminal() {
		log.Error("Terminal failure fetching captions for %s: %v", videoID, te)
		return nil, "", te
	}
	log.Info("Preferred captions unavailable for %s (%s), trying track listing", videoID, te.Kind)
	attempts = append(attempts, te)

	segments, lang, err = f.source.FetchAny(ctx, videoID, f.languages)
	if err == nil {
		lang = f.detectIfUnknown(segments, lang)
		return f.finish(segments, lang), lang, nil
	}
	te = AsTier(err, TierListing)
	log.Info("Track listing failed for %s (%s), trying subtitle tool", videoID, te.Kind)
	attempts = append(attempts, te)

	raw, lang, err := f.tool.DownloadSubtitles(ctx, videoID, f.languages)
	if err != nil {
		te = AsTier(err, TierFallbackTool)
		log.Warn("Subtitle tool failed for %s: %v", videoID, te)
		attempts = append(attempts, te)
		return nil, "", &FetchError{VideoID: videoID, Attempts: attempts}
	}

	segments = f.parse(raw)
	if len(segments) == 0 {
		attempts = append(attempts, NewTierError(TierParse, KindEmptyFallbackResult,
			"downloaded cue text yielded no parseable segments"))
		return nil, "", &FetchError{VideoID: videoID, Attempts: attempts}
	}

	lang = f.detectIfUnknown(segments, lang)
	return f.finish(segments, lang), lang, nil
}

func (f *Fetcher) finish(segments []Segment, lang string) []Segment {
	log.Info("Fetched %d segments (language=%s)", len(segments), lang)
	return segments
}

func (f *Fetcher) detectIfUnknown(segments []Segment, lang string) string {
	if lang != "" && lang != "unknown" {
		return lang
	}
	return DetectLanguage(segments)
}

// DetectLanguage guesses the dominant language of the segment text by
// majority vote. Returns "unknown" when nothing can be detected.
func DetectLanguage(segments []Segment) string {
	counts := make(map[string]int)
	for _, seg := range segments {
		code := whatlanggo.DetectLang(seg.Text).Iso6391()
		if code == "" {
			continue
		}
		counts[code]++
	}

	var topLang string
	var topCount int
	for code, count := range counts {
		if count > topCount {
			topLang = code
			topCount = count
		}
	}
	if topLang == "" {
		return "unknown"
	}
	return topLang
}
