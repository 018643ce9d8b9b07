package transcript

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	preferredSegs []Segment
	preferredLang string
	preferredErr  error

	anySegs []Segment
	anyLang string
	anyErr  error

	preferredCalls int
	anyCalls       int
}

func (s *stubSource) FetchPreferred(context.Context, string, []string) ([]Segment, string, error) {
	s.preferredCalls++
	return s.preferredSegs, s.preferredLang, s.preferredErr
}

func (s *stubSource) FetchAny(context.Context, string, []string) ([]Segment, string, error) {
	s.anyCalls++
	return s.anySegs, s.anyLang, s.anyErr
}

type stubTool struct {
	raw   string
	lang  string
	err   error
	calls int
}

func (s *stubTool) DownloadSubtitles(context.Context, string, []string) (string, string, error) {
	s.calls++
	return s.raw, s.lang, s.err
}

func passthroughParser(segments []Segment) CueParser {
	return func(string) []Segment { return segments }
}

func TestFetchPreferredTierSucceedsFirst(t *testing.T) {
	source := &stubSource{
		preferredSegs: []Segment{{Text: "hi", Start: 0, Duration: 1}},
		preferredLang: "en",
	}
	tool := &stubTool{}
	fetcher := NewFetcher(source, tool, passthroughParser(nil))

	segs, lang, err := fetcher.Fetch(context.Background(), "vid")
	require.NoError(t, err)
	assert.Equal(t, "en", lang)
	assert.Len(t, segs, 1)
	assert.Equal(t, 0, source.anyCalls)
	assert.Equal(t, 0, tool.calls)
}

func TestFetchAllThreeTiersExercisedInOrder(t *testing.T) {
	source := &stubSource{
		preferredErr: NewTierError(TierPreferred, KindNoMatchForLanguages, "no en"),
		anyErr:       NewTierError(TierListing, KindNoTracksAvailable, "empty"),
	}
	tool := &stubTool{
		raw:  "00:00:01.000 --> 00:00:04.000\nHello world",
		lang: "en",
	}
	parsed := []Segment{{Text: "Hello world", Start: 1, Duration: 3}}
	fetcher := NewFetcher(source, tool, passthroughParser(parsed))

	segs, lang, err := fetcher.Fetch(context.Background(), "vid")
	require.NoError(t, err)
	assert.Equal(t, "en", lang)
	assert.Equal(t, parsed, segs)
	assert.Equal(t, 1, source.preferredCalls)
	assert.Equal(t, 1, source.anyCalls)
	assert.Equal(t, 1, tool.calls)
}

func TestFetchTerminalFailureShortCircuits(t *testing.T) {
	source := &stubSource{
		preferredErr: NewTierError(TierPreferred, KindSourceDisabled, "captions off"),
	}
	tool := &stubTool{}
	fetcher := NewFetcher(source, tool, passthroughParser(nil))

	_, _, err := fetcher.Fetch(context.Background(), "vid")
	require.Error(t, err)
	assert.Equal(t, KindSourceDisabled, KindOf(err))
	assert.Equal(t, 0, source.anyCalls)
	assert.Equal(t, 0, tool.calls)
}

func TestFetchEmptyParseIsAnError(t *testing.T) {
	source := &stubSource{
		preferredErr: NewTierError(TierPreferred, KindNoMatchForLanguages, "no en"),
		anyErr:       NewTierError(TierListing, KindNoTracksAvailable, "empty"),
	}
	tool := &stubTool{raw: "garbage with no cues", lang: "en"}
	fetcher := NewFetcher(source, tool, passthroughParser(nil))

	_, _, err := fetcher.Fetch(context.Background(), "vid")
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	require.NotNil(t, fe.Last())
	assert.Equal(t, KindEmptyFallbackResult, fe.Last().Kind)
	assert.Len(t, fe.Attempts, 3)
}

func TestFetchAggregatesEveryTierFailure(t *testing.T) {
	source := &stubSource{
		preferredErr: NewTierError(TierPreferred, KindNoMatchForLanguages, "no en"),
		anyErr:       NewTierError(TierListing, KindNoTracksAvailable, "empty"),
	}
	tool := &stubTool{err: NewTierError(TierFallbackTool, KindFallbackToolUnavailable, "yt-dlp missing")}
	fetcher := NewFetcher(source, tool, passthroughParser(nil))

	_, _, err := fetcher.Fetch(context.Background(), "vid")
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Len(t, fe.Attempts, 3)
	assert.Contains(t, err.Error(), "no en")
	assert.Contains(t, err.Error(), "yt-dlp missing")
}

func TestFetchRawErrorsNeverLeakUnclassified(t *testing.T) {
	source := &stubSource{
		preferredErr: errors.New("panic-ish upstream failure"),
		anySegs:      []Segment{{Text: "ok", Start: 0, Duration: 1}},
		anyLang:      "fr",
	}
	fetcher := NewFetcher(source, &stubTool{}, passthroughParser(nil))

	segs, lang, err := fetcher.Fetch(context.Background(), "vid")
	require.NoError(t, err)
	assert.Equal(t, "fr", lang)
	assert.Len(t, segs, 1)
	assert.Equal(t, 1, source.anyCalls)
}

func TestDetectLanguageMajorityVote(t *testing.T) {
	segments := []Segment{
		{Text: "This is clearly an English sentence about nothing in particular."},
		{Text: "Another English sentence follows the first one here."},
		{Text: "Ceci est une phrase française."},
	}
	assert.Equal(t, "en", DetectLanguage(segments))
	assert.Equal(t, "unknown", DetectLanguage(nil))
}

func TestFetchDetectsLanguageWhenUnknown(t *testing.T) {
	source := &stubSource{
		preferredErr: NewTierError(TierPreferred, KindNoMatchForLanguages, "no match"),
		anySegs: []Segment{
			{Text: "This is clearly an English sentence about nothing in particular."},
			{Text: "Another English sentence follows the first one here."},
		},
		anyLang: "",
	}
	fetcher := NewFetcher(source, &stubTool{}, passthroughParser(nil))

	_, lang, err := fetcher.Fetch(context.Background(), "vid")
	require.NoError(t, err)
	assert.Equal(t, "en", lang)
}
