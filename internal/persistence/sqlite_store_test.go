package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmarkov/yt-verdict/internal/transcript"
)

func newTestStore(t *testing.T, opts ...StoreOption) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	store, err := NewSQLiteStore(filepath.Join(dir, "transcripts.db"), filepath.Join(dir, "transcripts"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleSegments() []transcript.Segment {
	return []transcript.Segment{
		{Text: "Hello world", Start: 1.0, Duration: 3.0},
		{Text: "Second line", Start: 5.0, Duration: 2.0},
	}
}

func TestSaveTranscriptIdempotent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	path, inserted, err := store.SaveTranscript(ctx, sampleSegments(), "vid-1", "Title", "Channel", "en", false)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotEmpty(t, path)

	sawFile, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(sawFile), "[00:01] Hello world")

	secondPath, inserted, err := store.SaveTranscript(ctx, sampleSegments(), "vid-1", "Title", "Channel", "en", false)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, path, secondPath)

	rows, err := store.ListTranscripts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "vid-1", rows[0].VideoID)
	assert.Equal(t, "Hello world\nSecond line", rows[0].Text)
	assert.Equal(t, "en", rows[0].Language)
}

func TestSaveTranscriptOverwriteReplaces(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	_, inserted, err := store.SaveTranscript(ctx, sampleSegments(), "vid-2", "Title", "Channel", "en", false)
	require.NoError(t, err)
	require.True(t, inserted)

	first, ok, err := store.LatestByVideoID(ctx, "vid-2")
	require.NoError(t, err)
	require.True(t, ok)

	replacement := []transcript.Segment{{Text: "replaced", Start: 0, Duration: 1}}
	_, inserted, err = store.SaveTranscript(ctx, replacement, "vid-2", "Title", "Channel", "de", true)
	require.NoError(t, err)
	assert.True(t, inserted)

	rows, err := store.ListTranscripts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "replaced", rows[0].Text)
	assert.Equal(t, "de", rows[0].Language)

	latest, ok, err := store.LatestByVideoID(ctx, "vid-2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, first.ID, latest.ID)
	assert.False(t, latest.ExtractionDate.Before(first.ExtractionDate))
}

func TestLatestByVideoIDMissing(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	_, ok, err := store.LatestByVideoID(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExists(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	ok, err := store.Exists(ctx, "vid-3")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = store.SaveTranscript(ctx, sampleSegments(), "vid-3", "T", "C", "en", false)
	require.NoError(t, err)

	ok, err = store.Exists(ctx, "vid-3")
	require.NoError(t, err)
	assert.True(t, ok)
}

type stubMetadata struct {
	title   string
	channel string
	calls   int
}

func (m *stubMetadata) LookupTitleAndChannel(context.Context, string) (string, string, error) {
	m.calls++
	return m.title, m.channel, nil
}

func TestSaveTranscriptBackfillsMetadata(t *testing.T) {
	t.Parallel()

	meta := &stubMetadata{title: "Looked Up", channel: "Some Channel"}
	store := newTestStore(t, WithMetadataLookup(meta))
	ctx := context.Background()

	_, _, err := store.SaveTranscript(ctx, sampleSegments(), "vid-4", "", "", "en", false)
	require.NoError(t, err)
	assert.Equal(t, 1, meta.calls)

	rec, ok, err := store.LatestByVideoID(ctx, "vid-4")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Looked Up", rec.Title)
	assert.Equal(t, "Some Channel", rec.Channel)
}

func TestSaveTranscriptPlaceholdersWhenMetadataAbsent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	_, _, err := store.SaveTranscript(ctx, sampleSegments(), "vid-5", "", "", "en", false)
	require.NoError(t, err)

	rec, ok, err := store.LatestByVideoID(ctx, "vid-5")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Unknown Title – vid-5", rec.Title)
	assert.Equal(t, "Unknown Channel", rec.Channel)
}

func TestVerdictLatestResolution(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	_, _, err := store.SaveTranscript(ctx, sampleSegments(), "vid-6", "T", "C", "en", false)
	require.NoError(t, err)
	rec, _, err := store.LatestByVideoID(ctx, "vid-6")
	require.NoError(t, err)

	older := VerdictRow{
		TranscriptID: rec.ID,
		Answer:       "No",
		Reasoning:    "first pass",
		Evidence:     []string{"quote a"},
		Model:        "model-x",
		TokensUsed:   100,
		AnalysisDate: time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, store.SaveVerdict(ctx, older))

	newer := older
	newer.Reasoning = "second pass"
	newer.AnalysisDate = time.Now().UTC()
	require.NoError(t, store.SaveVerdict(ctx, newer))

	got, ok, err := store.LatestVerdictForVideo(ctx, "vid-6")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second pass", got.Reasoning)
	assert.Equal(t, []string{"quote a"}, got.Evidence)

	// Overwriting the transcript orphans old verdicts from the cache view.
	_, _, err = store.SaveTranscript(ctx, sampleSegments(), "vid-6", "T", "C", "en", true)
	require.NoError(t, err)
	_, ok, err = store.LatestVerdictForVideo(ctx, "vid-6")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVideoMetadataCache(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	_, _, ok, err := store.GetVideoMetadata(ctx, "vid-7")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.PutVideoMetadata(ctx, "vid-7", "Cached Title", "Cached Channel"))

	title, channel, ok, err := store.GetVideoMetadata(ctx, "vid-7")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Cached Title", title)
	assert.Equal(t, "Cached Channel", channel)

	// replace keeps one row per video
	require.NoError(t, store.PutVideoMetadata(ctx, "vid-7", "New Title", "New Channel"))
	title, _, _, err = store.GetVideoMetadata(ctx, "vid-7")
	require.NoError(t, err)
	assert.Equal(t, "New Title", title)
}
