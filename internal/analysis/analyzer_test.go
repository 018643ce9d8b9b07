package analysis

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmarkov/yt-verdict/internal/llm"
	"github.com/tmarkov/yt-verdict/internal/persistence"
	"github.com/tmarkov/yt-verdict/internal/transcript"
)

type stubChat struct {
	content  string
	model    string
	tokens   int
	err      error
	lastUser string
	lastOpts *llm.ChatCompletionOptions
}

func (s *stubChat) ChatCompletion(_ context.Context, messages []llm.Message, opts *llm.ChatCompletionOptions) (*llm.ChatResponse, error) {
	if len(messages) > 0 {
		s.lastUser = messages[len(messages)-1].Content
	}
	s.lastOpts = opts
	if s.err != nil {
		return nil, s.err
	}
	return &llm.ChatResponse{
		Model:   s.model,
		Choices: []llm.Choice{{Message: llm.Message{Role: "assistant", Content: s.content}}},
		Usage:   llm.Usage{TotalTokens: s.tokens},
	}, nil
}

func (s *stubChat) Model() string { return "stub-model" }

type memVerdictStore struct {
	saved []persistence.VerdictRow
	rows  map[string]persistence.VerdictRow
}

func newMemVerdictStore() *memVerdictStore {
	return &memVerdictStore{rows: map[string]persistence.VerdictRow{}}
}

func (m *memVerdictStore) SaveVerdict(_ context.Context, v persistence.VerdictRow) error {
	m.saved = append(m.saved, v)
	return nil
}

func (m *memVerdictStore) LatestVerdictForVideo(_ context.Context, videoID string) (persistence.VerdictRow, bool, error) {
	row, ok := m.rows[videoID]
	return row, ok, nil
}

func sampleRecord() transcript.Record {
	return transcript.Record{
		ID:      7,
		VideoID: "abc123def45",
		Title:   "Some Talk",
		Channel: "Some Channel",
		Text:    "First line\nSecond line",
	}
}

func TestAnalyzePersistsAndReturnsVerdict(t *testing.T) {
	chat := &stubChat{
		content: `{"answer":"No","reasoning":"Nothing in the transcript targets a protected group.","evidence":[]}`,
		model:   "openai/gpt-4o",
		tokens:  321,
	}
	store := newMemVerdictStore()
	dir := t.TempDir()
	analyzer := NewAnalyzer(chat, store, dir)

	verdict, err := analyzer.Analyze(context.Background(), sampleRecord())
	require.NoError(t, err)

	assert.Equal(t, AnswerNo, verdict.Answer)
	assert.Equal(t, "openai/gpt-4o", verdict.Model)
	assert.Equal(t, 321, verdict.TokensUsed)
	assert.Equal(t, "Some Talk", verdict.VideoTitle)

	require.Len(t, store.saved, 1)
	assert.Equal(t, int64(7), store.saved[0].TranscriptID)
	assert.Equal(t, AnswerNo, store.saved[0].Answer)

	assert.Contains(t, chat.lastUser, "Video: Some Talk")
	assert.Contains(t, chat.lastUser, "Transcript:\nFirst line")
	assert.True(t, chat.lastOpts.JSONMode)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "analysis_abc123def45_"))

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"answer": "No"`)
}

func TestAnalyzeTruncatesLongTranscripts(t *testing.T) {
	chat := &stubChat{
		content: `{"answer":"Cannot determine","reasoning":"Truncated input.","evidence":[]}`,
	}
	analyzer := NewAnalyzer(chat, newMemVerdictStore(), "")

	rec := sampleRecord()
	rec.Text = strings.Repeat("a", maxTranscriptChars+500)

	_, err := analyzer.Analyze(context.Background(), rec)
	require.NoError(t, err)
	assert.Contains(t, chat.lastUser, "... [truncated]")
	assert.Less(t, len(chat.lastUser), maxTranscriptChars+200)
}

func TestAnalyzeRejectsInvalidAnswer(t *testing.T) {
	chat := &stubChat{content: `{"answer":"Maybe","reasoning":"x","evidence":[]}`}
	analyzer := NewAnalyzer(chat, newMemVerdictStore(), "")

	_, err := analyzer.Analyze(context.Background(), sampleRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid verdict")
}

func TestAnalyzeRejectsMalformedJSON(t *testing.T) {
	chat := &stubChat{content: "not json at all"}
	analyzer := NewAnalyzer(chat, newMemVerdictStore(), "")

	_, err := analyzer.Analyze(context.Background(), sampleRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestCachedVerdict(t *testing.T) {
	store := newMemVerdictStore()
	store.rows["abc123def45"] = persistence.VerdictRow{
		Answer:       AnswerYes,
		Reasoning:    "cached",
		Evidence:     []string{"quote"},
		Model:        "openai/gpt-4o",
		TokensUsed:   100,
		AnalysisDate: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	analyzer := NewAnalyzer(&stubChat{}, store, "")

	verdict, found, err := analyzer.CachedVerdict(context.Background(), "abc123def45")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, AnswerYes, verdict.Answer)
	assert.Equal(t, []string{"quote"}, verdict.Evidence)

	_, found, err = analyzer.CachedVerdict(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
}
