package persistence

import (
	"context"
	"time"
)

// VerdictRow is one stored analysis result, linked to a transcript row.
type VerdictRow struct {
	ID           int64
	TranscriptID int64
	Answer       string
	Reasoning    string
	Evidence     []string
	Model        string
	TokensUsed   int
	AnalysisDate time.Time
}

// MetadataLookup backfills title/channel when the caller did not supply
// them. Best-effort: both values may come back empty without an error.
type MetadataLookup interface {
	LookupTitleAndChannel(ctx context.Context, videoID string) (title string, channel string, err error)
}
