package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/tmarkov/yt-verdict/internal/analysis"
	"github.com/tmarkov/yt-verdict/internal/transcript"
	"github.com/tmarkov/yt-verdict/pkg/log"
)

// TranscriptFetcher obtains segments for a video id, however it has to.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoID string) ([]transcript.Segment, string, error)
}

// TranscriptStore is the persistence boundary the pipeline needs.
type TranscriptStore interface {
	SaveTranscript(ctx context.Context, segments []transcript.Segment, videoID, title, channel, language string, overwrite bool) (string, bool, error)
	LatestByVideoID(ctx context.Context, videoID string) (transcript.Record, bool, error)
	ListTranscripts(ctx context.Context, limit int) ([]transcript.Record, error)
}

// VerdictAnalyzer runs and caches the incitement analysis.
type VerdictAnalyzer interface {
	Analyze(ctx context.Context, rec transcript.Record) (*analysis.Verdict, error)
	CachedVerdict(ctx context.Context, videoID string) (*analysis.Verdict, bool, error)
}

// Result is the outcome of processing one video reference.
type Result struct {
	Record  transcript.Record
	Verdict *analysis.Verdict
	// FromCache flags whether the transcript came from storage rather
	// than a fresh acquisition.
	FromCache bool
	// VerdictFromCache flags whether the verdict was reused.
	VerdictFromCache bool
}

// Pipeline wires reference parsing, acquisition, storage and analysis into
// the operations the CLI exposes. Concurrent requests for the same video id
// share one acquisition.
type Pipeline struct {
	fetcher  TranscriptFetcher
	store    TranscriptStore
	analyzer VerdictAnalyzer
	group    singleflight.Group
}

func NewPipeline(fetcher TranscriptFetcher, store TranscriptStore, analyzer VerdictAnalyzer) *Pipeline {
	return &Pipeline{
		fetcher:  fetcher,
		store:    store,
		analyzer: analyzer,
	}
}

// AcquireTranscript resolves reference to a stored transcript record,
// fetching and saving one when needed. With overwrite true a fresh fetch
// replaces whatever is stored.
func (p *Pipeline) AcquireTranscript(ctx context.Context, reference string, overwrite bool) (transcript.Record, bool, error) {
	videoID, err := transcript.ExtractVideoID(reference)
	if err != nil {
		return transcript.Record{}, false, err
	}

	if !overwrite {
		rec, found, err := p.store.LatestByVideoID(ctx, videoID)
		if err != nil {
			return transcript.Record{}, false, err
		}
		if found {
			log.Info("Using stored transcript %d for %s", rec.ID, videoID)
			return rec, true, nil
		}
	}

	// Duplicate suppression keyed by video id, not by the raw reference:
	// different URL shapes for the same video share one fetch.
	v, err, _ := p.group.Do(videoID, func() (interface{}, error) {
		return p.fetchAndSave(ctx, videoID, overwrite)
	})
	if err != nil {
		return transcript.Record{}, false, err
	}
	return v.(transcript.Record), false, nil
}

func (p *Pipeline) fetchAndSave(ctx context.Context, videoID string, overwrite bool) (transcript.Record, error) {
	segments, language, err := p.fetcher.Fetch(ctx, videoID)
	if err != nil {
		return transcript.Record{}, err
	}

	if _, _, err := p.store.SaveTranscript(ctx, segments, videoID, "", "", language, overwrite); err != nil {
		return transcript.Record{}, err
	}

	rec, found, err := p.store.LatestByVideoID(ctx, videoID)
	if err != nil {
		return transcript.Record{}, err
	}
	if !found {
		return transcript.Record{}, transcript.NewTierError(transcript.TierStore, transcript.KindStorage,
			fmt.Sprintf("transcript for %s vanished after save", videoID))
	}
	return rec, nil
}

// ProcessVideo runs the full pipeline: acquire a transcript, then produce a
// verdict, reusing cached results unless forced.
func (p *Pipeline) ProcessVideo(ctx context.Context, reference string, forceExtract, forceAnalysis bool) (*Result, error) {
	rec, fromCache, err := p.AcquireTranscript(ctx, reference, forceExtract)
	if err != nil {
		return nil, err
	}

	result := &Result{Record: rec, FromCache: fromCache}

	if !forceExtract && !forceAnalysis {
		verdict, found, err := p.analyzer.CachedVerdict(ctx, rec.VideoID)
		if err != nil {
			return nil, err
		}
		if found {
			log.Info("Using cached verdict for %s", rec.VideoID)
			result.Verdict = verdict
			result.VerdictFromCache = true
			return result, nil
		}
	}

	verdict, err := p.analyzer.Analyze(ctx, rec)
	if err != nil {
		return nil, err
	}
	result.Verdict = verdict
	return result, nil
}

// ListTranscripts returns the most recent stored transcripts.
func (p *Pipeline) ListTranscripts(ctx context.Context, limit int) ([]transcript.Record, error) {
	if limit <= 0 {
		limit = 10
	}
	return p.store.ListTranscripts(ctx, limit)
}
