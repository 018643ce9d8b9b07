package media

import "context"

// SubtitleDownload is the raw result of a tool-driven subtitle extraction.
// Content is unparsed cue text (WebVTT unless the track offered nothing else).
type SubtitleDownload struct {
	Content  string
	Language string
	Format   string
}

// Operator is the external download tool boundary.
type Operator interface {
	// DownloadSubtitles extracts a subtitle track for the video without
	// downloading any media, preferring the requested languages.
	DownloadSubtitles(ctx context.Context, videoID string, languages []string) (SubtitleDownload, error)
	// ProbeMetadata reads the video title and channel, best-effort.
	ProbeMetadata(ctx context.Context, videoID string) (title string, channel string, err error)
}
