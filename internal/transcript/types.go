package transcript

import (
	"fmt"
	"strings"
	"time"
)

// Segment is one timed caption entry, normalized from whatever shape the
// upstream source returned it in.
type Segment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`    // seconds
	Duration float64 `json:"duration"` // seconds
}

// Record is one stored transcript row. The most recently extracted row for a
// video identifier is the authoritative one.
type Record struct {
	ID             int64
	VideoID        string
	Title          string
	Channel        string
	Text           string
	Language       string
	ExtractionDate time.Time
}

// JoinText concatenates segment text with newlines, the form stored in the
// transcript_text column.
func JoinText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		parts = append(parts, seg.Text)
	}
	return strings.Join(parts, "\n")
}

// FormatSegments renders segments as a human-readable transcript with
// [MM:SS] prefixes, one line per segment.
func FormatSegments(segments []Segment) string {
	if len(segments) == 0 {
		return "<no transcript available>"
	}
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		lines = append(lines, fmt.Sprintf("[%s] %s", formatTime(seg.Start), seg.Text))
	}
	return strings.Join(lines, "\n")
}

func formatTime(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
