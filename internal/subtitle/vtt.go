// Package subtitle parses WebVTT cue text into transcript segments.
package subtitle

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tmarkov/yt-verdict/internal/transcript"
	"github.com/tmarkov/yt-verdict/pkg/log"
)

// timing line: "HH:MM:SS.mmm --> HH:MM:SS.mmm" with optional hours and either
// "." or "," as the decimal separator; trailing cue settings are ignored.
var timingRe = regexp.MustCompile(`(?:(\d{1,2}):)?(\d{1,2}):(\d{2})[.,](\d{1,3})\s*-->\s*(?:(\d{1,2}):)?(\d{1,2}):(\d{2})[.,](\d{1,3})`)

var blockSplitRe = regexp.MustCompile(`\n\s*\n`)

var tagRe = regexp.MustCompile(`<[^>]*>`)

// ParseVTT splits raw WebVTT text into blank-line-delimited blocks and
// converts each block with a recognizable timing line into one segment.
// Blocks without a timing line are logged at debug level and skipped, never
// aborting the parse. An empty result means every block was unparseable.
func ParseVTT(raw string) []transcript.Segment {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	blocks := blockSplitRe.Split(normalized, -1)

	segments := make([]transcript.Segment, 0, len(blocks))
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" || isHeaderBlock(block) {
			continue
		}

		seg, ok := parseBlock(block)
		if !ok {
			log.Debug("Skipping cue block without timing line: %.60q", block)
			continue
		}
		segments = append(segments, seg)
	}
	return segments
}

func isHeaderBlock(block string) bool {
	return strings.HasPrefix(block, "WEBVTT") ||
		strings.HasPrefix(block, "NOTE") ||
		strings.HasPrefix(block, "STYLE") ||
		strings.HasPrefix(block, "REGION")
}

func parseBlock(block string) (transcript.Segment, bool) {
	lines := strings.Split(block, "\n")

	timingIdx := -1
	var match []string
	for i, line := range lines {
		if m := timingRe.FindStringSubmatch(line); m != nil {
			timingIdx = i
			match = m
			break
		}
	}
	if timingIdx < 0 {
		return transcript.Segment{}, false
	}

	start := timestampSeconds(match[1], match[2], match[3], match[4])
	end := timestampSeconds(match[5], match[6], match[7], match[8])
	duration := end - start
	if duration < 0 {
		duration = 0
	}

	textLines := make([]string, 0, len(lines)-timingIdx-1)
	for _, line := range lines[timingIdx+1:] {
		line = strings.TrimSpace(tagRe.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		textLines = append(textLines, line)
	}
	if len(textLines) == 0 {
		return transcript.Segment{}, false
	}

	return transcript.Segment{
		Text:     strings.Join(textLines, " "),
		Start:    start,
		Duration: duration,
	}, true
}

func timestampSeconds(hours, minutes, seconds, fraction string) float64 {
	h := 0
	if hours != "" {
		h, _ = strconv.Atoi(hours)
	}
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)

	frac, _ := strconv.ParseFloat("0."+fraction, 64)
	return float64(h*3600+m*60+s) + frac
}
