package file

import (
	"regexp"
	"strings"
)

var nonWordRe = regexp.MustCompile(`[^\w\s-]`)

// SanitizeTitle turns an arbitrary video title into a filename-safe token:
// non-word characters stripped, spaces replaced with underscores, truncated
// to maxLen bytes.
func SanitizeTitle(title string, maxLen int) string {
	cleaned := nonWordRe.ReplaceAllString(title, "")
	cleaned = strings.ReplaceAll(cleaned, " ", "_")
	if maxLen > 0 && len(cleaned) > maxLen {
		cleaned = cleaned[:maxLen]
	}
	return cleaned
}

// SanitizeID makes a video identifier safe to embed in a filename.
func SanitizeID(id string) string {
	id = strings.ReplaceAll(id, "/", "_")
	return strings.ReplaceAll(id, "\\", "_")
}
