package transcript

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var bareIDRe = regexp.MustCompile(`^[\w-]{6,64}$`)

func isYouTubeHost(host string) bool {
	switch host {
	case "www.youtube.com", "youtube.com", "m.youtube.com", "youtu.be":
		return true
	}
	return false
}

// ExtractVideoID resolves a caller-supplied reference, either a full YouTube
// URL or a bare video identifier, into the canonical video ID. It fails with
// KindInvalidReference rather than returning an empty or placeholder value.
func ExtractVideoID(reference string) (string, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return "", NewTierError(TierReference, KindInvalidReference, "empty reference")
	}

	if strings.Contains(reference, "://") || strings.ContainsAny(reference, "/?.") {
		return extractFromURL(reference)
	}

	// Plain token: pass through after a character sanity check.
	if !bareIDRe.MatchString(reference) {
		return "", NewTierError(TierReference, KindInvalidReference,
			fmt.Sprintf("%q is not a valid video identifier", reference))
	}
	return reference, nil
}

func extractFromURL(reference string) (string, error) {
	raw := reference
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", WrapTierError(TierReference, KindInvalidReference,
			fmt.Sprintf("cannot parse %q as a URL", reference), err)
	}

	host := strings.ToLower(parsed.Hostname())
	if !isYouTubeHost(host) {
		return "", NewTierError(TierReference, KindInvalidReference,
			fmt.Sprintf("unsupported host %q", host))
	}

	var id string
	switch host {
	case "youtu.be":
		id = firstPathSegment(parsed.Path)
	default:
		switch {
		case parsed.Path == "/watch":
			id = parsed.Query().Get("v")
		case strings.HasPrefix(parsed.Path, "/embed/"):
			id = pathSegment(parsed.Path, 2)
		case strings.HasPrefix(parsed.Path, "/v/"):
			id = pathSegment(parsed.Path, 2)
		}
	}

	if id == "" {
		return "", NewTierError(TierReference, KindInvalidReference,
			fmt.Sprintf("could not extract a video ID from %q: unsupported URL format", reference))
	}
	return id, nil
}

func firstPathSegment(path string) string {
	return pathSegment(path, 1)
}

func pathSegment(path string, idx int) string {
	parts := strings.Split(path, "/")
	if idx >= len(parts) {
		return ""
	}
	return parts[idx]
}
