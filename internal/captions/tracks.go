package captions

import (
	"golang.org/x/text/language"
)

// langMatches reports whether a track's language code satisfies a requested
// code. Exact matches win; otherwise base languages are compared so "en"
// accepts "en-US".
func langMatches(trackCode, requested string) bool {
	if trackCode == requested {
		return true
	}
	trackTag := language.Make(trackCode)
	requestedTag := language.Make(requested)
	if trackTag == language.Und || requestedTag == language.Und {
		return false
	}
	trackBase, _ := trackTag.Base()
	requestedBase, _ := requestedTag.Base()
	return trackBase == requestedBase
}

// findTrack returns the first track matching the language with the requested
// manual/auto flavor.
func findTrack(tracks []Track, lang string, manual bool) (Track, bool) {
	for _, track := range tracks {
		if track.AutoGenerated == !manual && langMatches(track.LanguageCode, lang) {
			return track, true
		}
	}
	return Track{}, false
}

// candidateOrder lists tracks in strict selection priority: manually created
// tracks in a preferred language, then auto-generated tracks in a preferred
// language, then every remaining track in listing order.
func candidateOrder(tracks []Track, languages []string) []Track {
	ordered := make([]Track, 0, len(tracks))
	seen := make(map[string]bool, len(tracks))

	add := func(track Track) {
		if seen[track.BaseURL+"|"+track.LanguageCode] {
			return
		}
		seen[track.BaseURL+"|"+track.LanguageCode] = true
		ordered = append(ordered, track)
	}

	for _, manual := range []bool{true, false} {
		for _, lang := range languages {
			if track, ok := findTrack(tracks, lang, manual); ok {
				add(track)
			}
		}
	}
	for _, track := range tracks {
		add(track)
	}
	return ordered
}
