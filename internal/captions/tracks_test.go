package captions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTracks() []Track {
	return []Track{
		{BaseURL: "u1", LanguageCode: "de", Name: "German", AutoGenerated: false},
		{BaseURL: "u2", LanguageCode: "en", Name: "English (auto)", AutoGenerated: true},
		{BaseURL: "u3", LanguageCode: "en-GB", Name: "English (UK)", AutoGenerated: false},
		{BaseURL: "u4", LanguageCode: "fr", Name: "French", AutoGenerated: false},
	}
}

func TestLangMatches(t *testing.T) {
	assert.True(t, langMatches("en", "en"))
	assert.True(t, langMatches("en-US", "en"))
	assert.True(t, langMatches("en", "en-GB"))
	assert.False(t, langMatches("de", "en"))
	assert.False(t, langMatches("", "en"))
}

func TestFindTrackPrefersRequestedFlavor(t *testing.T) {
	tracks := sampleTracks()

	manual, ok := findTrack(tracks, "en", true)
	require.True(t, ok)
	assert.Equal(t, "en-GB", manual.LanguageCode)

	auto, ok := findTrack(tracks, "en", false)
	require.True(t, ok)
	assert.Equal(t, "u2", auto.BaseURL)

	_, ok = findTrack(tracks, "ja", true)
	assert.False(t, ok)
}

func TestCandidateOrderPolicy(t *testing.T) {
	tracks := sampleTracks()

	ordered := candidateOrder(tracks, []string{"en"})
	require.Len(t, ordered, 4)
	// manual preferred language first, then auto preferred, then the rest
	// in listing order.
	assert.Equal(t, "u3", ordered[0].BaseURL)
	assert.Equal(t, "u2", ordered[1].BaseURL)
	assert.Equal(t, "u1", ordered[2].BaseURL)
	assert.Equal(t, "u4", ordered[3].BaseURL)
}

func TestCandidateOrderNoPreferredMatch(t *testing.T) {
	tracks := sampleTracks()

	ordered := candidateOrder(tracks, []string{"ja"})
	require.Len(t, ordered, 4)
	assert.Equal(t, "u1", ordered[0].BaseURL)
}
