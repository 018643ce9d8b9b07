package captions

import "fmt"

// Track describes one caption track the video exposes.
type Track struct {
	BaseURL       string
	LanguageCode  string
	Name          string
	AutoGenerated bool
}

func (t Track) String() string {
	kind := "manual"
	if t.AutoGenerated {
		kind = "auto"
	}
	return fmt.Sprintf("%s (%s, %s)", t.LanguageCode, t.Name, kind)
}

// watch-page JSON shapes; only the fields the adapter needs.
type captionsRenderer struct {
	PlayerCaptionsTracklistRenderer struct {
		CaptionTracks []struct {
			BaseURL string `json:"baseUrl"`
			Name    struct {
				SimpleText string `json:"simpleText"`
				Runs       []struct {
					Text string `json:"text"`
				} `json:"runs"`
			} `json:"name"`
			LanguageCode string `json:"languageCode"`
			Kind         string `json:"kind"` // "asr" marks auto-generated tracks
		} `json:"captionTracks"`
	} `json:"playerCaptionsTracklistRenderer"`
}

// timedtext XML payload: <transcript><text start="…" dur="…">…</text></transcript>
type timedText struct {
	Texts []struct {
		Start float64 `xml:"start,attr"`
		Dur   float64 `xml:"dur,attr"`
		Body  string  `xml:",chardata"`
	} `xml:"text"`
}
