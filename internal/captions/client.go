// Package captions wraps the primary captions API: the watch-page track list
// and the timedtext endpoints behind it.
package captions

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tmarkov/yt-verdict/internal/transcript"
	"github.com/tmarkov/yt-verdict/pkg/log"
)

const defaultBaseURL = "https://www.youtube.com"

// Config holds the caption client configuration.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

func (c *Config) withDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (compatible; transcript-fetcher)"
	}
}

// Client fetches caption tracks for a video. It implements
// transcript.CaptionSource.
type Client struct {
	config     Config
	httpClient *http.Client
	baseURL    string
}

func NewClient(config Config) *Client {
	config.withDefaults()
	return &Client{
		config:  config,
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// FetchPreferred requests captions in preference order. The language code
// returned is the first requested code that matched; the API does not echo
// back the language it actually served.
func (c *Client) FetchPreferred(ctx context.Context, videoID string, languages []string) ([]transcript.Segment, string, error) {
	if len(languages) == 0 {
		languages = []string{"en"}
	}

	tracks, err := c.listTracks(ctx, videoID, transcript.TierPreferred)
	if err != nil {
		return nil, "", err
	}

	for _, lang := range languages {
		for _, manual := range []bool{true, false} {
			track, ok := findTrack(tracks, lang, manual)
			if !ok {
				continue
			}
			segments, err := c.fetchTrack(ctx, track)
			if err != nil {
				// Broken caption payloads are recoverable; the next
				// tier may still succeed.
				return nil, "", transcript.WrapTierError(transcript.TierPreferred, transcript.KindUnknown,
					fmt.Sprintf("fetching %s track failed", track), err)
			}
			return segments, lang, nil
		}
	}

	return nil, "", transcript.NewTierError(transcript.TierPreferred, transcript.KindNoMatchForLanguages,
		fmt.Sprintf("no caption track for languages %v (have %d tracks)", languages, len(tracks)))
}

// FetchAny enumerates all tracks and fetches the best candidate: a manual
// track in a preferred language, then an auto-generated one, then the first
// track of any language. Candidates that fail to fetch or parse are logged
// and skipped.
func (c *Client) FetchAny(ctx context.Context, videoID string, languages []string) ([]transcript.Segment, string, error) {
	tracks, err := c.listTracks(ctx, videoID, transcript.TierListing)
	if err != nil {
		return nil, "", err
	}
	if len(tracks) == 0 {
		return nil, "", transcript.NewTierError(transcript.TierListing, transcript.KindNoTracksAvailable,
			"video lists no caption tracks")
	}

	log.Info("Available caption tracks for %s: %v", videoID, tracks)

	var lastErr error
	for _, track := range candidateOrder(tracks, languages) {
		segments, err := c.fetchTrack(ctx, track)
		if err != nil {
			log.Warn("Skipping unparseable caption track %s: %v", track, err)
			lastErr = err
			continue
		}
		log.Info("Using caption track %s for %s", track, videoID)
		return segments, track.LanguageCode, nil
	}

	return nil, "", transcript.WrapTierError(transcript.TierListing, transcript.KindNoTracksAvailable,
		"every enumerable caption track failed to fetch", lastErr)
}

// listTracks enumerates the caption tracks the watch page advertises,
// tagging failures with the tier that asked.
func (c *Client) listTracks(ctx context.Context, videoID string, tier transcript.Tier) ([]Track, error) {
	page, err := c.fetchWatchPage(ctx, videoID, tier)
	if err != nil {
		return nil, err
	}
	return parseTrackList(page, videoID, tier)
}

func (c *Client) fetchWatchPage(ctx context.Context, videoID string, tier transcript.Tier) (string, error) {
	u := fmt.Sprintf("%s/watch?v=%s", c.baseURL, url.QueryEscape(videoID))
	body, err := c.get(ctx, u)
	if err != nil {
		return "", transcript.WrapTierError(tier, transcript.KindUnknown,
			"watch page request failed", err)
	}
	return string(body), nil
}

func (c *Client) fetchTrack(ctx context.Context, track Track) ([]transcript.Segment, error) {
	body, err := c.get(ctx, track.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("track fetch: %w", err)
	}

	var doc timedText
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("timedtext parse: %w", err)
	}

	return normalizeSegments(doc), nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept-Language", "en-US")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("request returned status %d", resp.StatusCode)
	}
	return body, nil
}

// parseTrackList extracts the captions renderer JSON embedded in the watch
// page. Absence of the renderer distinguishes "captions disabled" from
// "video unavailable".
func parseTrackList(page, videoID string, tier transcript.Tier) ([]Track, error) {
	parts := strings.SplitN(page, `"captions":`, 2)
	if len(parts) < 2 {
		if strings.Contains(page, `"playabilityStatus":{"status":"ERROR"`) ||
			!strings.Contains(page, `"playabilityStatus"`) {
			return nil, transcript.NewTierError(tier, transcript.KindSourceUnavailable,
				fmt.Sprintf("video %s is unavailable", videoID))
		}
		return nil, transcript.NewTierError(tier, transcript.KindSourceDisabled,
			fmt.Sprintf("captions are disabled for video %s", videoID))
	}

	raw := strings.SplitN(parts[1], `,"videoDetails`, 2)[0]
	raw = strings.ReplaceAll(raw, "\n", " ")

	var renderer captionsRenderer
	if err := json.Unmarshal([]byte(raw), &renderer); err != nil {
		return nil, transcript.WrapTierError(tier, transcript.KindUnknown,
			"cannot parse caption track list", err)
	}

	tracks := make([]Track, 0, len(renderer.PlayerCaptionsTracklistRenderer.CaptionTracks))
	for _, ct := range renderer.PlayerCaptionsTracklistRenderer.CaptionTracks {
		name := ct.Name.SimpleText
		if name == "" && len(ct.Name.Runs) > 0 {
			name = ct.Name.Runs[0].Text
		}
		tracks = append(tracks, Track{
			BaseURL:       ct.BaseURL,
			LanguageCode:  ct.LanguageCode,
			Name:          name,
			AutoGenerated: ct.Kind == "asr",
		})
	}
	return tracks, nil
}

// normalizeSegments is the single point where upstream caption payloads are
// converted into the segment model; downstream code never re-checks shapes.
func normalizeSegments(doc timedText) []transcript.Segment {
	segments := make([]transcript.Segment, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		// Payload entities are escaped twice in practice; xml.Unmarshal
		// removed one layer already.
		text := strings.TrimSpace(html.UnescapeString(t.Body))
		if text == "" {
			continue
		}
		start := t.Start
		if start < 0 {
			start = 0
		}
		dur := t.Dur
		if dur < 0 {
			dur = 0
		}
		segments = append(segments, transcript.Segment{
			Text:     text,
			Start:    start,
			Duration: dur,
		})
	}
	return segments
}
