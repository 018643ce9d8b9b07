package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tmarkov/yt-verdict/pkg/log"
)

// MetadataCache stores lookup results keyed by video id. Incomplete results
// are cached too so a dead video is only probed once.
type MetadataCache interface {
	GetVideoMetadata(ctx context.Context, videoID string) (title string, channel string, found bool, err error)
	PutVideoMetadata(ctx context.Context, videoID string, title string, channel string) error
}

// Prober is the fallback metadata source, typically the external download
// tool. Used only when the oEmbed endpoint yields nothing.
type Prober interface {
	ProbeMetadata(ctx context.Context, videoID string) (title string, channel string, err error)
}

// Service resolves video title and channel with a cache in front of the
// oEmbed endpoint and the external tool behind it. Every layer is
// best-effort; the zero result is ("", "", nil).
type Service struct {
	cache      MetadataCache
	prober     Prober
	httpClient *http.Client
	oembedURL  string
}

type Option func(*Service)

// WithOEmbedURL overrides the oEmbed endpoint, mainly for tests.
func WithOEmbedURL(u string) Option {
	return func(s *Service) { s.oembedURL = u }
}

// WithHTTPClient overrides the HTTP client used for oEmbed requests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.httpClient = c }
}

func NewService(cache MetadataCache, prober Prober, opts ...Option) *Service {
	s := &Service{
		cache:      cache,
		prober:     prober,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		oembedURL:  "https://www.youtube.com/oembed",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LookupTitleAndChannel resolves metadata for videoID, consulting the cache
// first. A lookup that comes back empty is still cached.
func (s *Service) LookupTitleAndChannel(ctx context.Context, videoID string) (string, string, error) {
	if s.cache != nil {
		title, channel, found, err := s.cache.GetVideoMetadata(ctx, videoID)
		if err != nil {
			log.Warn("Metadata cache read failed for %s: %v", videoID, err)
		} else if found {
			return title, channel, nil
		}
	}

	title, channel := s.fetchOEmbed(ctx, videoID)
	if (title == "" || channel == "") && s.prober != nil {
		probedTitle, probedChannel, err := s.prober.ProbeMetadata(ctx, videoID)
		if err != nil {
			log.Debug("Metadata probe failed for %s: %v", videoID, err)
		} else {
			if title == "" {
				title = probedTitle
			}
			if channel == "" {
				channel = probedChannel
			}
		}
	}

	if s.cache != nil {
		if err := s.cache.PutVideoMetadata(ctx, videoID, title, channel); err != nil {
			log.Warn("Metadata cache write failed for %s: %v", videoID, err)
		}
	}

	return title, channel, nil
}

type oembedResponse struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
}

func (s *Service) fetchOEmbed(ctx context.Context, videoID string) (string, string) {
	watchURL := "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID)
	endpoint := fmt.Sprintf("%s?url=%s&format=json", s.oembedURL, url.QueryEscape(watchURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", ""
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Debug("oEmbed request failed for %s: %v", videoID, err)
		return "", ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Debug("oEmbed returned status %d for %s", resp.StatusCode, videoID)
		return "", ""
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", ""
	}

	var parsed oembedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		log.Debug("oEmbed response unparseable for %s: %v", videoID, err)
		return "", ""
	}
	return parsed.Title, parsed.AuthorName
}
