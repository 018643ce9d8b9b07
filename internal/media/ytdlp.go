// Package media shells out to yt-dlp for subtitle extraction and video
// metadata when the captions API yields nothing usable.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"sort"
	"time"

	"github.com/tmarkov/yt-verdict/internal/transcript"
	"github.com/tmarkov/yt-verdict/pkg/log"
)

const defaultDownloadTimeout = 30 * time.Second

type ytDlp struct {
	cmd        string
	httpClient *http.Client
}

// NewYtDlp creates a yt-dlp backed Operator. cmd defaults to "yt-dlp";
// timeout bounds the raw subtitle download request.
func NewYtDlp(cmd string, timeout time.Duration) Operator {
	if cmd == "" {
		cmd = "yt-dlp"
	}
	if timeout <= 0 {
		timeout = defaultDownloadTimeout
	}
	return ytDlp{
		cmd: cmd,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type subtitleFormat struct {
	URL  string `json:"url"`
	Ext  string `json:"ext"`
	Name string `json:"name"`
}

type videoInfo struct {
	Title             string                      `json:"title"`
	Uploader          string                      `json:"uploader"`
	Channel           string                      `json:"channel"`
	Subtitles         map[string][]subtitleFormat `json:"subtitles"`
	AutomaticCaptions map[string][]subtitleFormat `json:"automatic_captions"`
}

func (y ytDlp) DownloadSubtitles(ctx context.Context, videoID string, languages []string) (SubtitleDownload, error) {
	info, err := y.dumpInfo(ctx, videoID, transcript.TierFallbackTool)
	if err != nil {
		return SubtitleDownload{}, err
	}

	lang, formats, ok := pickTrack(info, languages)
	if !ok {
		return SubtitleDownload{}, transcript.NewTierError(transcript.TierFallbackTool, transcript.KindNoCaptionsOffered,
			fmt.Sprintf("yt-dlp reports no subtitle tracks for %s", videoID))
	}

	format := pickFormat(formats)
	log.Info("Downloading %s subtitles (%s) for %s via yt-dlp", lang, format.Ext, videoID)

	content, err := y.download(ctx, format.URL)
	if err != nil {
		return SubtitleDownload{}, transcript.WrapTierError(transcript.TierFallbackTool, transcript.KindFallbackExtractionFailed,
			fmt.Sprintf("downloading %s subtitle track failed", lang), err)
	}
	if len(content) == 0 {
		return SubtitleDownload{}, transcript.NewTierError(transcript.TierFallbackTool, transcript.KindFallbackExtractionFailed,
			fmt.Sprintf("empty subtitle payload for %s track %s", videoID, lang))
	}

	return SubtitleDownload{
		Content:  string(content),
		Language: lang,
		Format:   format.Ext,
	}, nil
}

func (y ytDlp) ProbeMetadata(ctx context.Context, videoID string) (string, string, error) {
	info, err := y.dumpInfo(ctx, videoID, transcript.TierStore)
	if err != nil {
		return "", "", err
	}
	channel := info.Uploader
	if channel == "" {
		channel = info.Channel
	}
	return info.Title, channel, nil
}

func (y ytDlp) dumpInfo(ctx context.Context, videoID string, tier transcript.Tier) (videoInfo, error) {
	cmdPath, err := exec.LookPath(y.cmd)
	if err != nil {
		return videoInfo{}, transcript.WrapTierError(tier, transcript.KindFallbackToolUnavailable,
			fmt.Sprintf("%s binary not found", y.cmd), err)
	}

	cmd := exec.CommandContext(ctx, cmdPath, y.dumpArgs(videoID)...)
	output, err := cmd.Output()
	if err != nil {
		return videoInfo{}, transcript.WrapTierError(tier, transcript.KindFallbackExtractionFailed,
			fmt.Sprintf("%s invocation failed for %s", y.cmd, videoID), err)
	}

	var info videoInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return videoInfo{}, transcript.WrapTierError(tier, transcript.KindFallbackExtractionFailed,
			"cannot parse yt-dlp JSON dump", err)
	}
	return info, nil
}

func (y ytDlp) dumpArgs(videoID string) []string {
	return []string{
		"-J",
		"--skip-download",
		"--no-warnings",
		"https://www.youtube.com/watch?v=" + videoID,
	}
}

func (y ytDlp) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := y.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("subtitle download returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// pickTrack selects the subtitle track: a manual track matching a requested
// language is checked before automatic captions; without any language match
// the first available track (manual before automatic, stable order) is used.
func pickTrack(info videoInfo, languages []string) (string, []subtitleFormat, bool) {
	for _, lang := range languages {
		if formats, ok := lookupLang(info.Subtitles, lang); ok {
			return lang, formats, true
		}
	}
	for _, lang := range languages {
		if formats, ok := lookupLang(info.AutomaticCaptions, lang); ok {
			return lang, formats, true
		}
	}
	if lang, formats, ok := firstTrack(info.Subtitles); ok {
		return lang, formats, ok
	}
	return firstTrack(info.AutomaticCaptions)
}

func lookupLang(tracks map[string][]subtitleFormat, lang string) ([]subtitleFormat, bool) {
	if formats, ok := tracks[lang]; ok && len(formats) > 0 {
		return formats, true
	}
	return nil, false
}

func firstTrack(tracks map[string][]subtitleFormat) (string, []subtitleFormat, bool) {
	keys := make([]string, 0, len(tracks))
	for lang, formats := range tracks {
		if len(formats) > 0 {
			keys = append(keys, lang)
		}
	}
	if len(keys) == 0 {
		return "", nil, false
	}
	sort.Strings(keys)
	return keys[0], tracks[keys[0]], true
}

// pickFormat prefers a WebVTT resource, else the first offered one.
func pickFormat(formats []subtitleFormat) subtitleFormat {
	for _, f := range formats {
		if f.Ext == "vtt" {
			return f
		}
	}
	return formats[0]
}
