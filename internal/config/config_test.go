package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmarkov/yt-verdict/pkg/log"
)

func TestNewFromEnvDefaults(t *testing.T) {
	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.Equal(t, filepath.Join("./data", "transcripts.db"), cfg.Storage.DBPath)
	assert.Equal(t, []string{"en", "en-GB", "en-US"}, cfg.Fetch.Languages)
	assert.Equal(t, "yt-dlp", cfg.Fetch.YtDlpPath)
	assert.Equal(t, 20, cfg.Fetch.FetchTimeout)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.LLM.APIURL)
	assert.Equal(t, log.LevelInfo, cfg.System.LogLevel)
}

func TestNewFromEnvOverrides(t *testing.T) {
	t.Setenv("YOUTUBE_LANGS", "de, fr ,es")
	t.Setenv("FETCH_TIMEOUT", "45")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FILE", "/var/log/ytverdict.log")
	t.Setenv("LLM_MODEL", "openai/gpt-4o-mini")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, []string{"de", "fr", "es"}, cfg.Fetch.Languages)
	assert.Equal(t, 45, cfg.Fetch.FetchTimeout)
	assert.Equal(t, log.LevelDebug, cfg.System.LogLevel)
	assert.Equal(t, "/var/log/ytverdict.log", cfg.System.LogFile)
	assert.Equal(t, "openai/gpt-4o-mini", cfg.LLM.Model)
}

func TestWithDataDirDerivesPaths(t *testing.T) {
	cfg, err := NewFromEnv(WithDataDir("/var/lib/ytverdict"))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/ytverdict", cfg.Storage.DataDir)
	assert.Equal(t, "/var/lib/ytverdict/transcripts.db", cfg.Storage.DBPath)
	assert.Equal(t, "/var/lib/ytverdict/transcripts", cfg.Storage.TranscriptsDir)
	assert.Equal(t, "/var/lib/ytverdict/results", cfg.Storage.ResultsDir)
}

func TestValidateRejectsBadTimeout(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT", "-1")

	_, err := NewFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FETCH_TIMEOUT")
}
