package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestParse_Defaults(t *testing.T) {
	t.Parallel()
	cfg, err := Parse(env.Options{Environment: map[string]string{}})
	require.NoError(t, err)
	assert.Equal(t, "prompts", cfg.PromptsDir)
	assert.Equal(t, ":8080", cfg.Address)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "main", cfg.GitBranch)
	assert.True(t, cfg.StaleOnError)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 100, cfg.Log.MaxSizeMB)
	assert.Equal(t, SourceDir, cfg.Source())
}

func TestParse_Overrides(t *testing.T) {
	t.Parallel()
	cfg, err := Parse(env.Options{Environment: map[string]string{
		"PROMPTS_REMOTE_URL":   "https://prompts.example.com",
		"PROMPTS_REMOTE_TOKEN": "tok",
		"PROMPTS_GIT_URL":      "https://git.example.com/prompts.git",
		"PROMPTS_CACHE_TTL":    "30s",
		"DEFAULT_TAG":          "production",
		"ADDRESS":              "127.0.0.1:9000",
		"LOG_LEVEL":            "debug",
		"LOG_FORMAT":           "json",
		"LOG_FILE":             "/var/log/promptconv.log",
	}})
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, cfg.Source())
	assert.Equal(t, "tok", cfg.RemoteToken)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, "production", cfg.DefaultTag)
	assert.Equal(t, "127.0.0.1:9000", cfg.Address)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "/var/log/promptconv.log", cfg.Log.File)
}

func TestConfig_Source(t *testing.T) {
	t.Parallel()
	assert.Equal(t, SourceGit, (&Config{GitURL: "file:///repo"}).Source())
	assert.Equal(t, SourceRemote, (&Config{GitURL: "x", RemoteURL: "y"}).Source())
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()
	tests := map[string]map[string]string{
		"bad duration": {"PROMPTS_CACHE_TTL": "soon"},
		"negative ttl": {"PROMPTS_CACHE_TTL": "-1s"},
		"bad format":   {"LOG_FORMAT": "xml"},
		"bad bool":     {"PROMPTS_STALE_ON_ERROR": "maybe"},
	}
	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(env.Options{Environment: vars})
			require.Error(t, err)
		})
	}
}

// Load mutates the process environment, so this test is not parallel.
func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("DEFAULT_TAG=staging\nADDRESS=:7070\n"), 0o600))
	t.Setenv("DEFAULT_TAG", "")
	require.NoError(t, os.Unsetenv("DEFAULT_TAG"))
	t.Setenv("ADDRESS", ":6060")

	cfg, err := Load(filepath.Join(dir, "missing.env"), file)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.DefaultTag)
	assert.Equal(t, ":6060", cfg.Address, "variables already set win over the file")
}
