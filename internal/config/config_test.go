package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every GHBULKREVIEW_ env var that Load() reads.
var allConfigKeys = []string{
	"GHBULKREVIEW_GITHUB_TOKEN",
	"GHBULKREVIEW_DB_PATH",
	"GHBULKREVIEW_LISTEN_ADDR",
	"GHBULKREVIEW_WORKERS",
	"GHBULKREVIEW_CACHE_TTL",
	"GHBULKREVIEW_CALL_TIMEOUT",
	"GHBULKREVIEW_BATCH_SIZE",
	"GHBULKREVIEW_BATCH_PAUSE",
	"GHBULKREVIEW_APPROVE_MERGE_DELAY",
	"GHBULKREVIEW_LOG_LEVEL",
	"GHBULKREVIEW_SECRET_KEY",
}

// isolateConfigEnv saves and unsets all GHBULKREVIEW_ env vars so tests don't
// inherit values from the host environment. t.Cleanup restores them.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("GHBULKREVIEW_GITHUB_TOKEN", "ghp_test123")
	t.Setenv("GHBULKREVIEW_DB_PATH", "/tmp/test.db")
	t.Setenv("GHBULKREVIEW_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("GHBULKREVIEW_WORKERS", "8")
	t.Setenv("GHBULKREVIEW_CACHE_TTL", "1m")
	t.Setenv("GHBULKREVIEW_CALL_TIMEOUT", "10s")
	t.Setenv("GHBULKREVIEW_BATCH_SIZE", "25")
	t.Setenv("GHBULKREVIEW_BATCH_PAUSE", "0s")
	t.Setenv("GHBULKREVIEW_APPROVE_MERGE_DELAY", "2s")
	t.Setenv("GHBULKREVIEW_LOG_LEVEL", "debug")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "ghp_test123", cfg.GitHubToken)
	assert.True(t, cfg.HasGitHubToken())
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, 10*time.Second, cfg.CallTimeout)
	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, time.Duration(0), cfg.BatchPause)
	assert.Equal(t, 2*time.Second, cfg.ApproveMergeDelay)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.False(t, cfg.HasGitHubToken())
	assert.Equal(t, "ghbulkreview.db", cfg.DBPath)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 30*time.Second, cfg.CallTimeout)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, time.Second, cfg.BatchPause)
	assert.Equal(t, time.Second, cfg.ApproveMergeDelay)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Nil(t, cfg.SecretKey)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "workers not a number", key: "GHBULKREVIEW_WORKERS", value: "four", wantErr: "GHBULKREVIEW_WORKERS has invalid integer"},
		{name: "zero workers", key: "GHBULKREVIEW_WORKERS", value: "0", wantErr: "GHBULKREVIEW_WORKERS must be positive"},
		{name: "negative batch size", key: "GHBULKREVIEW_BATCH_SIZE", value: "-3", wantErr: "GHBULKREVIEW_BATCH_SIZE must be positive"},
		{name: "bad ttl", key: "GHBULKREVIEW_CACHE_TTL", value: "5 minutes", wantErr: "GHBULKREVIEW_CACHE_TTL has invalid duration"},
		{name: "negative timeout", key: "GHBULKREVIEW_CALL_TIMEOUT", value: "-1s", wantErr: "GHBULKREVIEW_CALL_TIMEOUT must not be negative"},
		{name: "bad log level", key: "GHBULKREVIEW_LOG_LEVEL", value: "loud", wantErr: "GHBULKREVIEW_LOG_LEVEL has invalid level"},
		{name: "secret key too short", key: "GHBULKREVIEW_SECRET_KEY", value: "deadbeef", wantErr: "GHBULKREVIEW_SECRET_KEY must be 32 bytes"},
		{name: "secret key not hex", key: "GHBULKREVIEW_SECRET_KEY", value: strings.Repeat("z", 64), wantErr: "GHBULKREVIEW_SECRET_KEY must be hex-encoded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()

			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_SecretKey(t *testing.T) {
	isolateConfigEnv(t)
	// 64 hex chars = 32 bytes
	t.Setenv("GHBULKREVIEW_SECRET_KEY", "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20")

	cfg, err := Load()

	require.NoError(t, err)
	require.Len(t, cfg.SecretKey, 32)
	assert.Equal(t, byte(0x01), cfg.SecretKey[0])
	assert.Equal(t, byte(0x20), cfg.SecretKey[31])
}

func TestLoad_DotEnvFile(t *testing.T) {
	isolateConfigEnv(t)
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile(".env", []byte("GHBULKREVIEW_WORKERS=2\nGHBULKREVIEW_DB_PATH=from-file.db\n"), 0o600))
	t.Setenv("GHBULKREVIEW_DB_PATH", "from-env.db")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "from-env.db", cfg.DBPath, "environment wins over .env")
}
