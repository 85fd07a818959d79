// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "GHBULKREVIEW_"

// Config holds the application configuration loaded from environment variables.
type Config struct {
	GitHubToken       string
	DBPath            string
	ListenAddr        string
	Workers           int
	CacheTTL          time.Duration
	CallTimeout       time.Duration
	BatchSize         int
	BatchPause        time.Duration
	ApproveMergeDelay time.Duration
	LogLevel          slog.Level

	// SecretKey is the 32-byte AES-256 key credentials are encrypted with.
	// Nil disables storing a token.
	SecretKey []byte
}

// HasGitHubToken reports whether a token was supplied through the
// environment. A token saved through the API takes precedence at startup.
func (c *Config) HasGitHubToken() bool {
	return c.GitHubToken != ""
}

// Load reads configuration from environment variables and returns a validated
// Config. A .env file in the working directory is loaded first when present;
// variables already set in the environment win over the file.
//
// All variables are optional: GHBULKREVIEW_GITHUB_TOKEN (""),
// GHBULKREVIEW_DB_PATH (ghbulkreview.db), GHBULKREVIEW_LISTEN_ADDR
// (127.0.0.1:8080), GHBULKREVIEW_WORKERS (4), GHBULKREVIEW_CACHE_TTL (5m),
// GHBULKREVIEW_CALL_TIMEOUT (30s), GHBULKREVIEW_BATCH_SIZE (10),
// GHBULKREVIEW_BATCH_PAUSE (1s), GHBULKREVIEW_APPROVE_MERGE_DELAY (1s),
// GHBULKREVIEW_LOG_LEVEL (info), GHBULKREVIEW_SECRET_KEY (unset; 64 hex
// characters).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		GitHubToken: os.Getenv(envPrefix + "GITHUB_TOKEN"),
		DBPath:      stringVar("DB_PATH", "ghbulkreview.db"),
		ListenAddr:  stringVar("LISTEN_ADDR", "127.0.0.1:8080"),
	}

	var err error
	if cfg.Workers, err = positiveIntVar("WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = positiveIntVar("BATCH_SIZE", 10); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = durationVar("CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.CallTimeout, err = durationVar("CALL_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.BatchPause, err = durationVar("BATCH_PAUSE", time.Second); err != nil {
		return nil, err
	}
	if cfg.ApproveMergeDelay, err = durationVar("APPROVE_MERGE_DELAY", time.Second); err != nil {
		return nil, err
	}

	if v, ok := os.LookupEnv(envPrefix + "LOG_LEVEL"); ok {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("%sLOG_LEVEL has invalid level %q: %w", envPrefix, v, err)
		}
	}

	if cfg.SecretKey, err = secretKeyVar("SECRET_KEY"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// secretKeyVar decodes a hex-encoded AES-256 key. Unset or empty yields nil.
func secretKeyVar(name string) ([]byte, error) {
	v := os.Getenv(envPrefix + name)
	if v == "" {
		return nil, nil
	}

	key, err := hex.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("%s%s must be hex-encoded: %w", envPrefix, name, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s%s must be 32 bytes (64 hex characters), got %d bytes", envPrefix, name, len(key))
	}
	return key, nil
}

func stringVar(name, fallback string) string {
	if v, ok := os.LookupEnv(envPrefix + name); ok && v != "" {
		return v
	}
	return fallback
}

func positiveIntVar(name string, fallback int) (int, error) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok {
		return fallback, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s%s has invalid integer %q: %w", envPrefix, name, v, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s%s must be positive, got %d", envPrefix, name, n)
	}
	return n, nil
}

// durationVar accepts zero, which disables the corresponding wait or bound.
func durationVar(name string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok {
		return fallback, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s%s has invalid duration %q: %w", envPrefix, name, v, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s%s must not be negative, got %s", envPrefix, name, d)
	}
	return d, nil
}
