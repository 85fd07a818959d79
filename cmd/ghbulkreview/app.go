package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	githubadapter "github.com/ericfisherdev/ghbulkreview/internal/adapter/driven/github"
	sqliteadapter "github.com/ericfisherdev/ghbulkreview/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/ghbulkreview/internal/application"
	"github.com/ericfisherdev/ghbulkreview/internal/config"
	"github.com/ericfisherdev/ghbulkreview/internal/domain/port/driven"
)

// app is the composition root shared by every subcommand.
type app struct {
	cfg       *config.Config
	db        *sqliteadapter.DB
	provider  *application.GitHubClientProvider
	tokens    *application.TokenService
	workspace *application.Workspace
}

// newApp loads configuration, opens the database, and wires the services.
// The caller must call close.
func newApp(ctx context.Context) (*app, error) {
	// 1. Load configuration (fail fast on bad values).
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
	slog.Debug("config loaded",
		"db_path", cfg.DBPath,
		"workers", cfg.Workers,
		"cache_ttl", cfg.CacheTTL,
		"call_timeout", cfg.CallTimeout,
		"batch_size", cfg.BatchSize,
	)

	// 2. Open database and run migrations on the writer connection.
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, err
	}

	// 3. Wire adapters.
	settingStore := sqliteadapter.NewSettingRepo(db)
	outcomeStore := sqliteadapter.NewOutcomeRepo(db)
	credentialStore := sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)

	// 4. GitHub client behind a hot-swappable provider. A stored token wins
	// over the environment; storing one needs GHBULKREVIEW_SECRET_KEY.
	provider := application.NewGitHubClientProvider(nil, "")
	cache := application.NewFetchCache(cfg.CacheTTL)
	newClient := func(token string) driven.GitHubClient { return githubadapter.NewClient(token) }
	tokens := application.NewTokenService(provider, credentialStore, newClient, cache.Purge)
	if _, err := tokens.Restore(ctx, cfg.GitHubToken); err != nil {
		_ = db.Close()
		return nil, err
	}

	// 5. Services.
	pool := application.NewPoolExecutor(cfg.Workers)
	fetcher := application.NewFetchService(provider, pool, cache, cfg.CallTimeout)
	reviewer := application.NewReviewService(provider, pool, application.ReviewOptions{
		CallTimeout:       cfg.CallTimeout,
		BatchSize:         cfg.BatchSize,
		BatchPause:        cfg.BatchPause,
		ApproveMergeDelay: cfg.ApproveMergeDelay,
	})

	return &app{
		cfg:       cfg,
		db:        db,
		provider:  provider,
		tokens:    tokens,
		workspace: application.NewWorkspace(fetcher, reviewer, settingStore, outcomeStore),
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// withApp runs fn against a freshly wired app and closes it afterwards.
func withApp(ctx context.Context, fn func(*app) error) error {
	a, err := newApp(ctx)
	if err != nil {
		return fmt.Errorf("starting: %w", err)
	}
	defer a.close()
	return fn(a)
}
