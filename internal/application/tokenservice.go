package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/ghbulkreview/internal/domain/model"
	"github.com/ericfisherdev/ghbulkreview/internal/domain/port/driven"
)

var (
	// ErrEmptyToken is returned when an empty token is submitted.
	ErrEmptyToken = errors.New("token must not be empty")
	// ErrTokenRejected wraps the error of a token GitHub did not accept.
	ErrTokenRejected = errors.New("token rejected by GitHub")
)

// ClientFactory builds a GitHub client authenticated with token.
type ClientFactory func(token string) driven.GitHubClient

// TokenService manages the GitHub token: it validates and stores new tokens
// encrypted, and swaps the provider's client so later calls use them.
type TokenService struct {
	provider  *GitHubClientProvider
	creds     driven.CredentialStore
	newClient ClientFactory
	onChange  func()
}

// NewTokenService creates a new TokenService. onChange, if non-nil, runs after
// every token change.
func NewTokenService(provider *GitHubClientProvider, creds driven.CredentialStore, newClient ClientFactory, onChange func()) *TokenService {
	return &TokenService{
		provider:  provider,
		creds:     creds,
		newClient: newClient,
		onChange:  onChange,
	}
}

// Restore installs a client for the stored token, falling back to envToken.
// Without an encryption key no token can be stored, so envToken is used. It
// does not contact GitHub. It reports whether a client was installed.
func (s *TokenService) Restore(ctx context.Context, envToken string) (bool, error) {
	token, err := s.creds.Get(ctx, model.CredentialGitHub)
	switch {
	case errors.Is(err, driven.ErrEncryptionKeyNotSet):
		slog.Debug("credential store disabled, skipping stored token")
	case err != nil:
		return false, fmt.Errorf("reading stored token: %w", err)
	}

	source := "credential store"
	if token == "" {
		token = strings.TrimSpace(envToken)
		source = "environment"
	}
	if token == "" {
		slog.Warn("no GitHub token configured")
		return false, nil
	}

	s.provider.Replace(s.newClient(token), "")
	slog.Info("GitHub token loaded", "source", source)
	return true, nil
}

// Save validates token against GitHub, stores it, and swaps the active
// client. It returns the login the token belongs to.
func (s *TokenService) Save(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrEmptyToken
	}

	client := s.newClient(token)
	login, err := client.ValidateToken(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenRejected, err)
	}

	if err := s.creds.Set(ctx, model.CredentialGitHub, token); err != nil {
		return "", fmt.Errorf("storing token: %w", err)
	}

	s.provider.Replace(client, login)
	s.changed()

	slog.Info("GitHub token updated", "login", login)
	return login, nil
}

// Clear removes the stored token and drops the active client.
func (s *TokenService) Clear(ctx context.Context) error {
	if err := s.creds.Delete(ctx, model.CredentialGitHub); err != nil {
		return fmt.Errorf("removing token: %w", err)
	}

	s.provider.Replace(nil, "")
	s.changed()

	slog.Info("GitHub token removed")
	return nil
}

func (s *TokenService) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}
