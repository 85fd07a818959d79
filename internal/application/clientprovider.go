package application

import (
	"errors"
	"sync"

	"github.com/ericfisherdev/ghbulkreview/internal/domain/port/driven"
)

// ErrNoGitHubClient is returned when an operation needs GitHub but no token
// has been configured.
var ErrNoGitHubClient = errors.New("no GitHub token configured")

// GitHubClientProvider enables runtime hot-swap of the GitHub client.
// It holds a mutex-protected reference to the current driven.GitHubClient
// and associated username, so a token update takes effect without a restart.
type GitHubClientProvider struct {
	mu       sync.RWMutex
	client   driven.GitHubClient
	username string
}

// NewGitHubClientProvider creates a new provider with the given initial client
// and username. client may be nil if no token is available at startup.
func NewGitHubClientProvider(client driven.GitHubClient, username string) *GitHubClientProvider {
	return &GitHubClientProvider{
		client:   client,
		username: username,
	}
}

// Get returns the current GitHub client, or nil when none is configured.
func (p *GitHubClientProvider) Get() driven.GitHubClient {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}

// Client returns the current GitHub client or ErrNoGitHubClient.
func (p *GitHubClientProvider) Client() (driven.GitHubClient, error) {
	if c := p.Get(); c != nil {
		return c, nil
	}
	return nil, ErrNoGitHubClient
}

// Username returns the login the current token was validated as. It is empty
// when the token was restored without validation.
func (p *GitHubClientProvider) Username() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.username
}

// Replace swaps the current client and username. Callers already holding the
// previous client finish their work with it.
func (p *GitHubClientProvider) Replace(client driven.GitHubClient, username string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client = client
	p.username = username
}

// HasClient returns true if a non-nil client is currently held.
func (p *GitHubClientProvider) HasClient() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client != nil
}
