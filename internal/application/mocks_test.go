package application_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ericfisherdev/ghbulkreview/internal/domain/model"
	"github.com/ericfisherdev/ghbulkreview/internal/domain/port/driven"
)

// --- GitHub client mock ---

// mockGitHubClient serves pull requests from an in-memory table and records
// every write. Function fields override the default behavior.
type mockGitHubClient struct {
	mu sync.Mutex

	searchResults []model.PRHandle
	details       map[model.PRHandle]*model.PullRequest
	reviews       map[model.PRHandle][]model.Review
	checkRuns     map[string][]model.CheckRun // keyed by head SHA

	searchFn        func(ctx context.Context, filter string) ([]model.PRHandle, error)
	fetchPRFn       func(ctx context.Context, repo string, number int) (*model.PullRequest, error)
	createCommentFn func(ctx context.Context, repo string, number int, body string) error
	createReviewFn  func(ctx context.Context, repo string, number int, event, body string) (*model.Review, error)
	mergeFn         func(ctx context.Context, repo string, number int) (*model.MergeResult, error)
	validateFn      func(ctx context.Context, token string) (string, error)

	searchFilters []string
	detailCalls   []model.PRHandle
	checkRunCalls []string
	comments      []model.PRHandle
	approvals     []model.PRHandle
	merges        []model.PRHandle
}

var _ driven.GitHubClient = (*mockGitHubClient)(nil)

func newMockGitHubClient() *mockGitHubClient {
	return &mockGitHubClient{
		details:   make(map[model.PRHandle]*model.PullRequest),
		reviews:   make(map[model.PRHandle][]model.Review),
		checkRuns: make(map[string][]model.CheckRun),
	}
}

// addPR registers a pull request as both a search result and a detail.
func (m *mockGitHubClient) addPR(pr model.PullRequest, reviews ...model.ReviewState) {
	h := pr.Handle()
	m.searchResults = append(m.searchResults, h)
	m.details[h] = &pr
	for i, state := range reviews {
		m.reviews[h] = append(m.reviews[h], model.Review{ID: int64(i + 1), State: state})
	}
}

func (m *mockGitHubClient) SearchPullRequests(ctx context.Context, filter string) ([]model.PRHandle, error) {
	m.mu.Lock()
	m.searchFilters = append(m.searchFilters, filter)
	m.mu.Unlock()

	if m.searchFn != nil {
		return m.searchFn(ctx, filter)
	}
	return append([]model.PRHandle(nil), m.searchResults...), nil
}

func (m *mockGitHubClient) FetchPullRequest(ctx context.Context, repo string, number int) (*model.PullRequest, error) {
	h := model.PRHandle{RepoFullName: repo, Number: number}

	m.mu.Lock()
	m.detailCalls = append(m.detailCalls, h)
	var cp model.PullRequest
	detail, ok := m.details[h]
	if ok {
		cp = *detail
	}
	m.mu.Unlock()

	if m.fetchPRFn != nil {
		return m.fetchPRFn(ctx, repo, number)
	}
	if !ok {
		return nil, fmt.Errorf("fetching PR %s: 404 Not Found", h)
	}
	return &cp, nil
}

func (m *mockGitHubClient) FetchReviews(_ context.Context, repo string, number int) ([]model.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reviews[model.PRHandle{RepoFullName: repo, Number: number}], nil
}

func (m *mockGitHubClient) FetchCheckRuns(_ context.Context, _ string, ref string) ([]model.CheckRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkRunCalls = append(m.checkRunCalls, ref)
	return m.checkRuns[ref], nil
}

func (m *mockGitHubClient) CreateIssueComment(ctx context.Context, repo string, number int, body string) error {
	if m.createCommentFn != nil {
		if err := m.createCommentFn(ctx, repo, number, body); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments = append(m.comments, model.PRHandle{RepoFullName: repo, Number: number})
	return nil
}

func (m *mockGitHubClient) CreateReview(ctx context.Context, repo string, number int, event, body string) (*model.Review, error) {
	if m.createReviewFn != nil {
		return m.createReviewFn(ctx, repo, number, event, body)
	}

	h := model.PRHandle{RepoFullName: repo, Number: number}
	review := model.Review{ID: 999, ReviewerLogin: "me", State: model.ReviewStateApproved, Body: body}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.approvals = append(m.approvals, h)
	m.reviews[h] = append(m.reviews[h], review)
	return &review, nil
}

func (m *mockGitHubClient) MergePullRequest(ctx context.Context, repo string, number int) (*model.MergeResult, error) {
	h := model.PRHandle{RepoFullName: repo, Number: number}

	m.mu.Lock()
	m.merges = append(m.merges, h)
	m.mu.Unlock()

	if m.mergeFn != nil {
		return m.mergeFn(ctx, repo, number)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if detail, ok := m.details[h]; ok {
		detail.Merged = true
	}
	return &model.MergeResult{Merged: true, SHA: "merge-sha", Message: "Pull Request successfully merged"}, nil
}

func (m *mockGitHubClient) ValidateToken(ctx context.Context, token string) (string, error) {
	if m.validateFn != nil {
		return m.validateFn(ctx, token)
	}
	return "octocat", nil
}

func (m *mockGitHubClient) mergeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.merges)
}

// --- Setting store mock ---

type mockSettingStore struct {
	mu     sync.Mutex
	values map[string]string
	setErr error
}

var _ driven.SettingStore = (*mockSettingStore)(nil)

func newMockSettingStore() *mockSettingStore {
	return &mockSettingStore{values: make(map[string]string)}
}

func (m *mockSettingStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *mockSettingStore) Set(_ context.Context, key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *mockSettingStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// --- Credential store mock ---

type mockCredentialStore struct {
	mu     sync.Mutex
	values map[string]string
	noKey  bool
}

var _ driven.CredentialStore = (*mockCredentialStore)(nil)

func newMockCredentialStore() *mockCredentialStore {
	return &mockCredentialStore{values: make(map[string]string)}
}

func (m *mockCredentialStore) Get(_ context.Context, service string) (string, error) {
	if m.noKey {
		return "", driven.ErrEncryptionKeyNotSet
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[service], nil
}

func (m *mockCredentialStore) Set(_ context.Context, service, plaintext string) error {
	if m.noKey {
		return driven.ErrEncryptionKeyNotSet
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[service] = plaintext
	return nil
}

func (m *mockCredentialStore) Delete(_ context.Context, service string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, service)
	return nil
}

// --- Outcome store mock ---

type mockOutcomeStore struct {
	mu      sync.Mutex
	records []model.OutcomeRecord
}

var _ driven.OutcomeStore = (*mockOutcomeStore)(nil)

func (m *mockOutcomeStore) Record(_ context.Context, records []model.OutcomeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
	return nil
}

func (m *mockOutcomeStore) ListRecent(_ context.Context, limit int) ([]model.OutcomeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.OutcomeRecord, 0, len(m.records))
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *mockOutcomeStore) ListByRun(_ context.Context, runID string) ([]model.OutcomeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.OutcomeRecord
	for _, r := range m.records {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out, nil
}

var errRemote = errors.New("remote failure")

// handle is shorthand for building a PRHandle in tests.
func handle(repo string, number int) model.PRHandle {
	return model.PRHandle{RepoFullName: repo, Number: number}
}
