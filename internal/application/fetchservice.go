package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/ericfisherdev/ghbulkreview/internal/domain/model"
	"github.com/ericfisherdev/ghbulkreview/internal/domain/port/driven"
)

// FetchCache is the query cache used by FetchService.
type FetchCache = QueryCache[model.Query, []model.EnrichedPullRequest]

// NewFetchCache creates a FetchCache with the given TTL.
func NewFetchCache(ttl time.Duration) *FetchCache {
	return NewQueryCache[model.Query, []model.EnrichedPullRequest](ttl, nil)
}

// FetchService resolves queries into enriched pull requests. Per-PR detail
// lookups run on the injected Executor.
type FetchService struct {
	provider    *GitHubClientProvider
	executor    Executor
	cache       *FetchCache
	callTimeout time.Duration
	now         func() time.Time
}

// NewFetchService creates a new FetchService. cache may be nil to disable
// result caching.
func NewFetchService(provider *GitHubClientProvider, executor Executor, cache *FetchCache, callTimeout time.Duration) *FetchService {
	return &FetchService{
		provider:    provider,
		executor:    executor,
		cache:       cache,
		callTimeout: callTimeout,
		now:         time.Now,
	}
}

// Fetch searches for open pull requests matching q and enriches each one.
// A result for an identical query is served from the cache until it expires,
// unless q.FetchNow is set; a forced fetch still refreshes the cached entry.
// Any per-PR failure fails the whole fetch.
func (s *FetchService) Fetch(ctx context.Context, q model.Query) ([]model.EnrichedPullRequest, error) {
	// FetchNow only decides whether the cache is read.
	key := q
	key.FetchNow = false

	if s.cache != nil && !q.FetchNow {
		if cached, ok := s.cache.Get(key); ok {
			slog.Debug("fetch served from cache", "filter", q.FilterString(), "count", len(cached))
			return slices.Clone(cached), nil
		}
	}

	client, err := s.provider.Client()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	filter := q.FilterString()

	var handles []model.PRHandle
	err = callWithTimeout(ctx, s.callTimeout, func(ctx context.Context) error {
		var searchErr error
		handles, searchErr = client.SearchPullRequests(ctx, filter)
		return searchErr
	})
	if err != nil {
		return nil, fmt.Errorf("searching pull requests: %w", err)
	}

	checkCI := make([]bool, len(handles))
	for i := range checkCI {
		checkCI[i] = q.CheckCI
	}

	prs, err := s.enrichAll(ctx, client, handles, checkCI)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Put(key, slices.Clone(prs))
	}

	slog.Info("fetch complete",
		"filter", filter,
		"count", len(prs),
		"check_ci", q.CheckCI,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return prs, nil
}

// InvalidateCache drops every cached result.
func (s *FetchService) InvalidateCache() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

// Refetch re-resolves each mutated handle by repository and number and merges
// the fresh entries into previous. A handle keeps the CI-check setting of its
// previous entry. The cache is bypassed.
func (s *FetchService) Refetch(ctx context.Context, previous []model.EnrichedPullRequest, mutated []model.PRHandle) ([]model.EnrichedPullRequest, error) {
	if len(mutated) == 0 {
		return slices.Clone(previous), nil
	}

	client, err := s.provider.Client()
	if err != nil {
		return nil, err
	}

	ciByHandle := make(map[model.PRHandle]bool, len(previous))
	for _, pr := range previous {
		ciByHandle[pr.Handle()] = pr.CIChecked
	}

	checkCI := make([]bool, len(mutated))
	for i, h := range mutated {
		checkCI[i] = ciByHandle[h]
	}

	fresh, err := s.enrichAll(ctx, client, mutated, checkCI)
	if err != nil {
		return nil, fmt.Errorf("refetching mutated pull requests: %w", err)
	}

	slog.Debug("refetch complete", "mutated", len(mutated))

	return MergeWorkingSet(previous, fresh), nil
}

// enrichAll enriches every handle on the executor. Results land in the slot
// matching their handle's index.
func (s *FetchService) enrichAll(ctx context.Context, client driven.GitHubClient, handles []model.PRHandle, checkCI []bool) ([]model.EnrichedPullRequest, error) {
	results := make([]model.EnrichedPullRequest, len(handles))
	tasks := make([]Task, len(handles))

	for i, h := range handles {
		tasks[i] = func(ctx context.Context) error {
			pr, err := s.enrich(ctx, client, h, checkCI[i])
			if err != nil {
				return fmt.Errorf("enriching %s: %w", h, err)
			}
			results[i] = pr
			return nil
		}
	}

	if err := s.executor.Run(ctx, tasks); err != nil {
		return nil, err
	}

	return results, nil
}

// enrich fetches the detail and reviews of one pull request, plus its check
// runs when checkCI is set, and derives the status flags.
func (s *FetchService) enrich(ctx context.Context, client driven.GitHubClient, h model.PRHandle, checkCI bool) (model.EnrichedPullRequest, error) {
	var detail *model.PullRequest
	err := callWithTimeout(ctx, s.callTimeout, func(ctx context.Context) error {
		var fetchErr error
		detail, fetchErr = client.FetchPullRequest(ctx, h.RepoFullName, h.Number)
		return fetchErr
	})
	if err != nil {
		return model.EnrichedPullRequest{}, err
	}

	var reviews []model.Review
	err = callWithTimeout(ctx, s.callTimeout, func(ctx context.Context) error {
		var fetchErr error
		reviews, fetchErr = client.FetchReviews(ctx, h.RepoFullName, h.Number)
		return fetchErr
	})
	if err != nil {
		return model.EnrichedPullRequest{}, err
	}

	pr := model.EnrichedPullRequest{
		Number:       h.Number,
		RepoFullName: h.RepoFullName,
		Title:        detail.Title,
		Author:       detail.Author,
		URL:          detail.URL,
		HeadSHA:      detail.HeadSHA,
		NeedsRebase:  !detail.Mergeable.IsMergeable(),
		IsApproved:   IsApproved(reviews),
		CIChecked:    checkCI,
		IsMerged:     detail.Merged,
		FetchedAt:    s.now(),
	}

	if checkCI {
		ready, err := s.checkReady(ctx, client, h.RepoFullName, detail)
		if err != nil {
			return model.EnrichedPullRequest{}, err
		}
		pr.IsReadyToMerge = ready
	}

	return pr, nil
}

// checkReady lists the check runs of the head commit and evaluates merge
// readiness against detail's mergeable state.
func (s *FetchService) checkReady(ctx context.Context, client driven.GitHubClient, repoFullName string, detail *model.PullRequest) (bool, error) {
	var runs []model.CheckRun
	err := callWithTimeout(ctx, s.callTimeout, func(ctx context.Context) error {
		var fetchErr error
		runs, fetchErr = client.FetchCheckRuns(ctx, repoFullName, detail.HeadSHA)
		return fetchErr
	})
	if err != nil {
		return false, err
	}

	return IsReadyToMerge(detail.Mergeable, runs), nil
}
