package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/ghbulkreview/internal/application"
	"github.com/ericfisherdev/ghbulkreview/internal/domain/model"
)

func newFetchService(client *mockGitHubClient, cache *application.FetchCache) *application.FetchService {
	provider := application.NewGitHubClientProvider(client, "")
	return application.NewFetchService(provider, application.SyncExecutor{}, cache, time.Second)
}

func openPR(repo string, number int, mergeable model.MergeableStatus) model.PullRequest {
	return model.PullRequest{
		Number:       number,
		RepoFullName: repo,
		Title:        "change",
		Author:       "alice",
		URL:          "https://github.com/" + repo + "/pull/1",
		State:        "open",
		HeadSHA:      "sha-" + repo,
		Mergeable:    mergeable,
	}
}

func TestFetch_BuildsFilterAndEnriches(t *testing.T) {
	client := newMockGitHubClient()
	client.addPR(openPR("acme/api", 1, model.MergeableMergeable), model.ReviewStateApproved)
	client.addPR(openPR("acme/web", 2, model.MergeableConflicted))

	svc := newFetchService(client, nil)
	prs, err := svc.Fetch(context.Background(), model.Query{OrgName: "acme", Author: "alice"})

	require.NoError(t, err)
	require.Equal(t, []string{"is:pr is:open archived:false org:acme author:alice"}, client.searchFilters)
	require.Len(t, prs, 2)

	assert.Equal(t, handle("acme/api", 1), prs[0].Handle())
	assert.Equal(t, "alice", prs[0].Author)
	assert.False(t, prs[0].NeedsRebase)
	assert.True(t, prs[0].IsApproved)
	assert.False(t, prs[0].CIChecked)
	assert.False(t, prs[0].FetchedAt.IsZero())

	assert.True(t, prs[1].NeedsRebase)
	assert.False(t, prs[1].IsApproved)
	assert.Empty(t, client.checkRunCalls, "check runs are only read when CI is requested")
}

func TestFetch_UnknownMergeableNeedsRebase(t *testing.T) {
	client := newMockGitHubClient()
	client.addPR(openPR("acme/api", 1, model.MergeableUnknown))

	prs, err := newFetchService(client, nil).Fetch(context.Background(), model.Query{OrgName: "acme"})

	require.NoError(t, err)
	require.Len(t, prs, 1)
	assert.True(t, prs[0].NeedsRebase)
}

func TestFetch_ChecksCIWhenRequested(t *testing.T) {
	client := newMockGitHubClient()
	client.addPR(openPR("acme/api", 1, model.MergeableMergeable))
	client.addPR(openPR("acme/web", 2, model.MergeableMergeable))
	client.checkRuns["sha-acme/api"] = []model.CheckRun{{AppName: "GitHub Actions", Conclusion: "success"}}
	client.checkRuns["sha-acme/web"] = []model.CheckRun{{AppName: "GitHub Actions", Conclusion: "failure"}}

	prs, err := newFetchService(client, nil).Fetch(context.Background(), model.Query{OrgName: "acme", CheckCI: true})

	require.NoError(t, err)
	require.Len(t, prs, 2)
	assert.True(t, prs[0].CIChecked)
	assert.True(t, prs[0].IsReadyToMerge)
	assert.True(t, prs[1].CIChecked)
	assert.False(t, prs[1].IsReadyToMerge)
	assert.ElementsMatch(t, []string{"sha-acme/api", "sha-acme/web"}, client.checkRunCalls)
}

func TestFetch_PerPRFailurePropagates(t *testing.T) {
	client := newMockGitHubClient()
	client.addPR(openPR("acme/api", 1, model.MergeableMergeable))
	client.searchResults = append(client.searchResults, handle("acme/api", 404))

	_, err := newFetchService(client, nil).Fetch(context.Background(), model.Query{OrgName: "acme"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "acme/api#404")
}

func TestFetch_SearchFailure(t *testing.T) {
	client := newMockGitHubClient()
	client.searchFn = func(context.Context, string) ([]model.PRHandle, error) { return nil, errRemote }

	_, err := newFetchService(client, nil).Fetch(context.Background(), model.Query{})

	require.ErrorIs(t, err, errRemote)
}

func TestFetch_WithoutClient(t *testing.T) {
	provider := application.NewGitHubClientProvider(nil, "")
	svc := application.NewFetchService(provider, application.SyncExecutor{}, nil, time.Second)

	_, err := svc.Fetch(context.Background(), model.Query{OrgName: "acme"})

	require.ErrorIs(t, err, application.ErrNoGitHubClient)
}

func TestFetch_ServedFromCacheWithinTTL(t *testing.T) {
	client := newMockGitHubClient()
	client.addPR(openPR("acme/api", 1, model.MergeableMergeable))

	svc := newFetchService(client, application.NewFetchCache(time.Minute))
	q := model.Query{OrgName: "acme"}

	first, err := svc.Fetch(context.Background(), q)
	require.NoError(t, err)

	second, err := svc.Fetch(context.Background(), q)
	require.NoError(t, err)

	assert.Len(t, client.searchFilters, 1, "second fetch must not hit GitHub")
	assert.Equal(t, first, second)

	_, err = svc.Fetch(context.Background(), model.Query{OrgName: "other"})
	require.NoError(t, err)
	assert.Len(t, client.searchFilters, 2)
}

func TestFetch_FetchNowBypassesCache(t *testing.T) {
	client := newMockGitHubClient()
	client.addPR(openPR("acme/api", 1, model.MergeableMergeable))

	svc := newFetchService(client, application.NewFetchCache(time.Minute))
	q := model.Query{OrgName: "acme", FetchNow: true}

	_, err := svc.Fetch(context.Background(), q)
	require.NoError(t, err)
	_, err = svc.Fetch(context.Background(), q)
	require.NoError(t, err)

	assert.Len(t, client.searchFilters, 2)

	q.FetchNow = false
	_, err = svc.Fetch(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, client.searchFilters, 2, "a forced fetch refreshes the cache for the same filters")
}

func TestFetch_InvalidateCache(t *testing.T) {
	client := newMockGitHubClient()
	client.addPR(openPR("acme/api", 1, model.MergeableMergeable))

	svc := newFetchService(client, application.NewFetchCache(time.Minute))
	q := model.Query{OrgName: "acme"}

	_, err := svc.Fetch(context.Background(), q)
	require.NoError(t, err)
	svc.InvalidateCache()
	_, err = svc.Fetch(context.Background(), q)
	require.NoError(t, err)

	assert.Len(t, client.searchFilters, 2)
	newFetchService(client, nil).InvalidateCache()
}

func TestFetch_CallTimeout(t *testing.T) {
	client := newMockGitHubClient()
	client.addPR(openPR("acme/api", 1, model.MergeableMergeable))
	client.fetchPRFn = func(ctx context.Context, _ string, _ int) (*model.PullRequest, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	provider := application.NewGitHubClientProvider(client, "")
	svc := application.NewFetchService(provider, application.SyncExecutor{}, nil, 20*time.Millisecond)

	_, err := svc.Fetch(context.Background(), model.Query{OrgName: "acme"})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timed out")
}

func TestFetch_OnPoolExecutor(t *testing.T) {
	client := newMockGitHubClient()
	for i := 1; i <= 12; i++ {
		client.addPR(openPR("acme/api", i, model.MergeableMergeable), model.ReviewStateApproved)
	}

	provider := application.NewGitHubClientProvider(client, "")
	svc := application.NewFetchService(provider, application.NewPoolExecutor(4), nil, time.Second)

	prs, err := svc.Fetch(context.Background(), model.Query{OrgName: "acme"})

	require.NoError(t, err)
	require.Len(t, prs, 12)
	seen := map[model.PRHandle]bool{}
	for _, pr := range prs {
		seen[pr.Handle()] = true
		assert.True(t, pr.IsApproved)
	}
	assert.Len(t, seen, 12, "every handle is enriched exactly once")
}

func TestRefetch_MergesFreshEntriesAndKeepsCIFlag(t *testing.T) {
	client := newMockGitHubClient()
	client.addPR(openPR("acme/api", 1, model.MergeableMergeable), model.ReviewStateApproved)
	client.checkRuns["sha-acme/api"] = []model.CheckRun{{AppName: "GitHub Actions", Conclusion: "success"}}

	previous := []model.EnrichedPullRequest{
		{RepoFullName: "acme/api", Number: 1, Title: "stale", CIChecked: true},
		{RepoFullName: "acme/api", Number: 2, Title: "untouched"},
	}

	svc := newFetchService(client, nil)
	updated, err := svc.Refetch(context.Background(), previous, []model.PRHandle{handle("acme/api", 1)})

	require.NoError(t, err)
	require.Len(t, updated, 2)
	assert.Equal(t, "change", updated[0].Title)
	assert.True(t, updated[0].IsApproved)
	assert.True(t, updated[0].CIChecked)
	assert.True(t, updated[0].IsReadyToMerge)
	assert.Equal(t, "untouched", updated[1].Title)
	assert.Empty(t, client.searchFilters, "refetch resolves by repository and number, not search")
}

func TestRefetch_NothingMutated(t *testing.T) {
	previous := []model.EnrichedPullRequest{{RepoFullName: "acme/api", Number: 1}}
	provider := application.NewGitHubClientProvider(nil, "")
	svc := application.NewFetchService(provider, application.SyncExecutor{}, nil, time.Second)

	updated, err := svc.Refetch(context.Background(), previous, nil)

	require.NoError(t, err)
	assert.Equal(t, previous, updated)
}
