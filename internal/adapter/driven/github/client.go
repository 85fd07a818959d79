// Package github implements the GitHubClient port using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/ghbulkreview/internal/domain/model"
	"github.com/ericfisherdev/ghbulkreview/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitHubClient = (*Client)(nil)

// Client implements the driven.GitHubClient port using the go-github library.
type Client struct {
	gh *gh.Client
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. oauth2 (static personal access token)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. revalidation (every cached GET is revalidated, never served blind)
//  4. httpcache (ETag-based conditional request caching)
//  5. go-github (GitHub REST API client)
func NewClient(token string) *Client {
	return &Client{gh: gh.NewClient(newAuthClient(token))}
}

// NewClientWithBaseURL creates a Client with the same transport stack as
// NewClient, pointed at a different API root such as an httptest server.
func NewClientWithBaseURL(token, baseURL string) (*Client, error) {
	return NewClientWithHTTPClient(newAuthClient(token), baseURL)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{gh: client}, nil
}

func newAuthClient(token string) *http.Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(&revalidateTransport{next: cacheTransport})

	// oauth2 takes its base transport from the context-supplied client.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, rateLimitClient)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
}

// revalidateTransport marks every GET as max-age=0 so httpcache treats its
// cached copy as stale and revalidates it with If-None-Match. GitHub sends
// max-age=60 on most reads, which would otherwise hide our own writes for a
// minute. A 304 does not count against the primary rate limit.
//
// no-cache is not used because httpcache then bypasses the cache entirely
// and sends no validator.
type revalidateTransport struct {
	next http.RoundTripper
}

func (t *revalidateTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return t.next.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	clone.Header.Set("Cache-Control", "max-age=0")
	return t.next.RoundTrip(clone)
}

// SearchPullRequests runs an issue search and returns the handles of the
// results that are pull requests. The search API may also return plain
// issues, which are skipped. It handles pagination automatically.
func (c *Client) SearchPullRequests(ctx context.Context, filter string) ([]model.PRHandle, error) {
	opts := &gh.SearchOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	handles := []model.PRHandle{}
	var skipped int

	for {
		result, resp, err := c.gh.Search.Issues(ctx, filter, opts)
		if err != nil {
			return nil, fmt.Errorf("searching issues %q (page %d): %w", filter, opts.Page, err)
		}

		logRateLimit(resp, "search/issues", opts.Page, len(result.Issues))

		for _, issue := range result.Issues {
			if !issue.IsPullRequest() {
				skipped++
				continue
			}

			repo, err := repoFromAPIURL(issue.GetRepositoryURL())
			if err != nil {
				return nil, err
			}
			handles = append(handles, model.PRHandle{RepoFullName: repo, Number: issue.GetNumber()})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if skipped > 0 {
		slog.Debug("search returned non-PR issues", "filter", filter, "skipped", skipped)
	}

	return handles, nil
}

// FetchPullRequest returns the detail of a single PR including its mergeable state.
func (c *Client) FetchPullRequest(ctx context.Context, repoFullName string, prNumber int) (*model.PullRequest, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	pr, resp, err := c.gh.PullRequests.Get(ctx, owner, repo, prNumber)
	if err != nil {
		return nil, fmt.Errorf("fetching PR %s#%d: %w", repoFullName, prNumber, err)
	}

	logRateLimit(resp, repoFullName+"/pr-detail", 0, 1)

	mapped := mapPullRequest(pr, repoFullName)
	return &mapped, nil
}

// FetchReviews retrieves all reviews for a pull request in API order.
// It handles pagination automatically and maps go-github types to domain model types.
func (c *Client) FetchReviews(ctx context.Context, repoFullName string, prNumber int) ([]model.Review, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.ListOptions{PerPage: 100}
	var allReviews []model.Review

	for {
		reviews, resp, err := c.gh.PullRequests.ListReviews(ctx, owner, repo, prNumber, opts)
		if err != nil {
			return nil, fmt.Errorf("listing reviews for %s#%d (page %d): %w", repoFullName, prNumber, opts.Page, err)
		}

		logRateLimit(resp, repoFullName+"/reviews", opts.Page, len(reviews))

		for _, r := range reviews {
			allReviews = append(allReviews, mapReview(r))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allReviews, nil
}

// FetchCheckRuns retrieves all check runs for the given ref (commit SHA or branch).
// It handles pagination automatically and maps go-github types to domain model types.
func (c *Client) FetchCheckRuns(ctx context.Context, repoFullName string, ref string) ([]model.CheckRun, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.ListCheckRunsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var allRuns []model.CheckRun

	for {
		result, resp, err := c.gh.Checks.ListCheckRunsForRef(ctx, owner, repo, ref, opts)
		if err != nil {
			return nil, fmt.Errorf("listing check runs for %s@%s (page %d): %w", repoFullName, ref, opts.Page, err)
		}

		logRateLimit(resp, repoFullName+"/check-runs", opts.Page, len(result.CheckRuns))

		for _, cr := range result.CheckRuns {
			allRuns = append(allRuns, mapCheckRun(cr))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allRuns, nil
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// mapPullRequest converts a go-github PullRequest to a domain model PullRequest.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapPullRequest(pr *gh.PullRequest, repoFullName string) model.PullRequest {
	return model.PullRequest{
		Number:       pr.GetNumber(),
		RepoFullName: repoFullName,
		Title:        pr.GetTitle(),
		Author:       pr.GetUser().GetLogin(),
		URL:          pr.GetHTMLURL(),
		State:        pr.GetState(),
		HeadSHA:      pr.GetHead().GetSHA(),
		Mergeable:    mapMergeable(pr.Mergeable),
		Merged:       pr.GetMerged() || !pr.GetMergedAt().IsZero(),
	}
}

// mapReview converts a go-github PullRequestReview to a domain model Review.
func mapReview(r *gh.PullRequestReview) model.Review {
	return model.Review{
		ID:            r.GetID(),
		ReviewerLogin: r.GetUser().GetLogin(),
		State:         model.ReviewState(strings.ToLower(r.GetState())),
		Body:          r.GetBody(),
		SubmittedAt:   r.GetSubmittedAt().Time,
	}
}

// mapCheckRun converts a go-github CheckRun to a domain model CheckRun.
func mapCheckRun(cr *gh.CheckRun) model.CheckRun {
	return model.CheckRun{
		ID:         cr.GetID(),
		Name:       cr.GetName(),
		AppName:    cr.GetApp().GetName(),
		Status:     cr.GetStatus(),
		Conclusion: cr.GetConclusion(),
		DetailsURL: cr.GetDetailsURL(),
	}
}

// mapMergeable converts a *bool (GitHub's tri-state mergeable field) to a MergeableStatus.
// nil means GitHub hasn't computed it yet; true means mergeable; false means conflicted.
func mapMergeable(mergeable *bool) model.MergeableStatus {
	if mergeable == nil {
		return model.MergeableUnknown
	}
	if *mergeable {
		return model.MergeableMergeable
	}
	return model.MergeableConflicted
}

// repoFromAPIURL extracts "owner/repo" from an API repository URL such as
// "https://api.github.com/repos/owner/repo".
func repoFromAPIURL(raw string) (string, error) {
	_, after, ok := strings.Cut(raw, "/repos/")
	if !ok {
		return "", fmt.Errorf("invalid repository URL %q", raw)
	}

	owner, repo, err := splitRepo(strings.TrimSuffix(after, "/"))
	if err != nil {
		return "", err
	}
	return owner + "/" + repo, nil
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || strings.Contains(parts[1], "/") {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
