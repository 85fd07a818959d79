package driven

import (
	"context"

	"github.com/ericfisherdev/ghbulkreview/internal/domain/model"
)

// GitHubClient defines the driven port for interacting with the GitHub API.
// Read methods feed the detail fetcher; write methods apply review actions.
type GitHubClient interface {
	// Read methods

	// SearchPullRequests runs an issue search with the given filter string and
	// returns only the results that are pull requests.
	SearchPullRequests(ctx context.Context, filter string) ([]model.PRHandle, error)
	FetchPullRequest(ctx context.Context, repoFullName string, prNumber int) (*model.PullRequest, error)
	// FetchReviews returns reviews in the order the API lists them.
	FetchReviews(ctx context.Context, repoFullName string, prNumber int) ([]model.Review, error)
	// FetchCheckRuns returns all check runs for the given ref (commit SHA or branch).
	FetchCheckRuns(ctx context.Context, repoFullName string, ref string) ([]model.CheckRun, error)

	// Write methods

	// CreateIssueComment adds a PR-level comment (via the Issues API).
	CreateIssueComment(ctx context.Context, repoFullName string, prNumber int, body string) error
	// CreateReview submits a review and returns it as GitHub recorded it.
	// event must be one of "APPROVE", "REQUEST_CHANGES", or "COMMENT".
	CreateReview(ctx context.Context, repoFullName string, prNumber int, event string, body string) (*model.Review, error)
	MergePullRequest(ctx context.Context, repoFullName string, prNumber int) (*model.MergeResult, error)

	// ValidateToken verifies a personal access token and returns its login.
	ValidateToken(ctx context.Context, token string) (username string, err error)
}
