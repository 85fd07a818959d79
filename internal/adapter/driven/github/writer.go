package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/ghbulkreview/internal/domain/model"
)

// reviewEventApprove is the only review event the bulk reviewer submits.
const reviewEventApprove = "APPROVE"

// CreateIssueComment adds a PR-level comment via the Issues API.
func (c *Client) CreateIssueComment(ctx context.Context, repoFullName string, prNumber int, body string) error {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return err
	}

	comment := &gh.IssueComment{Body: gh.Ptr(body)}
	_, resp, err := c.gh.Issues.CreateComment(ctx, owner, repo, prNumber, comment)
	if err != nil {
		return fmt.Errorf("creating comment on %s#%d: %w", repoFullName, prNumber, err)
	}

	logRateLimit(resp, repoFullName+"/create-comment", 0, 1)
	return nil
}

// CreateReview submits a review on a pull request and returns the review as
// GitHub recorded it. The body is omitted for an approval without text.
func (c *Client) CreateReview(ctx context.Context, repoFullName string, prNumber int, event string, body string) (*model.Review, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	req := &gh.PullRequestReviewRequest{Event: gh.Ptr(event)}
	if body != "" || event != reviewEventApprove {
		req.Body = gh.Ptr(body)
	}

	review, resp, err := c.gh.PullRequests.CreateReview(ctx, owner, repo, prNumber, req)
	if err != nil {
		var ghErr *gh.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusUnprocessableEntity {
			return nil, fmt.Errorf("review rejected for %s#%d: %s: %w", repoFullName, prNumber, ghErr.Message, err)
		}
		return nil, fmt.Errorf("creating review for %s#%d: %w", repoFullName, prNumber, err)
	}

	logRateLimit(resp, repoFullName+"/create-review", 0, 1)

	mapped := mapReview(review)
	return &mapped, nil
}

// MergePullRequest merges a pull request with the repository's default merge
// method. A 405 (not mergeable) or 409 (head changed) response is returned as
// an error carrying GitHub's message.
func (c *Client) MergePullRequest(ctx context.Context, repoFullName string, prNumber int) (*model.MergeResult, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	result, resp, err := c.gh.PullRequests.Merge(ctx, owner, repo, prNumber, "", nil)
	if err != nil {
		var ghErr *gh.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Message != "" {
			return nil, fmt.Errorf("merging %s#%d: %s: %w", repoFullName, prNumber, ghErr.Message, err)
		}
		return nil, fmt.Errorf("merging %s#%d: %w", repoFullName, prNumber, err)
	}

	logRateLimit(resp, repoFullName+"/merge", 0, 1)

	return &model.MergeResult{
		Merged:  result.GetMerged(),
		SHA:     result.GetSHA(),
		Message: result.GetMessage(),
	}, nil
}

// ValidateToken verifies that the given GitHub personal access token is valid
// and returns the authenticated username on success. It creates a one-shot
// client with the provided token to avoid mutating the receiver's state.
func (c *Client) ValidateToken(ctx context.Context, token string) (string, error) {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	tempClient := gh.NewClient(httpClient).WithAuthToken(token)
	if c.gh.BaseURL != nil {
		tempClient.BaseURL = c.gh.BaseURL
	}

	user, resp, err := tempClient.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("token validation failed: %w", err)
	}

	logRateLimit(resp, "user", 0, 1)
	return user.GetLogin(), nil
}
