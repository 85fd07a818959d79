package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/ghbulkreview/internal/domain/model"
	"github.com/ericfisherdev/ghbulkreview/internal/domain/port/driven"
)

const reviewEventApprove = "APPROVE"

// ReviewOptions tunes the pacing of ReviewService.
type ReviewOptions struct {
	// CallTimeout bounds every remote call. Zero disables the bound.
	CallTimeout time.Duration
	// BatchSize splits a selection into batches processed one after another.
	// Zero or less processes the whole selection as one batch.
	BatchSize int
	// BatchPause is the wait between two batches.
	BatchPause time.Duration
	// ApproveMergeDelay is the wait between a successful approval and the
	// merge attempt of an approve-and-merge.
	ApproveMergeDelay time.Duration
}

// ReviewService applies a bulk action to the selected pull requests of a
// working set. Every remote failure is reported as a soft outcome.
type ReviewService struct {
	provider *GitHubClientProvider
	executor Executor
	opts     ReviewOptions
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewReviewService creates a new ReviewService.
func NewReviewService(provider *GitHubClientProvider, executor Executor, opts ReviewOptions) *ReviewService {
	return &ReviewService{
		provider: provider,
		executor: executor,
		opts:     opts,
		sleep:    sleepCtx,
	}
}

// Apply runs sel.Action on every selected pull request and returns exactly
// one outcome per selected handle, in handle order. Unselected entries yield
// nothing. ActionNone yields no outcomes; an action with nothing selected
// yields a single warning. The only error returned is ErrNoGitHubClient.
func (s *ReviewService) Apply(ctx context.Context, workingSet []model.EnrichedPullRequest, sel model.ReviewSelection) ([]model.ReviewOutcome, error) {
	if sel.Action == model.ActionNone {
		return nil, nil
	}

	handles := sel.SelectedHandles()
	if len(handles) == 0 {
		return []model.ReviewOutcome{{
			Severity: model.SeverityWarning,
			Message:  "no pull requests selected",
		}}, nil
	}

	client, err := s.provider.Client()
	if err != nil {
		return nil, err
	}

	byHandle := make(map[model.PRHandle]model.EnrichedPullRequest, len(workingSet))
	for _, pr := range workingSet {
		byHandle[pr.Handle()] = pr
	}

	start := time.Now()
	outcomes := make([]model.ReviewOutcome, len(handles))
	batches := batchIndexes(len(handles), s.opts.BatchSize)

	for b, batch := range batches {
		if b > 0 {
			if err := s.sleep(ctx, s.opts.BatchPause); err != nil {
				skipRemaining(outcomes, handles, batches[b:], err)
				break
			}
		}

		tasks := make([]Task, 0, len(batch))
		for _, i := range batch {
			h := handles[i]
			pr, known := byHandle[h]
			if !known {
				outcomes[i] = softFailure(h, false, "%s is not in the current list of pull requests", h)
				continue
			}
			tasks = append(tasks, func(ctx context.Context) error {
				outcomes[i] = s.applyOne(ctx, client, pr, sel)
				return nil
			})
		}

		// Tasks never fail; outcomes carry every error.
		_ = s.executor.Run(ctx, tasks)
	}

	applied := 0
	for _, o := range outcomes {
		if o.Applied {
			applied++
		}
	}

	slog.Info("review cycle complete",
		"action", sel.Action,
		"selected", len(handles),
		"applied", applied,
		"batches", len(batches),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return outcomes, nil
}

// applyOne dispatches the selection's action for one pull request.
func (s *ReviewService) applyOne(ctx context.Context, client driven.GitHubClient, pr model.EnrichedPullRequest, sel model.ReviewSelection) model.ReviewOutcome {
	switch sel.Action {
	case model.ActionComment:
		return s.comment(ctx, client, pr, sel.Comment)
	case model.ActionApprove:
		return s.approve(ctx, client, pr, sel.Comment)
	case model.ActionMerge:
		return s.merge(ctx, client, pr)
	case model.ActionApproveAndMerge:
		return s.approveAndMerge(ctx, client, pr, sel.Comment)
	default:
		return softFailure(pr.Handle(), false, "%s: %s %q", pr.Handle(), model.ErrUnknownAction, sel.Action)
	}
}

func (s *ReviewService) comment(ctx context.Context, client driven.GitHubClient, pr model.EnrichedPullRequest, body string) model.ReviewOutcome {
	h := pr.Handle()

	err := callWithTimeout(ctx, s.opts.CallTimeout, func(ctx context.Context) error {
		return client.CreateIssueComment(ctx, h.RepoFullName, h.Number, body)
	})
	if err != nil {
		return softFailure(h, false, "comment was not added to %s: %s", h, err)
	}

	return success(h, "comment added to %s", h)
}

func (s *ReviewService) approve(ctx context.Context, client driven.GitHubClient, pr model.EnrichedPullRequest, body string) model.ReviewOutcome {
	h := pr.Handle()

	var review *model.Review
	err := callWithTimeout(ctx, s.opts.CallTimeout, func(ctx context.Context) error {
		var createErr error
		review, createErr = client.CreateReview(ctx, h.RepoFullName, h.Number, reviewEventApprove, body)
		return createErr
	})
	if err != nil {
		return softFailure(h, false, "%s was not approved: %s", h, err)
	}

	if review.State != model.ReviewStateApproved {
		// A review was still created, so the pull request changed.
		return softFailure(h, true, "something went wrong while approving %s: review state is %q %s", h, review.State, review.Body)
	}

	return success(h, "%s was approved", h)
}

// merge checks the merge preconditions in order and merges only if all hold.
func (s *ReviewService) merge(ctx context.Context, client driven.GitHubClient, pr model.EnrichedPullRequest) model.ReviewOutcome {
	h := pr.Handle()

	switch {
	case pr.NeedsRebase:
		return softFailure(h, false, "%s was not merged: needs rebase", h)
	case !pr.IsApproved:
		return softFailure(h, false, "%s was not merged: not approved", h)
	case pr.IsMerged:
		return softFailure(h, false, "%s was not merged: already merged", h)
	}

	if !pr.CIChecked || !pr.IsReadyToMerge {
		// The snapshot may predate CI finishing, or CI was never checked.
		ready, err := s.liveReady(ctx, client, h)
		if err != nil {
			return softFailure(h, false, "%s was not merged: could not re-check CI: %s", h, err)
		}
		if !ready {
			return softFailure(h, false, "%s was not merged: not ready, possibly CI", h)
		}
	}

	var result *model.MergeResult
	err := callWithTimeout(ctx, s.opts.CallTimeout, func(ctx context.Context) error {
		var mergeErr error
		result, mergeErr = client.MergePullRequest(ctx, h.RepoFullName, h.Number)
		return mergeErr
	})
	if err != nil {
		return softFailure(h, false, "%s was not merged: error %s", h, err)
	}
	if !result.Merged {
		return softFailure(h, false, "%s was not merged: %s", h, result.Message)
	}

	return success(h, "%s was merged", h)
}

// approveAndMerge approves, waits, re-reads the reviews so the approval just
// submitted counts, then runs the merge checks.
func (s *ReviewService) approveAndMerge(ctx context.Context, client driven.GitHubClient, pr model.EnrichedPullRequest, body string) model.ReviewOutcome {
	h := pr.Handle()

	approval := s.approve(ctx, client, pr, body)
	if !approval.Applied {
		return approval
	}

	if err := s.sleep(ctx, s.opts.ApproveMergeDelay); err != nil {
		return softFailure(h, true, "%s was approved but not merged: %s", h, err)
	}

	var reviews []model.Review
	err := callWithTimeout(ctx, s.opts.CallTimeout, func(ctx context.Context) error {
		var fetchErr error
		reviews, fetchErr = client.FetchReviews(ctx, h.RepoFullName, h.Number)
		return fetchErr
	})
	if err != nil {
		return softFailure(h, true, "%s was approved but not merged: could not re-read reviews: %s", h, err)
	}

	refreshed := pr
	refreshed.IsApproved = IsApproved(reviews)

	merged := s.merge(ctx, client, refreshed)
	merged.Mutated = true
	if merged.Applied {
		merged.Message = fmt.Sprintf("%s was approved and merged", h)
	} else {
		merged.Message = fmt.Sprintf("%s was approved; %s", h, merged.Message)
	}
	return merged
}

// liveReady re-reads the pull request and its check runs and evaluates merge
// readiness against the current state.
func (s *ReviewService) liveReady(ctx context.Context, client driven.GitHubClient, h model.PRHandle) (bool, error) {
	var detail *model.PullRequest
	err := callWithTimeout(ctx, s.opts.CallTimeout, func(ctx context.Context) error {
		var fetchErr error
		detail, fetchErr = client.FetchPullRequest(ctx, h.RepoFullName, h.Number)
		return fetchErr
	})
	if err != nil {
		return false, err
	}

	var runs []model.CheckRun
	err = callWithTimeout(ctx, s.opts.CallTimeout, func(ctx context.Context) error {
		var fetchErr error
		runs, fetchErr = client.FetchCheckRuns(ctx, h.RepoFullName, detail.HeadSHA)
		return fetchErr
	})
	if err != nil {
		return false, err
	}

	return IsReadyToMerge(detail.Mergeable, runs), nil
}

func success(h model.PRHandle, format string, args ...any) model.ReviewOutcome {
	return model.ReviewOutcome{
		Subject:  h,
		Applied:  true,
		Mutated:  true,
		Severity: model.SeveritySuccess,
		Message:  fmt.Sprintf(format, args...),
	}
}

func softFailure(h model.PRHandle, mutated bool, format string, args ...any) model.ReviewOutcome {
	return model.ReviewOutcome{
		Subject:  h,
		Mutated:  mutated,
		Severity: model.SeverityWarning,
		Message:  fmt.Sprintf(format, args...),
	}
}

// skipRemaining fills the outcome of every index in the remaining batches.
func skipRemaining(outcomes []model.ReviewOutcome, handles []model.PRHandle, remaining [][]int, cause error) {
	for _, batch := range remaining {
		for _, i := range batch {
			outcomes[i] = softFailure(handles[i], false, "%s was skipped: %s", handles[i], cause)
		}
	}
}

// batchIndexes splits the indexes [0, n) into consecutive batches of size.
func batchIndexes(n, size int) [][]int {
	if n == 0 {
		return nil
	}
	if size <= 0 || size > n {
		size = n
	}

	batches := make([][]int, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		batch := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			batch = append(batch, i)
		}
		batches = append(batches, batch)
	}
	return batches
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
