package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/ghbulkreview/internal/domain/model"
	"github.com/ericfisherdev/ghbulkreview/internal/domain/port/driven"
)

// NoFilterWarning is reported when a query has no constraint at all.
const NoFilterWarning = "no filter set: fetching all open pull requests on GitHub"

// FetchResult is the working set produced by Workspace.Fetch.
type FetchResult struct {
	PullRequests []model.EnrichedPullRequest
	Warning      string
}

// ReviewRequest is one review submission against the working set.
type ReviewRequest struct {
	Selected  []model.PRHandle
	SelectAll bool
	Comment   string
	Action    model.Action
}

// ReviewResult holds the outcomes of a submission and the working set after
// the mutated pull requests were refetched.
type ReviewResult struct {
	RunID        string
	Outcomes     []model.ReviewOutcome
	PullRequests []model.EnrichedPullRequest
}

// Workspace owns the working set and serializes fetch and review cycles so
// they never overlap. Workers only produce per-item results; the working set
// is replaced here, between stages.
type Workspace struct {
	mu         sync.Mutex
	fetcher    *FetchService
	reviewer   *ReviewService
	settings   driven.SettingStore
	outcomes   driven.OutcomeStore
	workingSet []model.EnrichedPullRequest
	query      model.Query
	fetched    bool
	newRunID   func() string
	now        func() time.Time
}

// NewWorkspace creates a new Workspace with an empty working set.
func NewWorkspace(fetcher *FetchService, reviewer *ReviewService, settings driven.SettingStore, outcomes driven.OutcomeStore) *Workspace {
	return &Workspace{
		fetcher:  fetcher,
		reviewer: reviewer,
		settings: settings,
		outcomes: outcomes,
		newRunID: uuid.NewString,
		now:      time.Now,
	}
}

// Fetch replaces the working set with the result of q and remembers q's
// fields for the next run.
func (w *Workspace) Fetch(ctx context.Context, q model.Query) (FetchResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := SaveQuery(ctx, w.settings, q); err != nil {
		slog.Error("failed to persist query", "error", err)
	}

	var result FetchResult
	if !q.HasFilters() {
		result.Warning = NoFilterWarning
		slog.Warn("fetching without filters")
	}

	prs, err := w.fetcher.Fetch(ctx, q)
	if err != nil {
		return FetchResult{}, fmt.Errorf("fetching pull requests: %w", err)
	}

	w.query = q
	w.fetched = true
	w.workingSet = prs
	result.PullRequests = slices.Clone(prs)

	return result, nil
}

// Review applies req to the working set, refetches every pull request a
// remote write touched, and records the outcomes under a new run id.
func (w *Workspace) Review(ctx context.Context, req ReviewRequest) (ReviewResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.settings.Set(ctx, model.SettingCommentText, req.Comment); err != nil {
		slog.Error("failed to persist comment text", "error", err)
	}

	sel := model.ReviewSelection{Comment: req.Comment, Action: req.Action}
	if req.SelectAll {
		sel.Selected = model.SelectAll(w.workingSet)
	} else {
		sel.Selected = make(map[model.PRHandle]bool, len(req.Selected))
		for _, h := range req.Selected {
			sel.Selected[h] = true
		}
	}

	outcomes, err := w.reviewer.Apply(ctx, w.workingSet, sel)
	if err != nil {
		return ReviewResult{}, fmt.Errorf("applying %s: %w", req.Action, err)
	}

	var mutated []model.PRHandle
	for _, o := range outcomes {
		if o.Mutated {
			mutated = append(mutated, o.Subject)
		}
	}

	if len(mutated) > 0 {
		// Cached results for any query may include the changed pull requests.
		w.fetcher.InvalidateCache()

		updated, err := w.fetcher.Refetch(ctx, w.workingSet, mutated)
		if err != nil {
			slog.Error("refetch after review failed", "mutated", len(mutated), "error", err)
			outcomes = append(outcomes, model.ReviewOutcome{
				Severity: model.SeverityWarning,
				Message:  fmt.Sprintf("could not refresh %d changed pull requests: %s", len(mutated), err),
			})
		} else {
			w.workingSet = updated
		}
	}

	runID := w.newRunID()
	w.record(ctx, runID, req.Action, outcomes)

	return ReviewResult{
		RunID:        runID,
		Outcomes:     outcomes,
		PullRequests: slices.Clone(w.workingSet),
	}, nil
}

// PullRequests returns a copy of the current working set.
func (w *Workspace) PullRequests() []model.EnrichedPullRequest {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.workingSet)
}

// Query returns the query of the last successful fetch, or the saved query
// when nothing was fetched yet in this process.
func (w *Workspace) Query(ctx context.Context) (model.Query, error) {
	w.mu.Lock()
	fetched := w.fetched
	q := w.query
	w.mu.Unlock()

	if fetched {
		return q, nil
	}
	return LoadQuery(ctx, w.settings)
}

// CommentText returns the last submitted comment.
func (w *Workspace) CommentText(ctx context.Context) (string, error) {
	return w.settings.Get(ctx, model.SettingCommentText)
}

// RecentOutcomes returns up to limit logged outcomes, newest first.
func (w *Workspace) RecentOutcomes(ctx context.Context, limit int) ([]model.OutcomeRecord, error) {
	return w.outcomes.ListRecent(ctx, limit)
}

// RunOutcomes returns the outcomes logged under runID in the order they were
// recorded. An unknown run yields an empty slice.
func (w *Workspace) RunOutcomes(ctx context.Context, runID string) ([]model.OutcomeRecord, error) {
	return w.outcomes.ListByRun(ctx, runID)
}

func (w *Workspace) record(ctx context.Context, runID string, action model.Action, outcomes []model.ReviewOutcome) {
	if len(outcomes) == 0 {
		return
	}

	createdAt := w.now()
	records := make([]model.OutcomeRecord, 0, len(outcomes))
	for _, o := range outcomes {
		records = append(records, model.OutcomeRecord{
			RunID:        runID,
			RepoFullName: o.Subject.RepoFullName,
			PRNumber:     o.Subject.Number,
			Action:       action,
			Applied:      o.Applied,
			Severity:     o.Severity,
			Message:      o.Message,
			CreatedAt:    createdAt,
		})
	}

	if err := w.outcomes.Record(ctx, records); err != nil {
		slog.Error("failed to record review outcomes", "run_id", runID, "count", len(records), "error", err)
	}
}
