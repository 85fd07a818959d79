package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/ghbulkreview/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// PRResponse is the JSON representation of an enriched pull request.
type PRResponse struct {
	Number         int    `json:"number"`
	Repository     string `json:"repository"`
	Title          string `json:"title"`
	Author         string `json:"author"`
	URL            string `json:"url"`
	HeadSHA        string `json:"head_sha"`
	NeedsRebase    bool   `json:"needs_rebase"`
	IsApproved     bool   `json:"is_approved"`
	CIChecked      bool   `json:"ci_checked"`
	IsReadyToMerge bool   `json:"is_ready_to_merge"`
	IsMerged       bool   `json:"is_merged"`
	FetchedAt      string `json:"fetched_at"`
}

// QueryResponse carries the remembered query fields and comment text.
type QueryResponse struct {
	Query   model.Query `json:"query"`
	Comment string      `json:"comment"`
}

// FetchResponse is the working set produced by a fetch.
type FetchResponse struct {
	PullRequests []PRResponse `json:"pull_requests"`
	Warning      string       `json:"warning,omitempty"`
}

// SelectionItem identifies one selected pull request in a review request.
type SelectionItem struct {
	Repository string `json:"repository"`
	Number     int    `json:"number"`
}

// ReviewRequest is the JSON body for POST /api/v1/review.
type ReviewRequest struct {
	Selected  []SelectionItem `json:"selected"`
	SelectAll bool            `json:"select_all"`
	Comment   string          `json:"comment"`
	Action    string          `json:"action"`
}

// OutcomeResponse is the result of the action on one pull request. Repository
// is empty for submission-level messages.
type OutcomeResponse struct {
	Repository string `json:"repository"`
	Number     int    `json:"number"`
	Applied    bool   `json:"applied"`
	Severity   string `json:"severity"`
	Message    string `json:"message"`
}

// ReviewResponse holds the outcomes and the refreshed working set.
type ReviewResponse struct {
	RunID        string            `json:"run_id"`
	Outcomes     []OutcomeResponse `json:"outcomes"`
	PullRequests []PRResponse      `json:"pull_requests"`
}

// OutcomeRecordResponse is the JSON representation of a logged outcome.
type OutcomeRecordResponse struct {
	ID         int64  `json:"id"`
	RunID      string `json:"run_id"`
	Repository string `json:"repository"`
	Number     int    `json:"number"`
	Action     string `json:"action"`
	Applied    bool   `json:"applied"`
	Severity   string `json:"severity"`
	Message    string `json:"message"`
	CreatedAt  string `json:"created_at"`
}

// CommentPreviewRequest is the JSON body for POST /api/v1/comment/preview.
type CommentPreviewRequest struct {
	Comment string `json:"comment"`
}

// CommentPreviewResponse carries the rendered comment.
type CommentPreviewResponse struct {
	HTML string `json:"html"`
}

// TokenRequest is the JSON body for PUT /api/v1/token.
type TokenRequest struct {
	Token string `json:"token"`
}

// TokenResponse reports the login a saved token belongs to.
type TokenResponse struct {
	Login string `json:"login"`
}

// HealthResponse is the JSON representation of the health check.
type HealthResponse struct {
	Status           string `json:"status"`
	Time             string `json:"time"`
	GitHubConfigured bool   `json:"github_configured"`
	Login            string `json:"login,omitempty"`
}

func toPRResponse(pr model.EnrichedPullRequest) PRResponse {
	return PRResponse{
		Number:         pr.Number,
		Repository:     pr.RepoFullName,
		Title:          pr.Title,
		Author:         pr.Author,
		URL:            pr.URL,
		HeadSHA:        pr.HeadSHA,
		NeedsRebase:    pr.NeedsRebase,
		IsApproved:     pr.IsApproved,
		CIChecked:      pr.CIChecked,
		IsReadyToMerge: pr.IsReadyToMerge,
		IsMerged:       pr.IsMerged,
		FetchedAt:      formatTime(pr.FetchedAt),
	}
}

// toPRResponses never returns nil so empty sets encode as [].
func toPRResponses(prs []model.EnrichedPullRequest) []PRResponse {
	resp := make([]PRResponse, 0, len(prs))
	for _, pr := range prs {
		resp = append(resp, toPRResponse(pr))
	}
	return resp
}

func toOutcomeResponse(o model.ReviewOutcome) OutcomeResponse {
	return OutcomeResponse{
		Repository: o.Subject.RepoFullName,
		Number:     o.Subject.Number,
		Applied:    o.Applied,
		Severity:   string(o.Severity),
		Message:    o.Message,
	}
}

// toOutcomeRecordResponses never returns nil so an empty log encodes as [].
func toOutcomeRecordResponses(records []model.OutcomeRecord) []OutcomeRecordResponse {
	resp := make([]OutcomeRecordResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toOutcomeRecordResponse(rec))
	}
	return resp
}

func toOutcomeRecordResponse(r model.OutcomeRecord) OutcomeRecordResponse {
	return OutcomeRecordResponse{
		ID:         r.ID,
		RunID:      r.RunID,
		Repository: r.RepoFullName,
		Number:     r.PRNumber,
		Action:     string(r.Action),
		Applied:    r.Applied,
		Severity:   string(r.Severity),
		Message:    r.Message,
		CreatedAt:  formatTime(r.CreatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
