package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/ghbulkreview/internal/application"
	"github.com/ericfisherdev/ghbulkreview/internal/domain/model"
	"github.com/ericfisherdev/ghbulkreview/internal/domain/port/driven"
)

const (
	defaultOutcomeLimit = 50
	maxOutcomeLimit     = 500
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	workspace *application.Workspace
	tokens    *application.TokenService
	provider  *application.GitHubClientProvider
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	workspace *application.Workspace,
	tokens *application.TokenService,
	provider *application.GitHubClientProvider,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		workspace: workspace,
		tokens:    tokens,
		provider:  provider,
		logger:    logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/query", h.GetQuery)
	mux.HandleFunc("POST /api/v1/fetch", h.Fetch)
	mux.HandleFunc("GET /api/v1/prs", h.ListPRs)
	mux.HandleFunc("POST /api/v1/review", h.Review)
	mux.HandleFunc("GET /api/v1/outcomes", h.ListOutcomes)
	mux.HandleFunc("POST /api/v1/comment/preview", h.PreviewComment)
	mux.HandleFunc("PUT /api/v1/token", h.SetToken)
	mux.HandleFunc("DELETE /api/v1/token", h.ClearToken)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = limitBodyMiddleware(wrapped)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// GetQuery returns the query of the last fetch, or the saved one.
func (h *Handler) GetQuery(w http.ResponseWriter, r *http.Request) {
	q, err := h.workspace.Query(r.Context())
	if err != nil {
		h.logger.Error("failed to load query", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	comment, err := h.workspace.CommentText(r.Context())
	if err != nil {
		h.logger.Error("failed to load comment text", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, QueryResponse{Query: q, Comment: comment})
}

// Fetch runs a search with the posted query and replaces the working set.
func (h *Handler) Fetch(w http.ResponseWriter, r *http.Request) {
	var q model.Query
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.workspace.Fetch(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, "fetch failed", err)
		return
	}

	writeJSON(w, http.StatusOK, FetchResponse{
		PullRequests: toPRResponses(result.PullRequests),
		Warning:      result.Warning,
	})
}

// ListPRs returns the current working set.
func (h *Handler) ListPRs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toPRResponses(h.workspace.PullRequests()))
}

// Review applies a bulk action to the selected pull requests.
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	action, err := model.ParseAction(req.Action)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	selected := make([]model.PRHandle, 0, len(req.Selected))
	for _, s := range req.Selected {
		if s.Repository == "" || s.Number <= 0 {
			writeError(w, http.StatusBadRequest, "invalid selection: expected repository and positive number")
			return
		}
		selected = append(selected, model.PRHandle{RepoFullName: s.Repository, Number: s.Number})
	}

	result, err := h.workspace.Review(r.Context(), application.ReviewRequest{
		Selected:  selected,
		SelectAll: req.SelectAll,
		Comment:   req.Comment,
		Action:    action,
	})
	if err != nil {
		h.writeServiceError(w, "review failed", err)
		return
	}

	outcomes := make([]OutcomeResponse, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		outcomes = append(outcomes, toOutcomeResponse(o))
	}

	writeJSON(w, http.StatusOK, ReviewResponse{
		RunID:        result.RunID,
		Outcomes:     outcomes,
		PullRequests: toPRResponses(result.PullRequests),
	})
}

// ListOutcomes returns the most recent logged outcomes, newest first. With a
// run_id parameter it returns every outcome of that run in submission order
// and ignores limit.
func (h *Handler) ListOutcomes(w http.ResponseWriter, r *http.Request) {
	if runID := r.URL.Query().Get("run_id"); runID != "" {
		records, err := h.workspace.RunOutcomes(r.Context(), runID)
		if err != nil {
			h.logger.Error("failed to list run outcomes", "run_id", runID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, http.StatusOK, toOutcomeRecordResponses(records))
		return
	}

	limit := defaultOutcomeLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit: expected a positive integer")
			return
		}
		limit = min(n, maxOutcomeLimit)
	}

	records, err := h.workspace.RecentOutcomes(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list outcomes", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toOutcomeRecordResponses(records))
}

// PreviewComment renders the posted comment as sanitized HTML.
func (h *Handler) PreviewComment(w http.ResponseWriter, r *http.Request) {
	var req CommentPreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	writeJSON(w, http.StatusOK, CommentPreviewResponse{HTML: RenderMarkdown(req.Comment)})
}

// SetToken validates and stores a GitHub token and swaps the active client.
func (h *Handler) SetToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	login, err := h.tokens.Save(r.Context(), req.Token)
	switch {
	case err == nil:
	case errors.Is(err, application.ErrEmptyToken):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, application.ErrTokenRejected):
		h.logger.Warn("token validation failed", "error", err)
		writeError(w, http.StatusUnprocessableEntity, "token rejected by GitHub")
		return
	case errors.Is(err, driven.ErrEncryptionKeyNotSet):
		writeError(w, http.StatusServiceUnavailable, driven.ErrEncryptionKeyNotSet.Error())
		return
	default:
		h.logger.Error("failed to store token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{Login: login})
}

// ClearToken removes the stored token.
func (h *Handler) ClearToken(w http.ResponseWriter, r *http.Request) {
	if err := h.tokens.Clear(r.Context()); err != nil {
		h.logger.Error("failed to clear token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}
	if h.provider != nil {
		resp.GitHubConfigured = h.provider.HasClient()
		resp.Login = h.provider.Username()
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeServiceError maps application errors to status codes. Anything that
// is not a known sentinel is treated as an upstream failure.
func (h *Handler) writeServiceError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, application.ErrNoGitHubClient):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error(msg, "error", err)
		writeError(w, http.StatusBadGateway, msg+": "+err.Error())
	}
}
