package httphandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
)

// maxRunsLimit caps the limit query parameter of the runs endpoint.
const maxRunsLimit = 500

// TriageService is the subset of the application service the REST API drives.
type TriageService interface {
	TriageItem(ctx context.Context, repo string, number int, dryRun bool) (*model.TriageRun, error)
	RecentRuns(ctx context.Context, repo string, limit int) ([]model.TriageRun, error)
	Policy(repo string) (*model.Policy, error)
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	svc    TriageService
	logger *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(svc TriageService, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("POST /api/v1/repos/{owner}/{repo}/items/{number}/triage", h.TriageItem)
	mux.HandleFunc("GET /api/v1/repos/{owner}/{repo}/policy", h.GetPolicy)
	mux.HandleFunc("GET /api/v1/runs", h.ListRuns)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// TriageItem runs one decision cycle for an item and returns the run record.
// The dry_run query parameter records the decision without executing it.
func (h *Handler) TriageItem(w http.ResponseWriter, r *http.Request) {
	repo, ok := repoFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid repository name: expected owner/repo format")
		return
	}

	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || number <= 0 {
		writeError(w, http.StatusBadRequest, "invalid item number")
		return
	}

	dryRun := false
	if v := r.URL.Query().Get("dry_run"); v != "" {
		dryRun, err = strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid dry_run value")
			return
		}
	}

	run, err := h.svc.TriageItem(r.Context(), repo, number, dryRun)
	if err != nil {
		h.writeServiceError(w, "failed to triage item", err, "repo", repo, "number", number)
		return
	}

	writeJSON(w, http.StatusOK, toRunResponse(*run))
}

// ListRuns returns recent audit records, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	repo := q.Get("repo")
	if repo != "" && !isValidRepoName(repo) {
		writeError(w, http.StatusBadRequest, "invalid repository name: expected owner/repo format")
		return
	}

	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := h.svc.RecentRuns(r.Context(), repo, limit)
	if err != nil {
		h.logger.Error("failed to list runs", "repo", repo, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, toRunResponse(run))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetPolicy returns the guideline sections and label taxonomy in effect for a repository.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	repo, ok := repoFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid repository name: expected owner/repo format")
		return
	}

	policy, err := h.svc.Policy(repo)
	if err != nil {
		h.writeServiceError(w, "failed to load policy", err, "repo", repo)
		return
	}

	writeJSON(w, http.StatusOK, toPolicyResponse(*policy))
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// writeServiceError maps sentinel errors from the application layer to
// status codes. Anything unrecognized is logged and reported as a 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, msg string, err error, args ...any) {
	switch {
	case errors.Is(err, model.ErrConfigurationMissing):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, model.ErrPreconditionViolation):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(msg, append(args, "error", err)...)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// repoFromPath joins the owner and repo path values and validates the result.
func repoFromPath(r *http.Request) (string, bool) {
	name := r.PathValue("owner") + "/" + r.PathValue("repo")
	return name, isValidRepoName(name)
}

// isValidRepoName validates that name is in owner/repo format where each part
// contains only alphanumeric characters, hyphens, dots, or underscores.
func isValidRepoName(name string) bool {
	parts := strings.SplitN(name, "/", 3)
	if len(parts) != 2 {
		return false
	}

	for _, part := range parts {
		if part == "" {
			return false
		}
		for _, ch := range part {
			if !isValidRepoChar(ch) {
				return false
			}
		}
	}

	return true
}

// isValidRepoChar returns true if the rune is allowed in a repository owner or name.
func isValidRepoChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '-' || ch == '.' || ch == '_'
}
