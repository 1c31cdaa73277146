package api

import (
	"errors"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/preview"
)

var errNoHistory = errors.New("history store not configured")

// handleHistory returns persisted uploads and batch summaries.
// Query: limit (default 50), state (QUEUED|ACTIVE|SUCCEEDED|FAILED|CANCELLED).
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusNotImplemented, errNoHistory.Error())
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	state := domain.TaskState(strings.ToUpper(r.URL.Query().Get("state")))
	switch state {
	case "", domain.TaskQueued, domain.TaskActive, domain.TaskSucceeded, domain.TaskFailed, domain.TaskCancelled:
	default:
		writeError(w, http.StatusBadRequest, "unknown state "+string(state))
		return
	}

	uploads, err := s.deps.History.ListUploads(state, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	batches, err := s.deps.History.ListBatches(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if uploads == nil {
		uploads = []domain.UploadTask{}
	}
	if batches == nil {
		batches = []domain.BatchSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"uploads": uploads,
		"batches": batches,
	})
}

// handleUsage reports stored bytes against the configured quota.
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusNotImplemented, errNoHistory.Error())
		return
	}
	used, err := s.deps.History.UsedBytes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]any{
		"used_bytes": used,
		"used":       domain.HumanSize(used),
	}
	if limit := s.deps.QuotaLimit; limit > 0 {
		resp["quota_bytes"] = limit
		resp["quota"] = domain.HumanSize(limit)
		resp["free_bytes"] = max(limit-used, 0)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePreview renders a stored object. Query: ref (required), name
// (defaults to the last element of ref).
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		writeDomainError(w, domain.ErrNotSupported)
		return
	}
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		writeError(w, http.StatusBadRequest, "ref is required")
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = path.Base(ref)
	}

	src := preview.OpenerSource(r.Context(), s.deps.Store, ref)
	v, err := s.deps.Previews.Preview(r.Context(), name, src)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
