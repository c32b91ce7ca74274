package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/steveyegge/slogan-gen/internal/storage"
	"github.com/steveyegge/slogan-gen/internal/types"
)

const defaultSessionLimit = 20

// SessionHandler serves stored session history.
type SessionHandler struct {
	store storage.Storage
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(store storage.Storage) *SessionHandler {
	return &SessionHandler{store: store}
}

// List handles GET /api/v1/sessions?limit=N&reason=R
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultSessionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "limit must be between 1 and 1000")
			return
		}
		limit = n
	}
	reason := types.CompletionReason(r.URL.Query().Get("reason"))
	if reason != "" && !reason.IsValid() {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "unknown completion reason: "+string(reason))
		return
	}

	sessions, err := h.store.ListSessions(r.Context(), limit, reason)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if sessions == nil {
		sessions = []*types.Session{}
	}
	writeJSON(w, http.StatusOK, SessionsResponse{Sessions: sessions, Count: len(sessions)})
}

// Get handles GET /api/v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.store.GetSession(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, types.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "not_found", err.Error())
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Delete handles DELETE /api/v1/sessions/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.store.DeleteSession(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, types.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "not_found", err.Error())
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
