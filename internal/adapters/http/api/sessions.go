package api

import (
	"net/http"
	"strconv"
)

const defaultSessionsLimit = 10

// SessionsHandler serves the best finished sessions.
type SessionsHandler struct {
	deps     SessionDependencies
	maxLimit int
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies, maxLimit int) *SessionsHandler {
	if maxLimit < 1 {
		maxLimit = defaultSessionsLimit
	}
	return &SessionsHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetSessions handles GET /sessions?limit=N requests. limit defaults
// to 10.
func (h *SessionsHandler) HandleGetSessions(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_sessions"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n := min(defaultSessionsLimit, h.maxLimit)
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		n = v
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	entries, err := h.deps.Sessions(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
