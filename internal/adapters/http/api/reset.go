package api

import "net/http"

// ResetHandler restarts the exercise.
type ResetHandler struct {
	deps ResetDependencies
}

// NewResetHandler creates a new reset handler.
func NewResetHandler(deps ResetDependencies) *ResetHandler {
	return &ResetHandler{deps: deps}
}

// HandleReset handles POST /reset requests.
func (h *ResetHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	const op = "api.reset"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := h.deps.Reset(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
