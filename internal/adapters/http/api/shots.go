package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/okian/shootsim/internal/adapters/mq/queue"
	"github.com/okian/shootsim/internal/domain/model"
)

const maxShotBody = 4 << 10

// ShotsHandler handles shot intake.
type ShotsHandler struct {
	deps ShotDependencies
	now  func() time.Time
}

// NewShotsHandler creates a new shots handler.
func NewShotsHandler(deps ShotDependencies) *ShotsHandler {
	return &ShotsHandler{deps: deps, now: time.Now}
}

// HandlePostShot handles POST /shots requests. Accepted shots answer 202,
// duplicates 200 and a full queue 429.
func (h *ShotsHandler) HandlePostShot(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_shot"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var msg model.ShotMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxShotBody)).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	shot, err := msg.Shot(h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if shot.ID == "" {
		shot.ID = uuid.NewString()
	}

	dup, err := h.deps.Submit(r.Context(), shot)
	switch {
	case errors.Is(err, queue.ErrFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	case dup:
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", ID: shot.ID, Duplicate: true})
	default:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", ID: shot.ID})
	}
}
