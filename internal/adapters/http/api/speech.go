package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/shootsim/internal/adapters/speech"
)

const maxSpeechBody = 1 << 10

// SpeechHandler toggles spoken feedback.
type SpeechHandler struct {
	deps SpeechDependencies
}

// NewSpeechHandler creates a new speech handler.
func NewSpeechHandler(deps SpeechDependencies) *SpeechHandler {
	return &SpeechHandler{deps: deps}
}

type speechRequest struct {
	Silenced *bool `json:"silenced"`
}

type speechResponse struct {
	Silenced bool `json:"silenced"`
}

// HandlePutSpeech handles PUT /speech requests. Unsilencing without a working
// audio output answers 409.
func (h *SpeechHandler) HandlePutSpeech(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_speech"
	if r.Method != http.MethodPut {
		http.NotFound(w, r)
		return
	}
	var req speechRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSpeechBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Silenced == nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("silenced is required")))
		return
	}

	err := h.deps.SetSpeechSilenced(*req.Silenced)
	switch {
	case errors.Is(err, speech.ErrAudioUnavailable):
		writeError(w, http.StatusConflict, "audio_unavailable", WrapKind(op, ErrAudioUnavailable, err))
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeJSON(w, http.StatusOK, speechResponse{Silenced: *req.Silenced})
	}
}
