package api

import (
	"bytes"
	"image/png"
	"net/http"
	"strconv"
)

// CaptureHandler serves the rendered scene.
type CaptureHandler struct {
	deps CaptureDependencies
}

// NewCaptureHandler creates a new capture handler.
func NewCaptureHandler(deps CaptureDependencies) *CaptureHandler {
	return &CaptureHandler{deps: deps}
}

// HandleCapture handles GET /capture.png requests.
func (h *CaptureHandler) HandleCapture(w http.ResponseWriter, r *http.Request) {
	const op = "api.capture"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	img, err := h.deps.Capture(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
