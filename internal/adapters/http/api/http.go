// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"image"
	"net/http"

	"github.com/okian/shootsim/internal/adapters/repository"
	"github.com/okian/shootsim/internal/adapters/scene"
	"github.com/okian/shootsim/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ShotDependencies
	ResetDependencies
	SessionDependencies
	FeedDependencies
	CaptureDependencies
	SpeechDependencies
}

// ShotDependencies accepts shots for async dispatch.
type ShotDependencies interface {
	// Submit deduplicates and enqueues shot. It returns queue.ErrFull on
	// backpressure.
	Submit(ctx context.Context, shot model.Shot) (duplicate bool, err error)
}

// ResetDependencies restarts the running exercise.
type ResetDependencies interface {
	Reset(ctx context.Context) error
}

// SessionDependencies exposes the session log.
type SessionDependencies interface {
	Sessions(ctx context.Context, n int) ([]repository.Entry, error)
}

// FeedDependencies streams scene changes.
type FeedDependencies interface {
	Subscribe(buffer int) (<-chan scene.Message, func(), error)
}

// CaptureDependencies renders the scene.
type CaptureDependencies interface {
	Capture(ctx context.Context) (image.Image, error)
}

// SpeechDependencies toggles spoken feedback.
type SpeechDependencies interface {
	SetSpeechSilenced(silenced bool) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	shotsHandler    *ShotsHandler
	resetHandler    *ResetHandler
	sessionsHandler *SessionsHandler
	feedHandler     *FeedHandler
	captureHandler  *CaptureHandler
	speechHandler   *SpeechHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps
// GET /sessions?limit.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		shotsHandler:    NewShotsHandler(deps),
		resetHandler:    NewResetHandler(deps),
		sessionsHandler: NewSessionsHandler(deps, maxLimit),
		feedHandler:     NewFeedHandler(deps),
		captureHandler:  NewCaptureHandler(deps),
		speechHandler:   NewSpeechHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/shots", MetricsMiddleware(s.shotsHandler.HandlePostShot, "shots"))
	mux.HandleFunc("/reset", MetricsMiddleware(s.resetHandler.HandleReset, "reset"))
	mux.HandleFunc("/sessions", MetricsMiddleware(s.sessionsHandler.HandleGetSessions, "sessions"))
	mux.HandleFunc("/capture.png", MetricsMiddleware(s.captureHandler.HandleCapture, "capture"))
	mux.HandleFunc("/speech", MetricsMiddleware(s.speechHandler.HandlePutSpeech, "speech"))
	// The websocket upgrade needs the raw ResponseWriter.
	mux.HandleFunc("/feed", s.feedHandler.HandleFeed)
}

type ackResponse struct {
	Status    string `json:"status"`
	ID        string `json:"id"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
