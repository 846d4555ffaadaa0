package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/shootsim/pkg/logger"
	"github.com/okian/shootsim/pkg/metrics"
)

const (
	feedBuffer     = 64
	feedWriteWait  = 5 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = feedPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// FeedHandler streams scene messages over a websocket.
type FeedHandler struct {
	deps FeedDependencies
	log  logger.Logger
}

// NewFeedHandler creates a new feed handler.
func NewFeedHandler(deps FeedDependencies) *FeedHandler {
	return &FeedHandler{deps: deps, log: logger.Get().Named("feed")}
}

// HandleFeed handles GET /feed. Each feed text, utterance and background
// change is sent as one JSON text frame.
func (h *FeedHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	const op = "api.feed"
	ctx := r.Context()
	msgs, cancel, err := h.deps.Subscribe(feedBuffer)
	if err != nil {
		metrics.RecordHTTPRequest("feed", r.Method, "503")
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.RecordHTTPRequest("feed", r.Method, "400")
		h.log.Warn(ctx, "websocket upgrade failed", logger.Error(err))
		return
	}
	defer conn.Close()
	metrics.RecordHTTPRequest("feed", r.Method, "101")

	ctx, stop := context.WithCancel(context.WithoutCancel(ctx))
	defer stop()
	go h.readLoop(conn, stop)

	ping := time.NewTicker(feedPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "scene closed"),
					time.Now().Add(feedWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteJSON(m); err != nil {
				h.log.Debug(ctx, "feed client gone", logger.Error(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteWait)); err != nil {
				return
			}
		}
	}
}

// readLoop discards client frames and ends the stream when the client
// disconnects or stops answering pings.
func (h *FeedHandler) readLoop(conn *websocket.Conn, stop context.CancelFunc) {
	defer stop()
	_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
