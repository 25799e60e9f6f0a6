package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"pos-relay/internal/services"

	"github.com/pocketbase/pocketbase/core"
)

var heartbeatFrame = []byte(": ping\n\n")

type EventsHandler struct {
	broadcaster  *services.EventBroadcaster
	writeTimeout time.Duration
	heartbeat    time.Duration
	logger       *slog.Logger
}

func NewEventsHandler(broadcaster *services.EventBroadcaster, writeTimeout, heartbeat time.Duration, logger *slog.Logger) *EventsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventsHandler{
		broadcaster:  broadcaster,
		writeTimeout: writeTimeout,
		heartbeat:    heartbeat,
		logger:       logger,
	}
}

// Stream - Server-sent event stream the cashier display listens on. The
// subscription lives until the client goes away, a write fails, or the
// broadcaster drops it.
func (h *EventsHandler) Stream(e *core.RequestEvent) error {
	sub := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(sub)

	w := e.Response
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		h.logger.Error("event stream flush not supported", "subscriberId", sub.ID(), "error", err)
		return nil
	}

	var ticks <-chan time.Time
	if h.heartbeat > 0 {
		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()
		ticks = ticker.C
	}

	ctx := e.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.Done():
			return nil
		case msg := <-sub.Messages():
			if err := h.write(rc, w, msg); err != nil {
				h.logger.Warn("event stream write failed", "subscriberId", sub.ID(), "event", msg.Name, "error", err)
				return nil
			}
		case <-ticks:
			if err := h.write(rc, w, heartbeat{}); err != nil {
				h.logger.Debug("heartbeat write failed", "subscriberId", sub.ID(), "error", err)
				return nil
			}
		}
	}
}

type heartbeat struct{}

func (heartbeat) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(heartbeatFrame)
	return int64(n), err
}

// write sends one frame with a bounded deadline so a stalled client cannot
// pin this goroutine forever.
func (h *EventsHandler) write(rc *http.ResponseController, w io.Writer, frame io.WriterTo) error {
	if h.writeTimeout > 0 {
		if err := rc.SetWriteDeadline(time.Now().Add(h.writeTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
	}

	if _, err := frame.WriteTo(w); err != nil {
		return err
	}
	return rc.Flush()
}
