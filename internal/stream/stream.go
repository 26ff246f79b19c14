// Package stream serves guestbook events to browsers as Server-Sent Events.
package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"portfolio/internal/config"
	"portfolio/internal/events"
	"portfolio/internal/logging"

	"github.com/gin-gonic/gin"
)

const (
	defaultKeepAlive = 15 * time.Second
	defaultBuffer    = 32
)

type Handler struct {
	bus       *events.Bus
	keepAlive time.Duration
	buffer    int

	closing   chan struct{}
	closeOnce sync.Once
}

func NewHandler(bus *events.Bus, cfg config.GuestbookConfig) *Handler {
	h := &Handler{
		bus:       bus,
		keepAlive: cfg.KeepAlive,
		buffer:    cfg.StreamBuffer,
		closing:   make(chan struct{}),
	}
	if h.keepAlive <= 0 {
		h.keepAlive = defaultKeepAlive
	}
	if h.buffer <= 0 {
		h.buffer = defaultBuffer
	}
	return h
}

// Close ends every open stream and rejects new ones. http.Server.Shutdown
// does not cancel running requests, so the server registers Close with
// RegisterOnShutdown.
func (h *Handler) Close() {
	h.closeOnce.Do(func() { close(h.closing) })
}

// Serve handles GET /api/guestbook/stream. Each connection subscribes to the
// bus for as long as the request context lives; there is no replay, so a
// client that connects late only sees events emitted after ":ok".
func (h *Handler) Serve(c *gin.Context) {
	ctx := c.Request.Context()
	logger := logging.Ctx(ctx)
	w := c.Writer

	select {
	case <-h.closing:
		c.Status(http.StatusServiceUnavailable)
		return
	default:
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	queue := make(chan events.Event, h.buffer)
	unsubscribe := h.bus.Subscribe(func(ev events.Event) {
		select {
		case queue <- ev:
		default:
			logger.Debug().Str(logging.FieldEventType, ev.Type).Msg("stream buffer full, event dropped")
		}
	})

	var once sync.Once
	closeConn := func() { once.Do(unsubscribe) }
	defer closeConn()

	if !write(w, ":ok\n\n") {
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	logger.Debug().Int("subscribers", h.bus.Len()).Msg("guestbook stream opened")

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("guestbook stream closed")
			return
		case <-h.closing:
			logger.Debug().Msg("guestbook stream closed by shutdown")
			return
		case <-ticker.C:
			if !write(w, ":ping\n\n") {
				return
			}
		case ev := <-queue:
			data, err := json.Marshal(ev)
			if err != nil {
				logger.Error().Err(err).Str(logging.FieldEventType, ev.Type).Msg("failed to encode stream event")
				continue
			}
			if !write(w, fmt.Sprintf("data: %s\n\n", data)) {
				return
			}
		}
	}
}

// write reports whether the frame reached the client. Errors mean the peer
// went away and are not surfaced.
func write(w gin.ResponseWriter, frame string) bool {
	if _, err := io.WriteString(w, frame); err != nil {
		return false
	}
	w.Flush()
	return true
}
