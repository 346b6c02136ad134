package handler

import (
	"errors"
	"net/http"
	"time"

	"kitchen-orders/internal/model"
	"kitchen-orders/internal/stream"

	"github.com/rs/zerolog"
)

// EventsHandler streams kitchen events to displays connected to this worker.
type EventsHandler struct {
	registry  *stream.Registry
	keepAlive time.Duration
	logger    zerolog.Logger
}

func NewEventsHandler(registry *stream.Registry, keepAlive time.Duration, logger zerolog.Logger) *EventsHandler {
	return &EventsHandler{
		registry:  registry,
		keepAlive: keepAlive,
		logger:    logger.With().Str("handler", "events").Logger(),
	}
}

// Stream handles GET /api/events requests as a server-sent event stream.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug().Str("remote_addr", r.RemoteAddr).Msg("kitchen display connected")

	err := stream.Serve(r.Context(), w, h.registry, h.keepAlive, h.logger)
	switch {
	case errors.Is(err, stream.ErrRegistryClosed):
		writeError(w, r, model.TransientError("Server is shutting down", err), h.logger)
		return
	case err != nil:
		h.logger.Debug().Err(err).Str("remote_addr", r.RemoteAddr).Msg("kitchen display stream ended")
		return
	}

	h.logger.Debug().Str("remote_addr", r.RemoteAddr).Msg("kitchen display disconnected")
}
