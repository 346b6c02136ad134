package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	connectedComment = ": connected\n\n"
	pingComment      = ": ping\n\n"
)

// Serve runs one stream connection: it registers a client, writes queued
// frames and keep-alive comments until ctx ends or the registry ends the
// client, and always deregisters on return. It returns ErrRegistryClosed
// before writing anything when the registry is shutting down.
func Serve(ctx context.Context, w http.ResponseWriter, reg *Registry, keepAlive time.Duration, logger zerolog.Logger) error {
	client, err := reg.Open()
	if err != nil {
		return err
	}
	defer reg.Close(client.ID)

	rc := http.NewResponseController(w)
	// Streams outlive the server's write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logger.Warn().Err(err).Msg("failed to clear write deadline")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	write := func(b []byte) error {
		if _, err := w.Write(b); err != nil {
			return fmt.Errorf("failed to write stream: %w", err)
		}
		if err := rc.Flush(); err != nil {
			return fmt.Errorf("failed to flush stream: %w", err)
		}
		return nil
	}

	if err := write([]byte(connectedComment)); err != nil {
		return err
	}

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-client.Done():
			return nil
		case frame := <-client.Send():
			if err := write(frame); err != nil {
				return err
			}
		case <-ticker.C:
			if err := write([]byte(pingComment)); err != nil {
				return err
			}
		}
	}
}
