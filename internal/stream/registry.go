// Package stream holds the kitchen display connections owned by one worker
// process and writes server-sent events to them.
package stream

import (
	"bytes"
	"errors"
	"sync"

	"kitchen-orders/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrRegistryClosed is returned by Open after Shutdown.
var ErrRegistryClosed = errors.New("stream registry is shut down")

// Client is one open stream. Frames queued on its buffer are written by the
// connection loop that owns it.
type Client struct {
	ID        uuid.UUID
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// Send delivers frames queued for this client.
func (c *Client) Send() <-chan []byte {
	return c.send
}

// Done is closed when the registry ends the client.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) end() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Registry is the set of open streams of this process.
type Registry struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*Client
	buffer  int
	closed  bool
	logger  zerolog.Logger
}

// NewRegistry creates a registry whose clients buffer up to buffer frames.
func NewRegistry(buffer int, logger zerolog.Logger) *Registry {
	if buffer < 1 {
		buffer = 1
	}
	return &Registry{
		clients: make(map[uuid.UUID]*Client),
		buffer:  buffer,
		logger:  logger.With().Str("component", "stream_registry").Logger(),
	}
}

// Open registers a new client.
func (r *Registry) Open() (*Client, error) {
	c := &Client{
		ID:   uuid.New(),
		send: make(chan []byte, r.buffer),
		done: make(chan struct{}),
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}
	r.clients[c.ID] = c
	n := len(r.clients)
	r.mu.Unlock()

	metrics.StreamClients.Set(float64(n))
	r.logger.Info().Str("client_id", c.ID.String()).Int("clients", n).Msg("stream client connected")
	return c, nil
}

// Close deregisters a client. Closing an unknown or already closed client is a no-op.
func (r *Registry) Close(id uuid.UUID) {
	r.mu.Lock()
	c, ok := r.clients[id]
	if ok {
		delete(r.clients, id)
	}
	n := len(r.clients)
	r.mu.Unlock()

	if !ok {
		return
	}
	c.end()

	metrics.StreamClients.Set(float64(n))
	r.logger.Info().Str("client_id", id.String()).Int("clients", n).Msg("stream client disconnected")
}

// Len returns the number of open clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Broadcast frames payload and queues it for every open client without
// blocking. A client whose buffer is full misses this frame but stays
// registered. Returns the number of clients the frame was queued for.
func (r *Registry) Broadcast(payload []byte) int {
	frame := Frame(payload)

	r.mu.RLock()
	defer r.mu.RUnlock()

	queued := 0
	for id, c := range r.clients {
		select {
		case c.send <- frame:
			queued++
		default:
			metrics.EventsDropped.Inc()
			r.logger.Warn().Str("client_id", id.String()).Msg("stream client buffer full, frame dropped")
		}
	}
	return queued
}

// Shutdown ends every client and rejects new ones. Connection loops observe
// Done, return, and deregister themselves.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	r.closed = true
	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.Unlock()

	for _, c := range clients {
		c.end()
	}
	r.logger.Info().Int("clients", len(clients)).Msg("stream registry shut down")
}

// Frame renders payload as one server-sent event. Each payload line becomes a
// data field.
func Frame(payload []byte) []byte {
	var buf bytes.Buffer
	for _, line := range bytes.Split(payload, []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}
