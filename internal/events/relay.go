package events

import (
	"context"
	"sync"
	"time"

	"kitchen-orders/internal/metrics"

	"github.com/rs/zerolog"
)

// Sink receives validated event payloads for local fan-out and returns the
// number of clients the payload was queued for.
type Sink interface {
	Broadcast(payload []byte) int
}

const (
	defaultMinBackoff = 100 * time.Millisecond
	defaultMaxBackoff = 10 * time.Second
)

// Relay holds the single subscription of a worker process and forwards every
// valid event to the local sink.
type Relay struct {
	broker     Broker
	channel    string
	sink       Sink
	logger     zerolog.Logger
	minBackoff time.Duration
	maxBackoff time.Duration

	ready     chan struct{}
	readyOnce sync.Once
}

// NewRelay creates a relay for channel.
func NewRelay(broker Broker, channel string, sink Sink, logger zerolog.Logger) *Relay {
	return &Relay{
		broker:     broker,
		channel:    channel,
		sink:       sink,
		logger:     logger.With().Str("component", "relay").Logger(),
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
		ready:      make(chan struct{}),
	}
}

// Ready is closed once the first subscription is established.
func (r *Relay) Ready() <-chan struct{} {
	return r.ready
}

// Run subscribes and relays until ctx is cancelled. A dropped or failed
// subscription is retried with capped exponential backoff.
func (r *Relay) Run(ctx context.Context) {
	backoff := r.minBackoff

	for {
		sub, err := r.broker.Subscribe(ctx, r.channel)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Error().Err(err).Dur("retry_in", backoff).Msg("failed to subscribe")
			if !sleep(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, r.maxBackoff)
			continue
		}

		backoff = r.minBackoff
		r.readyOnce.Do(func() { close(r.ready) })

		r.consume(ctx, sub)
		if err := sub.Close(); err != nil {
			r.logger.Warn().Err(err).Msg("failed to close subscription")
		}

		if ctx.Err() != nil {
			r.logger.Info().Msg("relay stopped")
			return
		}
		r.logger.Warn().Msg("subscription dropped, resubscribing")
	}
}

func (r *Relay) consume(ctx context.Context, sub Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-sub.Messages():
			if !ok {
				return
			}
			r.handle(payload)
		}
	}
}

func (r *Relay) handle(payload []byte) {
	event, err := Decode(payload)
	if err != nil {
		r.logger.Warn().Err(err).Msg("discarding undecodable kitchen event")
		return
	}

	normalized, err := Encode(event)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to re-encode kitchen event")
		return
	}

	delivered := r.sink.Broadcast(normalized)
	metrics.EventsRelayed.Inc()

	r.logger.Debug().
		Str("action", event.Action).
		Int64("order_id", event.OrderID).
		Int("clients", delivered).
		Msg("kitchen event relayed")
}

// sleep waits for d or until ctx is done, reporting whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
