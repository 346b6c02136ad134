package events

import (
	"context"

	"kitchen-orders/internal/metrics"
	"kitchen-orders/internal/model"

	"github.com/rs/zerolog"
)

// Publisher puts kitchen events on the configured broker channel.
type Publisher struct {
	broker  Broker
	channel string
	logger  zerolog.Logger
}

// NewPublisher creates a publisher for channel.
func NewPublisher(broker Broker, channel string, logger zerolog.Logger) *Publisher {
	return &Publisher{
		broker:  broker,
		channel: channel,
		logger:  logger.With().Str("component", "publisher").Logger(),
	}
}

// Publish encodes and publishes one event. Delivery is best-effort: the
// returned error only reports that the broker did not accept the message.
func (p *Publisher) Publish(ctx context.Context, event model.KitchenEvent) error {
	payload, err := Encode(event)
	if err != nil {
		metrics.EventsPublished.WithLabelValues(event.Action, "error").Inc()
		return err
	}

	if err := p.broker.Publish(ctx, p.channel, payload); err != nil {
		metrics.EventsPublished.WithLabelValues(event.Action, "error").Inc()
		return err
	}

	metrics.EventsPublished.WithLabelValues(event.Action, "ok").Inc()
	p.logger.Debug().
		Str("action", event.Action).
		Int64("order_id", event.OrderID).
		Msg("kitchen event published")

	return nil
}
