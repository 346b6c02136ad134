// Package events carries kitchen events between worker processes. A Publisher
// puts committed order changes on a broker channel, and every worker runs one
// Relay that receives them and hands them to its local stream registry.
package events

import "context"

// Broker is a publish/subscribe transport with at-most-once, fire-and-forget
// delivery to the subscribers connected at publish time.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
	Close() error
}

// Subscription delivers raw payloads. Messages is closed when the
// subscription ends, either through Close or because the transport dropped.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}
