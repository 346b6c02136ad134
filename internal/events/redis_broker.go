package events

import (
	"context"
	"fmt"
	"sync"

	"kitchen-orders/internal/config"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// RedisBroker publishes on the shared command client and subscribes on a
// dedicated single-connection client, so a blocked subscription never starves
// cache traffic.
type RedisBroker struct {
	pub    *redis.Client
	sub    *redis.Client
	logger zerolog.Logger
}

// NewRedisBroker creates a broker. pub is the shared client; the subscription
// client is created here from cfg.
func NewRedisBroker(pub *redis.Client, cfg config.RedisConfig, logger zerolog.Logger) *RedisBroker {
	return &RedisBroker{
		pub: pub,
		sub: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: 1,
		}),
		logger: logger.With().Str("component", "redis_broker").Logger(),
	}
}

func (b *RedisBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.pub.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

// Subscribe blocks until the server confirms the subscription.
func (b *RedisBroker) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	ps := b.sub.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	s := &redisSubscription{
		ps:   ps,
		out:  make(chan []byte),
		done: make(chan struct{}),
	}
	go s.forward(ps.Channel())

	b.logger.Info().Str("channel", channel).Msg("subscribed")
	return s, nil
}

// Close closes the subscription client. The shared publish client is owned by the caller.
func (b *RedisBroker) Close() error {
	return b.sub.Close()
}

type redisSubscription struct {
	ps        *redis.PubSub
	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (s *redisSubscription) forward(in <-chan *redis.Message) {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.out <- []byte(msg.Payload):
			case <-s.done:
				return
			}
		}
	}
}

func (s *redisSubscription) Messages() <-chan []byte {
	return s.out
}

func (s *redisSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}
