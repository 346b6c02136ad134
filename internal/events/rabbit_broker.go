package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// RabbitBroker maps each channel onto a fanout exchange. Every subscriber gets
// its own exclusive, auto-delete queue, so each worker receives every message
// once and nothing outlives a disconnected worker.
type RabbitBroker struct {
	url    string
	logger zerolog.Logger

	mu       sync.Mutex
	conn     *amqp.Connection
	pubChan  *amqp.Channel
	declared map[string]bool
}

// DialRabbitBroker connects to RabbitMQ.
func DialRabbitBroker(url string, logger zerolog.Logger) (*RabbitBroker, error) {
	b := &RabbitBroker{
		url:      url,
		logger:   logger.With().Str("component", "rabbit_broker").Logger(),
		declared: make(map[string]bool),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.connectionLocked(); err != nil {
		return nil, err
	}
	return b, nil
}

// connectionLocked returns the live connection, redialling if it was lost.
func (b *RabbitBroker) connectionLocked() (*amqp.Connection, error) {
	if b.conn != nil && !b.conn.IsClosed() {
		return b.conn, nil
	}

	conn, err := amqp.DialConfig(b.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(10 * time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	b.conn = conn
	b.pubChan = nil
	b.declared = make(map[string]bool)
	b.logger.Info().Msg("connected to rabbitmq")
	return conn, nil
}

func declareExchange(ch *amqp.Channel, name string) error {
	return ch.ExchangeDeclare(
		name,
		amqp.ExchangeFanout,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
}

func (b *RabbitBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn, err := b.connectionLocked()
	if err != nil {
		return err
	}

	if b.pubChan == nil || b.pubChan.IsClosed() {
		ch, err := conn.Channel()
		if err != nil {
			return fmt.Errorf("failed to open publish channel: %w", err)
		}
		b.pubChan = ch
		b.declared = make(map[string]bool)
	}

	if !b.declared[channel] {
		if err := declareExchange(b.pubChan, channel); err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", channel, err)
		}
		b.declared[channel] = true
	}

	err = b.pubChan.PublishWithContext(ctx, channel, "", false, false, amqp.Publishing{
		DeliveryMode: amqp.Transient,
		ContentType:  "application/json",
		Timestamp:    time.Now(),
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

func (b *RabbitBroker) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	b.mu.Lock()
	conn, err := b.connectionLocked()
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open consumer channel: %w", err)
	}

	setup := func() (<-chan amqp.Delivery, error) {
		if err := declareExchange(ch, channel); err != nil {
			return nil, fmt.Errorf("failed to declare exchange %s: %w", channel, err)
		}
		q, err := ch.QueueDeclare(
			"",    // server-named
			false, // durable
			true,  // auto-delete
			true,  // exclusive
			false, // no-wait
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to declare queue: %w", err)
		}
		if err := ch.QueueBind(q.Name, "", channel, false, nil); err != nil {
			return nil, fmt.Errorf("failed to bind queue: %w", err)
		}
		return ch.ConsumeWithContext(ctx, q.Name, "", true, true, false, false, nil)
	}

	deliveries, err := setup()
	if err != nil {
		ch.Close()
		return nil, err
	}

	s := &rabbitSubscription{
		ch:   ch,
		out:  make(chan []byte),
		done: make(chan struct{}),
	}
	go s.forward(deliveries)

	b.logger.Info().Str("exchange", channel).Msg("subscribed")
	return s, nil
}

func (b *RabbitBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	if b.pubChan != nil {
		if err := b.pubChan.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
		b.pubChan = nil
	}
	if b.conn != nil {
		if err := b.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
		b.conn = nil
	}
	return errors.Join(errs...)
}

type rabbitSubscription struct {
	ch        *amqp.Channel
	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (s *rabbitSubscription) forward(in <-chan amqp.Delivery) {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case d, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.out <- d.Body:
			case <-s.done:
				return
			}
		}
	}
}

func (s *rabbitSubscription) Messages() <-chan []byte {
	return s.out
}

func (s *rabbitSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if cerr := s.ch.Close(); cerr != nil && !errors.Is(cerr, amqp.ErrClosed) {
			err = cerr
		}
	})
	return err
}
