package events_test

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kitchen-orders/internal/cache"
	"kitchen-orders/internal/config"
	"kitchen-orders/internal/events"
	"kitchen-orders/internal/model"
	"kitchen-orders/internal/stream"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// worker is one simulated process: its own broker connection, relay and registry.
type worker struct {
	registry *stream.Registry
	server   *httptest.Server
}

func startWorker(t *testing.T, mr *miniredis.Miniredis) *worker {
	t.Helper()
	cfg := config.RedisConfig{Addr: mr.Addr(), PoolSize: 2}
	client := cache.NewRedisClient(cfg)
	broker := events.NewRedisBroker(client, cfg, zerolog.Nop())

	registry := stream.NewRegistry(8, zerolog.Nop())
	relay := events.NewRelay(broker, "kitchen:orders", registry, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = stream.Serve(r.Context(), w, registry, time.Minute, zerolog.Nop())
	}))

	t.Cleanup(func() {
		registry.Shutdown()
		server.Close()
		cancel()
		<-done
		broker.Close()
		client.Close()
	})

	select {
	case <-relay.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not subscribe")
	}

	return &worker{registry: registry, server: server}
}

type display struct {
	cancel context.CancelFunc
	lines  chan string
}

// connect opens a kitchen display stream and collects its data lines.
func connect(t *testing.T, w *worker) *display {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.server.URL, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	d := &display{cancel: cancel, lines: make(chan string, 16)}
	go func() {
		defer resp.Body.Close()
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "data: ") {
				d.lines <- strings.TrimPrefix(line, "data: ")
			}
		}
	}()
	t.Cleanup(cancel)
	return d
}

func TestFanOut_EveryWorkerDeliversOneCopyToItsClients(t *testing.T) {
	mr := miniredis.RunT(t)
	w1 := startWorker(t, mr)
	w2 := startWorker(t, mr)

	a := connect(t, w1)
	b := connect(t, w2)
	gone := connect(t, w2)

	require.Eventually(t, func() bool { return w1.registry.Len() == 1 && w2.registry.Len() == 2 },
		2*time.Second, 10*time.Millisecond)

	gone.cancel()
	require.Eventually(t, func() bool { return w2.registry.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	pubCfg := config.RedisConfig{Addr: mr.Addr(), PoolSize: 1}
	pubClient := cache.NewRedisClient(pubCfg)
	defer pubClient.Close()
	pubBroker := events.NewRedisBroker(pubClient, pubCfg, zerolog.Nop())
	defer pubBroker.Close()
	publisher := events.NewPublisher(pubBroker, "kitchen:orders", zerolog.Nop())

	event := model.KitchenEvent{
		Action:   model.ActionNewOrder,
		OrderID:  99,
		Client:   "Simpson",
		Products: []model.KitchenProduct{{Name: "Muzzarella", Quantity: 2}},
		Time:     "21:00",
		Status:   model.StatusPreparing,
	}
	require.NoError(t, publisher.Publish(context.Background(), event))

	for _, d := range []*display{a, b} {
		select {
		case line := <-d.lines:
			got, err := events.Decode([]byte(line))
			require.NoError(t, err)
			assert.Equal(t, event, got)
		case <-time.After(2 * time.Second):
			t.Fatal("display did not receive the event")
		}
	}

	// Exactly one copy each, and nothing for the display that left.
	time.Sleep(100 * time.Millisecond)
	for _, d := range []*display{a, b, gone} {
		select {
		case line := <-d.lines:
			t.Fatalf("unexpected extra frame %q", line)
		default:
		}
	}
}
