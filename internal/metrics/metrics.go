package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total number of read-through cache hits",
	})
	CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total number of read-through cache misses",
	})
	CacheErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_errors_total",
		Help: "Total number of failed cache operations, by operation",
	}, []string{"op"})
	CacheStaleFills = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_stale_fills_total",
		Help: "Total number of cache fills dropped because the entry was invalidated during the load",
	})
	EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kitchen_events_published_total",
		Help: "Total number of kitchen events published, by action and result",
	}, []string{"action", "result"})
	EventsRelayed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kitchen_events_relayed_total",
		Help: "Total number of kitchen events received from the bus and fanned out locally",
	})
	EventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kitchen_frames_dropped_total",
		Help: "Total number of frames dropped because a stream client buffer was full",
	})
	StreamClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stream_clients_open",
		Help: "Number of open kitchen display streams on this worker",
	})
	OrderMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_mutations_total",
		Help: "Total number of order mutations, by operation and outcome",
	}, []string{"op", "outcome"})
	TxLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_tx_latency_seconds",
		Help:    "Order mutation transaction latency",
		Buckets: prometheus.DefBuckets,
	})
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests, by method, route and status",
	}, []string{"method", "route", "status"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency, by method and route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

func init() {
	prometheus.MustRegister(
		CacheHits, CacheMisses, CacheErrors, CacheStaleFills,
		EventsPublished, EventsRelayed, EventsDropped,
		StreamClients, OrderMutations, TxLatency,
		HTTPRequests, HTTPDuration,
	)
}

// Handler serves the default registry for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
