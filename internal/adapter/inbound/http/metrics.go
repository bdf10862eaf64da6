// Package http provides the HTTP status server adapter.
package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for Respawngate.
// Pass to components that need to record metrics; the chain vectors are
// handed to the RPC client so outbound calls show up per endpoint.
type Metrics struct {
	RequestsTotal        *prometheus.CounterVec
	RequestDuration      *prometheus.HistogramVec
	ChainRequestsTotal   *prometheus.CounterVec
	ChainRequestDuration *prometheus.HistogramVec
	GateChecksTotal      *prometheus.CounterVec
	StatusCacheTotal     *prometheus.CounterVec
	RateLimitedTotal     prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "respawngate",
				Name:      "requests_total",
				Help:      "Total number of status server requests processed",
			},
			[]string{"path", "status"}, // path=/v1/status etc, status=ok/error
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "respawngate",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets, // 5ms to 10s
			},
			[]string{"path"},
		),
		ChainRequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "respawngate",
				Name:      "chain_requests_total",
				Help:      "Chain API requests by endpoint",
			},
			[]string{"endpoint", "status"},
		),
		ChainRequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "respawngate",
				Name:      "chain_request_duration_seconds",
				Help:      "Chain API request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		GateChecksTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "respawngate",
				Name:      "gate_checks_total",
				Help:      "Gate status checks by outcome",
			},
			[]string{"result"}, // result=free/cooldown/error
		),
		StatusCacheTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "respawngate",
				Name:      "status_cache_total",
				Help:      "Status cache lookups by outcome",
			},
			[]string{"result"}, // result=hit/miss
		),
		RateLimitedTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "respawngate",
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the per-IP rate limiter",
			},
		),
	}
}
