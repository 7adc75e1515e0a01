package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	turnsConsumedTotal *prometheus.CounterVec
	turnLatency        *prometheus.HistogramVec
	fallbackDepth      *prometheus.HistogramVec
	eventLag           *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	turnsConsumedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutor",
			Subsystem: "analytics",
			Name:      "turns_consumed_total",
			Help:      "Total chat turn events consumed by category and routing method.",
		},
		[]string{"service", "category", "method"},
	)
	turnLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tutor",
			Subsystem: "analytics",
			Name:      "turn_latency_seconds",
			Help:      "Reported end-to-end latency of consumed chat turns.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "category"},
	)
	fallbackDepth := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tutor",
			Subsystem: "analytics",
			Name:      "fallback_depth",
			Help:      "Distribution of fallback attempts before an answer succeeded.",
			Buckets:   []float64{0, 1, 2, 3},
		},
		[]string{"service"},
	)
	eventLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tutor",
			Subsystem: "analytics",
			Name:      "event_lag_seconds",
			Help:      "Delay between a turn happening and the event being consumed.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"service"},
	)

	registry.MustRegister(turnsConsumedTotal, turnLatency, fallbackDepth, eventLag)

	return &WorkerMetrics{
		registry:           registry,
		turnsConsumedTotal: turnsConsumedTotal,
		turnLatency:        turnLatency,
		fallbackDepth:      fallbackDepth,
		eventLag:           eventLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) ObserveTurn(service, category, method string, latencyMS float64) {
	if category == "" {
		category = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	m.turnsConsumedTotal.WithLabelValues(service, category, method).Inc()
	if latencyMS > 0 {
		m.turnLatency.WithLabelValues(service, category).Observe(latencyMS / 1000.0)
	}
}

func (m *WorkerMetrics) ObserveFallbackDepth(service string, depth int) {
	if depth < 0 {
		return
	}
	m.fallbackDepth.WithLabelValues(service).Observe(float64(depth))
}

func (m *WorkerMetrics) ObserveEventLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.eventLag.WithLabelValues(service).Observe(lag.Seconds())
}
