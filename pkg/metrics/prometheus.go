package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	predictions    *prometheus.CounterVec
	cacheEvents    *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	lastPrediction *prometheus.GaugeVec
	lastPrice      *prometheus.GaugeVec
	ingested       *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	coverage       *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		predictions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_predictions_total",
				Help: "Predictions served, by model kind and symbol",
			},
			[]string{"kind", "symbol"},
		),
		cacheEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_model_cache_events_total",
				Help: "Model cache lookups, by outcome",
			},
			[]string{"outcome"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_errors_total",
				Help: "Serving errors, by kind",
			},
			[]string{"type"},
		),
		lastPrediction: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockcast_last_prediction",
				Help: "Last predicted price for a symbol",
			},
			[]string{"symbol"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockcast_last_price",
				Help: "Last observed market price for a symbol",
			},
			[]string{"symbol"},
		),
		ingested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_ticks_ingested_total",
				Help: "Ticks written to a backend, by backend and symbol",
			},
			[]string{"backend", "symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockcast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		coverage: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockcast_model_coverage",
				Help: "Servable symbols, by artifact pool",
			},
			[]string{"pool"},
		),
	}
}

// RecordPrediction records a served prediction.
func (r *Recorder) RecordPrediction(kind, symbol string) {
	r.predictions.WithLabelValues(kind, symbol).Inc()
}

// RecordCacheEvent records a model cache hit or miss.
func (r *Recorder) RecordCacheEvent(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	r.cacheEvents.WithLabelValues(outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrediction records the most recent forecast for a symbol.
func (r *Recorder) RecordLastPrediction(symbol string, price float64) {
	r.lastPrediction.WithLabelValues(symbol).Set(price)
}

// RecordLastPrice records the most recent observed market price.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordIngest records a tick written to a backend.
func (r *Recorder) RecordIngest(backend, symbol string) {
	r.ingested.WithLabelValues(backend, symbol).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordCoverage records how many symbols each artifact pool can serve.
func (r *Recorder) RecordCoverage(specific, general int) {
	r.coverage.WithLabelValues("specific").Set(float64(specific))
	r.coverage.WithLabelValues("general").Set(float64(general))
}
