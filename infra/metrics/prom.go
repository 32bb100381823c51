// Package metrics implements the observability sinks for the decision
// engine: Prometheus for scraping, InfluxDB for time-series dashboards.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/evzone/chargeml/core/metrics"
)

// PromSink records prediction events as Prometheus metrics.
type PromSink struct {
	predictions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheErrors *prometheus.CounterVec
	alerts      *prometheus.CounterVec
	models      *prometheus.GaugeVec
}

// NewPromSink registers the prediction metrics on the default Prometheus
// registerer. The scrape server is started separately.
func NewPromSink() (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// registerCounter registers a counter vector, reusing the existing
// collector when one with the same name is already registered.
func registerCounter(reg prometheus.Registerer, name, help string, labels []string) (*prometheus.CounterVec, error) {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
	if err := reg.Register(c); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		c = are.ExistingCollector.(*prometheus.CounterVec)
	}
	return c, nil
}

// NewPromSinkWithRegistry registers metrics on the provided registerer. A
// nil registerer defaults to the global one; already-registered collectors
// are reused so repeated construction stays idempotent.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	predictions, err := registerCounter(reg, "ml_predictions_total",
		"Total number of prediction requests", []string{"model_type", "status"})
	if err != nil {
		return nil, err
	}
	cacheHits, err := registerCounter(reg, "ml_cache_hits_total",
		"Result cache hits", []string{"result_type"})
	if err != nil {
		return nil, err
	}
	cacheMisses, err := registerCounter(reg, "ml_cache_misses_total",
		"Result cache misses", []string{"result_type"})
	if err != nil {
		return nil, err
	}
	cacheErrors, err := registerCounter(reg, "ml_cache_errors_total",
		"Result cache lookup failures", []string{"result_type"})
	if err != nil {
		return nil, err
	}
	alerts, err := registerCounter(reg, "ml_alerts_total",
		"Outbound alert publications by topic and delivery outcome", []string{"topic", "delivered"})
	if err != nil {
		return nil, err
	}

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ml_prediction_duration_seconds",
		Help:    "Wall time of one prediction request",
		Buckets: prometheus.DefBuckets,
	}, []string{"model_type"})
	if err := reg.Register(duration); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		duration = are.ExistingCollector.(*prometheus.HistogramVec)
	}
	models := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ml_active_models",
		Help: "Whether a predictor is loaded (1) or unloaded (0)",
	}, []string{"model_type"})
	if err := reg.Register(models); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		models = are.ExistingCollector.(*prometheus.GaugeVec)
	}

	return &PromSink{
		predictions: predictions,
		duration:    duration,
		cacheHits:   cacheHits,
		cacheMisses: cacheMisses,
		cacheErrors: cacheErrors,
		alerts:      alerts,
		models:      models,
	}, nil
}

// RecordPrediction increments the request counter and observes duration.
func (s *PromSink) RecordPrediction(ev coremetrics.PredictionEvent) error {
	s.predictions.WithLabelValues(ev.ModelType, ev.Status).Inc()
	s.duration.WithLabelValues(ev.ModelType).Observe(ev.Duration.Seconds())
	return nil
}

// RecordCache counts a cache lookup outcome.
func (s *PromSink) RecordCache(ev coremetrics.CacheEvent) error {
	switch ev.Outcome {
	case "hit":
		s.cacheHits.WithLabelValues(ev.ResultType).Inc()
	case "miss":
		s.cacheMisses.WithLabelValues(ev.ResultType).Inc()
	default:
		s.cacheErrors.WithLabelValues(ev.ResultType).Inc()
	}
	return nil
}

// RecordModelLifecycle flips the active gauge for a predictor.
func (s *PromSink) RecordModelLifecycle(ev coremetrics.ModelLifecycleEvent) error {
	v := 0.0
	if ev.Loaded {
		v = 1.0
	}
	s.models.WithLabelValues(ev.ModelType).Set(v)
	return nil
}

// RecordAlert counts an alert publication attempt.
func (s *PromSink) RecordAlert(ev coremetrics.AlertEvent) error {
	s.alerts.WithLabelValues(ev.Topic, strconv.FormatBool(ev.Delivered)).Inc()
	return nil
}
