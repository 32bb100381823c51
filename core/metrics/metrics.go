// Package metrics defines the observability contract of the decision
// engine. Sinks are pluggable: the config file lists them by type and the
// infra implementations register themselves through the factory.
package metrics

import (
	"time"
)

// Prediction statuses recorded with every inference.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusCached  = "cached"
)

// PredictionEvent is recorded once per prediction request, whatever its
// outcome.
type PredictionEvent struct {
	ModelType    string
	ModelVersion string
	TenantID     string
	Status       string
	Duration     time.Duration
	Time         time.Time
}

// Sink records prediction events for observability purposes.
type Sink interface {
	RecordPrediction(ev PredictionEvent) error
}

// CacheEvent reports a result-cache lookup outcome.
type CacheEvent struct {
	ResultType string
	Outcome    string // hit, miss, error
	Time       time.Time
}

// CacheRecorder is implemented by sinks able to record cache outcomes.
type CacheRecorder interface {
	RecordCache(ev CacheEvent) error
}

// ModelLifecycleEvent reports a registry load, reload or unload.
type ModelLifecycleEvent struct {
	ModelType    string
	ModelVersion string
	Loaded       bool
	Time         time.Time
}

// ModelRecorder is implemented by sinks able to record model lifecycle
// changes.
type ModelRecorder interface {
	RecordModelLifecycle(ev ModelLifecycleEvent) error
}

// AlertEvent reports an outbound alert publication attempt.
type AlertEvent struct {
	Topic     string
	Delivered bool
	Time      time.Time
}

// AlertRecorder is implemented by sinks able to record alert deliveries.
type AlertRecorder interface {
	RecordAlert(ev AlertEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordPrediction(PredictionEvent) error         { return nil }
func (NopSink) RecordCache(CacheEvent) error                   { return nil }
func (NopSink) RecordModelLifecycle(ModelLifecycleEvent) error { return nil }
func (NopSink) RecordAlert(AlertEvent) error                   { return nil }
