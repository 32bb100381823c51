// Package alert defines the outbound alert contract. Transports live under
// infra; the orchestrator publishes through the Publisher interface and
// treats every delivery failure as best-effort.
package alert

import (
	"context"

	"github.com/evzone/chargeml/core/model"
)

// Topics the engine publishes to.
const (
	TopicFailureAlerts = "ml.failure-alerts"
	TopicAnomalies     = "ml.anomalies"
	TopicPredictions   = "ml.predictions"
)

// TopicTelemetry carries inbound charger snapshots.
const TopicTelemetry = "charger.metrics"

// Event types stamped on the alert envelopes.
const (
	TypeFailureRisk         = "FAILURE_RISK"
	TypeAnomaly             = "ANOMALY_DETECTED"
	TypeMaintenanceCritical = "MAINTENANCE_CRITICAL"
	TypePrediction          = "PREDICTION"
)

// Publisher delivers serialized events to a topic. Close releases the
// underlying transport.
type Publisher interface {
	Publish(ctx context.Context, topic string, key string, payload any) error
	Close() error
}

// Envelope is the common header of every published event. The wrapped
// result carries its own timestamp.
type Envelope struct {
	Type   string `json:"type"`
	Source string `json:"source"`
}

// FailureAlert wraps a failure risk that crossed the publish threshold.
type FailureAlert struct {
	Envelope
	model.FailureRisk
}

// AnomalyAlert wraps a flagged anomaly result.
type AnomalyAlert struct {
	Envelope
	model.AnomalyResult
}

// MaintenanceAlert wraps a CRITICAL maintenance plan.
type MaintenanceAlert struct {
	Envelope
	model.MaintenancePlan
}
