// Package predictor contains the three hybrid predictors of the decision
// engine. Each predictor exists in two variants implementing the same
// contract: one backed by a trained model artifact and one backed by
// deterministic rules. The variant is selected once at load time by the
// Registry, never per call.
package predictor

import "github.com/evzone/chargeml/core/model"

// Registry names of the predictors.
const (
	ModelFailure     = "failure_predictor"
	ModelAnomaly     = "anomaly_detector"
	ModelMaintenance = "maintenance_optimizer"
)

// FailurePredictor produces a failure-risk estimate for one snapshot.
type FailurePredictor interface {
	Predict(snapshot model.ChargerSnapshot, tenantID string) (model.FailureRisk, error)
}

// AnomalyDetector classifies one snapshot as normal or anomalous.
type AnomalyDetector interface {
	Detect(snapshot model.ChargerSnapshot, tenantID string) (model.AnomalyResult, error)
}

// MaintenanceOptimizer recommends a maintenance schedule. The failure risk is
// caller-supplied, not recomputed.
type MaintenanceOptimizer interface {
	Recommend(snapshot model.ChargerSnapshot, risk model.FailureRisk, tenantID string) (model.MaintenancePlan, error)
}
