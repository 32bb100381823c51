package model

import "time"

// ActionWindow is the coarse bucket for when a recommended action should
// occur.
type ActionWindow string

const (
	ActionImmediate    ActionWindow = "IMMEDIATE"
	ActionWithin7Days  ActionWindow = "WITHIN_7_DAYS"
	ActionWithin30Days ActionWindow = "WITHIN_30_DAYS"
)

// Urgency grades a maintenance recommendation.
type Urgency string

const (
	UrgencyLow      Urgency = "LOW"
	UrgencyMedium   Urgency = "MEDIUM"
	UrgencyHigh     Urgency = "HIGH"
	UrgencyCritical Urgency = "CRITICAL"
)

// Rank orders urgencies so that callers can compare severity.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyMedium:
		return 1
	case UrgencyHigh:
		return 2
	case UrgencyCritical:
		return 3
	}
	return 0
}

// AnomalyType labels the classification of an anomaly result.
type AnomalyType string

const (
	AnomalyNormal         AnomalyType = "NORMAL"
	AnomalyStatusFault    AnomalyType = "STATUS_FAULT"
	AnomalyOverTempCrit   AnomalyType = "OVER_TEMPERATURE_CRITICAL"
	AnomalyErrorCodes     AnomalyType = "ERROR_CODE_PRESENT"
	AnomalyPowerDrop      AnomalyType = "POWER_DROP_DURING_CHARGING"
	AnomalyGenericOutlier AnomalyType = "GENERIC_OUTLIER_HIGH"
)

// FailureWindow is the predicted time range in which a failure is expected.
type FailureWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// FailureRisk is the output of the failure predictor.
type FailureRisk struct {
	ChargerID           string         `json:"charger_id"`
	TenantID            string         `json:"tenant_id,omitempty"`
	Probability         float64        `json:"failure_probability"` // [0,1]
	Confidence          float64        `json:"confidence"`          // [0,1]
	Window              *FailureWindow `json:"predicted_failure_window,omitempty"`
	ActionWindow        ActionWindow   `json:"recommended_action"`
	ContributingFactors []string       `json:"top_contributing_factors"`
	RecommendedActions  []string       `json:"recommended_actions"`
	ModelVersion        string         `json:"model_version"`
	Timestamp           time.Time      `json:"timestamp"`
}

// AnomalyResult is the output of the anomaly detector.
type AnomalyResult struct {
	ChargerID    string             `json:"charger_id"`
	TenantID     string             `json:"tenant_id,omitempty"`
	IsAnomaly    bool               `json:"is_anomaly"`
	Score        float64            `json:"anomaly_score"` // [0,100]
	Type         AnomalyType        `json:"anomaly_type"`
	Deviation    map[string]float64 `json:"deviation,omitempty"` // trained-model path only
	ModelVersion string             `json:"model_version"`
	Timestamp    time.Time          `json:"timestamp"`
}

// CostBenefit justifies a maintenance recommendation in monetary terms.
// NetSavings may be negative, which is a valid signal to defer.
type CostBenefit struct {
	PreventiveCost      float64 `json:"preventive_maintenance_cost"`
	ExpectedFailureCost float64 `json:"expected_failure_cost"`
	NetSavings          float64 `json:"net_savings"`
}

// MaintenancePlan is the output of the maintenance optimizer.
type MaintenancePlan struct {
	ChargerID     string      `json:"charger_id"`
	TenantID      string      `json:"tenant_id,omitempty"`
	RecommendedAt time.Time   `json:"recommended_date"`
	Urgency       Urgency     `json:"urgency"`
	DowntimeHours float64     `json:"estimated_downtime_hours"` // >= 0
	CostBenefit   CostBenefit `json:"cost_benefit"`
	Rationale     []string    `json:"rationale"`
	ModelVersion  string      `json:"model_version"`
	Timestamp     time.Time   `json:"timestamp"`
}
