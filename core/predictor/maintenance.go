package predictor

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/evzone/chargeml/core/features"
	"github.com/evzone/chargeml/core/logger"
	"github.com/evzone/chargeml/core/model"
)

// RuleMaintenanceOptimizer is the fallback scheduler: urgency is derived
// purely from the failure probability and the connector status.
type RuleMaintenanceOptimizer struct {
	thresholds Thresholds
	costs      Costs
	clock      func() time.Time
}

// NewRuleMaintenanceOptimizer creates the fallback optimizer.
func NewRuleMaintenanceOptimizer(t Thresholds, c Costs) *RuleMaintenanceOptimizer {
	t.SetDefaults()
	c.SetDefaults()
	return &RuleMaintenanceOptimizer{thresholds: t, costs: c, clock: time.Now}
}

// Recommend derives a maintenance plan from the caller-supplied risk.
func (o *RuleMaintenanceOptimizer) Recommend(s model.ChargerSnapshot, risk model.FailureRisk, tenantID string) (model.MaintenancePlan, error) {
	if err := s.Validate(); err != nil {
		return model.MaintenancePlan{}, err
	}
	now := o.clock()
	urgency := urgencyFor(risk.Probability, s.ConnectorStatus, o.thresholds)
	return buildPlan(s, risk, tenantID, urgency, nil, now, o.thresholds, o.costs, RuleVersion), nil
}

// ModelMaintenanceOptimizer wraps a trained severity scorer. Any inference
// error fails safe to CRITICAL urgency: under-estimating urgency is the
// more harmful failure mode.
type ModelMaintenanceOptimizer struct {
	art        *MaintenanceArtifact
	thresholds Thresholds
	costs      Costs
	clock      func() time.Time
	log        logger.Logger
}

// NewModelMaintenanceOptimizer creates the trained-model variant.
func NewModelMaintenanceOptimizer(art *MaintenanceArtifact, t Thresholds, c Costs, log logger.Logger) *ModelMaintenanceOptimizer {
	t.SetDefaults()
	c.SetDefaults()
	return &ModelMaintenanceOptimizer{art: art, thresholds: t, costs: c, clock: time.Now, log: log}
}

// Recommend predicts a severity over the base features plus the failure
// probability and buckets it into the four urgency levels.
func (o *ModelMaintenanceOptimizer) Recommend(s model.ChargerSnapshot, risk model.FailureRisk, tenantID string) (model.MaintenancePlan, error) {
	if err := s.Validate(); err != nil {
		return model.MaintenancePlan{}, err
	}
	now := o.clock()

	urgency, inferErr := o.predictUrgency(s, risk, now)
	var extra []string
	if inferErr != nil {
		// Fail safe, never silently downgrade.
		urgency = model.UrgencyCritical
		extra = append(extra, "Severity model failed; urgency forced to CRITICAL")
		o.log.Errorf("maintenance severity inference failed for %s: %v", s.ChargerID, inferErr)
	}
	plan := buildPlan(s, risk, tenantID, urgency, extra, now, o.thresholds, o.costs, o.art.Version)
	return plan, nil
}

func (o *ModelMaintenanceOptimizer) predictUrgency(s model.ChargerSnapshot, risk model.FailureRisk, now time.Time) (model.Urgency, error) {
	x := append(features.Derive(s, now).Slice(), risk.Probability)
	severity := o.art.Intercept + floats.Dot(o.art.Weights, x)
	if math.IsNaN(severity) || math.IsInf(severity, 0) {
		return "", fmt.Errorf("%w: non-finite severity for %s", model.ErrPrediction, s.ChargerID)
	}
	switch {
	case severity >= o.art.Buckets[2]:
		return model.UrgencyCritical, nil
	case severity >= o.art.Buckets[1]:
		return model.UrgencyHigh, nil
	case severity >= o.art.Buckets[0]:
		return model.UrgencyMedium, nil
	default:
		return model.UrgencyLow, nil
	}
}

// urgencyFor is the fallback urgency ladder. Non-operational statuses always
// yield CRITICAL regardless of probability.
func urgencyFor(prob float64, status model.ConnectorStatus, t Thresholds) model.Urgency {
	if status.NonOperational() || prob >= t.Immediate {
		return model.UrgencyCritical
	}
	if prob >= t.Soon {
		return model.UrgencyHigh
	}
	if prob >= t.Medium {
		return model.UrgencyMedium
	}
	return model.UrgencyLow
}

func buildPlan(s model.ChargerSnapshot, risk model.FailureRisk, tenantID string, urgency model.Urgency, extraRationale []string, now time.Time, t Thresholds, c Costs, version string) model.MaintenancePlan {
	v := features.Derive(s, now)
	plan := model.MaintenancePlan{
		ChargerID:     s.ChargerID,
		TenantID:      tenantID,
		RecommendedAt: scheduleFor(now, urgency, risk.Window),
		Urgency:       urgency,
		DowntimeHours: downtimeEstimate(s, v, t),
		CostBenefit:   costBenefit(s, risk.Probability, c),
		Rationale:     append(rationale(s, risk, v, t), extraRationale...),
		ModelVersion:  version,
		Timestamp:     now,
	}
	if urgency.Rank() > model.UrgencyLow.Rank() && len(plan.Rationale) == 0 {
		plan.Rationale = []string{fmt.Sprintf("Urgency %s based on combined risk signals", urgency)}
	}
	return plan
}

// scheduleFor picks the maintenance timestamp. Urgent work prefers the next
// low-traffic hour when the current time is already late at night, otherwise
// a short fixed offset. The result stays before the predicted failure
// window when one exists, and never before now.
func scheduleFor(now time.Time, urgency model.Urgency, window *model.FailureWindow) time.Time {
	var at time.Time
	switch {
	case urgency.Rank() >= model.UrgencyHigh.Rank():
		switch {
		case now.Hour() >= 22:
			next := now.Add(24 * time.Hour)
			at = time.Date(next.Year(), next.Month(), next.Day(), 2, 0, 0, 0, now.Location())
		case now.Hour() < 2:
			at = time.Date(now.Year(), now.Month(), now.Day(), 2, 0, 0, 0, now.Location())
		default:
			at = now.Add(time.Hour)
		}
	case urgency == model.UrgencyMedium:
		at = now.Add(72 * time.Hour)
	default:
		at = now.Add(7 * 24 * time.Hour)
	}
	if window != nil && !at.Before(window.Start) {
		at = window.Start.Add(-time.Hour)
	}
	// A window already open (or opening within the hour) cannot push the
	// visit into the past.
	if at.Before(now) {
		at = now
	}
	return at
}

// downtimeEstimate starts from a base figure and adds surcharges for the
// signals that make a visit longer. The fallback estimate is clamped to a
// sane range.
func downtimeEstimate(s model.ChargerSnapshot, v features.Vector, t Thresholds) float64 {
	hours := 2.0
	if v[features.IdxErrorCount] > 0 {
		hours += 1.5 + 0.5*math.Min(v[features.IdxErrorCount], 4)
	}
	if v[features.IdxTemperature] >= t.TempWarning {
		hours += 1.5
	}
	if v[features.IdxTotalSessions] > 1000 {
		hours += 1
	}
	if s.ConnectorStatus.NonOperational() {
		hours += 2
	}
	return clamp(hours, 1, 12)
}

func costBenefit(s model.ChargerSnapshot, prob float64, c Costs) model.CostBenefit {
	preventive := c.Preventive
	if raw, ok := s.Metadata["preventive_cost"]; ok {
		if f, ok := raw.(float64); ok && f > 0 {
			preventive = f
		}
	}
	expected := clamp01(prob) * c.Failure
	return model.CostBenefit{
		PreventiveCost:      preventive,
		ExpectedFailureCost: expected,
		NetSavings:          expected - preventive,
	}
}

// rationale emits one human-readable justification per active signal.
func rationale(s model.ChargerSnapshot, risk model.FailureRisk, v features.Vector, t Thresholds) []string {
	var out []string
	if s.ConnectorStatus.NonOperational() {
		out = append(out, fmt.Sprintf("Charger is %s and cannot serve sessions", s.ConnectorStatus))
	}
	if n := v[features.IdxErrorCount]; n > 0 {
		out = append(out, fmt.Sprintf("%d error codes reported", int(n)))
	}
	if v[features.IdxTemperature] >= t.TempWarning {
		out = append(out, fmt.Sprintf("Temperature %.1f°C above warning threshold", v[features.IdxTemperature]))
	}
	if days := v[features.IdxDaysSinceMaintenance]; days > t.OverdueDays {
		if days == features.NoMaintenanceSentinel {
			out = append(out, "No maintenance on record")
		} else {
			out = append(out, fmt.Sprintf("Maintenance overdue by %d days", int(days-t.OverdueDays)))
		}
	}
	if risk.Probability >= t.Soon {
		out = append(out, fmt.Sprintf("High failure probability %.2f", risk.Probability))
	}
	return out
}
