package predictor

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/evzone/chargeml/core/features"
	"github.com/evzone/chargeml/core/model"
)

// Rule weights of the fallback risk score. All weights are positive so the
// resulting probability is monotone in every risk factor.
const (
	ruleBias        = -4.0
	wNonOperational = 3.0
	wTempWarning    = 1.2
	wTempCritical   = 1.8
	wErrorCode      = 0.7
	wUptimeHour     = 0.0004
	wSession        = 0.001
	wOverdueDay     = 0.004
	// overdueCapDays bounds the overdue term so the no-maintenance sentinel
	// does not dominate the score.
	overdueCapDays = 365.0
)

// RuleFailurePredictor is the deterministic fallback failure estimator.
type RuleFailurePredictor struct {
	thresholds Thresholds
	clock      func() time.Time
}

// NewRuleFailurePredictor creates the fallback estimator.
func NewRuleFailurePredictor(t Thresholds) *RuleFailurePredictor {
	t.SetDefaults()
	return &RuleFailurePredictor{thresholds: t, clock: time.Now}
}

// Predict computes a weighted linear risk score squashed into (0,1).
func (p *RuleFailurePredictor) Predict(s model.ChargerSnapshot, tenantID string) (model.FailureRisk, error) {
	if err := s.Validate(); err != nil {
		return model.FailureRisk{}, err
	}
	now := p.clock()
	v := features.Derive(s, now)

	z := ruleBias
	var factors, actions []string

	if s.ConnectorStatus.NonOperational() {
		z += wNonOperational
		factors = append(factors, fmt.Sprintf("connector status %s", s.ConnectorStatus))
		actions = append(actions, "Dispatch a technician to inspect the charger")
	}
	temp := v[features.IdxTemperature]
	if temp >= p.thresholds.TempWarning {
		z += wTempWarning
		factors = append(factors, "temperature above warning threshold")
		actions = append(actions, "Monitor temperature trend and verify cooling")
	}
	if temp >= p.thresholds.TempCritical {
		z += wTempCritical
		factors = append(factors, "temperature above critical threshold")
		actions = append(actions, "Reduce charging power until the unit cools down")
	}
	if n := v[features.IdxErrorCount]; n > 0 {
		z += wErrorCode * n
		factors = append(factors, fmt.Sprintf("%d active error codes", int(n)))
		actions = append(actions, "Review and clear reported error codes")
	}
	z += wUptimeHour * v[features.IdxUptimeHours]
	z += wSession * v[features.IdxTotalSessions]
	if v[features.IdxUptimeHours] > 4000 || v[features.IdxTotalSessions] > 500 {
		factors = append(factors, "accumulated wear from uptime and session count")
	}
	if days := v[features.IdxDaysSinceMaintenance]; days > p.thresholds.OverdueDays {
		z += wOverdueDay * math.Min(days-p.thresholds.OverdueDays, overdueCapDays)
		factors = append(factors, "maintenance overdue")
		actions = append(actions, "Plan routine maintenance for this charger")
	}

	prob := clamp01(sigmoid(z))
	action := actionWindowFor(prob, p.thresholds)
	return model.FailureRisk{
		ChargerID:           s.ChargerID,
		TenantID:            tenantID,
		Probability:         prob,
		Confidence:          certainty(prob),
		Window:              failureWindow(now, action, prob, p.thresholds),
		ActionWindow:        action,
		ContributingFactors: factors,
		RecommendedActions:  actions,
		ModelVersion:        RuleVersion,
		Timestamp:           now,
	}, nil
}

// RuleVersion tags results produced by the rule-based fallback variants.
const RuleVersion = "rule-v1"

// ModelFailurePredictor wraps a trained logistic classifier.
type ModelFailurePredictor struct {
	art        *FailureArtifact
	thresholds Thresholds
	clock      func() time.Time
}

// NewModelFailurePredictor creates the trained-model variant.
func NewModelFailurePredictor(art *FailureArtifact, t Thresholds) *ModelFailurePredictor {
	t.SetDefaults()
	return &ModelFailurePredictor{art: art, thresholds: t, clock: time.Now}
}

// Predict derives features and obtains the probability of the positive
// class from the serialized classifier.
func (p *ModelFailurePredictor) Predict(s model.ChargerSnapshot, tenantID string) (model.FailureRisk, error) {
	if err := s.Validate(); err != nil {
		return model.FailureRisk{}, err
	}
	now := p.clock()
	v := features.Derive(s, now)

	z := p.art.Intercept + floats.Dot(p.art.Weights, v.Slice())
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return model.FailureRisk{}, fmt.Errorf("%w: non-finite classifier score for %s", model.ErrPrediction, s.ChargerID)
	}
	prob := clamp01(sigmoid(z))
	action := actionWindowFor(prob, p.thresholds)
	return model.FailureRisk{
		ChargerID:           s.ChargerID,
		TenantID:            tenantID,
		Probability:         prob,
		Confidence:          certainty(prob),
		Window:              failureWindow(now, action, prob, p.thresholds),
		ActionWindow:        action,
		ContributingFactors: p.topImportances(3),
		RecommendedActions:  actionsForWindow(action),
		ModelVersion:        p.art.Version,
		Timestamp:           now,
	}, nil
}

// topImportances ranks the global feature importances of the classifier by
// absolute weight.
func (p *ModelFailurePredictor) topImportances(n int) []string {
	idx := make([]int, len(p.art.Weights))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return math.Abs(p.art.Weights[idx[a]]) > math.Abs(p.art.Weights[idx[b]])
	})
	if n > len(idx) {
		n = len(idx)
	}
	names := make([]string, 0, n)
	for _, i := range idx[:n] {
		names = append(names, features.BaseOrder[i])
	}
	return names
}

func actionWindowFor(prob float64, t Thresholds) model.ActionWindow {
	switch {
	case prob >= t.Immediate:
		return model.ActionImmediate
	case prob >= t.Soon:
		return model.ActionWithin7Days
	default:
		return model.ActionWithin30Days
	}
}

func actionsForWindow(a model.ActionWindow) []string {
	switch a {
	case model.ActionImmediate:
		return []string{"Take the charger out of rotation and dispatch a technician"}
	case model.ActionWithin7Days:
		return []string{"Schedule an inspection within the next week"}
	default:
		return []string{"Monitor the charger during routine operations"}
	}
}

// failureWindow derives the predicted failure window from the action bucket.
// Low-risk snapshots carry no window.
func failureWindow(now time.Time, action model.ActionWindow, prob float64, t Thresholds) *model.FailureWindow {
	switch action {
	case model.ActionImmediate:
		return &model.FailureWindow{Start: now, End: now.Add(72 * time.Hour)}
	case model.ActionWithin7Days:
		return &model.FailureWindow{Start: now.Add(72 * time.Hour), End: now.Add(7 * 24 * time.Hour)}
	default:
		if prob >= t.Medium {
			return &model.FailureWindow{Start: now.Add(7 * 24 * time.Hour), End: now.Add(30 * 24 * time.Hour)}
		}
		return nil
	}
}
