package predictor

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/evzone/chargeml/core/features"
	"github.com/evzone/chargeml/core/model"
)

// powerEpsilonKW is the cutoff below which a charging connector is
// considered to deliver no power.
const powerEpsilonKW = 0.1

// RuleAnomalyDetector is the fallback detector: an ordered decision list
// where the first matching rule wins. It is independent of any learned
// calibration bounds.
type RuleAnomalyDetector struct {
	thresholds Thresholds
	clock      func() time.Time
}

// NewRuleAnomalyDetector creates the fallback detector.
func NewRuleAnomalyDetector(t Thresholds) *RuleAnomalyDetector {
	t.SetDefaults()
	return &RuleAnomalyDetector{thresholds: t, clock: time.Now}
}

// Detect evaluates the rule list against one snapshot.
func (d *RuleAnomalyDetector) Detect(s model.ChargerSnapshot, tenantID string) (model.AnomalyResult, error) {
	if err := s.Validate(); err != nil {
		return model.AnomalyResult{}, err
	}
	now := d.clock()
	v := features.Derive(s, now)

	res := model.AnomalyResult{
		ChargerID:    s.ChargerID,
		TenantID:     tenantID,
		ModelVersion: RuleVersion,
		Timestamp:    now,
	}
	switch {
	case s.ConnectorStatus == model.StatusFaulty:
		res.IsAnomaly = true
		res.Type = model.AnomalyStatusFault
		res.Score = 90
	case v[features.IdxTemperature] >= d.thresholds.AnomalyTempCritical:
		res.IsAnomaly = true
		res.Type = model.AnomalyOverTempCrit
		res.Score = 60 + (v[features.IdxTemperature]-d.thresholds.AnomalyTempCritical)*2
	case v[features.IdxErrorCount] > 0:
		res.IsAnomaly = true
		res.Type = model.AnomalyErrorCodes
		res.Score = 40 + 10*v[features.IdxErrorCount]
	case s.ConnectorStatus == model.StatusCharging && math.Abs(v[features.IdxPower]) < powerEpsilonKW:
		res.IsAnomaly = true
		res.Type = model.AnomalyPowerDrop
		res.Score = 55
	default:
		score := d.compositeScore(s, v)
		if score >= d.thresholds.OutlierScore {
			res.IsAnomaly = true
			res.Type = model.AnomalyGenericOutlier
			res.Score = score
		} else {
			res.Type = model.AnomalyNormal
			res.Score = score
		}
	}
	res.Score = clamp(res.Score, 0, 100)
	return res, nil
}

// compositeScore aggregates the weaker signals that none of the hard rules
// matched on.
func (d *RuleAnomalyDetector) compositeScore(s model.ChargerSnapshot, v features.Vector) float64 {
	score := 0.0
	if s.ConnectorStatus.NonOperational() {
		score += 40
	}
	if t := v[features.IdxTemperature]; t >= d.thresholds.TempWarning {
		score += math.Min((t-d.thresholds.TempWarning+5)*2, 30)
	}
	if v[features.IdxUptimeHours] > 8000 {
		score += 15
	}
	if v[features.IdxTotalSessions] > 2000 {
		score += 10
	}
	if days := v[features.IdxDaysSinceMaintenance]; days > 365 && days != features.NoMaintenanceSentinel {
		score += 15
	}
	return clamp(score, 0, 100)
}

// ModelAnomalyDetector wraps a trained normality scorer with its
// calibration bounds.
type ModelAnomalyDetector struct {
	art   *AnomalyArtifact
	clock func() time.Time
}

// NewModelAnomalyDetector creates the trained-model variant.
func NewModelAnomalyDetector(art *AnomalyArtifact) *ModelAnomalyDetector {
	return &ModelAnomalyDetector{art: art, clock: time.Now}
}

// Detect scores the 5-feature subset, negates the normality score and
// min-max normalizes it into [0,100] against the calibration bounds.
func (d *ModelAnomalyDetector) Detect(s model.ChargerSnapshot, tenantID string) (model.AnomalyResult, error) {
	if err := s.Validate(); err != nil {
		return model.AnomalyResult{}, err
	}
	now := d.clock()
	sub := features.Derive(s, now).AnomalySubset()

	z := make([]float64, len(sub))
	deviation := make(map[string]float64, len(sub))
	for i, val := range sub {
		z[i] = (val - d.art.Mean[i]) / (d.art.Std[i] + 1e-8)
		deviation[features.AnomalyOrder[i]] = z[i]
	}
	raw := -(d.art.Offset + floats.Dot(d.art.Weights, z))
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return model.AnomalyResult{}, fmt.Errorf("%w: non-finite anomaly score for %s", model.ErrPrediction, s.ChargerID)
	}

	// Degenerate calibration bounds must not divide by zero.
	score := 50.0
	if d.art.RawMax != d.art.RawMin {
		score = 100 * clamp01((raw-d.art.RawMin)/(d.art.RawMax-d.art.RawMin))
	}
	flagged := raw >= d.art.Decision

	typ := model.AnomalyNormal
	if flagged {
		typ = dominantDeviationType(z)
	}
	return model.AnomalyResult{
		ChargerID:    s.ChargerID,
		TenantID:     tenantID,
		IsAnomaly:    flagged,
		Score:        clamp(score, 0, 100),
		Type:         typ,
		Deviation:    deviation,
		ModelVersion: d.art.Version,
		Timestamp:    now,
	}, nil
}

// dominantDeviationType maps the most deviating feature to an anomaly label.
func dominantDeviationType(z []float64) model.AnomalyType {
	best := 0
	for i := range z {
		if math.Abs(z[i]) > math.Abs(z[best]) {
			best = i
		}
	}
	switch features.AnomalyOrder[best] {
	case "status_int":
		return model.AnomalyStatusFault
	case "temperature":
		return model.AnomalyOverTempCrit
	case "power":
		return model.AnomalyPowerDrop
	case "error_count":
		return model.AnomalyErrorCodes
	default:
		return model.AnomalyGenericOutlier
	}
}
