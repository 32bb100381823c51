// Package features derives the fixed-order numeric feature vector shared by
// all predictors from a raw charger snapshot. Derivation is pure, total and
// deterministic for a given snapshot and reference time.
package features

import (
	"math"
	"time"

	"github.com/evzone/chargeml/core/model"
)

// Indices into the base feature vector.
const (
	IdxStatus = iota
	IdxEnergyDelivered
	IdxPower
	IdxTemperature
	IdxErrorCount
	IdxUptimeHours
	IdxTotalSessions
	IdxDaysSinceMaintenance

	// BaseSize is the number of base features.
	BaseSize = 8

	// AnomalySize is the size of the subset used for anomaly detection.
	AnomalySize = 5
)

// NoMaintenanceSentinel is the days_since_maintenance value used when the
// maintenance date is absent.
const NoMaintenanceSentinel = 9999.0

// BaseOrder names the base features in vector order.
var BaseOrder = []string{
	"status_int",
	"energy_delivered",
	"power",
	"temperature",
	"error_count",
	"uptime_hours",
	"total_sessions",
	"days_since_maintenance",
}

// AnomalyOrder names the anomaly feature subset in vector order.
var AnomalyOrder = []string{
	"status_int",
	"energy_delivered",
	"power",
	"temperature",
	"error_count",
}

// Vector is the fixed-order numeric feature tuple.
type Vector [BaseSize]float64

// Slice returns the features as a plain slice, in order.
func (v Vector) Slice() []float64 { return v[:] }

// AnomalySubset returns the 5-feature subset used by the anomaly detector:
// status, energy delivered, power, temperature and error count.
func (v Vector) AnomalySubset() []float64 {
	return []float64{v[IdxStatus], v[IdxEnergyDelivered], v[IdxPower], v[IdxTemperature], v[IdxErrorCount]}
}

// statusInt is the stable enum-to-integer mapping. Unseen statuses map to 0.
var statusInt = map[model.ConnectorStatus]float64{
	model.StatusAvailable:    0,
	model.StatusCharging:     1,
	model.StatusOccupied:     2,
	model.StatusFullyCharged: 3,
	model.StatusUnavailable:  4,
	model.StatusOffline:      5,
	model.StatusFaulty:       6,
}

// StatusInt maps a connector status to its stable integer encoding.
func StatusInt(s model.ConnectorStatus) float64 { return statusInt[s] }

// Derive maps a snapshot to its feature vector relative to the given time.
// It never fails: non-finite numeric fields coerce to 0 and a missing
// maintenance date yields the sentinel value.
func Derive(s model.ChargerSnapshot, now time.Time) Vector {
	return Vector{
		IdxStatus:               statusInt[s.ConnectorStatus],
		IdxEnergyDelivered:      finite(s.EnergyDelivered),
		IdxPower:                finite(s.Power),
		IdxTemperature:          finite(s.Temperature),
		IdxErrorCount:           float64(len(s.ErrorCodes)),
		IdxUptimeHours:          finite(s.UptimeHours),
		IdxTotalSessions:        float64(s.TotalSessions),
		IdxDaysSinceMaintenance: daysSinceMaintenance(s.LastMaintenance, now),
	}
}

func daysSinceMaintenance(last *time.Time, now time.Time) float64 {
	if last == nil || last.IsZero() {
		return NoMaintenanceSentinel
	}
	days := now.Sub(*last).Hours() / 24
	if days < 0 {
		return 0
	}
	return days
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
