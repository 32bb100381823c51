package model

import (
	"fmt"
	"time"
)

// ConnectorStatus is the reported state of a charger connector.
type ConnectorStatus string

const (
	StatusAvailable    ConnectorStatus = "AVAILABLE"
	StatusCharging     ConnectorStatus = "CHARGING"
	StatusOccupied     ConnectorStatus = "OCCUPIED"
	StatusFullyCharged ConnectorStatus = "FULLY_CHARGED"
	StatusUnavailable  ConnectorStatus = "UNAVAILABLE"
	StatusOffline      ConnectorStatus = "OFFLINE"
	StatusFaulty       ConnectorStatus = "FAULTY"
)

// NonOperational reports whether the status indicates the charger cannot
// serve sessions at all.
func (s ConnectorStatus) NonOperational() bool {
	switch s {
	case StatusFaulty, StatusOffline, StatusUnavailable:
		return true
	}
	return false
}

// ChargerSnapshot is one point-in-time telemetry reading from a charger.
// It is immutable once received and owned by the caller for the duration of
// a single prediction call.
type ChargerSnapshot struct {
	ChargerID       string          `json:"charger_id"`
	ConnectorStatus ConnectorStatus `json:"connector_status"`
	EnergyDelivered float64         `json:"energy_delivered"` // kWh
	Power           float64         `json:"power"`            // kW
	Temperature     float64         `json:"temperature"`      // degrees Celsius
	ErrorCodes      []string        `json:"error_codes"`
	UptimeHours     float64         `json:"uptime_hours"`
	TotalSessions   int             `json:"total_sessions"`
	LastMaintenance *time.Time      `json:"last_maintenance,omitempty"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
}

// Validate checks the fields a prediction cannot proceed without.
func (s ChargerSnapshot) Validate() error {
	if s.ChargerID == "" {
		return fmt.Errorf("%w: charger_id is required", ErrFeatureExtraction)
	}
	return nil
}
