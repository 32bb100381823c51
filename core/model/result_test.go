package model

import "testing"

func TestUrgencyRankOrdering(t *testing.T) {
	order := []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical}
	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Fatalf("%s should rank above %s", order[i], order[i-1])
		}
	}
	if Urgency("UNKNOWN").Rank() != 0 {
		t.Fatalf("unknown urgency should rank lowest")
	}
}

func TestConnectorStatusNonOperational(t *testing.T) {
	for _, s := range []ConnectorStatus{StatusFaulty, StatusOffline, StatusUnavailable} {
		if !s.NonOperational() {
			t.Fatalf("%s should be non-operational", s)
		}
	}
	for _, s := range []ConnectorStatus{StatusAvailable, StatusCharging, StatusOccupied, StatusFullyCharged} {
		if s.NonOperational() {
			t.Fatalf("%s should be operational", s)
		}
	}
}

func TestSnapshotValidate(t *testing.T) {
	if err := (ChargerSnapshot{}).Validate(); err == nil {
		t.Fatal("expected error for missing charger id")
	}
	if err := (ChargerSnapshot{ChargerID: "CH-1"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
