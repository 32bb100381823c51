package predictor

import (
	"math"
	"testing"
	"time"

	"github.com/evzone/chargeml/core/features"
	"github.com/evzone/chargeml/core/model"
	"github.com/evzone/chargeml/infra/logger"
)

func TestUrgencyLadder(t *testing.T) {
	th := Thresholds{}
	th.SetDefaults()

	prev := model.UrgencyLow
	for _, p := range []float64{0, 0.1, 0.39, 0.4, 0.59, 0.6, 0.84, 0.85, 1} {
		u := urgencyFor(p, model.StatusAvailable, th)
		if u.Rank() < prev.Rank() {
			t.Fatalf("urgency decreased at probability %v", p)
		}
		prev = u
	}
	if urgencyFor(0.4, model.StatusAvailable, th) != model.UrgencyMedium {
		t.Fatal("0.40 should be MEDIUM")
	}
	if urgencyFor(0.6, model.StatusAvailable, th) != model.UrgencyHigh {
		t.Fatal("0.60 should be HIGH")
	}
	for _, s := range []model.ConnectorStatus{model.StatusFaulty, model.StatusOffline, model.StatusUnavailable} {
		if urgencyFor(0.01, s, th) != model.UrgencyCritical {
			t.Fatalf("%s must yield CRITICAL regardless of probability", s)
		}
	}
}

func TestRuleMaintenanceOptimizer_CriticalPlan(t *testing.T) {
	now := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	o := NewRuleMaintenanceOptimizer(Thresholds{}, Costs{})
	o.clock = fixedClock(now)

	window := &model.FailureWindow{Start: now.Add(10 * 24 * time.Hour), End: now.Add(12 * 24 * time.Hour)}
	risk := model.FailureRisk{ChargerID: "CH-1", Probability: 0.9, Window: window}
	snap := model.ChargerSnapshot{
		ChargerID:       "CH-1",
		ConnectorStatus: model.StatusAvailable,
		Temperature:     55,
		ErrorCodes:      []string{"E42"},
		TotalSessions:   1500,
	}

	plan, err := o.Recommend(snap, risk, "tenant-b")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if plan.Urgency != model.UrgencyCritical {
		t.Fatalf("probability 0.9 should be CRITICAL, got %s", plan.Urgency)
	}
	if !plan.RecommendedAt.Before(window.Start) {
		t.Fatalf("maintenance %v must precede failure window %v", plan.RecommendedAt, window.Start)
	}
	if plan.DowntimeHours < 1 || plan.DowntimeHours > 12 {
		t.Fatalf("downtime out of range: %v", plan.DowntimeHours)
	}
	if len(plan.Rationale) == 0 {
		t.Fatal("rationale must be non-empty above LOW urgency")
	}
	if plan.CostBenefit.ExpectedFailureCost <= plan.CostBenefit.PreventiveCost {
		t.Fatalf("high risk should make prevention worthwhile: %+v", plan.CostBenefit)
	}
	if plan.TenantID != "tenant-b" || plan.ChargerID != "CH-1" {
		t.Fatalf("identifiers: %+v", plan)
	}
}

func TestRuleMaintenanceOptimizer_DeferSignal(t *testing.T) {
	now := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	o := NewRuleMaintenanceOptimizer(Thresholds{}, Costs{})
	o.clock = fixedClock(now)

	plan, err := o.Recommend(
		model.ChargerSnapshot{ChargerID: "CH-2", ConnectorStatus: model.StatusAvailable, Temperature: 20},
		model.FailureRisk{ChargerID: "CH-2", Probability: 0.01},
		"",
	)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if plan.Urgency != model.UrgencyLow {
		t.Fatalf("expected LOW, got %s", plan.Urgency)
	}
	if plan.CostBenefit.NetSavings >= 0 {
		t.Fatalf("negative net savings is the defer signal, got %v", plan.CostBenefit.NetSavings)
	}
}

func TestRuleMaintenanceOptimizer_OpenWindowSchedulesNow(t *testing.T) {
	now := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)

	fp := NewRuleFailurePredictor(Thresholds{})
	fp.clock = fixedClock(now)
	o := NewRuleMaintenanceOptimizer(Thresholds{}, Costs{})
	o.clock = fixedClock(now)

	// A faulty, overheating charger gets an IMMEDIATE window opening now.
	snap := model.ChargerSnapshot{
		ChargerID:       "CH-9",
		ConnectorStatus: model.StatusFaulty,
		Temperature:     70,
	}
	risk, err := fp.Predict(snap, "")
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if risk.Window == nil || !risk.Window.Start.Equal(now) {
		t.Fatalf("expected a window opening now, got %+v", risk.Window)
	}

	plan, err := o.Recommend(snap, risk, "")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if plan.RecommendedAt.Before(now) {
		t.Fatalf("maintenance recommended in the past: now=%v recommended=%v", now, plan.RecommendedAt)
	}
	if plan.Urgency != model.UrgencyCritical {
		t.Fatalf("faulty charger should be CRITICAL, got %s", plan.Urgency)
	}
}

func TestScheduleFor_LowTrafficHour(t *testing.T) {
	lateNight := time.Date(2026, 8, 30, 23, 15, 0, 0, time.UTC)
	at := scheduleFor(lateNight, model.UrgencyCritical, nil)
	if at.Day() != 31 || at.Hour() != 2 {
		t.Fatalf("late-night critical work should land on the next 02:00, got %v", at)
	}

	earlyMorning := time.Date(2026, 8, 30, 0, 30, 0, 0, time.UTC)
	at = scheduleFor(earlyMorning, model.UrgencyCritical, nil)
	if at.Day() != 30 || at.Hour() != 2 {
		t.Fatalf("early-morning critical work should land on today's 02:00, got %v", at)
	}

	afternoon := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	if at := scheduleFor(afternoon, model.UrgencyHigh, nil); !at.Equal(afternoon.Add(time.Hour)) {
		t.Fatalf("daytime urgent work should be scheduled an hour out, got %v", at)
	}
}

func TestModelMaintenanceOptimizer_Buckets(t *testing.T) {
	now := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	weights := make([]float64, features.BaseSize+1)
	weights[features.BaseSize] = 10 // severity driven by failure probability
	art := &MaintenanceArtifact{
		Version:      "v1.1.0",
		FeatureOrder: append(append([]string{}, features.BaseOrder...), "failure_probability"),
		Weights:      weights,
		Buckets:      []float64{3, 6, 8.5},
	}
	o := NewModelMaintenanceOptimizer(art, Thresholds{}, Costs{}, logger.NopLogger{})
	o.clock = fixedClock(now)

	snap := model.ChargerSnapshot{ChargerID: "CH-3", ConnectorStatus: model.StatusAvailable}
	cases := []struct {
		prob float64
		want model.Urgency
	}{
		{0.1, model.UrgencyLow},
		{0.4, model.UrgencyMedium},
		{0.7, model.UrgencyHigh},
		{0.9, model.UrgencyCritical},
	}
	for _, tc := range cases {
		plan, err := o.Recommend(snap, model.FailureRisk{ChargerID: "CH-3", Probability: tc.prob}, "")
		if err != nil {
			t.Fatalf("recommend p=%v: %v", tc.prob, err)
		}
		if plan.Urgency != tc.want {
			t.Fatalf("p=%v: got %s want %s", tc.prob, plan.Urgency, tc.want)
		}
		if plan.ModelVersion != "v1.1.0" {
			t.Fatalf("model version: %s", plan.ModelVersion)
		}
	}
}

func TestModelMaintenanceOptimizer_FailsSafeToCritical(t *testing.T) {
	art := &MaintenanceArtifact{
		FeatureOrder: append(append([]string{}, features.BaseOrder...), "failure_probability"),
		Weights:      make([]float64, features.BaseSize+1),
		Buckets:      []float64{3, 6, 8.5},
	}
	o := NewModelMaintenanceOptimizer(art, Thresholds{}, Costs{}, logger.NopLogger{})

	plan, err := o.Recommend(
		model.ChargerSnapshot{ChargerID: "CH-4", ConnectorStatus: model.StatusAvailable},
		model.FailureRisk{ChargerID: "CH-4", Probability: math.NaN()},
		"",
	)
	if err != nil {
		t.Fatalf("inference errors must not propagate: %v", err)
	}
	if plan.Urgency != model.UrgencyCritical {
		t.Fatalf("model failure must fail safe to CRITICAL, got %s", plan.Urgency)
	}
	if len(plan.Rationale) == 0 {
		t.Fatal("fail-safe plans must explain themselves")
	}
}
