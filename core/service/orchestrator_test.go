package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/evzone/chargeml/core/alert"
	"github.com/evzone/chargeml/core/cache"
	"github.com/evzone/chargeml/core/model"
	"github.com/evzone/chargeml/core/predictor"
	"github.com/evzone/chargeml/infra/logger"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.data[key]; ok {
		return v, nil
	}
	return nil, nil
}

func (s *memStore) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *memStore) Keys(context.Context, string) ([]string, error) { return nil, nil }
func (s *memStore) Ping(context.Context) error                     { return nil }

// countingModels serves fixed predictors and counts Predict calls.
type countingModels struct {
	risk    model.FailureRisk
	anomaly model.AnomalyResult
	plan    model.MaintenancePlan
	err     error

	failureCalls int
}

func (m *countingModels) Failure() (predictor.FailurePredictor, error) {
	if m.err != nil {
		return nil, m.err
	}
	return fixedFailure{m: m}, nil
}

func (m *countingModels) Anomaly() (predictor.AnomalyDetector, error) {
	if m.err != nil {
		return nil, m.err
	}
	return fixedAnomaly{res: m.anomaly}, nil
}

func (m *countingModels) Maintenance() (predictor.MaintenanceOptimizer, error) {
	if m.err != nil {
		return nil, m.err
	}
	return fixedMaintenance{plan: m.plan}, nil
}

type fixedFailure struct{ m *countingModels }

func (f fixedFailure) Predict(s model.ChargerSnapshot, _ string) (model.FailureRisk, error) {
	f.m.failureCalls++
	r := f.m.risk
	r.ChargerID = s.ChargerID
	return r, nil
}

type fixedAnomaly struct{ res model.AnomalyResult }

func (f fixedAnomaly) Detect(s model.ChargerSnapshot, _ string) (model.AnomalyResult, error) {
	r := f.res
	r.ChargerID = s.ChargerID
	return r, nil
}

type fixedMaintenance struct{ plan model.MaintenancePlan }

func (f fixedMaintenance) Recommend(s model.ChargerSnapshot, _ model.FailureRisk, _ string) (model.MaintenancePlan, error) {
	p := f.plan
	p.ChargerID = s.ChargerID
	return p, nil
}

func newTestOrchestrator(models Models, pub alert.Publisher) *Orchestrator {
	rc := cache.New(newMemStore(), cache.Config{}, logger.NopLogger{})
	return New(Config{}, models, rc, pub, nil, nil, logger.NopLogger{})
}

func snap(id string) model.ChargerSnapshot {
	return model.ChargerSnapshot{ChargerID: id, ConnectorStatus: model.StatusAvailable}
}

func TestPredictFailure_SecondCallServedFromCache(t *testing.T) {
	models := &countingModels{risk: model.FailureRisk{Probability: 0.3, ModelVersion: "rule-v1"}}
	o := newTestOrchestrator(models, &alert.MockPublisher{})
	ctx := context.Background()

	first, err := o.PredictFailure(ctx, snap("CH-1"), "tenant-a")
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	second, err := o.PredictFailure(ctx, snap("CH-1"), "tenant-a")
	if err != nil {
		t.Fatalf("predict again: %v", err)
	}
	if models.failureCalls != 1 {
		t.Fatalf("predictor should run once, ran %d times", models.failureCalls)
	}
	if second.Probability != first.Probability || second.ChargerID != first.ChargerID {
		t.Fatalf("cached result differs: %+v vs %+v", second, first)
	}
}

func TestPredictFailure_PublishThreshold(t *testing.T) {
	ctx := context.Background()

	pub := &alert.MockPublisher{}
	o := newTestOrchestrator(&countingModels{risk: model.FailureRisk{Probability: 0.79}}, pub)
	if _, err := o.PredictFailure(ctx, snap("CH-1"), ""); err != nil {
		t.Fatalf("predict: %v", err)
	}
	if got := pub.ByTopic(alert.TopicFailureAlerts); len(got) != 0 {
		t.Fatalf("0.79 is below the publish threshold, got %d alerts", len(got))
	}

	pub = &alert.MockPublisher{}
	o = newTestOrchestrator(&countingModels{risk: model.FailureRisk{Probability: 0.8}}, pub)
	if _, err := o.PredictFailure(ctx, snap("CH-2"), ""); err != nil {
		t.Fatalf("predict: %v", err)
	}
	got := pub.ByTopic(alert.TopicFailureAlerts)
	if len(got) != 1 {
		t.Fatalf("0.80 must publish exactly one alert, got %d", len(got))
	}
	ev, ok := got[0].Payload.(alert.FailureAlert)
	if !ok {
		t.Fatalf("payload type: %T", got[0].Payload)
	}
	if ev.Type != alert.TypeFailureRisk || ev.Source != "chargeml" {
		t.Fatalf("envelope: %+v", ev.Envelope)
	}
	if got[0].Key != "CH-2" {
		t.Fatalf("ordering key: %q", got[0].Key)
	}
}

func TestPredictFailure_PublisherFailureIsSwallowed(t *testing.T) {
	pub := &alert.MockPublisher{Err: errors.New("broker down")}
	o := newTestOrchestrator(&countingModels{risk: model.FailureRisk{Probability: 0.95}}, pub)

	risk, err := o.PredictFailure(context.Background(), snap("CH-1"), "")
	if err != nil {
		t.Fatalf("publish failures must not fail the prediction: %v", err)
	}
	if risk.Probability != 0.95 {
		t.Fatalf("result: %+v", risk)
	}
}

func TestPredictMaintenance_CriticalPublishes(t *testing.T) {
	pub := &alert.MockPublisher{}
	models := &countingModels{
		risk: model.FailureRisk{Probability: 0.5},
		plan: model.MaintenancePlan{Urgency: model.UrgencyCritical},
	}
	o := newTestOrchestrator(models, pub)

	plan, err := o.PredictMaintenance(context.Background(), snap("CH-1"), "tenant-a")
	if err != nil {
		t.Fatalf("predict maintenance: %v", err)
	}
	if plan.TenantID != "tenant-a" {
		t.Fatalf("tenant not stamped: %+v", plan)
	}
	got := pub.ByTopic(alert.TopicFailureAlerts)
	if len(got) != 1 {
		t.Fatalf("critical plan must publish one alert, got %d", len(got))
	}
	ev := got[0].Payload.(alert.MaintenanceAlert)
	if ev.Type != alert.TypeMaintenanceCritical {
		t.Fatalf("event type: %s", ev.Type)
	}
}

func TestDetectAnomaly_PublishesOnlyWhenFlagged(t *testing.T) {
	ctx := context.Background()

	pub := &alert.MockPublisher{}
	o := newTestOrchestrator(&countingModels{anomaly: model.AnomalyResult{IsAnomaly: false, Score: 10}}, pub)
	if _, err := o.DetectAnomaly(ctx, snap("CH-1"), ""); err != nil {
		t.Fatalf("detect: %v", err)
	}
	if got := pub.ByTopic(alert.TopicAnomalies); len(got) != 0 {
		t.Fatalf("normal snapshots must not alert, got %d", len(got))
	}

	pub = &alert.MockPublisher{}
	o = newTestOrchestrator(&countingModels{anomaly: model.AnomalyResult{IsAnomaly: true, Score: 90, Type: model.AnomalyStatusFault}}, pub)
	if _, err := o.DetectAnomaly(ctx, snap("CH-2"), ""); err != nil {
		t.Fatalf("detect: %v", err)
	}
	if got := pub.ByTopic(alert.TopicAnomalies); len(got) != 1 {
		t.Fatalf("flagged anomaly must alert, got %d", len(got))
	}
}

func TestMissingModelSurfaces(t *testing.T) {
	modelErr := fmt.Errorf("%w: failure_predictor", model.ErrModelNotFound)
	o := newTestOrchestrator(&countingModels{err: modelErr}, &alert.MockPublisher{})

	if _, err := o.PredictFailure(context.Background(), snap("CH-1"), ""); !errors.Is(err, model.ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound, got %v", err)
	}
	if _, err := o.DetectAnomaly(context.Background(), snap("CH-1"), ""); !errors.Is(err, model.ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound, got %v", err)
	}
}
