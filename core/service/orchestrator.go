// Package service hosts the prediction orchestrator: the single entry
// point that composes cache lookups, predictor calls and alert publication
// into the three public operations of the decision engine.
package service

import (
	"context"
	"time"

	"github.com/evzone/chargeml/core/alert"
	"github.com/evzone/chargeml/core/cache"
	"github.com/evzone/chargeml/core/logger"
	"github.com/evzone/chargeml/core/metrics"
	"github.com/evzone/chargeml/core/model"
	"github.com/evzone/chargeml/core/predictor"
	"github.com/evzone/chargeml/internal/eventbus"
)

// Models is the registry surface the orchestrator needs.
type Models interface {
	Failure() (predictor.FailurePredictor, error)
	Anomaly() (predictor.AnomalyDetector, error)
	Maintenance() (predictor.MaintenanceOptimizer, error)
}

// ResultEvent is published on the in-process bus for every produced result.
type ResultEvent struct {
	Kind      cache.ResultType
	ChargerID string
	TenantID  string
	Payload   any
}

// Config holds the orchestrator knobs.
type Config struct {
	// PublishThreshold is the failure probability at or above which a
	// failure alert is published. It is deliberately distinct from the
	// IMMEDIATE action threshold.
	PublishThreshold float64 `json:"publish_threshold"`
	// Source stamps the envelope of every published event.
	Source string `json:"source"`
}

// SetDefaults applies the alerting defaults.
func (c *Config) SetDefaults() {
	if c.PublishThreshold == 0 {
		c.PublishThreshold = 0.8
	}
	if c.Source == "" {
		c.Source = "chargeml"
	}
}

// Orchestrator composes the predictors with the result cache and the alert
// publisher. Cache and publisher failures are swallowed: they degrade the
// service, they never fail a prediction.
type Orchestrator struct {
	cfg    Config
	models Models
	cache  *cache.ResultCache
	pub    alert.Publisher
	bus    *eventbus.Bus[ResultEvent]
	sink   metrics.Sink
	log    logger.Logger
	clock  func() time.Time
}

// New creates the orchestrator. A nil publisher or sink is replaced by its
// no-op implementation; the bus may be nil when no in-process consumer
// exists.
func New(cfg Config, models Models, rc *cache.ResultCache, pub alert.Publisher, bus *eventbus.Bus[ResultEvent], sink metrics.Sink, log logger.Logger) *Orchestrator {
	cfg.SetDefaults()
	if pub == nil {
		pub = alert.NopPublisher{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Orchestrator{
		cfg:    cfg,
		models: models,
		cache:  rc,
		pub:    pub,
		bus:    bus,
		sink:   sink,
		log:    log,
		clock:  time.Now,
	}
}

// PredictFailure returns the failure risk for a charger, serving from the
// cache when a fresh result exists. A risk at or above the publish
// threshold is emitted on the failure alert topic, best effort.
func (o *Orchestrator) PredictFailure(ctx context.Context, snap model.ChargerSnapshot, tenantID string) (model.FailureRisk, error) {
	start := o.clock()
	var cached model.FailureRisk
	if o.lookup(ctx, cache.ResultFailure, tenantID, snap.ChargerID, &cached) {
		o.record(predictor.ModelFailure, cached.ModelVersion, tenantID, metrics.StatusCached, start)
		return cached, nil
	}

	p, err := o.models.Failure()
	if err != nil {
		o.record(predictor.ModelFailure, "", tenantID, metrics.StatusError, start)
		return model.FailureRisk{}, err
	}
	risk, err := p.Predict(snap, tenantID)
	if err != nil {
		o.record(predictor.ModelFailure, "", tenantID, metrics.StatusError, start)
		return model.FailureRisk{}, err
	}
	risk.Timestamp = o.clock()
	risk.TenantID = tenantID

	o.store(ctx, cache.ResultFailure, tenantID, snap.ChargerID, risk)
	if risk.Probability >= o.cfg.PublishThreshold {
		o.publish(ctx, alert.TopicFailureAlerts, snap.ChargerID, alert.FailureAlert{
			Envelope:    alert.Envelope{Type: alert.TypeFailureRisk, Source: o.cfg.Source},
			FailureRisk: risk,
		})
	}
	o.publish(ctx, alert.TopicPredictions, snap.ChargerID, alert.FailureAlert{
		Envelope:    alert.Envelope{Type: alert.TypePrediction, Source: o.cfg.Source},
		FailureRisk: risk,
	})
	o.emit(ResultEvent{Kind: cache.ResultFailure, ChargerID: snap.ChargerID, TenantID: tenantID, Payload: risk})
	o.record(predictor.ModelFailure, risk.ModelVersion, tenantID, metrics.StatusSuccess, start)
	return risk, nil
}

// PredictMaintenance composes a fresh failure risk with the maintenance
// optimizer. A CRITICAL plan is emitted on the failure alert topic.
func (o *Orchestrator) PredictMaintenance(ctx context.Context, snap model.ChargerSnapshot, tenantID string) (model.MaintenancePlan, error) {
	start := o.clock()
	var cached model.MaintenancePlan
	if o.lookup(ctx, cache.ResultMaintenance, tenantID, snap.ChargerID, &cached) {
		o.record(predictor.ModelMaintenance, cached.ModelVersion, tenantID, metrics.StatusCached, start)
		return cached, nil
	}

	risk, err := o.PredictFailure(ctx, snap, tenantID)
	if err != nil {
		o.record(predictor.ModelMaintenance, "", tenantID, metrics.StatusError, start)
		return model.MaintenancePlan{}, err
	}
	opt, err := o.models.Maintenance()
	if err != nil {
		o.record(predictor.ModelMaintenance, "", tenantID, metrics.StatusError, start)
		return model.MaintenancePlan{}, err
	}
	plan, err := opt.Recommend(snap, risk, tenantID)
	if err != nil {
		o.record(predictor.ModelMaintenance, "", tenantID, metrics.StatusError, start)
		return model.MaintenancePlan{}, err
	}
	plan.Timestamp = o.clock()
	plan.TenantID = tenantID

	o.store(ctx, cache.ResultMaintenance, tenantID, snap.ChargerID, plan)
	if plan.Urgency == model.UrgencyCritical {
		o.publish(ctx, alert.TopicFailureAlerts, snap.ChargerID, alert.MaintenanceAlert{
			Envelope:        alert.Envelope{Type: alert.TypeMaintenanceCritical, Source: o.cfg.Source},
			MaintenancePlan: plan,
		})
	}
	o.emit(ResultEvent{Kind: cache.ResultMaintenance, ChargerID: snap.ChargerID, TenantID: tenantID, Payload: plan})
	o.record(predictor.ModelMaintenance, plan.ModelVersion, tenantID, metrics.StatusSuccess, start)
	return plan, nil
}

// DetectAnomaly classifies a snapshot. Anomaly results are never cached:
// they describe the point-in-time state of the charger. Flagged anomalies
// are emitted on the anomaly topic.
func (o *Orchestrator) DetectAnomaly(ctx context.Context, snap model.ChargerSnapshot, tenantID string) (model.AnomalyResult, error) {
	start := o.clock()
	d, err := o.models.Anomaly()
	if err != nil {
		o.record(predictor.ModelAnomaly, "", tenantID, metrics.StatusError, start)
		return model.AnomalyResult{}, err
	}
	res, err := d.Detect(snap, tenantID)
	if err != nil {
		o.record(predictor.ModelAnomaly, "", tenantID, metrics.StatusError, start)
		return model.AnomalyResult{}, err
	}
	res.Timestamp = o.clock()
	res.TenantID = tenantID

	if res.IsAnomaly {
		o.publish(ctx, alert.TopicAnomalies, snap.ChargerID, alert.AnomalyAlert{
			Envelope:      alert.Envelope{Type: alert.TypeAnomaly, Source: o.cfg.Source},
			AnomalyResult: res,
		})
	}
	o.emit(ResultEvent{Kind: cache.ResultAnomaly, ChargerID: snap.ChargerID, TenantID: tenantID, Payload: res})
	o.record(predictor.ModelAnomaly, res.ModelVersion, tenantID, metrics.StatusSuccess, start)
	return res, nil
}

func (o *Orchestrator) lookup(ctx context.Context, rt cache.ResultType, tenantID, chargerID string, out any) bool {
	if o.cache == nil {
		return false
	}
	hit := o.cache.Get(ctx, rt, tenantID, chargerID, out)
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	o.recordCache(rt, outcome)
	return hit
}

func (o *Orchestrator) store(ctx context.Context, rt cache.ResultType, tenantID, chargerID string, result any) {
	if o.cache == nil {
		return
	}
	o.cache.Set(ctx, rt, tenantID, chargerID, result)
}

func (o *Orchestrator) publish(ctx context.Context, topic, key string, payload any) {
	err := o.pub.Publish(ctx, topic, key, payload)
	if err != nil {
		o.log.Warnf("alert publish to %s failed: %v", topic, err)
	}
	if rec, ok := o.sink.(metrics.AlertRecorder); ok {
		_ = rec.RecordAlert(metrics.AlertEvent{Topic: topic, Delivered: err == nil, Time: o.clock()})
	}
}

func (o *Orchestrator) emit(ev ResultEvent) {
	if o.bus != nil {
		o.bus.Publish(ev)
	}
}

func (o *Orchestrator) record(modelType, version, tenantID, status string, start time.Time) {
	now := o.clock()
	if err := o.sink.RecordPrediction(metrics.PredictionEvent{
		ModelType:    modelType,
		ModelVersion: version,
		TenantID:     tenantID,
		Status:       status,
		Duration:     now.Sub(start),
		Time:         now,
	}); err != nil {
		o.log.Debugf("metrics sink: %v", err)
	}
}

func (o *Orchestrator) recordCache(rt cache.ResultType, outcome string) {
	if rec, ok := o.sink.(metrics.CacheRecorder); ok {
		_ = rec.RecordCache(metrics.CacheEvent{ResultType: string(rt), Outcome: outcome, Time: o.clock()})
	}
}
