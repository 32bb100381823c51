// Package app wires the decision engine together from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/evzone/chargeml/config"
	"github.com/evzone/chargeml/core/alert"
	"github.com/evzone/chargeml/core/cache"
	coremetrics "github.com/evzone/chargeml/core/metrics"
	"github.com/evzone/chargeml/core/model"
	"github.com/evzone/chargeml/core/predictor"
	"github.com/evzone/chargeml/core/service"
	"github.com/evzone/chargeml/infra/kafka"
	"github.com/evzone/chargeml/infra/logger"
	"github.com/evzone/chargeml/infra/metrics"
	"github.com/evzone/chargeml/infra/mqtt"
	"github.com/evzone/chargeml/infra/redis"
	"github.com/evzone/chargeml/internal/eventbus"
)

// Service owns the orchestrator and every transport around it.
type Service struct {
	Orchestrator *service.Orchestrator
	Registry     *predictor.Registry

	cfg      *config.Config
	store    *redis.Store
	cache    *cache.ResultCache
	pub      alert.Publisher
	consumer *kafka.TelemetryConsumer
	bus      *eventbus.Bus[service.ResultEvent]
	log      logger.Logger
}

// New creates a Service from the configuration. A dead Redis degrades the
// cache and a disabled Kafka section degrades alerting; neither fails
// startup.
func New(cfg *config.Config) (*Service, error) {
	logger.Configure(cfg.Logging.Level, cfg.Logging.Pretty)
	log := logger.New("service")

	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}

	store := redis.NewStore(cfg.Redis)
	rc := cache.New(store, cfg.Cache, logger.New("result-cache"))
	if err := rc.HealthCheck(context.Background()); err != nil {
		log.Warnf("starting with degraded cache: %v", err)
	}

	pub, err := buildPublisher(cfg, log)
	if err != nil {
		return nil, err
	}

	registry := predictor.NewRegistry(cfg.Models, logger.New("model-registry"))
	if rec, ok := sink.(coremetrics.ModelRecorder); ok {
		// Replays the startup state and keeps the gauge in step with
		// later Unload/Reload calls.
		registry.OnLifecycle(func(name, version string, loaded bool) {
			_ = rec.RecordModelLifecycle(coremetrics.ModelLifecycleEvent{
				ModelType:    name,
				ModelVersion: version,
				Loaded:       loaded,
				Time:         time.Now(),
			})
		})
	}

	bus := eventbus.New[service.ResultEvent]()
	orch := service.New(cfg.Alerts, registry, rc, pub, bus, sink, logger.New("orchestrator"))

	svc := &Service{
		Orchestrator: orch,
		Registry:     registry,
		cfg:          cfg,
		store:        store,
		cache:        rc,
		pub:          pub,
		bus:          bus,
		log:          log,
	}
	if cfg.Kafka.Enabled {
		svc.consumer = kafka.NewTelemetryConsumer(cfg.Kafka, svc.onSnapshot, logger.New("telemetry-consumer"))
	}
	return svc, nil
}

// buildPublisher picks the alert transport: Kafka when enabled, the MQTT
// bridge as an alternative, a fan-out when both are on.
func buildPublisher(cfg *config.Config, log logger.Logger) (alert.Publisher, error) {
	var pubs []alert.Publisher
	if cfg.Kafka.Enabled {
		pubs = append(pubs, kafka.NewPublisher(cfg.Kafka, logger.New("kafka-publisher")))
	}
	if cfg.MQTT.Enabled {
		p, err := mqtt.NewPublisher(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt bridge: %w", err)
		}
		pubs = append(pubs, p)
	}
	switch len(pubs) {
	case 0:
		log.Warnf("no alert transport configured, alerts are dropped")
		return alert.NopPublisher{}, nil
	case 1:
		return pubs[0], nil
	default:
		return multiPublisher(pubs), nil
	}
}

// Run starts the transports and blocks until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	go s.auditResults(ctx)
	if s.cfg.PrometheusAddr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.PrometheusAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.consumer != nil {
		go func() {
			if err := s.consumer.Run(ctx); err != nil {
				s.log.Errorf("telemetry consumer: %v", err)
			}
		}()
	}
	<-ctx.Done()
	return nil
}

// onSnapshot runs the full decision pass for one telemetry message.
func (s *Service) onSnapshot(ctx context.Context, snap model.ChargerSnapshot, tenantID string) {
	if _, err := s.Orchestrator.DetectAnomaly(ctx, snap, tenantID); err != nil {
		s.log.Errorf("anomaly detection for %s: %v", snap.ChargerID, err)
	}
	if _, err := s.Orchestrator.PredictMaintenance(ctx, snap, tenantID); err != nil {
		s.log.Errorf("maintenance prediction for %s: %v", snap.ChargerID, err)
	}
}

// auditResults logs every produced result at debug level.
func (s *Service) auditResults(ctx context.Context) {
	sub := s.bus.Subscribe()
	for {
		select {
		case <-ctx.Done():
			s.bus.Unsubscribe(sub)
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			s.log.Debugw("result produced", map[string]any{
				"kind":       string(ev.Kind),
				"charger_id": ev.ChargerID,
				"tenant_id":  ev.TenantID,
			})
		}
	}
}

// Close releases every transport.
func (s *Service) Close() error {
	h := s.cache.Health(context.Background())
	s.log.Debugw("cache at shutdown", map[string]any{
		"healthy":  h.Healthy,
		"hits":     h.Stats.Hits,
		"misses":   h.Stats.Misses,
		"errors":   h.Stats.Errors,
		"hit_rate": h.HitRate,
	})
	s.bus.Close()
	var first error
	if s.consumer != nil {
		if err := s.consumer.Close(); err != nil {
			first = err
		}
	}
	if err := s.pub.Close(); err != nil && first == nil {
		first = err
	}
	if err := s.store.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
