// Package cache provides the tenant-aware TTL cache for prediction results.
// The cache is an accelerator: every failure of the backing store is
// swallowed, counted and logged so that predictions keep flowing when the
// store is down.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/evzone/chargeml/core/logger"
)

// SchemaVersion is embedded in every cache key. Bumping it invalidates all
// previously cached results after a result-shape change.
const SchemaVersion = "v1"

// ResultType selects the key namespace and the TTL of a cached result.
type ResultType string

const (
	ResultFailure     ResultType = "failure"
	ResultMaintenance ResultType = "maintenance"
	ResultAnomaly     ResultType = "anomaly"
)

var resultTypes = []ResultType{ResultFailure, ResultMaintenance, ResultAnomaly}

// Store is the minimal key/value contract the cache needs. Get returns
// (nil, nil) on a miss.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
	Ping(ctx context.Context) error
}

// Config holds the key schema version and the per-type TTLs.
type Config struct {
	// Version overrides the key schema version. Bump it together with a
	// result-shape change to orphan stale entries.
	Version        string        `json:"version"`
	FailureTTL     time.Duration `json:"failure_ttl"`
	MaintenanceTTL time.Duration `json:"maintenance_ttl"`
	AnomalyTTL     time.Duration `json:"anomaly_ttl"`
}

// SetDefaults applies the per-type retention constants. Anomaly results age
// fastest: they describe a point-in-time state.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = SchemaVersion
	}
	if c.FailureTTL == 0 {
		c.FailureTTL = time.Hour
	}
	if c.MaintenanceTTL == 0 {
		c.MaintenanceTTL = 30 * time.Minute
	}
	if c.AnomalyTTL == 0 {
		c.AnomalyTTL = 5 * time.Minute
	}
}

// Stats is a point-in-time snapshot of the cache counters.
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Errors uint64 `json:"errors"`
}

// HitRate returns hits over lookups, or 0 before the first lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Health combines store reachability with the counter snapshot.
type Health struct {
	Healthy bool    `json:"healthy"`
	Error   string  `json:"error,omitempty"`
	Stats   Stats   `json:"stats"`
	HitRate float64 `json:"hit_rate"`
}

// ResultCache caches serialized prediction results in a Store.
type ResultCache struct {
	store Store
	cfg   Config
	log   logger.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
	errors atomic.Uint64
}

// New creates the result cache.
func New(store Store, cfg Config, log logger.Logger) *ResultCache {
	cfg.SetDefaults()
	return &ResultCache{store: store, cfg: cfg, log: log}
}

// Key builds the namespaced cache key for a result under the default
// schema version. An empty tenant maps to the "-" segment so that keys
// keep a fixed shape.
func Key(rt ResultType, tenantID, chargerID string) string {
	return versionedKey(SchemaVersion, rt, tenantID, chargerID)
}

func versionedKey(version string, rt ResultType, tenantID, chargerID string) string {
	if tenantID == "" {
		tenantID = "-"
	}
	return fmt.Sprintf("result:%s:%s:%s:%s", rt, version, tenantID, chargerID)
}

func (c *ResultCache) key(rt ResultType, tenantID, chargerID string) string {
	return versionedKey(c.cfg.Version, rt, tenantID, chargerID)
}

// Get unmarshals a cached result into out and reports whether it was found.
// Store and decode failures count as errors, never as hits.
func (c *ResultCache) Get(ctx context.Context, rt ResultType, tenantID, chargerID string, out any) bool {
	raw, err := c.store.Get(ctx, c.key(rt, tenantID, chargerID))
	if err != nil {
		c.errors.Add(1)
		c.log.Warnf("cache get %s/%s: %v", rt, chargerID, err)
		return false
	}
	if raw == nil {
		c.misses.Add(1)
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.errors.Add(1)
		c.log.Warnf("cache decode %s/%s: %v", rt, chargerID, err)
		return false
	}
	c.hits.Add(1)
	return true
}

// Set stores a result under its type TTL. Failures are swallowed: a dead
// store must not fail the prediction that produced the result.
func (c *ResultCache) Set(ctx context.Context, rt ResultType, tenantID, chargerID string, result any) {
	raw, err := json.Marshal(result)
	if err != nil {
		c.errors.Add(1)
		c.log.Warnf("cache encode %s/%s: %v", rt, chargerID, err)
		return
	}
	if err := c.store.SetWithTTL(ctx, c.key(rt, tenantID, chargerID), raw, c.ttlFor(rt)); err != nil {
		c.errors.Add(1)
		c.log.Warnf("cache set %s/%s: %v", rt, chargerID, err)
	}
}

// Invalidate drops one cached result.
func (c *ResultCache) Invalidate(ctx context.Context, rt ResultType, tenantID, chargerID string) error {
	if err := c.store.Delete(ctx, c.key(rt, tenantID, chargerID)); err != nil {
		c.errors.Add(1)
		return fmt.Errorf("cache invalidate %s/%s: %w", rt, chargerID, err)
	}
	return nil
}

// InvalidateAll drops every result type cached for one charger, across
// tenants.
func (c *ResultCache) InvalidateAll(ctx context.Context, chargerID string) error {
	var keys []string
	for _, rt := range resultTypes {
		pattern := fmt.Sprintf("result:%s:%s:*:%s", rt, c.cfg.Version, chargerID)
		found, err := c.store.Keys(ctx, pattern)
		if err != nil {
			c.errors.Add(1)
			return fmt.Errorf("cache scan %s: %w", chargerID, err)
		}
		keys = append(keys, found...)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.store.Delete(ctx, keys...); err != nil {
		c.errors.Add(1)
		return fmt.Errorf("cache invalidate %s: %w", chargerID, err)
	}
	return nil
}

// Flush drops every cached result of the current schema version. One exact
// per-type prefix per scan: a bare leading wildcard could swallow segments
// of a foreign-version key.
func (c *ResultCache) Flush(ctx context.Context) error {
	var keys []string
	for _, rt := range resultTypes {
		pattern := fmt.Sprintf("result:%s:%s:*:*", rt, c.cfg.Version)
		found, err := c.store.Keys(ctx, pattern)
		if err != nil {
			c.errors.Add(1)
			return fmt.Errorf("cache scan: %w", err)
		}
		keys = append(keys, found...)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.store.Delete(ctx, keys...); err != nil {
		c.errors.Add(1)
		return fmt.Errorf("cache flush: %w", err)
	}
	c.log.Infof("cache flushed %d entries", len(keys))
	return nil
}

// HealthCheck pings the backing store with a short deadline.
func (c *ResultCache) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("cache store unreachable: %w", err)
	}
	return nil
}

// Health reports store reachability together with the counter snapshot
// and the hit rate over all lookups so far.
func (c *ResultCache) Health(ctx context.Context) Health {
	h := Health{Stats: c.Stats()}
	h.HitRate = h.Stats.HitRate()
	if err := c.HealthCheck(ctx); err != nil {
		h.Error = err.Error()
		return h
	}
	h.Healthy = true
	return h
}

// Stats snapshots the hit/miss/error counters.
func (c *ResultCache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Errors: c.errors.Load(),
	}
}

func (c *ResultCache) ttlFor(rt ResultType) time.Duration {
	switch rt {
	case ResultMaintenance:
		return c.cfg.MaintenanceTTL
	case ResultAnomaly:
		return c.cfg.AnomalyTTL
	default:
		return c.cfg.FailureTTL
	}
}
