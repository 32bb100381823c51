package cache

import (
	"context"
	"errors"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/evzone/chargeml/core/model"
	"github.com/evzone/chargeml/infra/logger"
)

type fakeEntry struct {
	value []byte
	ttl   time.Duration
}

// fakeStore is an in-memory Store with switchable failure injection.
type fakeStore struct {
	mu   sync.Mutex
	data map[string]fakeEntry
	fail error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]fakeEntry)}
}

func (s *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	e, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return e.value, nil
}

func (s *fakeStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.data[key] = fakeEntry{value: value, ttl: ttl}
	return nil
}

func (s *fakeStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *fakeStore) Keys(_ context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	var out []string
	for k := range s.data {
		if ok, _ := path.Match(pattern, k); ok {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *fakeStore) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fail
}

func (s *fakeStore) setFail(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

func TestKeyShape(t *testing.T) {
	k := Key(ResultFailure, "tenant-a", "CH-1")
	if k != "result:failure:v1:tenant-a:CH-1" {
		t.Fatalf("unexpected key: %s", k)
	}
	if k := Key(ResultAnomaly, "", "CH-1"); k != "result:anomaly:v1:-:CH-1" {
		t.Fatalf("empty tenant must map to '-': %s", k)
	}
}

func TestTenantIsolation(t *testing.T) {
	store := newFakeStore()
	c := New(store, Config{}, logger.NopLogger{})
	ctx := context.Background()

	c.Set(ctx, ResultFailure, "tenant-a", "CH-1", model.FailureRisk{ChargerID: "CH-1", Probability: 0.7})

	var out model.FailureRisk
	if c.Get(ctx, ResultFailure, "tenant-b", "CH-1", &out) {
		t.Fatal("tenant-b must not see tenant-a results")
	}
	if !c.Get(ctx, ResultFailure, "tenant-a", "CH-1", &out) {
		t.Fatal("tenant-a result missing")
	}
	if out.Probability != 0.7 {
		t.Fatalf("round-trip: %+v", out)
	}
}

func TestTTLPerResultType(t *testing.T) {
	store := newFakeStore()
	c := New(store, Config{}, logger.NopLogger{})
	ctx := context.Background()

	c.Set(ctx, ResultFailure, "", "CH-1", model.FailureRisk{ChargerID: "CH-1"})
	c.Set(ctx, ResultMaintenance, "", "CH-1", model.MaintenancePlan{ChargerID: "CH-1"})
	c.Set(ctx, ResultAnomaly, "", "CH-1", model.AnomalyResult{ChargerID: "CH-1"})

	want := map[ResultType]time.Duration{
		ResultFailure:     time.Hour,
		ResultMaintenance: 30 * time.Minute,
		ResultAnomaly:     5 * time.Minute,
	}
	for rt, ttl := range want {
		e, ok := store.data[Key(rt, "", "CH-1")]
		if !ok {
			t.Fatalf("%s entry missing", rt)
		}
		if e.ttl != ttl {
			t.Fatalf("%s ttl: got %v want %v", rt, e.ttl, ttl)
		}
	}
}

func TestStoreFailuresAreSwallowed(t *testing.T) {
	store := newFakeStore()
	store.setFail(errors.New("connection refused"))
	c := New(store, Config{}, logger.NopLogger{})
	ctx := context.Background()

	c.Set(ctx, ResultFailure, "", "CH-1", model.FailureRisk{ChargerID: "CH-1"})
	var out model.FailureRisk
	if c.Get(ctx, ResultFailure, "", "CH-1", &out) {
		t.Fatal("failing store cannot produce a hit")
	}

	st := c.Stats()
	if st.Errors != 2 {
		t.Fatalf("expected 2 counted errors, got %+v", st)
	}
	if st.Hits != 0 || st.Misses != 0 {
		t.Fatalf("failures are not hits or misses: %+v", st)
	}

	if err := c.HealthCheck(ctx); err == nil {
		t.Fatal("health check should surface the store failure")
	}
}

func TestStatsCounting(t *testing.T) {
	store := newFakeStore()
	c := New(store, Config{}, logger.NopLogger{})
	ctx := context.Background()

	var out model.FailureRisk
	c.Get(ctx, ResultFailure, "", "CH-1", &out) // miss
	c.Set(ctx, ResultFailure, "", "CH-1", model.FailureRisk{ChargerID: "CH-1"})
	c.Get(ctx, ResultFailure, "", "CH-1", &out) // hit

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Errors != 0 {
		t.Fatalf("stats: %+v", st)
	}
}

func TestInvalidateIsTypeScoped(t *testing.T) {
	store := newFakeStore()
	c := New(store, Config{}, logger.NopLogger{})
	ctx := context.Background()

	c.Set(ctx, ResultFailure, "t", "CH-1", model.FailureRisk{ChargerID: "CH-1"})
	c.Set(ctx, ResultAnomaly, "t", "CH-1", model.AnomalyResult{ChargerID: "CH-1"})
	c.Set(ctx, ResultFailure, "t", "CH-2", model.FailureRisk{ChargerID: "CH-2"})

	if err := c.Invalidate(ctx, ResultFailure, "t", "CH-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	var risk model.FailureRisk
	if c.Get(ctx, ResultFailure, "t", "CH-1", &risk) {
		t.Fatal("the invalidated entry should be gone")
	}
	var anomaly model.AnomalyResult
	if !c.Get(ctx, ResultAnomaly, "t", "CH-1", &anomaly) {
		t.Fatal("other result types of the same charger must survive")
	}
	if !c.Get(ctx, ResultFailure, "t", "CH-2", &risk) {
		t.Fatal("CH-2 must survive a CH-1 invalidation")
	}
}

func TestInvalidateAllCoversChargerAcrossTenants(t *testing.T) {
	store := newFakeStore()
	c := New(store, Config{}, logger.NopLogger{})
	ctx := context.Background()

	c.Set(ctx, ResultFailure, "tenant-a", "CH-1", model.FailureRisk{ChargerID: "CH-1"})
	c.Set(ctx, ResultAnomaly, "tenant-b", "CH-1", model.AnomalyResult{ChargerID: "CH-1"})
	c.Set(ctx, ResultFailure, "tenant-a", "CH-2", model.FailureRisk{ChargerID: "CH-2"})

	if err := c.InvalidateAll(ctx, "CH-1"); err != nil {
		t.Fatalf("invalidate all: %v", err)
	}
	var risk model.FailureRisk
	if c.Get(ctx, ResultFailure, "tenant-a", "CH-1", &risk) {
		t.Fatal("CH-1 failure entry should be gone")
	}
	var anomaly model.AnomalyResult
	if c.Get(ctx, ResultAnomaly, "tenant-b", "CH-1", &anomaly) {
		t.Fatal("CH-1 entries of every tenant should be gone")
	}
	if !c.Get(ctx, ResultFailure, "tenant-a", "CH-2", &risk) {
		t.Fatal("CH-2 must survive a CH-1 invalidation")
	}
}

func TestFlushMatchesOnlyCurrentSchema(t *testing.T) {
	store := newFakeStore()
	c := New(store, Config{}, logger.NopLogger{})
	ctx := context.Background()

	stale := strings.Replace(Key(ResultFailure, "t", "CH-1"), ":"+SchemaVersion+":", ":v0:", 1)
	store.data[stale] = fakeEntry{value: []byte("{}")}
	// A foreign-version key whose tenant collides with the current version
	// string must not be swept either.
	collider := "result:failure:v0:" + SchemaVersion + ":CH-1"
	store.data[collider] = fakeEntry{value: []byte("{}")}
	c.Set(ctx, ResultFailure, "t", "CH-1", model.FailureRisk{ChargerID: "CH-1"})

	if err := c.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	var risk model.FailureRisk
	if c.Get(ctx, ResultFailure, "t", "CH-1", &risk) {
		t.Fatal("flush should drop every current-schema entry")
	}
	if _, ok := store.data[stale]; !ok {
		t.Fatal("foreign schema versions are not ours to delete")
	}
	if _, ok := store.data[collider]; !ok {
		t.Fatal("a tenant segment equal to the version string must not widen the match")
	}
}

func TestConfiguredVersionChangesKeys(t *testing.T) {
	store := newFakeStore()
	c := New(store, Config{Version: "v2"}, logger.NopLogger{})
	ctx := context.Background()

	c.Set(ctx, ResultFailure, "t", "CH-1", model.FailureRisk{ChargerID: "CH-1"})
	if _, ok := store.data["result:failure:v2:t:CH-1"]; !ok {
		t.Fatalf("entry should live under the configured version, keys: %v", store.data)
	}

	var out model.FailureRisk
	if !c.Get(ctx, ResultFailure, "t", "CH-1", &out) {
		t.Fatal("round trip under custom version")
	}
}

func TestHealthReport(t *testing.T) {
	store := newFakeStore()
	c := New(store, Config{}, logger.NopLogger{})
	ctx := context.Background()

	var out model.FailureRisk
	c.Get(ctx, ResultFailure, "", "CH-1", &out) // miss
	c.Set(ctx, ResultFailure, "", "CH-1", model.FailureRisk{ChargerID: "CH-1"})
	c.Get(ctx, ResultFailure, "", "CH-1", &out) // hit

	h := c.Health(ctx)
	if !h.Healthy || h.Error != "" {
		t.Fatalf("healthy store reported unhealthy: %+v", h)
	}
	if h.HitRate != 0.5 {
		t.Fatalf("hit rate = %v, want 0.5", h.HitRate)
	}

	store.setFail(errors.New("connection refused"))
	h = c.Health(ctx)
	if h.Healthy || h.Error == "" {
		t.Fatalf("failing store reported healthy: %+v", h)
	}
}
