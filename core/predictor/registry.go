package predictor

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/evzone/chargeml/core/logger"
	"github.com/evzone/chargeml/core/model"
)

// Model lifecycle states reported by List.
const (
	StatusLoaded   = "LOADED"
	StatusUnloaded = "UNLOADED"
)

// ModelInfo describes one registry entry.
type ModelInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Status  string `json:"status"`
}

// LifecycleFunc observes predictor load and unload transitions.
type LifecycleFunc func(name, version string, loaded bool)

// Registry is the process-wide lifecycle holder for the three predictors.
// It is created once at startup and injected into the orchestrator. Reload
// swaps the predictor reference atomically, so it is safe to run
// concurrently with in-flight predictions.
type Registry struct {
	cfg Config
	log logger.Logger

	mu          sync.RWMutex
	failure     FailurePredictor
	anomaly     AnomalyDetector
	maintenance MaintenanceOptimizer
	versions    map[string]string
	onLifecycle LifecycleFunc
}

// NewRegistry creates the registry and loads all three predictors. A
// corrupt artifact is logged and replaced with the rule-based fallback; it
// never fails construction.
func NewRegistry(cfg Config, log logger.Logger) *Registry {
	cfg.SetDefaults()
	r := &Registry{cfg: cfg, log: log, versions: make(map[string]string)}
	for _, name := range []string{ModelFailure, ModelAnomaly, ModelMaintenance} {
		// Load already logs and installs the fallback on artifact errors.
		_ = r.Load(name)
	}
	return r
}

// Load (re)loads one predictor by name. A missing artifact silently selects
// the rule-based variant; a corrupt artifact installs the fallback, logs
// the failure and returns it wrapped as a model load error.
func (r *Registry) Load(name string) error {
	switch name {
	case ModelFailure:
		art, err := LoadFailureArtifact(filepath.Join(r.cfg.BasePath, r.cfg.Failure))
		var p FailurePredictor
		version := RuleVersion
		if art != nil {
			p = NewModelFailurePredictor(art, r.cfg.Thresholds)
			version = art.Version
		} else {
			p = NewRuleFailurePredictor(r.cfg.Thresholds)
		}
		r.mu.Lock()
		r.failure = p
		r.versions[name] = version
		r.mu.Unlock()
		return r.loadResult(name, version, err)
	case ModelAnomaly:
		art, err := LoadAnomalyArtifact(filepath.Join(r.cfg.BasePath, r.cfg.Anomaly))
		var p AnomalyDetector
		version := RuleVersion
		if art != nil {
			p = NewModelAnomalyDetector(art)
			version = art.Version
		} else {
			p = NewRuleAnomalyDetector(r.cfg.Thresholds)
		}
		r.mu.Lock()
		r.anomaly = p
		r.versions[name] = version
		r.mu.Unlock()
		return r.loadResult(name, version, err)
	case ModelMaintenance:
		art, err := LoadMaintenanceArtifact(filepath.Join(r.cfg.BasePath, r.cfg.Maintenance))
		var p MaintenanceOptimizer
		version := RuleVersion
		if art != nil {
			p = NewModelMaintenanceOptimizer(art, r.cfg.Thresholds, r.cfg.Costs, r.log)
			version = art.Version
		} else {
			p = NewRuleMaintenanceOptimizer(r.cfg.Thresholds, r.cfg.Costs)
		}
		r.mu.Lock()
		r.maintenance = p
		r.versions[name] = version
		r.mu.Unlock()
		return r.loadResult(name, version, err)
	default:
		return fmt.Errorf("%w: %s", model.ErrModelNotFound, name)
	}
}

func (r *Registry) loadResult(name, version string, err error) error {
	r.notify(name, version, true)
	if err != nil {
		r.log.Errorf("model %s: %v; rule-based fallback installed", name, err)
		return err
	}
	r.log.Infof("model %s %s loaded", name, version)
	return nil
}

// OnLifecycle registers the transition observer and replays the current
// state so an observer attached after construction starts consistent.
func (r *Registry) OnLifecycle(fn LifecycleFunc) {
	r.mu.Lock()
	r.onLifecycle = fn
	r.mu.Unlock()
	for _, info := range r.List() {
		fn(info.Name, info.Version, info.Status == StatusLoaded)
	}
}

func (r *Registry) notify(name, version string, loaded bool) {
	r.mu.RLock()
	fn := r.onLifecycle
	r.mu.RUnlock()
	if fn != nil {
		fn(name, version, loaded)
	}
}

// Reload hot-swaps one predictor. Unknown names fail with a
// model-not-found error rather than a crash.
func (r *Registry) Reload(name string) error {
	return r.Load(name)
}

// Unload removes a predictor from the registry. It reports whether the
// predictor was loaded.
func (r *Registry) Unload(name string) bool {
	r.mu.Lock()
	_, loaded := r.versions[name]
	switch name {
	case ModelFailure:
		r.failure = nil
	case ModelAnomaly:
		r.anomaly = nil
	case ModelMaintenance:
		r.maintenance = nil
	default:
		r.mu.Unlock()
		return false
	}
	delete(r.versions, name)
	r.mu.Unlock()
	r.notify(name, "", false)
	if loaded {
		r.log.Infof("model %s unloaded", name)
	}
	return loaded
}

// Failure returns the loaded failure predictor.
func (r *Registry) Failure() (FailurePredictor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.failure == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrModelNotFound, ModelFailure)
	}
	return r.failure, nil
}

// Anomaly returns the loaded anomaly detector.
func (r *Registry) Anomaly() (AnomalyDetector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.anomaly == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrModelNotFound, ModelAnomaly)
	}
	return r.anomaly, nil
}

// Maintenance returns the loaded maintenance optimizer.
func (r *Registry) Maintenance() (MaintenanceOptimizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.maintenance == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrModelNotFound, ModelMaintenance)
	}
	return r.maintenance, nil
}

// List reports the lifecycle state of all predictors, sorted by name.
func (r *Registry) List() []ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ModelInfo, 0, 3)
	for _, name := range []string{ModelFailure, ModelAnomaly, ModelMaintenance} {
		if v, ok := r.versions[name]; ok {
			out = append(out, ModelInfo{Name: name, Version: v, Status: StatusLoaded})
		} else {
			out = append(out, ModelInfo{Name: name, Status: StatusUnloaded})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
