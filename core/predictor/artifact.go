package predictor

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/evzone/chargeml/core/features"
	"github.com/evzone/chargeml/core/model"
)

// Model artifacts are JSON parameter bundles exported by the training
// pipeline. A missing file is not an error and transparently selects the
// rule-based variant; a present but unreadable file is a load failure.

// FailureArtifact is a serialized logistic classifier over the 8-element
// base feature vector.
type FailureArtifact struct {
	Version   string    `json:"version"`
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
}

func (a *FailureArtifact) validate() error {
	if len(a.Weights) != features.BaseSize {
		return fmt.Errorf("expected %d weights, got %d", features.BaseSize, len(a.Weights))
	}
	return nil
}

// AnomalyArtifact bundles a linear normality scorer over the 5-element
// anomaly subset together with the calibration captured at training time:
// per-feature mean/std and the 5th/95th percentile bounds of the raw
// anomaly score over a normal-behavior sample.
type AnomalyArtifact struct {
	Version string    `json:"version"`
	Weights []float64 `json:"weights"`
	Offset  float64   `json:"offset"`
	RawMin  float64   `json:"raw_min"`
	RawMax  float64   `json:"raw_max"`
	Mean    []float64 `json:"mean"`
	Std     []float64 `json:"std"`
	// Decision is the raw-score cutoff of the model's native outlier
	// decision.
	Decision float64 `json:"decision"`
}

func (a *AnomalyArtifact) validate() error {
	if len(a.Weights) != features.AnomalySize {
		return fmt.Errorf("expected %d weights, got %d", features.AnomalySize, len(a.Weights))
	}
	if len(a.Mean) != features.AnomalySize || len(a.Std) != features.AnomalySize {
		return fmt.Errorf("calibration mean/std must have %d entries", features.AnomalySize)
	}
	return nil
}

// MaintenanceArtifact bundles a linear severity scorer over the base
// features plus a ninth failure_probability feature, and the cutoffs that
// bucket the severity into the four urgency levels.
type MaintenanceArtifact struct {
	Version      string    `json:"version"`
	FeatureOrder []string  `json:"feature_order"`
	Weights      []float64 `json:"weights"`
	Intercept    float64   `json:"intercept"`
	// Buckets are the ascending severity cutoffs for MEDIUM, HIGH and
	// CRITICAL.
	Buckets []float64 `json:"buckets"`
}

func (a *MaintenanceArtifact) validate() error {
	if len(a.Weights) != features.BaseSize+1 {
		return fmt.Errorf("expected %d weights, got %d", features.BaseSize+1, len(a.Weights))
	}
	if len(a.FeatureOrder) != features.BaseSize+1 {
		return fmt.Errorf("expected %d feature names, got %d", features.BaseSize+1, len(a.FeatureOrder))
	}
	if len(a.Buckets) != 3 {
		return fmt.Errorf("expected 3 severity cutoffs, got %d", len(a.Buckets))
	}
	return nil
}

// loadArtifact reads and validates a JSON artifact. It returns (false, nil)
// when the file does not exist.
func loadArtifact(path string, out interface{ validate() error }) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: read %s: %v", model.ErrModelLoad, path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("%w: decode %s: %v", model.ErrModelLoad, path, err)
	}
	if err := out.validate(); err != nil {
		return false, fmt.Errorf("%w: %s: %v", model.ErrModelLoad, path, err)
	}
	return true, nil
}

// LoadFailureArtifact loads a failure classifier bundle from path.
func LoadFailureArtifact(path string) (*FailureArtifact, error) {
	var a FailureArtifact
	ok, err := loadArtifact(path, &a)
	if err != nil || !ok {
		return nil, err
	}
	return &a, nil
}

// LoadAnomalyArtifact loads an anomaly scorer bundle from path.
func LoadAnomalyArtifact(path string) (*AnomalyArtifact, error) {
	var a AnomalyArtifact
	ok, err := loadArtifact(path, &a)
	if err != nil || !ok {
		return nil, err
	}
	return &a, nil
}

// LoadMaintenanceArtifact loads a severity scorer bundle from path.
func LoadMaintenanceArtifact(path string) (*MaintenanceArtifact, error) {
	var a MaintenanceArtifact
	ok, err := loadArtifact(path, &a)
	if err != nil || !ok {
		return nil, err
	}
	return &a, nil
}
