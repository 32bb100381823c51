package model

import "errors"

// Error taxonomy shared by the prediction layer. Callers match with
// errors.Is; values are always wrapped with context using %w.
var (
	// ErrModelNotFound indicates the requested predictor is absent from the
	// registry.
	ErrModelNotFound = errors.New("model not found")

	// ErrModelLoad indicates a model artifact exists but is corrupt or
	// unreadable. The registry logs it and falls back to the rule-based
	// predictor.
	ErrModelLoad = errors.New("model load failure")

	// ErrFeatureExtraction indicates a malformed snapshot.
	ErrFeatureExtraction = errors.New("feature extraction failure")

	// ErrPrediction wraps unexpected failures from a trained model's
	// inference call.
	ErrPrediction = errors.New("prediction failure")
)
