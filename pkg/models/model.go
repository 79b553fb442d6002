// Package models provides the regressors that turn a feature vector into a
// demand estimate.
//
// Regressors are immutable after construction and safe for concurrent use.
// Local models are loaded from JSON artifacts (see LoadArtifact); remote
// models are served over HTTP by a BYOMModel.
package models

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrArtifactNotFound is returned when a model artifact file does not exist.
	ErrArtifactNotFound = errors.New("model artifact not found")
	// ErrFeatureMismatch is returned when a vector does not fit the model.
	ErrFeatureMismatch = errors.New("feature vector does not match model")
	// ErrInvalidArtifact is returned for artifacts that parse but are unusable.
	ErrInvalidArtifact = errors.New("invalid model artifact")
)

// Regressor predicts a single value from an ordered feature vector.
type Regressor interface {
	// Name identifies the model in logs and metrics.
	Name() string
	// NumFeatures is the expected vector length, 0 when undeclared.
	NumFeatures() int
	Predict(ctx context.Context, x []float64) (float64, error)
}

// FeatureNamer is implemented by regressors whose artifact declares the
// column order it was trained on.
type FeatureNamer interface {
	FeatureNames() []string
}

// FeatureNames returns the declared column order of r, or nil.
func FeatureNames(r Regressor) []string {
	if fn, ok := r.(FeatureNamer); ok {
		return fn.FeatureNames()
	}
	return nil
}

func checkLen(name string, want int, x []float64) error {
	if want > 0 && len(x) != want {
		return fmt.Errorf("%s: got %d features, want %d: %w", name, len(x), want, ErrFeatureMismatch)
	}
	return nil
}
