package models

import (
	"context"
	"fmt"
)

// LinearModel is intercept + Σ coefficients[i]·x[i].
type LinearModel struct {
	name         string
	intercept    float64
	coefficients []float64
	names        []string
}

// NewLinearModel returns a linear model. When featureNames is given it must
// have one entry per coefficient.
func NewLinearModel(name string, intercept float64, coefficients []float64, featureNames []string) (*LinearModel, error) {
	if len(coefficients) == 0 {
		return nil, fmt.Errorf("%w: linear model has no coefficients", ErrInvalidArtifact)
	}
	if len(featureNames) > 0 && len(featureNames) != len(coefficients) {
		return nil, fmt.Errorf("%w: %d feature names for %d coefficients", ErrInvalidArtifact, len(featureNames), len(coefficients))
	}
	if name == "" {
		name = KindLinear
	}
	return &LinearModel{
		name:         name,
		intercept:    intercept,
		coefficients: append([]float64(nil), coefficients...),
		names:        append([]string(nil), featureNames...),
	}, nil
}

func (m *LinearModel) Name() string { return m.name }

func (m *LinearModel) NumFeatures() int { return len(m.coefficients) }

func (m *LinearModel) FeatureNames() []string { return append([]string(nil), m.names...) }

func (m *LinearModel) Predict(_ context.Context, x []float64) (float64, error) {
	if err := checkLen(m.name, len(m.coefficients), x); err != nil {
		return 0, err
	}
	y := m.intercept
	for i, c := range m.coefficients {
		y += c * x[i]
	}
	return y, nil
}
