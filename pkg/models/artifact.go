package models

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// Artifact kinds.
const (
	KindTreeEnsemble = "tree_ensemble"
	KindLinear       = "linear"
)

type treeArtifact struct {
	Name         string   `json:"name"`
	BaseScore    float64  `json:"base_score"`
	FeatureNames []string `json:"feature_names"`
	Trees        []Tree   `json:"trees"`
}

type linearArtifact struct {
	Name         string    `json:"name"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
	FeatureNames []string  `json:"feature_names"`
}

// LoadArtifact reads a JSON model artifact from path. A missing file yields an
// error wrapping ErrArtifactNotFound.
func LoadArtifact(path string) (Regressor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, ErrArtifactNotFound)
		}
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	m, err := ParseArtifact(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return m, nil
}

// ParseArtifact decodes an artifact, dispatching on its "kind" field.
func ParseArtifact(data []byte) (Regressor, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidArtifact)
	}

	kind := gjson.GetBytes(data, "kind")
	switch kind.String() {
	case KindTreeEnsemble:
		var a treeArtifact
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
		}
		return NewTreeEnsemble(a.Name, a.BaseScore, a.FeatureNames, a.Trees)

	case KindLinear:
		var a linearArtifact
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
		}
		return NewLinearModel(a.Name, a.Intercept, a.Coefficients, a.FeatureNames)

	case "":
		return nil, fmt.Errorf("%w: missing kind", ErrInvalidArtifact)
	default:
		return nil, fmt.Errorf("%w: unsupported kind %q", ErrInvalidArtifact, kind.String())
	}
}
