package models

import (
	"context"
	"fmt"
	"math"
)

// TreeNode is one node of a regression tree. A node with Leaf set is terminal;
// otherwise rows with x[Feature] < Threshold go to Yes, the rest to No, and
// NaN goes to Missing. Children are indexes into the tree's node list.
type TreeNode struct {
	Feature   int      `json:"feature"`
	Threshold float64  `json:"threshold"`
	Yes       int      `json:"yes"`
	No        int      `json:"no"`
	Missing   int      `json:"missing"`
	Leaf      *float64 `json:"leaf,omitempty"`
}

// Tree is a single regression tree rooted at node 0.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// TreeEnsemble is a gradient-boosted sum of regression trees.
type TreeEnsemble struct {
	name       string
	baseScore  float64
	names      []string
	trees      []Tree
	minFeature int // smallest vector length every split can index
}

// NewTreeEnsemble validates the trees and returns the ensemble. Every child
// index must point forward so evaluation always terminates.
func NewTreeEnsemble(name string, baseScore float64, featureNames []string, trees []Tree) (*TreeEnsemble, error) {
	if len(trees) == 0 {
		return nil, fmt.Errorf("%w: tree ensemble has no trees", ErrInvalidArtifact)
	}

	maxFeature := -1
	for ti, t := range trees {
		if len(t.Nodes) == 0 {
			return nil, fmt.Errorf("%w: tree %d has no nodes", ErrInvalidArtifact, ti)
		}
		for ni, n := range t.Nodes {
			if n.Leaf != nil {
				continue
			}
			if n.Feature < 0 {
				return nil, fmt.Errorf("%w: tree %d node %d: negative feature index", ErrInvalidArtifact, ti, ni)
			}
			for _, child := range []int{n.Yes, n.No, n.Missing} {
				if child <= ni || child >= len(t.Nodes) {
					return nil, fmt.Errorf("%w: tree %d node %d: child %d out of range", ErrInvalidArtifact, ti, ni, child)
				}
			}
			maxFeature = max(maxFeature, n.Feature)
		}
	}

	if len(featureNames) > 0 && maxFeature >= len(featureNames) {
		return nil, fmt.Errorf("%w: split on feature %d but only %d feature names", ErrInvalidArtifact, maxFeature, len(featureNames))
	}

	if name == "" {
		name = KindTreeEnsemble
	}
	return &TreeEnsemble{
		name:       name,
		baseScore:  baseScore,
		names:      append([]string(nil), featureNames...),
		trees:      trees,
		minFeature: maxFeature + 1,
	}, nil
}

func (m *TreeEnsemble) Name() string { return m.name }

func (m *TreeEnsemble) NumFeatures() int { return len(m.names) }

func (m *TreeEnsemble) FeatureNames() []string { return append([]string(nil), m.names...) }

// NumTrees returns the number of trees in the ensemble.
func (m *TreeEnsemble) NumTrees() int { return len(m.trees) }

// Predict returns base_score plus the sum of the leaf each tree routes x to.
func (m *TreeEnsemble) Predict(_ context.Context, x []float64) (float64, error) {
	if err := checkLen(m.name, len(m.names), x); err != nil {
		return 0, err
	}
	if len(x) < m.minFeature {
		return 0, fmt.Errorf("%s: got %d features, splits need %d: %w", m.name, len(x), m.minFeature, ErrFeatureMismatch)
	}

	sum := m.baseScore
	for i := range m.trees {
		sum += m.trees[i].eval(x)
	}
	return sum, nil
}

func (t *Tree) eval(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Leaf != nil {
			return *n.Leaf
		}
		v := x[n.Feature]
		switch {
		case math.IsNaN(v):
			i = n.Missing
		case v < n.Threshold:
			i = n.Yes
		default:
			i = n.No
		}
	}
}
