package model

import "time"

// QueryConfig represents configuration for a retrieval query.
type QueryConfig struct {
	// Vector search parameters
	TopK                int     `json:"top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`

	// Package scoping (optional restriction to one guideline package)
	PackageContext string `json:"package_context,omitempty"`

	// Re-ranking weights for vector retrieval
	VectorWeight     float64 `json:"vector_weight"`
	NavigationWeight float64 `json:"navigation_weight"`
	EntityWeight     float64 `json:"entity_weight"`
	DecisionWeight   float64 `json:"decision_weight"`

	// Graph traversal parameters
	MinPathRelevance float64 `json:"min_path_relevance"` // paths below this are discarded
	MaxPaths         int     `json:"max_paths"`

	// Decision / matrix selection caps
	MaxTrees    int `json:"max_trees"`
	MaxMatrices int `json:"max_matrices"`

	// Per-mode timeouts for concurrent fan-out
	VectorTimeout    time.Duration `json:"vector_timeout"`
	GraphTimeout     time.Duration `json:"graph_timeout"`
	DecisionTimeout  time.Duration `json:"decision_timeout"`
	MatrixTimeout    time.Duration `json:"matrix_timeout"`
	SynthesisTimeout time.Duration `json:"synthesis_timeout"`
}

// DefaultQueryConfig returns a sensible default configuration.
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		TopK:                5,
		SimilarityThreshold: 0.0,
		VectorWeight:        0.5,
		NavigationWeight:    0.2,
		EntityWeight:        0.2,
		DecisionWeight:      0.1,
		MinPathRelevance:    0.3,
		MaxPaths:            50,
		MaxTrees:            5,
		MaxMatrices:         3,
		VectorTimeout:       2 * time.Second,
		GraphTimeout:        2 * time.Second,
		DecisionTimeout:     5 * time.Second,
		MatrixTimeout:       5 * time.Second,
		SynthesisTimeout:    10 * time.Second,
	}
}

// TimeoutFor returns the configured timeout for a retrieval mode.
func (c QueryConfig) TimeoutFor(mode RetrievalMode) time.Duration {
	switch mode {
	case ModeVectorSimilarity:
		return c.VectorTimeout
	case ModeGraphTraversal:
		return c.GraphTimeout
	case ModeDecisionPath:
		return c.DecisionTimeout
	case ModeMatrixIntersection:
		return c.MatrixTimeout
	}
	return c.SynthesisTimeout
}
