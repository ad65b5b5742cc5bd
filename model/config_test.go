package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultQueryConfig(t *testing.T) {
	config := DefaultQueryConfig()

	assert.Equal(t, 5, config.TopK)
	assert.Equal(t, 0.0, config.SimilarityThreshold)
	assert.InDelta(t, 1.0, config.VectorWeight+config.NavigationWeight+config.EntityWeight+config.DecisionWeight, 1e-9)
	assert.Equal(t, 0.3, config.MinPathRelevance)
	assert.Equal(t, 50, config.MaxPaths)
	assert.Equal(t, 5, config.MaxTrees)
	assert.Equal(t, 3, config.MaxMatrices)
}

func TestQueryConfigTimeoutFor(t *testing.T) {
	config := DefaultQueryConfig()

	assert.Equal(t, config.VectorTimeout, config.TimeoutFor(ModeVectorSimilarity))
	assert.Equal(t, config.GraphTimeout, config.TimeoutFor(ModeGraphTraversal))
	assert.Equal(t, config.DecisionTimeout, config.TimeoutFor(ModeDecisionPath))
	assert.Equal(t, config.MatrixTimeout, config.TimeoutFor(ModeMatrixIntersection))
	assert.Equal(t, config.SynthesisTimeout, config.TimeoutFor(ModeHybridReasoning))
	assert.Equal(t, 10*time.Second, config.SynthesisTimeout)
}
