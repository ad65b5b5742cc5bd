package retrieval

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/guidestone/guidestone/model"
	"github.com/guidestone/guidestone/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func seedPricingMatrix(t *testing.T, memory *store.Memory) (*model.MatrixDocument, []*model.MatrixCell) {
	t.Helper()

	matrix := &model.MatrixDocument{
		ID:          uuid.New(),
		Name:        "FICO LTV Pricing Matrix",
		Summary:     "pricing adjustments by credit score tier and ltv",
		Types:       []model.MatrixType{{Label: "pricing", Confidence: 0.9}},
		PrimaryType: "pricing",
		Dimensions: []model.Dimension{
			{Name: "fico_score", Kind: model.DimensionNumeric, Min: 300, Max: 850},
			{Name: "ltv_ratio", Kind: model.DimensionNumeric, Min: 0, Max: 1},
		},
	}
	cells := []*model.MatrixCell{
		{
			ID: uuid.New(), MatrixID: matrix.ID, Value: "tier 2: +0.50 adjustment",
			Coordinates: []model.Coordinate{
				{Dimension: "fico_score", Min: f(620), Max: f(679)},
				{Dimension: "ltv_ratio", Min: f(0), Max: f(0.9)},
			},
		},
		{
			ID: uuid.New(), MatrixID: matrix.ID, Value: "tier 1: no adjustment",
			Coordinates: []model.Coordinate{
				{Dimension: "fico_score", Min: f(680), Max: f(850)},
				{Dimension: "ltv_ratio", Min: f(0), Max: f(0.9)},
			},
		},
	}
	memory.AddMatrix(matrix, cells)
	return matrix, cells
}

func calculationClassification() model.QueryClassification {
	return model.QueryClassification{
		Intent: model.IntentCalculationRequest,
		Modes:  []model.WeightedMode{{Mode: model.ModeMatrixIntersection, Weight: 1.0}},
	}
}

func TestMatrixLookupBoundaryIsInclusive(t *testing.T) {
	memory := store.NewMemory()
	seedPricingMatrix(t, memory)
	retriever := NewMatrixRetriever(memory, nil)
	config := model.DefaultQueryConfig()

	// 680 sits on the tier boundary and must land in the 680-850 tier.
	params := map[string]any{"fico_score": 680.0, "ltv_ratio": 0.85}
	result, err := retriever.Lookup(context.Background(), "pricing adjustment", params, calculationClassification(), &config)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.True(t, result.Matches[0].Exact)
	assert.Equal(t, "tier 1: no adjustment", result.Matches[0].Cell.Value)
}

func TestMatrixLookupExactBeatsOverlap(t *testing.T) {
	memory := store.NewMemory()
	matrix, _ := seedPricingMatrix(t, memory)

	// A cell constraining only fico leaves ltv unconstrained; it may only
	// be returned when no fully constrained cell matches.
	memory.AddMatrix(matrix, append([]*model.MatrixCell{
		{
			ID: uuid.New(), MatrixID: matrix.ID, Value: "fico-only fallback",
			Coordinates: []model.Coordinate{{Dimension: "fico_score", Min: f(300), Max: f(850)}},
		},
	}, mustCells(t, memory, matrix.ID)...))

	retriever := NewMatrixRetriever(memory, nil)
	config := model.DefaultQueryConfig()

	params := map[string]any{"fico_score": 680.0, "ltv_ratio": 0.85}
	result, err := retriever.Lookup(context.Background(), "pricing adjustment", params, calculationClassification(), &config)
	require.NoError(t, err)
	require.NotEmpty(t, result.Matches)
	for _, match := range result.Matches {
		assert.True(t, match.Exact)
	}
}

func mustCells(t *testing.T, memory *store.Memory, matrixID uuid.UUID) []*model.MatrixCell {
	t.Helper()
	cells, err := memory.MatrixCells(context.Background(), matrixID)
	require.NoError(t, err)
	return cells
}

func TestMatrixLookupOverlapWhenNoExact(t *testing.T) {
	memory := store.NewMemory()

	matrix := &model.MatrixDocument{
		ID:          uuid.New(),
		Name:        "Eligibility Grid",
		Summary:     "eligibility by credit score",
		PrimaryType: "pricing",
		Dimensions: []model.Dimension{
			{Name: "fico_score", Kind: model.DimensionNumeric, Min: 300, Max: 850},
			{Name: "ltv_ratio", Kind: model.DimensionNumeric, Min: 0, Max: 1},
		},
	}
	memory.AddMatrix(matrix, []*model.MatrixCell{
		{
			ID: uuid.New(), MatrixID: matrix.ID, Value: "fico-only rule",
			Coordinates: []model.Coordinate{{Dimension: "fico_score", Min: f(600), Max: f(850)}},
		},
	})

	retriever := NewMatrixRetriever(memory, nil)
	config := model.DefaultQueryConfig()

	params := map[string]any{"fico_score": 700.0, "ltv_ratio": 0.8}
	result, err := retriever.Lookup(context.Background(), "eligibility", params, calculationClassification(), &config)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.False(t, result.Matches[0].Exact)
}

func TestMatrixLookupMissingDimensions(t *testing.T) {
	memory := store.NewMemory()
	seedPricingMatrix(t, memory)
	retriever := NewMatrixRetriever(memory, nil)
	config := model.DefaultQueryConfig()

	result, err := retriever.Lookup(context.Background(), "pricing adjustment matrix", map[string]any{}, calculationClassification(), &config)
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
	assert.ElementsMatch(t, []string{"fico_score", "ltv_ratio"}, result.MissingDimensions)
}

func TestMatrixLookupCategoricalDimension(t *testing.T) {
	memory := store.NewMemory()

	matrix := &model.MatrixDocument{
		ID:          uuid.New(),
		Name:        "Occupancy Pricing",
		Summary:     "pricing by occupancy type",
		PrimaryType: "pricing",
		Dimensions: []model.Dimension{
			{Name: "occupancy", Kind: model.DimensionCategorical, Categories: []string{"primary", "second_home", "investment"}},
		},
	}
	memory.AddMatrix(matrix, []*model.MatrixCell{
		{
			ID: uuid.New(), MatrixID: matrix.ID, Value: "investment: +1.00",
			Coordinates: []model.Coordinate{{Dimension: "occupancy", Category: "investment"}},
		},
		{
			ID: uuid.New(), MatrixID: matrix.ID, Value: "primary: no adjustment",
			Coordinates: []model.Coordinate{{Dimension: "occupancy", Category: "primary"}},
		},
	})

	retriever := NewMatrixRetriever(memory, nil)
	config := model.DefaultQueryConfig()

	params := map[string]any{"occupancy": "investment"}
	result, err := retriever.Lookup(context.Background(), "occupancy pricing", params, calculationClassification(), &config)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "investment: +1.00", result.Matches[0].Cell.Value)
	assert.True(t, result.Matches[0].Exact)
}
