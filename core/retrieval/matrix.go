package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/guidestone/guidestone/helper"
	"github.com/guidestone/guidestone/model"
	"github.com/guidestone/guidestone/store"
)

const matrixSelectionThreshold = 0.4

// matrixIntentScores maps intents to how relevant matrix lookup is for
// them, keyed further by the matrix's primary type.
var matrixIntentScores = map[model.QueryIntent]map[string]float64{
	model.IntentCalculationRequest: {
		"llpa":        1.0,
		"pricing":     1.0,
		"rate_sheet":  0.9,
		"eligibility": 0.5,
	},
	model.IntentQualificationCheck: {
		"eligibility": 1.0,
		"llpa":        0.5,
		"pricing":     0.5,
	},
}

// MatrixRetriever locates relevant classification matrices and performs
// range and category lookups against supplied case parameters.
type MatrixRetriever struct {
	store  store.GraphStore
	logger *slog.Logger
}

// NewMatrixRetriever creates a new matrix intersection retriever.
func NewMatrixRetriever(graphStore store.GraphStore, logger *slog.Logger) *MatrixRetriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &MatrixRetriever{store: graphStore, logger: logger}
}

// Lookup selects candidate matrices and intersects each with the case
// parameters. Exact matches take priority; range-overlap matches are
// returned only when no exact match exists.
func (r *MatrixRetriever) Lookup(ctx context.Context, query string, params map[string]any, classification model.QueryClassification, config *model.QueryConfig) (*model.MatrixLookupResult, error) {
	matrices, err := r.selectMatrices(ctx, query, params, classification, config)
	if err != nil {
		return nil, err
	}

	result := &model.MatrixLookupResult{}
	missingSeen := map[string]bool{}
	for _, matrix := range matrices {
		cells, err := r.store.MatrixCells(ctx, matrix.ID)
		if err == store.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, helper.NewError("load matrix cells", err)
		}

		supplied := suppliedDimensions(matrix, params)
		if len(supplied) == 0 {
			for _, name := range matrix.DimensionNames() {
				if !missingSeen[name] {
					missingSeen[name] = true
					result.MissingDimensions = append(result.MissingDimensions, name)
				}
			}
			continue
		}

		var exact, overlap []*model.CellMatch
		for _, cell := range cells {
			match, isExact := matchCell(cell, supplied, params)
			if !match {
				continue
			}
			cm := &model.CellMatch{Matrix: matrix, Cell: cell, Exact: isExact}
			r.enrich(ctx, cm)
			if isExact {
				exact = append(exact, cm)
			} else {
				overlap = append(overlap, cm)
			}
		}

		if len(exact) > 0 {
			result.Matches = append(result.Matches, exact...)
		} else {
			result.Matches = append(result.Matches, overlap...)
		}
	}

	r.logger.Debug("matrix lookup complete",
		slog.Int("matrices", len(matrices)),
		slog.Int("matches", len(result.Matches)),
	)
	return result, nil
}

// selectMatrices scores candidates by intent fit, token overlap with the
// query, and how fully the case parameters cover the matrix dimensions.
func (r *MatrixRetriever) selectMatrices(ctx context.Context, query string, params map[string]any, classification model.QueryClassification, config *model.QueryConfig) ([]*model.MatrixDocument, error) {
	matrices, err := r.store.Matrices(ctx, config.PackageContext)
	if err != nil {
		return nil, helper.NewError("list matrices", err)
	}

	type scored struct {
		matrix *model.MatrixDocument
		score  float64
	}
	var selected []scored
	for _, matrix := range matrices {
		intent := matrixIntentScore(classification.Intent, matrix.PrimaryType)
		overlap := tokenOverlap(query, matrix.Name+" "+matrix.Summary)
		coverage := dimensionCoverage(matrix, params)

		score := 0.5*intent + 0.3*overlap + 0.2*coverage
		if score > matrixSelectionThreshold {
			selected = append(selected, scored{matrix: matrix, score: score})
		}
	}

	sort.SliceStable(selected, func(i, j int) bool { return selected[i].score > selected[j].score })
	if len(selected) > config.MaxMatrices {
		selected = selected[:config.MaxMatrices]
	}

	out := make([]*model.MatrixDocument, len(selected))
	for i, s := range selected {
		out[i] = s.matrix
	}
	return out, nil
}

func matrixIntentScore(intent model.QueryIntent, primaryType string) float64 {
	byType, ok := matrixIntentScores[intent]
	if !ok {
		return 0.3
	}
	if score, ok := byType[strings.ToLower(primaryType)]; ok {
		return score
	}
	return 0.4
}

// dimensionCoverage is the fraction of matrix dimensions for which the case
// parameters supply a value.
func dimensionCoverage(matrix *model.MatrixDocument, params map[string]any) float64 {
	if len(matrix.Dimensions) == 0 {
		return 0
	}
	covered := 0
	for _, name := range matrix.DimensionNames() {
		if _, ok := paramFor(params, name); ok {
			covered++
		}
	}
	return float64(covered) / float64(len(matrix.Dimensions))
}

// suppliedDimensions returns the matrix dimension names for which parameters
// were supplied.
func suppliedDimensions(matrix *model.MatrixDocument, params map[string]any) []string {
	var supplied []string
	for _, name := range matrix.DimensionNames() {
		if _, ok := paramFor(params, name); ok {
			supplied = append(supplied, name)
		}
	}
	return supplied
}

func paramFor(params map[string]any, dimension string) (any, bool) {
	for k, v := range params {
		if strings.EqualFold(k, dimension) {
			return v, true
		}
	}
	return nil, false
}

// matchCell checks a cell against every supplied dimension value. A cell is
// an exact match when all supplied dimensions are constrained and contain
// their values; it is a range-overlap match when the constrained dimensions
// contain their values but at least one supplied dimension is left
// unconstrained by the cell.
func matchCell(cell *model.MatrixCell, supplied []string, params map[string]any) (match bool, exact bool) {
	unconstrained := 0
	for _, dim := range supplied {
		value, _ := paramFor(params, dim)
		coord := cell.Coordinate(dim)
		if coord == nil {
			unconstrained++
			continue
		}
		if !coordinateContains(coord, value) {
			return false, false
		}
	}
	if unconstrained == len(supplied) {
		return false, false
	}
	return true, unconstrained == 0
}

func coordinateContains(coord *model.Coordinate, value any) bool {
	switch v := value.(type) {
	case float64:
		return coord.ContainsNumeric(v)
	case float32:
		return coord.ContainsNumeric(float64(v))
	case int:
		return coord.ContainsNumeric(float64(v))
	case int64:
		return coord.ContainsNumeric(float64(v))
	case string:
		return coord.ContainsCategory(v)
	}
	return false
}

// enrich attaches the referenced navigation node and chunk for elaboration.
func (r *MatrixRetriever) enrich(ctx context.Context, cm *model.CellMatch) {
	if cm.Cell.NodeRef != nil {
		if node, err := r.store.NavigationNode(ctx, *cm.Cell.NodeRef); err == nil {
			cm.Node = node
		}
	}
	if cm.Cell.ChunkRef != nil {
		if chunk, err := r.store.Chunk(ctx, *cm.Cell.ChunkRef); err == nil {
			cm.Chunk = chunk
		}
	}
}
