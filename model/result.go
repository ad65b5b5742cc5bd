package model

import (
	"github.com/google/uuid"
)

// ChunkResult is one vector-similarity hit enriched with its owning
// navigation node and sibling chunks.
type ChunkResult struct {
	Chunk      *HierarchicalChunk   `json:"chunk"`
	Node       *NavigationNode      `json:"node,omitempty"`
	Siblings   []*HierarchicalChunk `json:"siblings,omitempty"`
	Similarity float64              `json:"similarity"` // raw cosine similarity
	Score      float64              `json:"score"`      // re-ranked combined score
}

// EvaluationStep records one node visited during a decision tree walk.
type EvaluationStep struct {
	NodeID    uuid.UUID `json:"node_id"`
	Label     string    `json:"label"`
	Condition string    `json:"condition,omitempty"`
	Branch    string    `json:"branch"` // "true", "false", "exception", "outcome"
}

// TreeEvaluation is the result of walking one decision tree against the
// supplied case parameters.
type TreeEvaluation struct {
	Tree            *DecisionTree    `json:"tree"`
	Outcome         *DecisionOutcome `json:"outcome,omitempty"`
	Steps           []EvaluationStep `json:"steps"`
	Incomplete      bool             `json:"incomplete"`
	MissingCriteria []string         `json:"missing_criteria,omitempty"`
	Explanation     string           `json:"explanation"`
	SelectionScore  float64          `json:"selection_score"`
}

// DecisionPathResult aggregates evaluations across all selected trees.
// Conflicting outcomes are surfaced, never silently resolved.
type DecisionPathResult struct {
	Evaluations []*TreeEvaluation `json:"evaluations"`
	Conflicting bool              `json:"conflicting"`
	Explanation string            `json:"explanation"`
}

// CellMatch is one matched matrix cell enriched with referenced content.
type CellMatch struct {
	Matrix *MatrixDocument    `json:"matrix"`
	Cell   *MatrixCell        `json:"cell"`
	Exact  bool               `json:"exact"`
	Node   *NavigationNode    `json:"node,omitempty"`
	Chunk  *HierarchicalChunk `json:"chunk,omitempty"`
}

// MatrixLookupResult aggregates cell matches across selected matrices.
type MatrixLookupResult struct {
	Matches           []*CellMatch `json:"matches"`
	MissingDimensions []string     `json:"missing_dimensions,omitempty"`
}

// RetrievalResult is the ephemeral per-mode result union. Exactly one of
// the payload fields is populated depending on Mode. A retriever that timed
// out or failed reports Failed with a zero score; store-unavailable errors
// are additionally carried in Err so the orchestrator can distinguish
// infrastructure failure from query difficulty.
type RetrievalResult struct {
	Mode     RetrievalMode       `json:"mode"`
	Score    float64             `json:"score"` // normalized [0,1]
	Chunks   []*ChunkResult      `json:"chunks,omitempty"`
	Paths    []*GraphPath        `json:"paths,omitempty"`
	Decision *DecisionPathResult `json:"decision,omitempty"`
	Matrix   *MatrixLookupResult `json:"matrix,omitempty"`
	Failed   bool                `json:"failed,omitempty"`
	Err      error               `json:"-"`
}

// Empty reports whether the result carries no payload at all.
func (r *RetrievalResult) Empty() bool {
	if r == nil {
		return true
	}
	return len(r.Chunks) == 0 && len(r.Paths) == 0 &&
		(r.Decision == nil || len(r.Decision.Evaluations) == 0) &&
		(r.Matrix == nil || len(r.Matrix.Matches) == 0)
}

// FailedResult builds the empty zero-confidence result a misbehaving
// retriever contributes.
func FailedResult(mode RetrievalMode, err error) *RetrievalResult {
	return &RetrievalResult{Mode: mode, Failed: true, Err: err}
}

// Citation pairs a claim from the synthesized answer with its source.
type Citation struct {
	Claim  string `json:"claim"`
	Source string `json:"source"`
}

// SynthesizedAnswer is the unified answer returned to the caller.
type SynthesizedAnswer struct {
	Answer            string     `json:"answer"`
	KeyPoints         []string   `json:"key_points,omitempty"`
	SourceCitations   []Citation `json:"source_citations,omitempty"`
	Conflicts         []string   `json:"conflicts_identified,omitempty"`
	ConfidenceLevel   float64    `json:"confidence_level"`
	Limitations       []string   `json:"limitations,omitempty"`
	AdditionalContext string     `json:"additional_context,omitempty"`
	Unverified        []string   `json:"unverified_claims,omitempty"` // fact-check flags, never suppressed
	Completeness      float64    `json:"completeness,omitempty"`
}

// QueryRequest is the engine's external request contract.
type QueryRequest struct {
	Query          string         `json:"query"`
	ContextParams  map[string]any `json:"context_params,omitempty"`
	PackageContext string         `json:"package_context,omitempty"`
}

// QueryResponse is the engine's external response contract.
type QueryResponse struct {
	Query            string             `json:"query"`
	StrategyUsed     Strategy           `json:"strategy_used"`
	Result           *SynthesizedAnswer `json:"result"`
	Confidence       float64            `json:"confidence"`
	ProcessingTimeMS int64              `json:"processing_time_ms"`
}
