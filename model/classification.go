package model

// QueryIntent is the classified purpose of an incoming query.
type QueryIntent string

const (
	IntentQualificationCheck   QueryIntent = "qualification_check"
	IntentDocumentationInquiry QueryIntent = "documentation_inquiry"
	IntentPolicyLookup         QueryIntent = "policy_lookup"
	IntentCalculationRequest   QueryIntent = "calculation_request"
	IntentComparisonAnalysis   QueryIntent = "comparison_analysis"
	IntentExceptionInquiry     QueryIntent = "exception_inquiry"
	IntentProcessNavigation    QueryIntent = "process_navigation"
)

// RetrievalMode is one of the five retrieval strategies. The set is closed;
// mode dispatch is table-driven rather than string-branched.
type RetrievalMode string

const (
	ModeVectorSimilarity   RetrievalMode = "vector_similarity"
	ModeGraphTraversal     RetrievalMode = "graph_traversal"
	ModeDecisionPath       RetrievalMode = "decision_path"
	ModeMatrixIntersection RetrievalMode = "matrix_intersection"
	ModeHybridReasoning    RetrievalMode = "hybrid_reasoning"
)

// Strategy is the processing strategy the orchestrator selects per query.
type Strategy string

const (
	StrategySimpleVector       Strategy = "SIMPLE_VECTOR"
	StrategyGraphNavigation    Strategy = "GRAPH_NAVIGATION"
	StrategyDecisionEvaluation Strategy = "DECISION_EVALUATION"
	StrategyMatrixLookup       Strategy = "MATRIX_LOOKUP"
	StrategyHybridReasoning    Strategy = "HYBRID_REASONING"
)

// WeightedMode pairs a retrieval mode with its selection weight.
type WeightedMode struct {
	Mode   RetrievalMode `json:"mode"`
	Weight float64       `json:"weight"`
}

// QueryFeatures is the fixed feature set extracted from a query string.
type QueryFeatures struct {
	WordCount          int      `json:"word_count"`
	Interrogative      bool     `json:"interrogative"`
	ProgramTerms       []string `json:"program_terms,omitempty"`
	BorrowerTerms      []string `json:"borrower_terms,omitempty"`
	PropertyTerms      []string `json:"property_terms,omitempty"`
	DocumentationTerms []string `json:"documentation_terms,omitempty"`
	MatrixTerms        []string `json:"matrix_terms,omitempty"`
	ExceptionMarker    bool     `json:"exception_marker"`
	ScenarioMarker     bool     `json:"scenario_marker"`
	CalculationMarker  bool     `json:"calculation_marker"`
	Numbers            []float64 `json:"numbers,omitempty"`
}

// KeywordCategories counts how many domain keyword categories triggered.
func (f QueryFeatures) KeywordCategories() int {
	n := 0
	for _, terms := range [][]string{f.ProgramTerms, f.BorrowerTerms, f.PropertyTerms, f.DocumentationTerms, f.MatrixTerms} {
		if len(terms) > 0 {
			n++
		}
	}
	return n
}

// QueryClassification is the ephemeral per-query classification output. It
// is never persisted and carries no cross-request state.
type QueryClassification struct {
	Intent     QueryIntent    `json:"intent"`
	Confidence float64        `json:"confidence"`
	Complexity float64        `json:"complexity"` // [0,1]
	Modes      []WeightedMode `json:"modes"`      // at most 4
	Parameters map[string]any `json:"parameters,omitempty"`
	Features   QueryFeatures  `json:"features"`
}

// HasMode reports whether the given retrieval mode was selected.
func (c QueryClassification) HasMode(mode RetrievalMode) bool {
	for _, m := range c.Modes {
		if m.Mode == mode {
			return true
		}
	}
	return false
}

// NumericParameters returns the subset of extracted parameters carrying
// numeric values.
func (c QueryClassification) NumericParameters() map[string]float64 {
	out := make(map[string]float64)
	for k, v := range c.Parameters {
		if f, ok := toFloat(v); ok {
			out[k] = f
		}
	}
	return out
}
