// Package classifier turns a raw query string into an intent, a complexity
// score, a weighted retrieval mode list, and any structured case parameters
// mentioned in the text. Classification never fails; ambiguous queries fall
// back to a default intent so every query gets routed.
package classifier

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/guidestone/guidestone/model"
)

const (
	defaultConfidence = 0.6
	baseConfidence    = 0.7
	maxConfidence     = 0.95
	maxModes          = 4
	hybridThreshold   = 0.7
)

// Classifier extracts features and routes queries. Stateless; safe for
// concurrent use.
type Classifier struct {
	logger *slog.Logger
}

// New creates a new Classifier.
func New(logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{logger: logger}
}

// Classify analyzes the query and merges in any caller supplied case
// parameters. Supplied parameters win over values extracted from the text.
func (c *Classifier) Classify(query string, contextParams map[string]any) model.QueryClassification {
	features := extractFeatures(query)
	intent, confidence := matchIntent(query)
	complexity := computeComplexity(features)
	modes := selectModes(intent, features, complexity)
	params := extractParameters(query)
	for k, v := range contextParams {
		params[k] = coerceParam(v)
	}

	c.logger.Debug("classified query",
		slog.String("intent", string(intent)),
		slog.Float64("confidence", confidence),
		slog.Float64("complexity", complexity),
		slog.Int("modes", len(modes)),
	)

	return model.QueryClassification{
		Intent:     intent,
		Confidence: confidence,
		Complexity: complexity,
		Modes:      modes,
		Parameters: params,
		Features:   features,
	}
}

func extractFeatures(query string) model.QueryFeatures {
	lower := strings.ToLower(query)
	features := model.QueryFeatures{
		WordCount:          len(strings.Fields(query)),
		Interrogative:      interrogativePattern.MatchString(query),
		ProgramTerms:       matchKeywords(lower, programKeywords),
		BorrowerTerms:      matchKeywords(lower, borrowerKeywords),
		PropertyTerms:      matchKeywords(lower, propertyKeywords),
		DocumentationTerms: matchKeywords(lower, documentationKeywords),
		MatrixTerms:        matchKeywords(lower, matrixKeywords),
		ExceptionMarker:    exceptionPattern.MatchString(query),
		ScenarioMarker:     scenarioPattern.MatchString(query),
		CalculationMarker:  calculationPattern.MatchString(query),
	}
	for _, raw := range numberPattern.FindAllString(query, -1) {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			features.Numbers = append(features.Numbers, f)
		}
	}
	return features
}

func matchKeywords(lower string, keywords []string) []string {
	var matched []string
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// matchIntent walks the ordered rule table. The first intent with any
// matching pattern wins; confidence grows with the number of its patterns
// that matched.
func matchIntent(query string) (model.QueryIntent, float64) {
	for _, rule := range intentRules {
		matches := 0
		for _, p := range rule.patterns {
			if p.MatchString(query) {
				matches++
			}
		}
		if matches > 0 {
			confidence := baseConfidence + 0.1*float64(matches-1)
			if confidence > maxConfidence {
				confidence = maxConfidence
			}
			return rule.intent, confidence
		}
	}
	return model.IntentPolicyLookup, defaultConfidence
}

// computeComplexity scores query complexity in [0,1] from length, domain
// keyword spread, and reasoning markers.
func computeComplexity(features model.QueryFeatures) float64 {
	length := float64(features.WordCount) / 30.0
	if length > 1 {
		length = 1
	}

	categories := float64(features.KeywordCategories()) / 5.0

	markers := 0.0
	if features.ExceptionMarker {
		markers++
	}
	if features.ScenarioMarker {
		markers++
	}
	if features.CalculationMarker {
		markers++
	}
	markers /= 3.0

	complexity := 0.4*length + 0.4*categories + 0.2*markers
	if complexity > 1 {
		complexity = 1
	}
	return complexity
}

func selectModes(intent model.QueryIntent, features model.QueryFeatures, complexity float64) []model.WeightedMode {
	base := intentModes[intent]
	if len(base) == 0 {
		base = intentModes[model.IntentPolicyLookup]
	}
	ordered := append([]model.RetrievalMode{}, base...)

	if complexity > hybridThreshold && !containsMode(ordered, model.ModeHybridReasoning) {
		ordered = append(ordered, model.ModeHybridReasoning)
	}
	if len(features.MatrixTerms) > 0 {
		ordered = moveToFront(ordered, model.ModeMatrixIntersection)
	}
	if len(ordered) > maxModes {
		ordered = ordered[:maxModes]
	}

	modes := make([]model.WeightedMode, len(ordered))
	for i, mode := range ordered {
		weight := modeWeights[len(modeWeights)-1]
		if i < len(modeWeights) {
			weight = modeWeights[i]
		}
		modes[i] = model.WeightedMode{Mode: mode, Weight: weight}
	}
	return modes
}

func containsMode(modes []model.RetrievalMode, mode model.RetrievalMode) bool {
	for _, m := range modes {
		if m == mode {
			return true
		}
	}
	return false
}

func moveToFront(modes []model.RetrievalMode, mode model.RetrievalMode) []model.RetrievalMode {
	out := []model.RetrievalMode{mode}
	for _, m := range modes {
		if m != mode {
			out = append(out, m)
		}
	}
	return out
}

// extractParameters pulls structured case parameters out of the query text.
// Ratios spoken as percentages are normalized to fractions.
func extractParameters(query string) map[string]any {
	params := map[string]any{}

	if v, ok := firstNumber(query, ficoPatterns); ok && v >= 300 && v <= 850 {
		params["fico_score"] = v
	}
	if v, ok := firstNumber(query, ltvPatterns); ok {
		params["ltv_ratio"] = normalizeRatio(v)
	}
	if v, ok := firstNumber(query, dtiPatterns); ok {
		params["dti_ratio"] = normalizeRatio(v)
	}
	if v, ok := firstNumber(query, loanAmountPatterns); ok {
		switch strings.ToLower(scaleSuffix(query)) {
		case "k":
			v *= 1_000
		case "m", "mm", "million":
			v *= 1_000_000
		}
		params["loan_amount"] = v
	}

	return params
}

func firstNumber(query string, patterns []*regexp.Regexp) (float64, bool) {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(query); len(m) > 1 {
			raw := strings.ReplaceAll(m[1], ",", "")
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func scaleSuffix(query string) string {
	if m := loanAmountScale.FindStringSubmatch(query); len(m) > 1 {
		return m[1]
	}
	return ""
}

func normalizeRatio(v float64) float64 {
	if v > 1 {
		return v / 100
	}
	return v
}

func coerceParam(v any) any {
	switch t := v.(type) {
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(t), "%")
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			if strings.HasSuffix(strings.TrimSpace(t), "%") {
				return f / 100
			}
			return f
		}
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	}
	return v
}
