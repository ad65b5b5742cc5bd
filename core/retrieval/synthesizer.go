package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/guidestone/guidestone/ai"
	"github.com/guidestone/guidestone/helper"
	"github.com/guidestone/guidestone/model"
)

const factCheckThreshold = 0.3

const synthesisSystemPrompt = `You are a mortgage guideline analyst. You synthesize retrieved guideline content into one precise answer. Respond with a single JSON object with the fields: answer (string), key_points (array of strings), source_citations (array of {claim, source}), conflicts_identified (array of strings), confidence_level (number 0-1), limitations (array of strings), additional_context (string). Cite only the provided sources. If sources disagree, report the disagreement instead of choosing a side.`

// Synthesizer merges multi-mode retrieval results into a single validated
// answer via the language-model capability, then fact-checks every claimed
// key point against the retrieved content itself.
type Synthesizer struct {
	completer ai.Completer
	logger    *slog.Logger
}

// NewSynthesizer creates a new synthesizer.
func NewSynthesizer(completer ai.Completer, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{completer: completer, logger: logger}
}

// Synthesize builds the structured prompt, runs the completion, validates
// the claims, and computes the final confidence from per-mode confidences,
// the model's self-reported confidence, and the fact-check pass rate.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, results []*model.RetrievalResult, classification model.QueryClassification) (*model.SynthesizedAnswer, error) {
	prompt := buildPrompt(query, results, classification)

	raw, err := s.completer.Complete(ctx, synthesisSystemPrompt, prompt)
	if err != nil {
		return nil, helper.NewError("synthesis completion", err)
	}

	answer := parseAnswer(raw)
	corpus := retrievedCorpus(results)
	verified := 0
	for _, point := range answer.KeyPoints {
		if tokenOverlap(point, corpus) >= factCheckThreshold {
			verified++
		} else {
			// Flagged, never suppressed.
			answer.Unverified = append(answer.Unverified, point)
		}
	}

	passRate := 1.0
	if len(answer.KeyPoints) > 0 {
		passRate = float64(verified) / float64(len(answer.KeyPoints))
	}
	answer.Completeness = passRate
	answer.ConfidenceLevel = 0.5*averageModeConfidence(results) + 0.3*answer.ConfidenceLevel + 0.2*passRate

	s.logger.Debug("synthesis complete",
		slog.Int("key_points", len(answer.KeyPoints)),
		slog.Int("unverified", len(answer.Unverified)),
		slog.Float64("confidence", answer.ConfidenceLevel),
	)
	return answer, nil
}

// buildPrompt enumerates each mode's top results with their confidence.
func buildPrompt(query string, results []*model.RetrievalResult, classification model.QueryClassification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\nIntent: %s\n\nRetrieved evidence by strategy:\n", query, classification.Intent)

	for _, result := range results {
		fmt.Fprintf(&b, "\n[%s] confidence %.2f\n", result.Mode, result.Score)
		if result.Failed {
			b.WriteString("  (strategy failed, no evidence)\n")
			continue
		}
		for i, chunk := range result.Chunks {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "  source %q: %s\n", chunk.Chunk.NavPath, chunk.Chunk.Content)
		}
		for i, path := range result.Paths {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "  path (relevance %.2f): %s\n", path.Relevance, renderPath(path))
		}
		if result.Decision != nil {
			for _, eval := range result.Decision.Evaluations {
				fmt.Fprintf(&b, "  decision: %s\n", eval.Explanation)
			}
		}
		if result.Matrix != nil {
			for i, match := range result.Matrix.Matches {
				if i >= 5 {
					break
				}
				fmt.Fprintf(&b, "  matrix %q cell: %s\n", match.Matrix.Name, match.Cell.Value)
			}
		}
	}

	b.WriteString("\nSynthesize one answer as the requested JSON object.")
	return b.String()
}

func renderPath(path *model.GraphPath) string {
	parts := make([]string, 0, len(path.Nodes))
	for _, n := range path.Nodes {
		parts = append(parts, n.Label)
	}
	return strings.Join(parts, " -> ")
}

// parseAnswer decodes the completion defensively: code fences are stripped
// and undecodable output becomes a low-confidence raw-text answer.
func parseAnswer(raw string) *model.SynthesizedAnswer {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	answer := &model.SynthesizedAnswer{}
	if err := json.Unmarshal([]byte(cleaned), answer); err != nil {
		return &model.SynthesizedAnswer{
			Answer:          strings.TrimSpace(raw),
			ConfidenceLevel: 0.3,
			Limitations:     []string{"synthesis output could not be parsed as structured JSON"},
		}
	}
	return answer
}

// retrievedCorpus concatenates all retrieved content for fact checking.
func retrievedCorpus(results []*model.RetrievalResult) string {
	var b strings.Builder
	for _, result := range results {
		for _, chunk := range result.Chunks {
			b.WriteString(chunk.Chunk.Content)
			b.WriteString(" ")
		}
		for _, path := range result.Paths {
			b.WriteString(renderPath(path))
			b.WriteString(" ")
		}
		if result.Decision != nil {
			b.WriteString(result.Decision.Explanation)
			b.WriteString(" ")
		}
		if result.Matrix != nil {
			for _, match := range result.Matrix.Matches {
				b.WriteString(match.Matrix.Name)
				b.WriteString(" ")
				b.WriteString(match.Cell.Value)
				b.WriteString(" ")
				if match.Chunk != nil {
					b.WriteString(match.Chunk.Content)
					b.WriteString(" ")
				}
			}
		}
	}
	return b.String()
}

func averageModeConfidence(results []*model.RetrievalResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, result := range results {
		sum += result.Score
	}
	return sum / float64(len(results))
}
