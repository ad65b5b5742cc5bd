package orchestrator

import (
	"fmt"
	"strings"

	"github.com/guidestone/guidestone/model"
)

// Direct formatting for serial strategies. These build the response from
// retrieved content alone so simple queries never wait on a language model.

func formatChunkAnswer(result *model.RetrievalResult) *model.SynthesizedAnswer {
	if result.Empty() {
		return insufficientAnswer("no sufficiently similar guideline content was found")
	}

	answer := &model.SynthesizedAnswer{ConfidenceLevel: result.Score}
	var b strings.Builder
	for _, chunk := range result.Chunks {
		source := chunk.Chunk.NavPath
		if chunk.Node != nil {
			source = chunk.Node.Title
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s: %s", source, chunk.Chunk.Content)
		answer.KeyPoints = append(answer.KeyPoints, chunk.Chunk.Content)
		answer.SourceCitations = append(answer.SourceCitations, model.Citation{
			Claim:  chunk.Chunk.Content,
			Source: source,
		})
	}
	answer.Answer = b.String()
	return answer
}

func formatPathAnswer(result *model.RetrievalResult) *model.SynthesizedAnswer {
	if result.Empty() {
		return insufficientAnswer("no relevant paths were found in the knowledge graph")
	}

	answer := &model.SynthesizedAnswer{ConfidenceLevel: result.Score}
	var b strings.Builder
	for i, path := range result.Paths {
		if i >= 10 {
			break
		}
		labels := make([]string, 0, len(path.Nodes))
		for _, n := range path.Nodes {
			labels = append(labels, n.Label)
		}
		rendered := strings.Join(labels, " -> ")
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(rendered)
		answer.KeyPoints = append(answer.KeyPoints, rendered)
		if len(path.Nodes) > 0 {
			answer.SourceCitations = append(answer.SourceCitations, model.Citation{
				Claim:  rendered,
				Source: path.Nodes[len(path.Nodes)-1].Label,
			})
		}
	}
	answer.Answer = b.String()
	return answer
}

func formatDecisionAnswer(result *model.RetrievalResult) *model.SynthesizedAnswer {
	decision := result.Decision
	if result.Empty() {
		return insufficientAnswer("no decision tree matched the query")
	}

	answer := &model.SynthesizedAnswer{ConfidenceLevel: result.Score}
	var b strings.Builder
	for _, eval := range decision.Evaluations {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		switch {
		case eval.Outcome != nil:
			fmt.Fprintf(&b, "%s: outcome %s. %s", eval.Tree.Name, eval.Outcome.Category, eval.Explanation)
			answer.KeyPoints = append(answer.KeyPoints, fmt.Sprintf("%s: %s", eval.Tree.Name, eval.Outcome.Category))
		default:
			b.WriteString(eval.Explanation)
			answer.Limitations = append(answer.Limitations,
				fmt.Sprintf("%s: missing criteria %s", eval.Tree.Name, strings.Join(eval.MissingCriteria, ", ")))
		}
		answer.SourceCitations = append(answer.SourceCitations, model.Citation{
			Claim:  eval.Explanation,
			Source: eval.Tree.Name,
		})
	}
	if decision.Conflicting {
		answer.Conflicts = append(answer.Conflicts, "decision trees reached conflicting outcomes")
	}
	answer.Answer = b.String()
	return answer
}

func formatMatrixAnswer(result *model.RetrievalResult) *model.SynthesizedAnswer {
	matrix := result.Matrix
	if result.Empty() {
		reason := "no matrix cell matched the supplied parameters"
		if matrix != nil && len(matrix.MissingDimensions) > 0 {
			reason = fmt.Sprintf("missing criteria: %s", strings.Join(matrix.MissingDimensions, ", "))
		}
		return insufficientAnswer(reason)
	}

	answer := &model.SynthesizedAnswer{ConfidenceLevel: result.Score}
	var b strings.Builder
	for _, match := range matrix.Matches {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: %s", match.Matrix.Name, match.Cell.Value)
		answer.KeyPoints = append(answer.KeyPoints, match.Cell.Value)
		answer.SourceCitations = append(answer.SourceCitations, model.Citation{
			Claim:  match.Cell.Value,
			Source: match.Matrix.Name,
		})
		if match.Chunk != nil {
			fmt.Fprintf(&b, " (%s)", match.Chunk.Content)
		}
		if !match.Exact {
			answer.Limitations = append(answer.Limitations,
				fmt.Sprintf("%s: range-overlap match only, some dimensions unconstrained", match.Matrix.Name))
		}
	}
	if len(matrix.MissingDimensions) > 0 {
		answer.Limitations = append(answer.Limitations,
			fmt.Sprintf("missing criteria: %s", strings.Join(matrix.MissingDimensions, ", ")))
	}
	answer.Answer = b.String()
	return answer
}

// insufficientAnswer is the low-confidence result for queries the graph
// could not answer. It is a degraded answer, never an error.
func insufficientAnswer(reason string) *model.SynthesizedAnswer {
	return &model.SynthesizedAnswer{
		Answer:          "Insufficient information to answer the query.",
		ConfidenceLevel: lowConfidence,
		Limitations:     []string{reason},
	}
}

// fallbackAnswer formats whatever the fan-out gathered when synthesis
// itself failed.
func fallbackAnswer(results []*model.RetrievalResult) *model.SynthesizedAnswer {
	for _, result := range results {
		if result.Failed || result.Empty() {
			continue
		}
		var answer *model.SynthesizedAnswer
		switch result.Mode {
		case model.ModeGraphTraversal:
			answer = formatPathAnswer(result)
		case model.ModeDecisionPath:
			answer = formatDecisionAnswer(result)
		case model.ModeMatrixIntersection:
			answer = formatMatrixAnswer(result)
		default:
			answer = formatChunkAnswer(result)
		}
		answer.Limitations = append(answer.Limitations, "synthesis unavailable, answer formatted from best single strategy")
		if answer.ConfidenceLevel > 0.5 {
			answer.ConfidenceLevel = 0.5
		}
		return answer
	}
	return insufficientAnswer("all retrieval strategies returned empty results")
}
