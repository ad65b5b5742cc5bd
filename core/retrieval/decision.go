package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/guidestone/guidestone/ai"
	"github.com/guidestone/guidestone/cache"
	"github.com/guidestone/guidestone/helper"
	"github.com/guidestone/guidestone/model"
	"github.com/guidestone/guidestone/store"
)

const (
	treeCombinedThreshold = 0.4
	treeSemanticThreshold = 0.7
)

// intentTreeRelevance maps intents to how relevant decision-tree evaluation
// is for them.
var intentTreeRelevance = map[model.QueryIntent]float64{
	model.IntentQualificationCheck: 1.0,
	model.IntentExceptionInquiry:   0.8,
	model.IntentComparisonAnalysis: 0.5,
}

// DecisionRetriever locates relevant decision trees and evaluates them
// against supplied case parameters.
type DecisionRetriever struct {
	store    store.GraphStore
	embedder ai.Embedder
	cache    cache.Cache
	logger   *slog.Logger
}

// NewDecisionRetriever creates a new decision path retriever.
func NewDecisionRetriever(graphStore store.GraphStore, embedder ai.Embedder, c cache.Cache, logger *slog.Logger) *DecisionRetriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &DecisionRetriever{store: graphStore, embedder: embedder, cache: c, logger: logger}
}

// Evaluate selects candidate trees, walks each against the case parameters,
// and reports every tree's outcome. Conflicting outcomes across trees are
// surfaced, never silently resolved.
func (r *DecisionRetriever) Evaluate(ctx context.Context, query string, params map[string]any, classification model.QueryClassification, config *model.QueryConfig) (*model.DecisionPathResult, error) {
	trees, err := r.selectTrees(ctx, query, classification, config)
	if err != nil {
		return nil, err
	}
	if len(trees) == 0 {
		return &model.DecisionPathResult{Explanation: "no decision tree matched the query"}, nil
	}

	result := &model.DecisionPathResult{}
	outcomes := map[string]bool{}
	for _, scored := range trees {
		nodes, err := r.store.TreeNodes(ctx, scored.tree.ID)
		if err == store.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, helper.NewError("load tree nodes", err)
		}

		eval := walkTree(scored.tree, nodes, params)
		eval.SelectionScore = scored.score
		result.Evaluations = append(result.Evaluations, eval)
		if eval.Outcome != nil {
			outcomes[eval.Outcome.Category] = true
		}
	}

	result.Conflicting = len(outcomes) > 1
	result.Explanation = summarizeEvaluations(result)

	r.logger.Debug("decision evaluation complete",
		slog.Int("trees", len(result.Evaluations)),
		slog.Bool("conflicting", result.Conflicting),
	)
	return result, nil
}

type scoredTree struct {
	tree  *model.DecisionTree
	score float64
}

// selectTrees ranks candidate trees by semantic similarity of the query to
// the tree summary, intent relevance, and completeness. Trees pass on a
// combined threshold or a high semantic similarity alone.
func (r *DecisionRetriever) selectTrees(ctx context.Context, query string, classification model.QueryClassification, config *model.QueryConfig) ([]scoredTree, error) {
	trees, err := r.store.DecisionTrees(ctx, config.PackageContext)
	if err != nil {
		return nil, helper.NewError("list decision trees", err)
	}
	if len(trees) == 0 {
		return nil, nil
	}

	intentScore := intentTreeRelevance[classification.Intent]
	if intentScore == 0 {
		intentScore = 0.3
	}

	queryEmbedding, embedErr := embedCached(ctx, r.cache, r.embedder, "query", query)

	var selected []scoredTree
	for _, tree := range trees {
		semantic := r.treeSimilarity(ctx, queryEmbedding, embedErr, query, tree)

		complete := 0.0
		if tree.Complete {
			complete = 1.0
		}
		combined := 0.4*semantic + 0.4*intentScore + 0.2*complete
		if combined >= treeCombinedThreshold || semantic >= treeSemanticThreshold {
			selected = append(selected, scoredTree{tree: tree, score: combined})
		}
	}

	sort.SliceStable(selected, func(i, j int) bool { return selected[i].score > selected[j].score })
	if len(selected) > config.MaxTrees {
		selected = selected[:config.MaxTrees]
	}
	return selected, nil
}

// treeSimilarity uses cosine similarity of the summary embedding when
// embeddings are available, falling back to token overlap.
func (r *DecisionRetriever) treeSimilarity(ctx context.Context, queryEmbedding []float32, embedErr error, query string, tree *model.DecisionTree) float64 {
	summary := tree.Name + " " + tree.Summary
	if embedErr == nil {
		if summaryEmbedding, err := embedCached(ctx, r.cache, r.embedder, "tree-summary", summary); err == nil {
			return ai.CosineSimilarity(queryEmbedding, summaryEmbedding)
		}
	}
	return tokenOverlap(query, summary)
}

// walkTree runs the evaluation state machine: from the root, conditions
// route to the true or false successor; indeterminate conditions route to
// the exception successor or halt the walk as incomplete.
func walkTree(tree *model.DecisionTree, nodes map[uuid.UUID]*model.DecisionNode, params map[string]any) *model.TreeEvaluation {
	eval := &model.TreeEvaluation{Tree: tree}

	current := nodes[tree.RootID]
	visited := map[uuid.UUID]bool{}
	for current != nil {
		if visited[current.ID] {
			eval.Incomplete = true
			eval.Explanation = fmt.Sprintf("evaluation of %s halted: cycle at node %s", tree.Name, current.Label)
			return eval
		}
		visited[current.ID] = true

		if current.Type == model.DecisionLeaf {
			eval.Steps = append(eval.Steps, model.EvaluationStep{
				NodeID: current.ID,
				Label:  current.Label,
				Branch: "outcome",
			})
			eval.Outcome = current.Outcome
			eval.Explanation = explainWalk(tree, eval)
			return eval
		}

		if current.Condition == nil {
			eval.Incomplete = true
			eval.Explanation = fmt.Sprintf("evaluation of %s halted: node %s has no condition", tree.Name, current.Label)
			return eval
		}

		holds, missing := current.Condition.Evaluate(params)
		step := model.EvaluationStep{
			NodeID:    current.ID,
			Label:     current.Label,
			Condition: current.Condition.String(),
		}

		var next *uuid.UUID
		switch {
		case len(missing) > 0 && current.ExceptionID != nil:
			step.Branch = "exception"
			next = current.ExceptionID
		case len(missing) > 0:
			eval.Steps = append(eval.Steps, step)
			eval.Incomplete = true
			eval.MissingCriteria = missing
			eval.Explanation = fmt.Sprintf("evaluation of %s incomplete, missing criteria: %s", tree.Name, strings.Join(missing, ", "))
			return eval
		case holds:
			step.Branch = "true"
			next = current.TrueID
		default:
			step.Branch = "false"
			next = current.FalseID
		}
		eval.Steps = append(eval.Steps, step)

		if next == nil {
			eval.Incomplete = true
			eval.Explanation = fmt.Sprintf("evaluation of %s halted: node %s has no %s successor", tree.Name, current.Label, step.Branch)
			return eval
		}
		current = nodes[*next]
	}

	eval.Incomplete = true
	eval.Explanation = fmt.Sprintf("evaluation of %s halted: successor node not found", tree.Name)
	return eval
}

// explainWalk renders the evaluated node sequence step by step.
func explainWalk(tree *model.DecisionTree, eval *model.TreeEvaluation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "evaluated %s:", tree.Name)
	for i, step := range eval.Steps {
		if step.Branch == "outcome" {
			fmt.Fprintf(&b, " step %d: reached %s", i+1, step.Label)
			continue
		}
		fmt.Fprintf(&b, " step %d: %s (%s) -> %s;", i+1, step.Label, step.Condition, step.Branch)
	}
	if eval.Outcome != nil {
		fmt.Fprintf(&b, " outcome: %s", eval.Outcome.Category)
	}
	return b.String()
}

// summarizeEvaluations builds the combined explanation across all trees.
func summarizeEvaluations(result *model.DecisionPathResult) string {
	if len(result.Evaluations) == 0 {
		return "no decision tree matched the query"
	}
	var parts []string
	for _, eval := range result.Evaluations {
		parts = append(parts, eval.Explanation)
	}
	if result.Conflicting {
		parts = append(parts, "note: trees reached conflicting outcomes")
	}
	return strings.Join(parts, " | ")
}
