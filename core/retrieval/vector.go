package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/guidestone/guidestone/ai"
	"github.com/guidestone/guidestone/cache"
	"github.com/guidestone/guidestone/helper"
	"github.com/guidestone/guidestone/model"
	"github.com/guidestone/guidestone/store"
)

// VectorRetriever performs embedding based similarity search with
// hierarchical enrichment and multi-signal re-ranking.
type VectorRetriever struct {
	store    store.GraphStore
	embedder ai.Embedder
	cache    cache.Cache
	logger   *slog.Logger
}

// NewVectorRetriever creates a new vector retriever.
func NewVectorRetriever(graphStore store.GraphStore, embedder ai.Embedder, c cache.Cache, logger *slog.Logger) *VectorRetriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &VectorRetriever{store: graphStore, embedder: embedder, cache: c, logger: logger}
}

// Retrieve returns at most config.TopK re-ranked chunk results. Candidates
// are over-retrieved at twice TopK before re-ranking so enrichment signals
// can promote lower-similarity chunks.
func (r *VectorRetriever) Retrieve(ctx context.Context, query string, classification model.QueryClassification, config *model.QueryConfig) ([]*model.ChunkResult, error) {
	embedding, err := r.queryEmbedding(ctx, query, classification.Intent)
	if err != nil {
		return nil, helper.NewError("embed query", err)
	}

	hits, err := r.store.VectorSearch(ctx, embedding, 2*config.TopK, config.PackageContext)
	if err != nil {
		return nil, helper.NewError("vector search", err)
	}

	results := make([]*model.ChunkResult, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < config.SimilarityThreshold {
			continue
		}
		result := &model.ChunkResult{Chunk: hit.Chunk, Similarity: hit.Score}

		// Enrichment is best effort; a failed lookup leaves the signal at zero.
		if node, err := r.store.NavigationNode(ctx, hit.Chunk.NodeID); err == nil {
			result.Node = node
		}
		if siblings, err := r.store.SiblingChunks(ctx, hit.Chunk.ID); err == nil {
			result.Siblings = siblings
		}

		result.Score = r.rank(query, classification, config, result)
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > config.TopK {
		results = results[:config.TopK]
	}

	r.logger.Debug("vector retrieval complete",
		slog.Int("candidates", len(hits)),
		slog.Int("results", len(results)),
	)
	return results, nil
}

// queryEmbedding embeds the query, blending in a domain-context embedding
// for intents that benefit from underwriting vocabulary.
func (r *VectorRetriever) queryEmbedding(ctx context.Context, query string, intent model.QueryIntent) ([]float32, error) {
	raw, err := embedCached(ctx, r.cache, r.embedder, "query", query)
	if err != nil {
		return nil, err
	}
	if intent != model.IntentQualificationCheck && intent != model.IntentCalculationRequest {
		return raw, nil
	}
	contextual, err := embedCached(ctx, r.cache, r.embedder, "query-ctx", query+" "+domainContext)
	if err != nil {
		return raw, nil
	}
	return ai.BlendEmbeddings(raw, contextual, 0.8, 0.2), nil
}

// rank combines the similarity score with navigation, entity, and decision
// signals using the configured weights.
func (r *VectorRetriever) rank(query string, classification model.QueryClassification, config *model.QueryConfig, result *model.ChunkResult) float64 {
	score := config.VectorWeight * result.Similarity

	if result.Node != nil {
		nav := tokenOverlap(query, result.Node.Title+" "+result.Node.Summary)
		score += config.NavigationWeight * nav
	}

	score += config.EntityWeight * entityOverlap(classification.Features, result.Chunk.Content)

	if classification.HasMode(model.ModeDecisionPath) || classification.HasMode(model.ModeMatrixIntersection) {
		score += config.DecisionWeight * decisionRelevance(result.Chunk.Content)
	}

	return score
}

// entityOverlap measures how many domain terms detected in the query appear
// in the chunk content.
func entityOverlap(features model.QueryFeatures, content string) float64 {
	terms := append([]string{}, features.ProgramTerms...)
	terms = append(terms, features.BorrowerTerms...)
	terms = append(terms, features.PropertyTerms...)
	terms = append(terms, features.DocumentationTerms...)
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	matched := 0
	for _, t := range terms {
		if strings.Contains(lower, t) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

// decisionRelevance gives a small boost to rule-bearing prose when the query
// is headed for decision or matrix evaluation.
func decisionRelevance(content string) float64 {
	lower := strings.ToLower(content)
	for _, marker := range []string{"must ", "shall ", "require", "minimum", "maximum", "not permitted", "not allowed"} {
		if strings.Contains(lower, marker) {
			return 1
		}
	}
	return 0
}
