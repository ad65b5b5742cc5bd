package retrieval

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/guidestone/guidestone/ai"
	"github.com/guidestone/guidestone/cache"
	"github.com/guidestone/guidestone/helper"
	"github.com/guidestone/guidestone/model"
	"github.com/guidestone/guidestone/store"
)

// traversalProfile is the fixed per-intent traversal strategy: which
// relationships to follow, how deep, in which direction, which end node
// kinds to keep, and how path relevance is weighted.
type traversalProfile struct {
	spec            store.TraversalSpec
	requiredKind    model.NodeKind
	proximityWeight float64
	bonusWeight     float64
}

var traversalProfiles = map[model.QueryIntent]traversalProfile{
	model.IntentQualificationCheck: {
		spec: store.TraversalSpec{
			Relationships: []model.RelationshipType{model.RelLeadsTo, model.RelHasOutcome},
			MaxDepth:      5,
			Direction:     store.DirectionOutgoing,
		},
		requiredKind:    model.NodeDecision,
		proximityWeight: 0.6,
		bonusWeight:     0.4,
	},
	model.IntentDocumentationInquiry: {
		spec: store.TraversalSpec{
			Relationships: []model.RelationshipType{model.RelMentions, model.RelReferences, model.RelSameAs},
			MaxDepth:      3,
			Direction:     store.DirectionBoth,
		},
		requiredKind:    model.NodeEntity,
		proximityWeight: 0.7,
		bonusWeight:     0.3,
	},
	model.IntentPolicyLookup: {
		spec: store.TraversalSpec{
			Relationships: []model.RelationshipType{model.RelHasChild, model.RelReferences, model.RelHasChunk},
			MaxDepth:      4,
			Direction:     store.DirectionBoth,
		},
		requiredKind:    model.NodeSection,
		proximityWeight: 0.7,
		bonusWeight:     0.3,
	},
}

// profileFor falls back to the policy-lookup profile for intents without a
// dedicated traversal strategy.
func profileFor(intent model.QueryIntent) traversalProfile {
	if p, ok := traversalProfiles[intent]; ok {
		return p
	}
	return traversalProfiles[model.IntentPolicyLookup]
}

// GraphRetriever walks the knowledge graph outward from seed nodes
// following an intent-specific strategy, scoring paths by proximity and
// required-kind bonuses.
type GraphRetriever struct {
	store    store.GraphStore
	embedder ai.Embedder
	cache    cache.Cache
	logger   *slog.Logger

	seedLimit int
}

// NewGraphRetriever creates a new graph traversal retriever.
func NewGraphRetriever(graphStore store.GraphStore, embedder ai.Embedder, c cache.Cache, logger *slog.Logger) *GraphRetriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphRetriever{store: graphStore, embedder: embedder, cache: c, logger: logger, seedLimit: 3}
}

// Traverse finds seed nodes from entity matches and top vector hits, walks
// outward per the intent profile, and returns scored paths above the
// minimum relevance threshold.
func (r *GraphRetriever) Traverse(ctx context.Context, query string, classification model.QueryClassification, config *model.QueryConfig) ([]*model.GraphPath, error) {
	seeds, err := r.seedNodes(ctx, query, classification, config)
	if err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return nil, nil
	}

	profile := profileFor(classification.Intent)

	var paths []*model.GraphPath
	seen := map[uuid.UUID]bool{}
	for _, seed := range seeds {
		if seen[seed] {
			continue
		}
		seen[seed] = true

		found, err := r.store.Traverse(ctx, seed, profile.spec)
		if err == store.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, helper.NewError("graph traversal", err)
		}
		for _, path := range found {
			path.Relevance = pathRelevance(path, profile)
			if path.Relevance >= config.MinPathRelevance {
				paths = append(paths, path)
			}
		}
	}

	sort.SliceStable(paths, func(i, j int) bool {
		if paths[i].Relevance != paths[j].Relevance {
			return paths[i].Relevance > paths[j].Relevance
		}
		return paths[i].Hops() < paths[j].Hops()
	})
	if len(paths) > config.MaxPaths {
		paths = paths[:config.MaxPaths]
	}

	r.logger.Debug("graph traversal complete",
		slog.Int("seeds", len(seeds)),
		slog.Int("paths", len(paths)),
	)
	return paths, nil
}

// seedNodes collects traversal start points: entities matched by the
// query's domain terms plus the owning nodes of the top vector hits.
func (r *GraphRetriever) seedNodes(ctx context.Context, query string, classification model.QueryClassification, config *model.QueryConfig) ([]uuid.UUID, error) {
	var seeds []uuid.UUID

	terms := append([]string{}, classification.Features.ProgramTerms...)
	terms = append(terms, classification.Features.BorrowerTerms...)
	terms = append(terms, classification.Features.PropertyTerms...)
	terms = append(terms, classification.Features.DocumentationTerms...)
	if len(terms) > 0 {
		entities, err := r.store.FindEntities(ctx, terms, config.PackageContext)
		if err != nil {
			return nil, helper.NewError("find entities", err)
		}
		for _, e := range entities {
			seeds = append(seeds, e.ID)
		}
	}

	embedding, err := embedCached(ctx, r.cache, r.embedder, "query", query)
	if err != nil {
		// Entity seeds alone are still workable.
		return seeds, nil
	}
	hits, err := r.store.VectorSearch(ctx, embedding, r.seedLimit, config.PackageContext)
	if err != nil {
		return nil, helper.NewError("seed vector search", err)
	}
	for _, hit := range hits {
		if hit.Chunk.NodeID != uuid.Nil {
			seeds = append(seeds, hit.Chunk.NodeID)
		}
	}

	return seeds, nil
}

// pathRelevance is a weighted sum of an inverse-length proximity term and a
// bonus when the path passes through the profile's required node kind.
func pathRelevance(path *model.GraphPath, profile traversalProfile) float64 {
	proximity := 1.0 / float64(1+path.Hops())
	bonus := 0.0
	if path.Contains(profile.requiredKind) {
		bonus = 1.0
	}
	return profile.proximityWeight*proximity + profile.bonusWeight*bonus
}
