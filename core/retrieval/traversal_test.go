package retrieval

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/guidestone/guidestone/ai/mock"
	"github.com/guidestone/guidestone/cache"
	"github.com/guidestone/guidestone/model"
	"github.com/guidestone/guidestone/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDocumentationGraph(t *testing.T, memory *store.Memory, embedder *mock.MockEmbedder) *model.Entity {
	t.Helper()

	root := &model.NavigationNode{ID: uuid.New(), Title: "Borrower Eligibility", Depth: 0}
	section := &model.NavigationNode{ID: uuid.New(), Title: "Foreign National Borrowers", Depth: 1, ParentID: &root.ID}
	memory.AddNode(root)
	memory.AddNode(section)

	content := "Foreign national borrowers require a minimum 680 FICO score and 12 months reserves."
	embedding, err := embedder.EmbedText(context.Background(), content)
	require.NoError(t, err)
	chunk := &model.HierarchicalChunk{
		ID:        uuid.New(),
		NodeID:    section.ID,
		Content:   content,
		Embedding: embedding,
		NavPath:   "Borrower Eligibility > Foreign National Borrowers",
	}
	memory.AddChunk(chunk)

	entity := &model.Entity{
		ID:      uuid.New(),
		Name:    "foreign national",
		Type:    "borrower_type",
		Aliases: []string{"foreign nationals"},
	}
	memory.AddEntity(entity)
	memory.AddEdge(chunk.ID, entity.ID, model.RelMentions)
	return entity
}

func documentationClassification() model.QueryClassification {
	return model.QueryClassification{
		Intent: model.IntentDocumentationInquiry,
		Modes:  []model.WeightedMode{{Mode: model.ModeGraphTraversal, Weight: 1.0}},
		Features: model.QueryFeatures{
			BorrowerTerms: []string{"foreign national"},
		},
	}
}

func TestGraphTraverseFromEntitySeeds(t *testing.T) {
	memory := store.NewMemory()
	embedder := mock.NewMockEmbedder()
	seedDocumentationGraph(t, memory, embedder)

	retriever := NewGraphRetriever(memory, embedder, cache.Disabled{}, nil)
	config := model.DefaultQueryConfig()

	paths, err := retriever.Traverse(context.Background(), "what do foreign national borrowers need", documentationClassification(), &config)
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		assert.GreaterOrEqual(t, path.Relevance, config.MinPathRelevance)
	}
	for i := 1; i < len(paths); i++ {
		assert.GreaterOrEqual(t, paths[i-1].Relevance, paths[i].Relevance)
	}
}

func TestGraphTraverseRelevanceFloor(t *testing.T) {
	profile := profileFor(model.IntentQualificationCheck)

	oneHop := &model.GraphPath{
		Nodes:         []model.PathNode{{Kind: model.NodeEntity}, {Kind: model.NodeSection}},
		Relationships: []model.RelationshipType{model.RelLeadsTo},
	}
	twoHops := &model.GraphPath{
		Nodes:         []model.PathNode{{Kind: model.NodeEntity}, {Kind: model.NodeSection}, {Kind: model.NodeSection}},
		Relationships: []model.RelationshipType{model.RelLeadsTo, model.RelLeadsTo},
	}

	// Without the required decision node only short paths survive the floor.
	assert.InDelta(t, 0.3, pathRelevance(oneHop, profile), 1e-9)
	assert.Less(t, pathRelevance(twoHops, profile), 0.3)

	withDecision := &model.GraphPath{
		Nodes:         []model.PathNode{{Kind: model.NodeEntity}, {Kind: model.NodeDecision}, {Kind: model.NodeOutcome}},
		Relationships: []model.RelationshipType{model.RelLeadsTo, model.RelHasOutcome},
	}
	assert.Greater(t, pathRelevance(withDecision, profile), 0.3)
}

func TestGraphTraverseCapAndTieBreak(t *testing.T) {
	memory := store.NewMemory()
	embedder := mock.NewMockEmbedder()
	seedDocumentationGraph(t, memory, embedder)

	retriever := NewGraphRetriever(memory, embedder, cache.Disabled{}, nil)
	config := model.DefaultQueryConfig()
	config.MaxPaths = 1

	paths, err := retriever.Traverse(context.Background(), "foreign national documentation", documentationClassification(), &config)
	require.NoError(t, err)
	assert.Len(t, paths, 1)
}

func TestGraphTraverseUnknownIntentUsesPolicyProfile(t *testing.T) {
	profile := profileFor(model.IntentCalculationRequest)
	assert.Equal(t, profileFor(model.IntentPolicyLookup), profile)
}

func TestGraphTraverseNoSeeds(t *testing.T) {
	memory := store.NewMemory()
	embedder := mock.NewMockEmbedder()

	retriever := NewGraphRetriever(memory, embedder, cache.Disabled{}, nil)
	config := model.DefaultQueryConfig()

	paths, err := retriever.Traverse(context.Background(), "anything", model.QueryClassification{Intent: model.IntentPolicyLookup}, &config)
	require.NoError(t, err)
	assert.Empty(t, paths)
}
