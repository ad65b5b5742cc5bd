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

func seedChunks(t *testing.T, memory *store.Memory, embedder *mock.MockEmbedder, contents ...string) []*model.HierarchicalChunk {
	t.Helper()

	node := &model.NavigationNode{ID: uuid.New(), Title: "Underwriting Guidelines", Depth: 0}
	memory.AddNode(node)

	chunks := make([]*model.HierarchicalChunk, 0, len(contents))
	for _, content := range contents {
		embedding, err := embedder.EmbedText(context.Background(), content)
		require.NoError(t, err)
		chunk := &model.HierarchicalChunk{
			ID:        uuid.New(),
			NodeID:    node.ID,
			Content:   content,
			Embedding: embedding,
			NavPath:   "Underwriting Guidelines",
		}
		memory.AddChunk(chunk)
		chunks = append(chunks, chunk)
	}
	return chunks
}

func TestVectorRetrieveRanksByVocabulary(t *testing.T) {
	memory := store.NewMemory()
	embedder := mock.NewMockEmbedder()
	seedChunks(t, memory, embedder,
		"Foreign national borrowers require a minimum 680 FICO score.",
		"Appraisals must be dated within 120 days of closing.",
		"Gift funds are allowed on primary residence purchases.",
	)

	retriever := NewVectorRetriever(memory, embedder, cache.Disabled{}, nil)
	config := model.DefaultQueryConfig()

	classification := model.QueryClassification{Intent: model.IntentPolicyLookup}
	results, err := retriever.Retrieve(context.Background(), "what fico score do foreign national borrowers need", classification, &config)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Chunk.Content, "Foreign national")
	assert.Greater(t, results[0].Similarity, results[len(results)-1].Similarity)
}

func TestVectorRetrieveTruncatesToTopK(t *testing.T) {
	memory := store.NewMemory()
	embedder := mock.NewMockEmbedder()
	seedChunks(t, memory, embedder,
		"fico requirements one", "fico requirements two", "fico requirements three", "fico requirements four",
	)

	retriever := NewVectorRetriever(memory, embedder, cache.Disabled{}, nil)
	config := model.DefaultQueryConfig()
	config.TopK = 2

	results, err := retriever.Retrieve(context.Background(), "fico requirements", model.QueryClassification{Intent: model.IntentPolicyLookup}, &config)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestVectorRetrieveThresholdFiltersAll(t *testing.T) {
	memory := store.NewMemory()
	embedder := mock.NewMockEmbedder()
	seedChunks(t, memory, embedder, "completely unrelated appraisal content")

	retriever := NewVectorRetriever(memory, embedder, cache.Disabled{}, nil)
	config := model.DefaultQueryConfig()
	config.SimilarityThreshold = 0.99

	results, err := retriever.Retrieve(context.Background(), "foreign national fico", model.QueryClassification{Intent: model.IntentPolicyLookup}, &config)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVectorRetrieveEnrichesWithNodeAndSiblings(t *testing.T) {
	memory := store.NewMemory()
	embedder := mock.NewMockEmbedder()
	chunks := seedChunks(t, memory, embedder,
		"reserves of six months are required",
		"reserves may be waived with compensating factors",
	)

	retriever := NewVectorRetriever(memory, embedder, cache.Disabled{}, nil)
	config := model.DefaultQueryConfig()

	results, err := retriever.Retrieve(context.Background(), "reserves required", model.QueryClassification{Intent: model.IntentPolicyLookup}, &config)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	top := results[0]
	require.NotNil(t, top.Node)
	assert.Equal(t, "Underwriting Guidelines", top.Node.Title)
	require.Len(t, top.Siblings, 1)
	assert.NotEqual(t, top.Chunk.ID, top.Siblings[0].ID)
	_ = chunks
}

func TestVectorRetrieveBlendsDomainContextForQualification(t *testing.T) {
	memory := store.NewMemory()
	embedder := mock.NewMockEmbedder()
	seedChunks(t, memory, embedder, "borrower qualification requirements for eligibility")

	retriever := NewVectorRetriever(memory, embedder, cache.Disabled{}, nil)
	config := model.DefaultQueryConfig()

	embedder.Reset()
	_, err := retriever.Retrieve(context.Background(), "can they qualify", model.QueryClassification{Intent: model.IntentQualificationCheck}, &config)
	require.NoError(t, err)
	// Raw query plus the domain-context variant.
	assert.Equal(t, 2, embedder.CallCount())
}

func TestVectorRetrieveEmbedderFailure(t *testing.T) {
	memory := store.NewMemory()
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, context.DeadlineExceeded
	}

	retriever := NewVectorRetriever(memory, embedder, cache.Disabled{}, nil)
	config := model.DefaultQueryConfig()

	_, err := retriever.Retrieve(context.Background(), "anything", model.QueryClassification{Intent: model.IntentPolicyLookup}, &config)
	assert.Error(t, err)
}
