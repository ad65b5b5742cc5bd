package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/guidestone/guidestone/ai/mock"
	"github.com/guidestone/guidestone/cache"
	"github.com/guidestone/guidestone/core/classifier"
	"github.com/guidestone/guidestone/core/retrieval"
	"github.com/guidestone/guidestone/model"
	"github.com/guidestone/guidestone/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hybridScenarioQuery = "Suppose a self-employed foreign national borrower purchases an investment property condo with bank statement documentation under the NQM program, calculate whether any exceptions or compensating factors could still make the scenario eligible given reserves requirements"

func newTestOrchestrator(t *testing.T, mem *store.Memory, completer *mock.MockCompleter) *Orchestrator {
	t.Helper()
	embedder := mock.NewMockEmbedder()
	c := cache.Disabled{}

	o, err := New(
		classifier.New(nil),
		retrieval.NewVectorRetriever(mem, embedder, c, nil),
		retrieval.NewGraphRetriever(mem, embedder, c, nil),
		retrieval.NewDecisionRetriever(mem, embedder, c, nil),
		retrieval.NewMatrixRetriever(mem, nil),
		retrieval.NewSynthesizer(completer, nil),
		model.DefaultQueryConfig(),
		nil,
	)
	require.NoError(t, err)
	t.Cleanup(o.Close)
	return o
}

func seedGiftFundChunk(t *testing.T, mem *store.Memory) {
	t.Helper()
	embedder := mock.NewMockEmbedder()
	content := "Gift funds are permitted for primary residence purchases after a minimum borrower contribution of five percent."
	embedding, err := embedder.EmbedText(context.Background(), content)
	require.NoError(t, err)

	node := &model.NavigationNode{ID: uuid.New(), Title: "Gift Funds", Depth: 2}
	mem.AddNode(node)
	mem.AddChunk(&model.HierarchicalChunk{
		ID:        uuid.New(),
		NodeID:    node.ID,
		Content:   content,
		Embedding: embedding,
		NavPath:   "guide.assets.gift_funds",
	})
}

func TestSelectStrategy(t *testing.T) {
	tests := []struct {
		name           string
		classification model.QueryClassification
		want           model.Strategy
	}{
		{
			name:           "low complexity policy lookup",
			classification: model.QueryClassification{Intent: model.IntentPolicyLookup, Complexity: 0.2},
			want:           model.StrategySimpleVector,
		},
		{
			name:           "low complexity documentation inquiry",
			classification: model.QueryClassification{Intent: model.IntentDocumentationInquiry, Complexity: 0.25},
			want:           model.StrategySimpleVector,
		},
		{
			name: "qualification with parameters beats low complexity",
			classification: model.QueryClassification{
				Intent:     model.IntentQualificationCheck,
				Complexity: 0.2,
				Parameters: map[string]any{"fico_score": 680.0},
			},
			want: model.StrategyDecisionEvaluation,
		},
		{
			name: "calculation with numeric parameters",
			classification: model.QueryClassification{
				Intent:     model.IntentCalculationRequest,
				Complexity: 0.4,
				Parameters: map[string]any{"ltv_ratio": 0.85},
			},
			want: model.StrategyMatrixLookup,
		},
		{
			name:           "calculation without numbers falls through",
			classification: model.QueryClassification{Intent: model.IntentCalculationRequest, Complexity: 0.4},
			want:           model.StrategyGraphNavigation,
		},
		{
			name:           "process navigation regardless of complexity",
			classification: model.QueryClassification{Intent: model.IntentProcessNavigation, Complexity: 0.9},
			want:           model.StrategyGraphNavigation,
		},
		{
			name:           "moderate complexity comparison",
			classification: model.QueryClassification{Intent: model.IntentComparisonAnalysis, Complexity: 0.4},
			want:           model.StrategyGraphNavigation,
		},
		{
			name:           "complex comparison",
			classification: model.QueryClassification{Intent: model.IntentComparisonAnalysis, Complexity: 0.8},
			want:           model.StrategyHybridReasoning,
		},
		{
			name:           "qualification without parameters and high complexity",
			classification: model.QueryClassification{Intent: model.IntentQualificationCheck, Complexity: 0.6},
			want:           model.StrategyHybridReasoning,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, selectStrategy(test.classification))
		})
	}
}

func TestProcessSimpleVector(t *testing.T) {
	mem := store.NewMemory()
	seedGiftFundChunk(t, mem)
	o := newTestOrchestrator(t, mem, mock.NewMockCompleter())

	response, err := o.Process(context.Background(), model.QueryRequest{Query: "What are the guidelines on gift funds?"})
	require.NoError(t, err)

	assert.Equal(t, model.StrategySimpleVector, response.StrategyUsed)
	require.NotNil(t, response.Result)
	assert.Contains(t, response.Result.Answer, "Gift funds")
	require.NotEmpty(t, response.Result.SourceCitations)
	assert.Equal(t, "Gift Funds", response.Result.SourceCitations[0].Source)
	assert.GreaterOrEqual(t, response.ProcessingTimeMS, int64(0))
}

func TestChunkConfidenceUsesMaxSimilarity(t *testing.T) {
	// Composite re-ranking can promote a chunk whose raw similarity is
	// not the highest, so the first element is not authoritative.
	reranked := []*model.ChunkResult{
		{Similarity: 0.62, Score: 0.91},
		{Similarity: 0.88, Score: 0.74},
		{Similarity: 0.55, Score: 0.60},
	}
	assert.InDelta(t, 0.88, chunkConfidence(reranked), 1e-9)

	assert.Equal(t, 0.0, chunkConfidence(nil))
	assert.Equal(t, 1.0, chunkConfidence([]*model.ChunkResult{{Similarity: 1.3}}))
	assert.Equal(t, 0.0, chunkConfidence([]*model.ChunkResult{{Similarity: -0.2}}))
}

func TestProcessEmptyStoreDegradesNotFails(t *testing.T) {
	o := newTestOrchestrator(t, store.NewMemory(), mock.NewMockCompleter())

	response, err := o.Process(context.Background(), model.QueryRequest{Query: "What are the guidelines on gift funds?"})
	require.NoError(t, err)
	assert.Equal(t, lowConfidence, response.Confidence)
	assert.NotEmpty(t, response.Result.Limitations)
}

func TestProcessStoreUnavailableIsFatal(t *testing.T) {
	mem := store.NewMemory()
	mem.FailWith = store.ErrUnavailable
	o := newTestOrchestrator(t, mem, mock.NewMockCompleter())

	_, err := o.Process(context.Background(), model.QueryRequest{Query: "What are the guidelines on gift funds?"})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestProcessHybridSynthesizes(t *testing.T) {
	mem := store.NewMemory()
	seedGiftFundChunk(t, mem)
	completer := mock.NewMockCompleter()
	o := newTestOrchestrator(t, mem, completer)

	response, err := o.Process(context.Background(), model.QueryRequest{Query: hybridScenarioQuery})
	require.NoError(t, err)

	assert.Equal(t, model.StrategyHybridReasoning, response.StrategyUsed)
	require.NotNil(t, response.Result)
	assert.NotEmpty(t, response.Result.Answer)
	assert.Greater(t, response.Confidence, lowConfidence)
	assert.Len(t, completer.Prompts(), 1)
}

func TestProcessHybridAllModesTimedOut(t *testing.T) {
	mem := store.NewMemory()
	seedGiftFundChunk(t, mem)
	mem.Latency = 100 * time.Millisecond

	embedder := mock.NewMockEmbedder()
	c := cache.Disabled{}
	config := model.DefaultQueryConfig()
	config.VectorTimeout = time.Millisecond
	config.GraphTimeout = time.Millisecond
	config.DecisionTimeout = time.Millisecond
	config.MatrixTimeout = time.Millisecond
	config.SynthesisTimeout = time.Millisecond

	o, err := New(
		classifier.New(nil),
		retrieval.NewVectorRetriever(mem, embedder, c, nil),
		retrieval.NewGraphRetriever(mem, embedder, c, nil),
		retrieval.NewDecisionRetriever(mem, embedder, c, nil),
		retrieval.NewMatrixRetriever(mem, nil),
		retrieval.NewSynthesizer(mock.NewMockCompleter(), nil),
		config,
		nil,
	)
	require.NoError(t, err)
	defer o.Close()

	response, err := o.Process(context.Background(), model.QueryRequest{Query: hybridScenarioQuery})
	require.NoError(t, err)

	assert.Less(t, response.Confidence, 0.3)
	assert.NotEmpty(t, response.Result.Limitations)
}

func TestProcessHybridUnavailableIsFatal(t *testing.T) {
	mem := store.NewMemory()
	mem.FailWith = store.ErrUnavailable
	o := newTestOrchestrator(t, mem, mock.NewMockCompleter())

	_, err := o.Process(context.Background(), model.QueryRequest{Query: hybridScenarioQuery})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestProcessClassificationNeverFails(t *testing.T) {
	mem := store.NewMemory()
	o := newTestOrchestrator(t, mem, mock.NewMockCompleter())

	response, err := o.Process(context.Background(), model.QueryRequest{Query: "zzz qqq"})
	require.NoError(t, err)
	require.NotNil(t, response.Result)
}
