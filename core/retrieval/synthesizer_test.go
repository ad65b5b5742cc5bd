package retrieval

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/guidestone/guidestone/ai/mock"
	"github.com/guidestone/guidestone/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evidence(content string) []*model.RetrievalResult {
	return []*model.RetrievalResult{
		{
			Mode:  model.ModeVectorSimilarity,
			Score: 0.8,
			Chunks: []*model.ChunkResult{
				{
					Chunk: &model.HierarchicalChunk{
						ID:      uuid.New(),
						Content: content,
						NavPath: "Borrower Eligibility > Foreign National Borrowers",
					},
					Similarity: 0.8,
				},
			},
		},
	}
}

func TestSynthesizeFactChecksKeyPoints(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.CompleteFunc = func(ctx context.Context, system, prompt string) (string, error) {
		return `{
			"answer": "Foreign national borrowers need a 680 FICO score.",
			"key_points": [
				"foreign national borrowers require a minimum 680 FICO score",
				"lunar colonization permits are mandatory"
			],
			"confidence_level": 0.9
		}`, nil
	}

	s := NewSynthesizer(completer, nil)
	results := evidence("Foreign national borrowers require a minimum 680 FICO score and 12 months reserves.")

	answer, err := s.Synthesize(context.Background(), "what fico do foreign nationals need", results, model.QueryClassification{Intent: model.IntentPolicyLookup})
	require.NoError(t, err)

	require.Len(t, answer.Unverified, 1)
	assert.Contains(t, answer.Unverified[0], "lunar")
	assert.InDelta(t, 0.5, answer.Completeness, 1e-9)
	// 0.5*0.8 + 0.3*0.9 + 0.2*0.5
	assert.InDelta(t, 0.77, answer.ConfidenceLevel, 1e-9)
}

func TestSynthesizeStripsCodeFences(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.CompleteFunc = func(ctx context.Context, system, prompt string) (string, error) {
		return "```json\n{\"answer\": \"fenced answer\", \"confidence_level\": 0.8}\n```", nil
	}

	s := NewSynthesizer(completer, nil)
	answer, err := s.Synthesize(context.Background(), "q", evidence("some content"), model.QueryClassification{})
	require.NoError(t, err)
	assert.Equal(t, "fenced answer", answer.Answer)
}

func TestSynthesizeUnparseableOutputDegrades(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.CompleteFunc = func(ctx context.Context, system, prompt string) (string, error) {
		return "I could not produce JSON, sorry.", nil
	}

	s := NewSynthesizer(completer, nil)
	answer, err := s.Synthesize(context.Background(), "q", evidence("some content"), model.QueryClassification{})
	require.NoError(t, err)
	assert.Equal(t, "I could not produce JSON, sorry.", answer.Answer)
	assert.NotEmpty(t, answer.Limitations)
}

func TestSynthesizePromptEnumeratesModes(t *testing.T) {
	completer := mock.NewMockCompleter()
	s := NewSynthesizer(completer, nil)

	results := evidence("Foreign national borrowers require a minimum 680 FICO score.")
	results = append(results, model.FailedResult(model.ModeGraphTraversal, context.DeadlineExceeded))

	_, err := s.Synthesize(context.Background(), "what fico", results, model.QueryClassification{Intent: model.IntentPolicyLookup})
	require.NoError(t, err)

	prompts := completer.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], string(model.ModeVectorSimilarity))
	assert.Contains(t, prompts[0], string(model.ModeGraphTraversal))
	assert.Contains(t, prompts[0], "strategy failed")
}

func TestSynthesizeCompleterError(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.CompleteFunc = func(ctx context.Context, system, prompt string) (string, error) {
		return "", context.DeadlineExceeded
	}

	s := NewSynthesizer(completer, nil)
	_, err := s.Synthesize(context.Background(), "q", evidence("content"), model.QueryClassification{})
	assert.Error(t, err)
}
