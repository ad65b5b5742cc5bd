package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// MockEmbedder is a deterministic test double for ai.Embedder.
// Custom behavior can be injected via EmbedTextFunc; the default produces a
// bag-of-words vector so texts sharing vocabulary score as similar, which
// keeps ranking assertions meaningful in tests.
type MockEmbedder struct {
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// Dim is the embedding dimensionality; defaults to 384.
	Dim int

	callCount int
}

// NewMockEmbedder creates a mock embedder with default deterministic behavior.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{Dim: 384}
}

// EmbedText generates a deterministic embedding for the text.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.callCount++

	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}

	dim := m.Dim
	if dim <= 0 {
		dim = 384
	}
	return bagOfWordsVector(text, dim), nil
}

// CallCount returns the number of calls made so far.
func (m *MockEmbedder) CallCount() int {
	return m.callCount
}

// Reset clears injected behavior and the call count.
func (m *MockEmbedder) Reset() {
	m.callCount = 0
	m.EmbedTextFunc = nil
}

// bagOfWordsVector hashes each token onto a dimension, so overlapping
// vocabulary yields overlapping vectors. Same text always yields the same
// vector.
func bagOfWordsVector(text string, dim int) []float32 {
	vector := make([]float32, dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,;:!?\"'()")
		if tok == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(tok))
		vector[int(h.Sum32())%dim] += 1
	}

	var sumSquares float32
	for _, v := range vector {
		sumSquares += v * v
	}
	if sumSquares > 0 {
		norm := float32(1.0 / math.Sqrt(float64(sumSquares)))
		for i := range vector {
			vector[i] *= norm
		}
	}

	return vector
}
