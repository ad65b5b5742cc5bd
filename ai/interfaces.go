// Package ai defines the injected language-model and embedding capabilities
// the retrieval engine depends on. The engine never assumes synchronous
// in-process model execution; implementations live in subpackages and
// deterministic fakes in ai/mock.
package ai

import (
	"context"
	"math"
)

// Embedder generates vector embeddings from text for semantic similarity.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Completer generates a completion for a prompt. Used by the hybrid
// reasoning synthesizer; responses are expected to be JSON when the prompt
// asks for JSON, but callers must parse defensively.
type Completer interface {
	Complete(ctx context.Context, system string, prompt string) (string, error)
}

// Provider aggregates the AI capabilities for convenient wiring.
type Provider interface {
	Embedder() Embedder
	Completer() Completer
	Close() error
}

// CosineSimilarity computes the cosine similarity of two vectors.
// Returns 0 for mismatched or zero-length inputs.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// BlendEmbeddings combines two embeddings with the given weights and
// renormalizes the result to unit length.
func BlendEmbeddings(a, b []float32, wa, wb float64) []float32 {
	if len(a) == 0 {
		return b
	}
	if len(b) != len(a) {
		return a
	}
	out := make([]float32, len(a))
	var norm float64
	for i := range a {
		out[i] = float32(wa)*a[i] + float32(wb)*b[i]
		norm += float64(out[i]) * float64(out[i])
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range out {
			out[i] *= inv
		}
	}
	return out
}
