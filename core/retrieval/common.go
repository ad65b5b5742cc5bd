// Package retrieval implements the five retrieval strategies of the engine:
// vector similarity, graph traversal, decision path evaluation, matrix
// intersection, and hybrid synthesis. Each retriever is best-effort; the
// orchestrator converts errors into empty per-mode results.
package retrieval

import (
	"context"
	"strings"
	"time"

	"github.com/guidestone/guidestone/ai"
	"github.com/guidestone/guidestone/cache"
)

// domainContext is the fixed string blended into the query embedding for
// qualification and calculation intents to pull results toward underwriting
// language.
const domainContext = "mortgage underwriting guidelines borrower qualification requirements loan eligibility criteria"

const embeddingTTL = 15 * time.Minute

// embedCached embeds text through the cache. Cache misses fall through to
// the embedder; failures are returned as-is so callers can degrade.
func embedCached(ctx context.Context, c cache.Cache, embedder ai.Embedder, kind string, text string) ([]float32, error) {
	key := cache.Key(kind, text)
	if v, ok := c.Get(key); ok {
		if emb, ok := v.([]float32); ok {
			return emb, nil
		}
	}
	emb, err := embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	c.Set(key, emb, embeddingTTL)
	return emb, nil
}

// tokenOverlap computes the fraction of tokens of a that also appear in b.
// Tokens shorter than three runes are ignored as noise.
func tokenOverlap(a, b string) float64 {
	tokensA := significantTokens(a)
	if len(tokensA) == 0 {
		return 0
	}
	tokensB := map[string]bool{}
	for _, t := range significantTokens(b) {
		tokensB[t] = true
	}
	matched := 0
	for _, t := range tokensA {
		if tokensB[t] {
			matched++
		}
	}
	return float64(matched) / float64(len(tokensA))
}

func significantTokens(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	var out []string
	for _, f := range fields {
		if len(f) >= 3 {
			out = append(out, f)
		}
	}
	return out
}
