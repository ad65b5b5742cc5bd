package main

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/guidestone/guidestone"
	"github.com/guidestone/guidestone/config"
	"github.com/guidestone/guidestone/model"
	"github.com/guidestone/guidestone/store"
)

// Guideline content seeded into the in-memory store. A real deployment
// queries a graph populated by the ingestion pipeline instead.
var sections = map[string]string{
	"Foreign National Borrowers": "Foreign national borrowers need a minimum FICO score of 680, a maximum LTV of 75%, and twelve months of reserves.",
	"Gift Funds":                 "Gift funds are permitted for primary residence purchases after a minimum borrower contribution of five percent.",
	"Bank Statement Income":      "Self-employed borrowers may document income with twelve or twenty-four months of personal or business bank statements.",
}

func main() {
	ctx := context.Background()

	// Defaults: in-memory store, OpenAI-compatible endpoint at
	// localhost:11434 (ollama). Override via guidestone.yaml or env.
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	engine, err := guidestone.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close(ctx)

	mem := engine.Store.(*store.Memory)
	embedder := engine.AI.Embedder()
	for title, content := range sections {
		embedding, err := embedder.EmbedText(ctx, content)
		if err != nil {
			log.Fatalf("Failed to embed %q: %v", title, err)
		}
		node := &model.NavigationNode{ID: uuid.New(), Title: title, Depth: 2}
		mem.AddNode(node)
		mem.AddChunk(&model.HierarchicalChunk{
			ID:        uuid.New(),
			NodeID:    node.ID,
			Content:   content,
			Embedding: embedding,
		})
	}

	response, err := engine.Ask(ctx, model.QueryRequest{
		Query: "What FICO score do foreign national borrowers need?",
	})
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}

	fmt.Printf("Strategy: %s (%.2f confidence, %dms)\n",
		response.StrategyUsed, response.Confidence, response.ProcessingTimeMS)
	fmt.Printf("Answer:\n%s\n", response.Result.Answer)
	for _, citation := range response.Result.SourceCitations {
		fmt.Printf("  [%s] %s\n", citation.Source, citation.Claim)
	}
}
