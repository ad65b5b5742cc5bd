package main

import (
	"context"
	"fmt"
	"log"

	"github.com/guidestone/guidestone"
	"github.com/guidestone/guidestone/config"
	"github.com/guidestone/guidestone/model"
)

// Queries a Neo4j knowledge graph previously populated by the ingestion
// pipeline. Expects NEO4J_URI / NEO4J_PASSWORD in the environment or a
// guidestone.yaml next to the binary.
func main() {
	ctx := context.Background()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.Store.Backend = "neo4j"
	cfg.Cache.Enabled = true

	engine, err := guidestone.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close(ctx)

	if err := engine.Health(ctx); err != nil {
		log.Fatalf("Graph store not reachable: %v", err)
	}

	// Simple lookup, answered from vector similarity alone.
	ask(ctx, engine, model.QueryRequest{
		Query: "What are the guidelines on gift funds?",
	})

	// Qualification check with case parameters, routed through decision
	// tree evaluation. Supplied parameters win over values parsed from the
	// query text.
	ask(ctx, engine, model.QueryRequest{
		Query: "Can this borrower qualify for the NQM program?",
		ContextParams: map[string]any{
			"fico_score":  705,
			"ltv_ratio":   "80%",
			"loan_amount": 1_250_000,
		},
		PackageContext: "nqm",
	})

	// Complex scenario, fanned out over multiple retrieval strategies and
	// synthesized into one answer.
	ask(ctx, engine, model.QueryRequest{
		Query: "Compare the bank statement documentation requirements for self-employed borrowers on investment property versus primary residence, including any exceptions.",
	})
}

func ask(ctx context.Context, engine *guidestone.Engine, req model.QueryRequest) {
	response, err := engine.Ask(ctx, req)
	if err != nil {
		log.Fatalf("Query %q failed: %v", req.Query, err)
	}

	fmt.Printf("\nQ: %s\n", req.Query)
	fmt.Printf("   strategy=%s confidence=%.2f time=%dms\n",
		response.StrategyUsed, response.Confidence, response.ProcessingTimeMS)
	fmt.Printf("A: %s\n", response.Result.Answer)
	for _, limitation := range response.Result.Limitations {
		fmt.Printf("   limitation: %s\n", limitation)
	}
	for _, conflict := range response.Result.Conflicts {
		fmt.Printf("   conflict: %s\n", conflict)
	}
}
