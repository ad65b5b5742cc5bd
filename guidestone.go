// Package guidestone answers natural-language questions against a
// multi-layer mortgage guideline knowledge graph. Queries are classified by
// intent, routed through one or more retrieval strategies (vector
// similarity, graph traversal, decision path evaluation, matrix
// intersection), and synthesized into a single validated answer.
package guidestone

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/guidestone/guidestone/ai"
	"github.com/guidestone/guidestone/ai/local"
	"github.com/guidestone/guidestone/ai/openai"
	"github.com/guidestone/guidestone/cache"
	"github.com/guidestone/guidestone/config"
	"github.com/guidestone/guidestone/core/classifier"
	"github.com/guidestone/guidestone/core/orchestrator"
	"github.com/guidestone/guidestone/core/retrieval"
	"github.com/guidestone/guidestone/helper"
	"github.com/guidestone/guidestone/model"
	"github.com/guidestone/guidestone/store"
)

// Engine is the unified entry point wiring the store, AI capabilities,
// cache, and query orchestrator together.
type Engine struct {
	Store store.GraphStore
	AI    ai.Provider
	Cache cache.Cache

	orchestrator *orchestrator.Orchestrator
	log          *slog.Logger
}

// New creates an Engine from configuration, constructing the configured
// store backend and AI provider.
func New(ctx context.Context, cfg *config.Config) (*Engine, error) {
	logger := helper.NewLogger(os.Stdout, logLevel(cfg.LogLevel))

	graphStore, err := newStore(ctx, cfg)
	if err != nil {
		return nil, helper.NewError("create graph store", err)
	}

	provider, err := newProvider(cfg)
	if err != nil {
		return nil, helper.NewError("create ai provider", err)
	}

	var c cache.Cache = cache.Disabled{}
	if cfg.Cache.Enabled {
		ristretto, err := cache.NewRistretto(cfg.Cache.MaxCost)
		if err != nil {
			return nil, helper.NewError("create cache", err)
		}
		c = ristretto
	}

	return NewWithComponents(graphStore, provider, c, cfg.QueryConfig(), logger)
}

// NewWithComponents wires an Engine from already constructed parts. This is
// the injection point for tests and embedders with custom stores.
func NewWithComponents(graphStore store.GraphStore, provider ai.Provider, c cache.Cache, queryConfig model.QueryConfig, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = helper.NewLogger(os.Stdout, slog.LevelInfo)
	}

	queryClassifier := classifier.New(logger)
	vector := retrieval.NewVectorRetriever(graphStore, provider.Embedder(), c, logger)
	graph := retrieval.NewGraphRetriever(graphStore, provider.Embedder(), c, logger)
	decision := retrieval.NewDecisionRetriever(graphStore, provider.Embedder(), c, logger)
	matrix := retrieval.NewMatrixRetriever(graphStore, logger)
	synthesizer := retrieval.NewSynthesizer(provider.Completer(), logger)

	orch, err := orchestrator.New(queryClassifier, vector, graph, decision, matrix, synthesizer, queryConfig, logger)
	if err != nil {
		return nil, helper.NewError("create orchestrator", err)
	}

	return &Engine{
		Store:        graphStore,
		AI:           provider,
		Cache:        c,
		orchestrator: orch,
		log:          logger,
	}, nil
}

// Ask answers a single query. Upstream store unavailability is returned as
// an error; everything else degrades to a low-confidence answer.
func (e *Engine) Ask(ctx context.Context, req model.QueryRequest) (*model.QueryResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, helper.NewError("ask", fmt.Errorf("query cannot be empty"))
	}
	return e.orchestrator.Process(ctx, req)
}

// Health checks the underlying graph store.
func (e *Engine) Health(ctx context.Context) error {
	return e.Store.Health(ctx)
}

// Close releases the orchestrator pool, cache, AI provider, and store.
func (e *Engine) Close(ctx context.Context) error {
	e.orchestrator.Close()
	e.Cache.Close()
	if err := e.AI.Close(); err != nil {
		return helper.NewError("close ai provider", err)
	}
	return e.Store.Close(ctx)
}

func newStore(ctx context.Context, cfg *config.Config) (store.GraphStore, error) {
	switch cfg.Store.Backend {
	case "memory":
		return store.NewMemory(), nil
	case "neo4j":
		neo4jConfig := store.DefaultNeo4jConfig()
		neo4jConfig.URI = cfg.Store.Neo4j.URI
		neo4jConfig.Username = cfg.Store.Neo4j.Username
		neo4jConfig.Password = cfg.Store.Neo4j.Password
		neo4jConfig.Database = cfg.Store.Neo4j.Database
		neo4jConfig.VectorIndex = cfg.Store.Neo4j.VectorIndex
		return store.NewNeo4j(ctx, neo4jConfig)
	case "postgres":
		postgresConfig := store.DefaultPostgresConfig()
		postgresConfig.Host = cfg.Store.Postgres.Host
		postgresConfig.Port = cfg.Store.Postgres.Port
		postgresConfig.Name = cfg.Store.Postgres.Name
		postgresConfig.Username = cfg.Store.Postgres.Username
		postgresConfig.Password = cfg.Store.Postgres.Password
		postgresConfig.SSLMode = cfg.Store.Postgres.SSLMode
		return store.NewPostgres(ctx, postgresConfig)
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

func newProvider(cfg *config.Config) (ai.Provider, error) {
	apiConfig := &openai.Config{
		Host:              cfg.AI.Host,
		Token:             cfg.AI.Token,
		EmbeddingModel:    cfg.AI.EmbeddingModel,
		CompletionModel:   cfg.AI.CompletionModel,
		Temperature:       cfg.AI.Temperature,
		MaxTokens:         cfg.AI.MaxTokens,
		RequestsPerSecond: cfg.AI.RequestsPerSecond,
	}

	switch cfg.AI.Provider {
	case "openai":
		return openai.NewProvider(apiConfig)
	case "local":
		// Local in-process embeddings, API completions.
		embedder, err := local.NewEmbedder("sentence-transformers/all-MiniLM-L6-v2", "")
		if err != nil {
			return nil, err
		}
		api, err := openai.NewProvider(apiConfig)
		if err != nil {
			embedder.Close()
			return nil, err
		}
		return &localProvider{embedder: embedder, api: api}, nil
	}
	return nil, fmt.Errorf("unknown ai provider %q", cfg.AI.Provider)
}

// localProvider pairs the in-process embedding model with an API-backed
// completer.
type localProvider struct {
	embedder *local.Embedder
	api      ai.Provider
}

func (p *localProvider) Embedder() ai.Embedder   { return p.embedder }
func (p *localProvider) Completer() ai.Completer { return p.api.Completer() }

func (p *localProvider) Close() error {
	if err := p.embedder.Close(); err != nil {
		return err
	}
	return p.api.Close()
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
