// Package config loads the engine configuration from YAML with environment
// variable overrides and defaults for anything unset.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/guidestone/guidestone/model"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Store struct {
		// Backend is "memory", "neo4j", or "postgres".
		Backend string `yaml:"backend"`

		Neo4j struct {
			URI         string `yaml:"uri"`
			Username    string `yaml:"username"`
			Password    string `yaml:"password"`
			Database    string `yaml:"database"`
			VectorIndex string `yaml:"vector_index"`
		} `yaml:"neo4j"`

		Postgres struct {
			Host     string `yaml:"host"`
			Port     string `yaml:"port"`
			Name     string `yaml:"name"`
			Username string `yaml:"username"`
			Password string `yaml:"password"`
			SSLMode  string `yaml:"ssl_mode"`
		} `yaml:"postgres"`
	} `yaml:"store"`

	AI struct {
		// Provider is "openai" for API-compatible endpoints or "local"
		// for the in-process embedding model.
		Provider          string  `yaml:"provider"`
		Host              string  `yaml:"host"`
		Token             string  `yaml:"token"`
		EmbeddingModel    string  `yaml:"embedding_model"`
		CompletionModel   string  `yaml:"completion_model"`
		Temperature       float64 `yaml:"temperature"`
		MaxTokens         int     `yaml:"max_tokens"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
	} `yaml:"ai"`

	Cache struct {
		Enabled bool  `yaml:"enabled"`
		MaxCost int64 `yaml:"max_cost"`
	} `yaml:"cache"`

	Query struct {
		TopK                int     `yaml:"top_k"`
		SimilarityThreshold float64 `yaml:"similarity_threshold"`
		MaxPaths            int     `yaml:"max_paths"`
		MaxTrees            int     `yaml:"max_trees"`
		MaxMatrices         int     `yaml:"max_matrices"`
		VectorTimeoutMS     int     `yaml:"vector_timeout_ms"`
		GraphTimeoutMS      int     `yaml:"graph_timeout_ms"`
		DecisionTimeoutMS   int     `yaml:"decision_timeout_ms"`
		MatrixTimeoutMS     int     `yaml:"matrix_timeout_ms"`
		SynthesisTimeoutMS  int     `yaml:"synthesis_timeout_ms"`
	} `yaml:"query"`

	LogLevel string `yaml:"log_level"`
}

// Load reads the config from path, falling back to default locations and
// then to pure defaults when no file exists.
func Load(path string) (*Config, error) {
	if path == "" {
		locations := []string{
			"guidestone.yaml",
			"guidestone.yml",
			filepath.Join(os.Getenv("HOME"), ".config/guidestone/config.yaml"),
			"/etc/guidestone/config.yaml",
		}
		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	config := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %v", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %v", err)
		}
	}

	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

// QueryConfig converts the query section into the engine's runtime config.
func (c *Config) QueryConfig() model.QueryConfig {
	qc := model.DefaultQueryConfig()
	if c.Query.TopK > 0 {
		qc.TopK = c.Query.TopK
	}
	if c.Query.SimilarityThreshold > 0 {
		qc.SimilarityThreshold = c.Query.SimilarityThreshold
	}
	if c.Query.MaxPaths > 0 {
		qc.MaxPaths = c.Query.MaxPaths
	}
	if c.Query.MaxTrees > 0 {
		qc.MaxTrees = c.Query.MaxTrees
	}
	if c.Query.MaxMatrices > 0 {
		qc.MaxMatrices = c.Query.MaxMatrices
	}
	if c.Query.VectorTimeoutMS > 0 {
		qc.VectorTimeout = time.Duration(c.Query.VectorTimeoutMS) * time.Millisecond
	}
	if c.Query.GraphTimeoutMS > 0 {
		qc.GraphTimeout = time.Duration(c.Query.GraphTimeoutMS) * time.Millisecond
	}
	if c.Query.DecisionTimeoutMS > 0 {
		qc.DecisionTimeout = time.Duration(c.Query.DecisionTimeoutMS) * time.Millisecond
	}
	if c.Query.MatrixTimeoutMS > 0 {
		qc.MatrixTimeout = time.Duration(c.Query.MatrixTimeoutMS) * time.Millisecond
	}
	if c.Query.SynthesisTimeoutMS > 0 {
		qc.SynthesisTimeout = time.Duration(c.Query.SynthesisTimeoutMS) * time.Millisecond
	}
	return qc
}

func applyDefaults(config *Config) {
	if config.Store.Backend == "" {
		config.Store.Backend = "memory"
	}
	if config.Store.Neo4j.URI == "" {
		config.Store.Neo4j.URI = "bolt://localhost:7687"
	}
	if config.Store.Neo4j.Username == "" {
		config.Store.Neo4j.Username = "neo4j"
	}
	if config.Store.Neo4j.VectorIndex == "" {
		config.Store.Neo4j.VectorIndex = "chunk_embedding"
	}
	if config.Store.Postgres.Host == "" {
		config.Store.Postgres.Host = "localhost"
	}
	if config.Store.Postgres.Port == "" {
		config.Store.Postgres.Port = "5432"
	}
	if config.Store.Postgres.SSLMode == "" {
		config.Store.Postgres.SSLMode = "disable"
	}

	if config.AI.Provider == "" {
		config.AI.Provider = "openai"
	}
	if config.AI.Host == "" {
		config.AI.Host = "http://localhost:11434/v1"
	}
	if config.AI.EmbeddingModel == "" {
		config.AI.EmbeddingModel = "nomic-embed-text"
	}
	if config.AI.CompletionModel == "" {
		config.AI.CompletionModel = "llama3.1"
	}
	if config.AI.Temperature == 0 {
		config.AI.Temperature = 0.1
	}
	if config.AI.MaxTokens == 0 {
		config.AI.MaxTokens = 2000
	}

	if config.Cache.MaxCost == 0 {
		config.Cache.MaxCost = 64 << 20
	}

	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
}

func mergeWithEnv(config *Config) {
	if backend := os.Getenv("GUIDESTONE_STORE_BACKEND"); backend != "" {
		config.Store.Backend = backend
	}
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Store.Neo4j.URI = uri
	}
	if password := os.Getenv("NEO4J_PASSWORD"); password != "" {
		config.Store.Neo4j.Password = password
	}
	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		config.Store.Postgres.Host = host
	}
	if password := os.Getenv("POSTGRES_PASSWORD"); password != "" {
		config.Store.Postgres.Password = password
	}
	if host := os.Getenv("GUIDESTONE_AI_HOST"); host != "" {
		config.AI.Host = host
	}
	if token := os.Getenv("GUIDESTONE_AI_TOKEN"); token != "" {
		config.AI.Token = token
	}
}
