// Package config loads the process configuration: a YAML file decoded into
// a Config struct, then overridden field-by-field from environment
// variables so secrets and per-deployment values never need to live on
// disk.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"typologyrag/internal/rag/errs"
)

// VectorStoreConfig configures the vector-store backend (§6.5, §4.7).
type VectorStoreConfig struct {
	Backend    string `yaml:"backend"`    // "qdrant" or "memory"
	DSN        string `yaml:"dsn"`        // e.g. "localhost:6334"
	Collection string `yaml:"collection"` // collection/table name
	APIKey     string `yaml:"api_key,omitempty"`
	Dimension  int    `yaml:"dimension"` // embedding vector width
	BatchSize  int    `yaml:"batch_size"`
}

// EmbeddingConfig configures the embedding model (C7).
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // "openai" or "deterministic"
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
}

// TextModelConfig configures the external text model used by the LM
// cleaner (C3), metadata extractor (C5), and optional filter extractor
// (C8).
type TextModelConfig struct {
	Provider    string  `yaml:"provider"` // "openai" or "anthropic"
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// RetrievalConfig holds query planning and re-ranking thresholds
// (§4.8, §4.9). These values are loaded and can be overridden from the
// environment, but nothing reads them: the planner and re-ranker use
// their own constants (query.PlannerConfidenceGate,
// retrieve.SimilarityFloor, and top-k values of 30 and 50).
type RetrievalConfig struct {
	PlannerConfidenceGate float64 `yaml:"planner_confidence_gate"`
	SimilarityFloor       float64 `yaml:"similarity_floor"`
	DefaultK              int     `yaml:"default_k"`
	LowConfidenceK        int     `yaml:"low_confidence_k"`
}

// Config is the top-level process configuration.
type Config struct {
	OntologyPath string            `yaml:"ontology_path"`
	VectorStore  VectorStoreConfig `yaml:"vector_store"`
	Embedding    EmbeddingConfig   `yaml:"embedding"`
	TextModel    TextModelConfig   `yaml:"text_model"`
	Retrieval    RetrievalConfig   `yaml:"retrieval"`
}

// Load reads filename as YAML, applies defaults for fields awkward to
// express as zero values, then overrides from environment variables.
// A missing or malformed config file is a fatal ConfigError.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: read config file %q: %v", errs.ErrConfig, filename, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal config file %q: %v", errs.ErrConfig, filename, err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.OntologyPath == "" {
		return nil, fmt.Errorf("%w: ontology_path is required", errs.ErrConfig)
	}
	if cfg.VectorStore.Dimension <= 0 {
		return nil, fmt.Errorf("%w: vector_store.dimension must be positive", errs.ErrConfig)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.VectorStore.Backend == "" {
		cfg.VectorStore.Backend = "qdrant"
	}
	if cfg.VectorStore.BatchSize <= 0 {
		cfg.VectorStore.BatchSize = 100
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.TextModel.Provider == "" {
		cfg.TextModel.Provider = "openai"
	}
	if cfg.TextModel.MaxTokens <= 0 {
		cfg.TextModel.MaxTokens = 1500
	}
	if cfg.Retrieval.PlannerConfidenceGate <= 0 {
		cfg.Retrieval.PlannerConfidenceGate = 0.6
	}
	if cfg.Retrieval.SimilarityFloor <= 0 {
		cfg.Retrieval.SimilarityFloor = 0.60
	}
	if cfg.Retrieval.DefaultK <= 0 {
		cfg.Retrieval.DefaultK = 10
	}
	if cfg.Retrieval.LowConfidenceK <= 0 {
		cfg.Retrieval.LowConfidenceK = 50
	}
}

// applyEnvOverrides overrides secrets and deployment-specific values from
// the environment. Mirrors the teacher's env-override-after-decode
// convention: empty env values never clobber a value already set from
// YAML.
func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("ONTOLOGY_PATH")); v != "" {
		cfg.OntologyPath = v
	}
	if v := strings.TrimSpace(os.Getenv("VECTOR_STORE_DSN")); v != "" {
		cfg.VectorStore.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("VECTOR_STORE_API_KEY")); v != "" {
		cfg.VectorStore.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("VECTOR_STORE_COLLECTION")); v != "" {
		cfg.VectorStore.Collection = v
	}
	if v := strings.TrimSpace(os.Getenv("EMBEDDING_API_KEY")); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("EMBEDDING_MODEL")); v != "" {
		cfg.Embedding.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("EMBEDDING_BASE_URL")); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("TEXT_MODEL_PROVIDER")); v != "" {
		cfg.TextModel.Provider = v
	}
	if v := strings.TrimSpace(os.Getenv("TEXT_MODEL_API_KEY")); v != "" {
		cfg.TextModel.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("TEXT_MODEL_MODEL")); v != "" {
		cfg.TextModel.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("TEXT_MODEL_BASE_URL")); v != "" {
		cfg.TextModel.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("RETRIEVAL_SIMILARITY_FLOOR")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Retrieval.SimilarityFloor = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("RETRIEVAL_PLANNER_CONFIDENCE_GATE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Retrieval.PlannerConfidenceGate = f
		}
	}
}
