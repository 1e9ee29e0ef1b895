// Package wire builds the stage collaborators (embedder, vector store,
// text models) shared by cmd/ingest and cmd/query from a single loaded
// Config, so both entrypoints construct identical backends from the
// same flags.
package wire

import (
	"context"
	"fmt"

	"typologyrag/internal/config"
	"typologyrag/internal/llm"
	"typologyrag/internal/llm/anthropic"
	"typologyrag/internal/llm/openai"
	"typologyrag/internal/obs"
	"typologyrag/internal/ontology"
	"typologyrag/internal/rag/embedder"
	"typologyrag/internal/persistence/vectorstore"
)

// Ontology loads the ontology named by cfg.OntologyPath.
func Ontology(cfg *config.Config) (*ontology.Ontology, error) {
	return ontology.Load(cfg.OntologyPath)
}

// Embedder constructs the embedder backend named by cfg.Embedding.Provider,
// wiring metrics into its CostRecorder (§4.3, §4.10).
func Embedder(cfg *config.Config, metrics obs.Metrics) (embedder.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "deterministic":
		return embedder.NewDeterministic(cfg.VectorStore.Dimension, true, 1), nil
	case "openai", "":
		return embedder.New(cfg.Embedding.APIKey, cfg.Embedding.BaseURL, cfg.Embedding.Model, cfg.VectorStore.Dimension,
			embedder.WithCostRecorder(llm.MetricsCostRecorder{Metrics: metrics})), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

// VectorStore constructs the vector-store backend named by
// cfg.VectorStore.Backend.
func VectorStore(ctx context.Context, cfg *config.Config) (vectorstore.VectorStore, error) {
	switch cfg.VectorStore.Backend {
	case "memory":
		return vectorstore.NewInMemory(cfg.VectorStore.Dimension), nil
	case "qdrant", "":
		return vectorstore.NewQdrant(ctx, cfg.VectorStore.DSN, cfg.VectorStore.APIKey, cfg.VectorStore.Collection, cfg.VectorStore.Dimension)
	default:
		return nil, fmt.Errorf("unknown vector store backend %q", cfg.VectorStore.Backend)
	}
}

// TextModel constructs the text-model Completer named by
// cfg.TextModel.Provider. It returns (nil, nil) when no API key is
// configured, since the cleaner, extractor, and filter extractor all
// degrade gracefully to a nil model.
func TextModel(cfg *config.Config) (llm.Completer, error) {
	if cfg.TextModel.APIKey == "" {
		return nil, nil
	}
	switch cfg.TextModel.Provider {
	case "anthropic":
		return anthropic.New(cfg.TextModel.APIKey, cfg.TextModel.Model), nil
	case "openai", "":
		return openai.New(cfg.TextModel.APIKey, cfg.TextModel.BaseURL, cfg.TextModel.Model), nil
	default:
		return nil, fmt.Errorf("unknown text model provider %q", cfg.TextModel.Provider)
	}
}
