// Command ingest drives the ingestion orchestrator (C10) over one or
// more transcript files named on the command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"typologyrag/internal/config"
	"typologyrag/internal/llm"
	"typologyrag/internal/obs"
	"typologyrag/internal/rag/cleaner"
	"typologyrag/internal/rag/ingest"
	"typologyrag/internal/rag/metadata"
	"typologyrag/internal/rag/wire"
)

func main() {
	log.SetFlags(0)
	var (
		configPath = flag.String("config", "configs/config.example.yaml", "path to config YAML")
		docID      = flag.String("doc-id", "", "document id (defaults to the file's base name)")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatal("usage: ingest [-config path] [-doc-id id] <source-file> [more-files...]")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := obs.NewZeroLogger("info")
	metrics := obs.NewOtelMetrics()
	costRec := llm.MetricsCostRecorder{Metrics: metrics}

	onto, err := wire.Ontology(cfg)
	if err != nil {
		log.Fatalf("load ontology: %v", err)
	}
	emb, err := wire.Embedder(cfg, metrics)
	if err != nil {
		log.Fatalf("build embedder: %v", err)
	}
	store, err := wire.VectorStore(context.Background(), cfg)
	if err != nil {
		log.Fatalf("build vector store: %v", err)
	}
	textModel, err := wire.TextModel(cfg)
	if err != nil {
		log.Fatalf("build text model: %v", err)
	}

	cl := cleaner.New(textModel,
		cleaner.WithLogger(logger),
		cleaner.WithMetrics(metrics),
		cleaner.WithCostRecorder(costRec),
		cleaner.WithMaxTokens(cfg.TextModel.MaxTokens),
		cleaner.WithTemperature(cfg.TextModel.Temperature))
	ex := metadata.New(textModel, onto, metadata.WithLogger(logger), metadata.WithCostRecorder(costRec))

	orch := ingest.New(onto, cl, ex, emb, store, ingest.WithLogger(logger), ingest.WithMetrics(metrics))

	for _, path := range flag.Args() {
		if err := ingestFile(orch, path, *docID); err != nil {
			log.Fatalf("ingest %s: %v", path, err)
		}
	}
}

func ingestFile(orch *ingest.Orchestrator, path, explicitDocID string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read source file: %w", err)
	}

	sourceName := filepath.Base(path)
	docID := explicitDocID
	if docID == "" {
		docID = strings.TrimSuffix(sourceName, filepath.Ext(sourceName))
	}

	res, err := orch.Ingest(context.Background(), ingest.Document{
		DocID:      docID,
		SourceName: sourceName,
		RawText:    string(raw),
	})
	if err != nil {
		return err
	}

	log.Printf("doc_id=%s chunks=%d degraded=%v primary_category=%s",
		res.DocID, res.ChunksCount, res.DegradedStages, res.MetadataRecord.PrimaryCategory)
	return nil
}
