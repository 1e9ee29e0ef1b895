// Command query drives the query orchestrator (C8/C9/C11) over a single
// question supplied on the command line and prints the ranked result as
// JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"

	"typologyrag/internal/config"
	"typologyrag/internal/obs"
	"typologyrag/internal/rag/query"
	"typologyrag/internal/rag/retrieve"
	"typologyrag/internal/rag/wire"
)

func main() {
	log.SetFlags(0)
	var (
		configPath = flag.String("config", "configs/config.example.yaml", "path to config YAML")
		docID      = flag.String("doc-id", "", "restrict results to this explicit document id")
		tags       = flag.String("tags", "", "comma-separated explicit key-concept tags")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatal("usage: query [-config path] [-doc-id id] [-tags a,b] <question>")
	}
	question := strings.Join(flag.Args(), " ")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := obs.NewZeroLogger("info")
	metrics := obs.NewOtelMetrics()

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

	planner := query.New(onto,
		query.WithFilterExtractor(query.NewFilterExtractor(textModel)),
		query.WithExpansionModel(textModel),
		query.WithLogger(logger),
		query.WithMetrics(metrics))

	orch := retrieve.New(planner, emb, store, retrieve.WithLogger(logger), retrieve.WithMetrics(metrics))

	var tagList []string
	if *tags != "" {
		tagList = strings.Split(*tags, ",")
	}

	res := orch.Query(context.Background(), retrieve.Request{
		Question:      question,
		ExplicitDocID: *docID,
		ExplicitTags:  tagList,
	})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.Fatalf("encode result: %v", err)
	}
}
