// Package embedder implements the embedding half of C7: turning chunk
// text into fixed-dimensional vectors via an external embedding model,
// plus a deterministic test double.
package embedder

import (
	"context"
	"hash/fnv"
	"math"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"typologyrag/internal/llm"
	"typologyrag/internal/obs"
)

// Embedder produces fixed-dimensional vectors for a batch of texts.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// openAIEmbedder calls the OpenAI embeddings endpoint.
type openAIEmbedder struct {
	sdk   sdk.Client
	model string
	dim   int
	log   obs.Logger
	cost  llm.CostRecorder
}

// Option configures an openAIEmbedder.
type Option func(*openAIEmbedder)

func WithLogger(l obs.Logger) Option              { return func(e *openAIEmbedder) { e.log = l } }
func WithCostRecorder(r llm.CostRecorder) Option  { return func(e *openAIEmbedder) { e.cost = r } }

// New constructs a production Embedder backed by the OpenAI embeddings
// API for model, which is assumed to produce vectors of width dim.
func New(apiKey, baseURL, model string, dim int, opts ...Option) Embedder {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	e := &openAIEmbedder{
		sdk:   sdk.NewClient(reqOpts...),
		model: model,
		dim:   dim,
		log:   obs.NoopLogger{},
		cost:  llm.NoopCostRecorder{},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *openAIEmbedder) Dimension() int { return e.dim }

func (e *openAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	inputs := make(sdk.EmbeddingNewParamsInputArrayOfStrings, len(texts))
	copy(inputs, texts)

	resp, err := e.sdk.Embeddings.New(ctx, sdk.EmbeddingNewParams{
		Model: sdk.EmbeddingModel(e.model),
		Input: sdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
	})
	if err != nil {
		e.log.Error("embedding_error", map[string]any{"model": e.model, "err": err.Error(), "count": len(texts)})
		return nil, llm.Classify(err)
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	e.cost.RecordCost(llm.Cost{Provider: "openai", Model: e.model, PromptTokens: int(resp.Usage.PromptTokens)})
	return out, nil
}

// Deterministic is a dependency-free, reproducible embedder for tests
// and local development: it hashes byte 3-grams of each text into a
// fixed-size vector via FNV64a, optionally L2-normalized.
type Deterministic struct {
	dim       int
	normalize bool
	seed      uint64
}

// NewDeterministic constructs a Deterministic embedder of width dim.
func NewDeterministic(dim int, normalize bool, seed uint64) *Deterministic {
	return &Deterministic{dim: dim, normalize: normalize, seed: seed}
}

func (d *Deterministic) Dimension() int { return d.dim }

func (d *Deterministic) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = d.embedOne(t)
	}
	return out, nil
}

func (d *Deterministic) embedOne(text string) []float32 {
	vec := make([]float32, d.dim)
	if len(text) == 0 {
		return vec
	}
	grams := []byte(text)
	for i := 0; i < len(grams); i++ {
		end := i + 3
		if end > len(grams) {
			end = len(grams)
		}
		gram := grams[i:end]

		h := fnv.New64a()
		_, _ = h.Write(gram)
		var seedBuf [8]byte
		putUint64(seedBuf[:], d.seed)
		_, _ = h.Write(seedBuf[:])

		idx := int(h.Sum64() % uint64(d.dim))
		vec[idx] += 1.0
	}
	if d.normalize {
		normalizeL2(vec)
	}
	return vec
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func normalizeL2(vec []float32) {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return
	}
	norm := math.Sqrt(sumSq)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}
