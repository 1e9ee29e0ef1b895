package retrieve

import (
	"context"

	"golang.org/x/sync/errgroup"

	"typologyrag/internal/obs"
	"typologyrag/internal/persistence/vectorstore"
	"typologyrag/internal/rag/embedder"
	"typologyrag/internal/rag/query"
)

// Request is the query input per §6.3.
type Request struct {
	Question      string
	ExplicitDocID string
	ExplicitTags  []string
}

// Orchestrator sequences the Query Planner (C8), parallel per-variant
// vector-store retrieval, and the re-ranker (C9) into a single
// question-answering call (C11, §4.11).
type Orchestrator struct {
	planner  *query.Planner
	embedder embedder.Embedder
	store    vectorstore.VectorStore
	log      obs.Logger
	metrics  obs.Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(l obs.Logger) Option   { return func(o *Orchestrator) { o.log = l } }
func WithMetrics(m obs.Metrics) Option { return func(o *Orchestrator) { o.metrics = m } }

// New constructs an Orchestrator from its collaborators.
func New(planner *query.Planner, emb embedder.Embedder, store vectorstore.VectorStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		planner:  planner,
		embedder: emb,
		store:    store,
		log:      obs.NoopLogger{},
		metrics:  obs.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Query runs §4.11's steps: plan, fan out one embed+query per variant in
// parallel, re-rank the union, and return the context set, citations,
// and confidence tier. It never returns an error: on any retrieval
// failure it returns an empty-context Result with Plan.Intent still
// populated so the caller can log a diagnostic, per §4.11's "never
// raises" contract.
func (o *Orchestrator) Query(ctx context.Context, req Request) Result {
	plan := o.planner.Plan(ctx, query.Request{
		Question:      req.Question,
		ExplicitDocID: req.ExplicitDocID,
		ExplicitTags:  req.ExplicitTags,
	})

	candidates, err := o.gatherCandidates(ctx, plan)
	if err != nil {
		o.log.Error("retrieval_degraded", map[string]any{"question": req.Question, "err": err.Error()})
		o.metrics.IncCounter("retrieval_degraded_total", nil)
		return Result{Plan: planSummaryOf(plan, plan.RecommendedK)}
	}

	ranked := Rerank(req.Question, plan, candidates)
	t1, t2 := topTwoBoosted(ranked)

	o.metrics.ObserveHistogram("retrieval_candidates_total", float64(len(candidates)), nil)
	o.metrics.IncCounter("retrieval_queries_total", map[string]string{"intent": plan.Intent})

	return Result{
		ContextChunks: toContextChunks(ranked),
		Citations:     toCitations(ranked),
		Confidence:    ConfidenceTier(t1, t2),
		Plan:          planSummaryOf(plan, plan.RecommendedK),
	}
}

// gatherCandidates embeds and queries the vector store once per query
// variant, in parallel, ordering restored before re-ranking (§5's
// "variant retrieval results may arrive in any order; the re-ranker is
// order-insensitive" — achieved here by collecting into a fixed-index
// slice rather than relying on completion order).
func (o *Orchestrator) gatherCandidates(ctx context.Context, plan query.Plan) ([]vectorstore.Result, error) {
	perVariant := make([][]vectorstore.Result, len(plan.Variants))

	g, gctx := errgroup.WithContext(ctx)
	for i, variant := range plan.Variants {
		i, variant := i, variant
		g.Go(func() error {
			vec, err := o.embedder.EmbedBatch(gctx, []string{variant})
			if err != nil {
				return err
			}
			res, err := o.store.Query(gctx, vec[0], plan.RecommendedK, plan.Filter)
			if err != nil {
				return err
			}
			perVariant[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []vectorstore.Result
	for _, res := range perVariant {
		all = append(all, res...)
	}
	return all, nil
}
