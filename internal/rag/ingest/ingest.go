// Package ingest implements the Ingestion Orchestrator (C10): it
// sequences the normalizer, cleaner, chunker, metadata extractor and
// validator, and the embedder/vector-store writer over a single
// document, applying each stage's failure-isolation policy from §4.10.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"typologyrag/internal/obs"
	"typologyrag/internal/ontology"
	"typologyrag/internal/rag/chunker"
	"typologyrag/internal/rag/cleaner"
	"typologyrag/internal/rag/embedder"
	"typologyrag/internal/rag/errs"
	"typologyrag/internal/rag/metadata"
	"typologyrag/internal/rag/normalize"
	"typologyrag/internal/persistence/vectorstore"
)

// Document is the ingest input per §6.1: raw_text is UTF-8 plain text
// already extracted from the original source.
type Document struct {
	DocID      string
	SourceName string
	RawText    string
}

// Result is the ingest output per §6.2. Cost is keyed by stage name
// ("cleaner", "extractor", "embedder") and holds that stage's wall-clock
// seconds for this document; it is a local, always-attributable proxy
// distinct from the process-wide, eventually-consistent cost counters
// the same stages also feed into their observability sink via
// llm.CostRecorder (§4.10, §5).
type Result struct {
	DocID          string
	ChunksCount    int
	MetadataRecord metadata.Record
	DegradedStages []string
	Cost           map[string]float64
}

// Orchestrator coordinates C2 through C7 for one document at a time,
// serializing concurrent ingests of the same doc_id per §5.
type Orchestrator struct {
	onto      *ontology.Ontology
	cleaner   *cleaner.Cleaner
	extractor *metadata.Extractor
	embedder  embedder.Embedder
	store     vectorstore.VectorStore

	log     obs.Logger
	metrics obs.Metrics

	docLocks sync.Map // doc_id -> *sync.Mutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(l obs.Logger) Option   { return func(o *Orchestrator) { o.log = l } }
func WithMetrics(m obs.Metrics) Option { return func(o *Orchestrator) { o.metrics = m } }

// New constructs an Orchestrator from its already-configured stage
// collaborators.
func New(onto *ontology.Ontology, cl *cleaner.Cleaner, ex *metadata.Extractor, emb embedder.Embedder, store vectorstore.VectorStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		onto:      onto,
		cleaner:   cl,
		extractor: ex,
		embedder:  emb,
		store:     store,
		log:       obs.NoopLogger{},
		metrics:   obs.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) lockFor(docID string) *sync.Mutex {
	l, _ := o.docLocks.LoadOrStore(docID, &sync.Mutex{})
	return l.(*sync.Mutex)
}

// Ingest runs the full pipeline for doc. It never returns an error for
// degradable stages (cleaner, extractor, validator) — those are
// recorded in Result.DegradedStages. An embedding failure or a writer
// failure propagates as an error wrapping ErrIngestFailed; a failed
// upsert after the store's retries additionally wraps ErrPartialIndex.
func (o *Orchestrator) Ingest(ctx context.Context, doc Document) (Result, error) {
	lock := o.lockFor(doc.DocID)
	lock.Lock()
	defer lock.Unlock()

	var degraded []string
	cost := map[string]float64{}

	normalized := normalize.Normalize(o.onto, doc.RawText)

	start := time.Now()
	cleanResult := o.cleaner.Clean(ctx, doc.DocID, normalized)
	cost["cleaner"] = time.Since(start).Seconds()
	for _, w := range cleanResult.DegradedWindows {
		degraded = append(degraded, fmt.Sprintf("cleaner:window#%d", w))
	}

	chunks := chunker.Chunk(cleanResult.Text)

	start = time.Now()
	rawRecord := o.extractor.Extract(ctx, doc.SourceName, cleanResult.Text)
	cost["extractor"] = time.Since(start).Seconds()
	if rawRecord.TagConfidence == 0.0 {
		degraded = append(degraded, "stage5_degraded")
	}
	record, warnings := metadata.Validate(o.onto, rawRecord)
	if len(warnings) > 0 {
		degraded = append(degraded, "stage6_degraded")
		o.metrics.IncCounter("ingest_validation_warnings_total", map[string]string{"doc_id": doc.DocID})
	}

	season, episode := metadata.ParseSeasonEpisode(doc.SourceName, "", "")

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	start = time.Now()
	vectors, err := o.embedder.EmbedBatch(ctx, texts)
	cost["embedder"] = time.Since(start).Seconds()
	if err != nil {
		return Result{}, fmt.Errorf("%w: embed chunks for doc_id %q: %v", errs.ErrIngestFailed, doc.DocID, err)
	}

	points := make([]vectorstore.Point, len(chunks))
	for i, c := range chunks {
		points[i] = vectorstore.Point{
			ID:       fmt.Sprintf("%s#%d", doc.DocID, c.Index),
			Vector:   vectors[i],
			Metadata: payloadFor(doc, c, record, season, episode),
		}
	}

	if err := o.writeAtomic(ctx, doc.DocID, points); err != nil {
		return Result{}, err
	}

	o.metrics.IncCounter("ingest_documents_total", map[string]string{"degraded": boolLabel(len(degraded) > 0)})
	return Result{
		DocID:          doc.DocID,
		ChunksCount:    len(chunks),
		MetadataRecord: record,
		DegradedStages: degraded,
		Cost:           cost,
	}, nil
}

// writeAtomic implements the Writer's atomic-replace policy (§4.7): it
// deletes every existing vector for docID, then upserts the new set.
// If the upsert fails after the store's own retries, it issues a
// best-effort cleanup delete so the one-generation-per-doc_id invariant
// holds regardless of outcome, and reports ErrPartialIndex wrapped in
// ErrIngestFailed.
func (o *Orchestrator) writeAtomic(ctx context.Context, docID string, points []vectorstore.Point) error {
	if err := o.store.DeleteByDocID(ctx, docID); err != nil {
		return fmt.Errorf("%w: pre-write cleanup for doc_id %q: %v", errs.ErrIngestFailed, docID, err)
	}

	if err := o.store.Upsert(ctx, points); err != nil {
		if cleanupErr := o.store.DeleteByDocID(ctx, docID); cleanupErr != nil {
			o.log.Error("ingest_cleanup_delete_failed", map[string]any{"doc_id": docID, "err": cleanupErr.Error()})
		}
		return fmt.Errorf("%w: %w: %v", errs.ErrIngestFailed, errs.ErrPartialIndex, err)
	}
	return nil
}

func payloadFor(doc Document, c chunker.Piece, rec metadata.Record, season, episode string) map[string]any {
	return map[string]any{
		"doc_id":                    doc.DocID,
		"source_name":               doc.SourceName,
		"chunk_index":               c.Index,
		"text":                      c.Text,
		"optimized":                 true,
		"season":                    season,
		"episode":                   episode,
		"content_type":              rec.ContentType,
		"difficulty":                rec.Difficulty,
		"primary_category":          rec.PrimaryCategory,
		"types_discussed":           rec.TypesDiscussed,
		"functions_covered":         rec.FunctionsCovered,
		"function_positions":        rec.FunctionPositions,
		"relationship_type":         rec.RelationshipType,
		"quadra":                    rec.Quadra,
		"temple":                    rec.Temple,
		"octagram_states":           rec.OctagramStates,
		"pair_dynamics":             rec.PairDynamics,
		"archetypes":                rec.Archetypes,
		"interaction_style_details": rec.InteractionStyleDetails,
		"key_concepts":              rec.KeyConcepts,
		"teaching_focus":            rec.TeachingFocus,
		"prerequisite_knowledge":    rec.PrerequisiteKnowledge,
		"target_audience":           rec.TargetAudience,
		"tag_confidence":            rec.TagConfidence,
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
