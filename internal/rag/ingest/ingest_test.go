package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"typologyrag/internal/llm"
	"typologyrag/internal/ontology"
	"typologyrag/internal/rag/cleaner"
	"typologyrag/internal/rag/embedder"
	"typologyrag/internal/rag/metadata"
	"typologyrag/internal/persistence/vectorstore"
)

func testOntology(t *testing.T) *ontology.Ontology {
	t.Helper()
	o, err := ontology.Load("../../../configs/ontology.yaml")
	require.NoError(t, err)
	return o
}

const wellFormedRecordJSON = `{
  "content_type": "function_theory",
  "difficulty": "beginner",
  "primary_category": "function_theory",
  "types_discussed": ["INTJ", "ENFP"],
  "functions_covered": ["Ni", "Ne"],
  "function_positions": ["Ni_dominant"],
  "relationship_type": "golden_pair",
  "quadra": "alpha",
  "temple": "mind",
  "octagram_states": ["UDSF"],
  "pair_dynamics": ["complementary perception"],
  "archetypes": ["hero"],
  "interaction_style_details": ["direct"],
  "key_concepts": ["cognitive stack"],
  "teaching_focus": "intro to functions",
  "prerequisite_knowledge": ["basic typology"],
  "target_audience": "beginner",
  "tag_confidence": 0.9
}`

func newTestOrchestrator(t *testing.T, completerResponses []string, store vectorstore.VectorStore) *Orchestrator {
	t.Helper()
	onto := testOntology(t)
	fake := &llm.FakeCompleter{Responses: completerResponses}
	cl := cleaner.New(fake)
	ex := metadata.New(fake, onto)
	emb := embedder.NewDeterministic(16, true, 1)
	return New(onto, cl, ex, emb, store)
}

func TestIngest_HappyPathWritesOneVectorPerChunk(t *testing.T) {
	store := vectorstore.NewInMemory(16)
	o := newTestOrchestrator(t, []string{
		"condensed window text about INTJ and ENFP cognitive functions.",
		wellFormedRecordJSON,
	}, store)

	res, err := o.Ingest(context.Background(), Document{
		DocID:      "D1",
		SourceName: "season-22-episode.txt",
		RawText:    "the is FP uses tea hero while the in TJ uses knee hero",
	})
	require.NoError(t, err)
	require.Equal(t, "D1", res.DocID)
	require.Greater(t, res.ChunksCount, 0)
	require.Equal(t, "golden_pair", res.MetadataRecord.RelationshipType)
	require.Empty(t, res.DegradedStages)

	results, err := store.Query(context.Background(), make([]float32, 16), res.ChunksCount, vectorstore.Filter{})
	require.NoError(t, err)
	require.Len(t, results, res.ChunksCount)
}

func TestIngest_ExtractorFailureDegradesToEmptyRecord(t *testing.T) {
	store := vectorstore.NewInMemory(16)
	o := newTestOrchestrator(t, []string{
		"condensed text",
		"not valid json",
		"still not valid json",
	}, store)

	res, err := o.Ingest(context.Background(), Document{
		DocID:      "D2",
		SourceName: "doc.txt",
		RawText:    "some lecture content about typology",
	})
	require.NoError(t, err)
	require.Contains(t, res.DegradedStages, "stage5_degraded")
	require.Equal(t, 0.0, res.MetadataRecord.TagConfidence)
}

func TestIngest_ReingestReplacesPriorGenerationAtomically(t *testing.T) {
	store := vectorstore.NewInMemory(16)
	o := newTestOrchestrator(t, []string{
		strings.Repeat("first generation text about INTJ. ", 100),
		wellFormedRecordJSON,
	}, store)

	first, err := o.Ingest(context.Background(), Document{
		DocID:      "D1",
		SourceName: "doc.txt",
		RawText:    strings.Repeat("paragraph one about INTJ types and Ni function.\n\n", 50),
	})
	require.NoError(t, err)
	require.Greater(t, first.ChunksCount, 1)

	o2 := newTestOrchestrator(t, []string{
		"short condensed text",
		wellFormedRecordJSON,
	}, store)
	second, err := o2.Ingest(context.Background(), Document{
		DocID:      "D1",
		SourceName: "doc.txt",
		RawText:    "a much shorter replacement document",
	})
	require.NoError(t, err)

	results, err := store.Query(context.Background(), make([]float32, 16), 1000, vectorstore.Filter{})
	require.NoError(t, err)
	require.Len(t, results, second.ChunksCount)
}

func TestIngest_WriterFailureAfterDeleteReturnsIngestFailedAndCleansUp(t *testing.T) {
	store := &failingUpsertStore{InMemory: vectorstore.NewInMemory(16)}
	o := newTestOrchestrator(t, []string{
		"condensed text",
		wellFormedRecordJSON,
	}, store)

	_, err := o.Ingest(context.Background(), Document{
		DocID:      "D3",
		SourceName: "doc.txt",
		RawText:    "some content",
	})
	require.Error(t, err)

	results, qerr := store.InMemory.Query(context.Background(), make([]float32, 16), 10, vectorstore.Filter{})
	require.NoError(t, qerr)
	require.Empty(t, results, "cleanup delete should leave no vectors for the failed doc_id")
}

// failingUpsertStore wraps InMemory to simulate a writer failure after
// retries are exhausted, exercising the PartialIndexError cleanup path.
type failingUpsertStore struct {
	*vectorstore.InMemory
}

func (f *failingUpsertStore) Upsert(ctx context.Context, points []vectorstore.Point) error {
	return assertUpsertFails
}

var assertUpsertFails = upsertFailure{}

type upsertFailure struct{}

func (upsertFailure) Error() string { return "simulated upsert failure" }
