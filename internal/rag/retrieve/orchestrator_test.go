package retrieve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"typologyrag/internal/ontology"
	"typologyrag/internal/persistence/vectorstore"
	"typologyrag/internal/rag/embedder"
	"typologyrag/internal/rag/query"
)

func loadOntology(t *testing.T) *ontology.Ontology {
	t.Helper()
	o, err := ontology.Load("../../../configs/ontology.yaml")
	require.NoError(t, err)
	return o
}

const testDim = 16

func seedStore(t *testing.T, store vectorstore.VectorStore, emb embedder.Embedder, docID, text, season string, chunkIndex int) {
	t.Helper()
	vecs, err := emb.EmbedBatch(context.Background(), []string{text})
	require.NoError(t, err)
	err = store.Upsert(context.Background(), []vectorstore.Point{{
		ID:     docID + "#0",
		Vector: vecs[0],
		Metadata: map[string]any{
			"doc_id":            docID,
			"source_name":       docID + " transcript",
			"chunk_index":       chunkIndex,
			"text":              text,
			"season":            season,
			"types_discussed":   []string{"ENFP"},
			"relationship_type": "pedagogue_pair",
		},
	}})
	require.NoError(t, err)
}

func TestOrchestrator_QueryReturnsRankedContext(t *testing.T) {
	onto := loadOntology(t)
	emb := embedder.NewDeterministic(testDim, true, 1)
	store := vectorstore.NewInMemory(testDim)

	seedStore(t, store, emb, "D1", "ENFP pedagogue pair compatibility discussion", "22", 0)

	planner := query.New(onto)
	orch := New(planner, emb, store)

	res := orch.Query(context.Background(), Request{Question: "ENFP pedagogue pair compatibility discussion"})

	require.NotEmpty(t, res.ContextChunks)
	require.NotEmpty(t, res.Citations)
	require.NotEmpty(t, res.Confidence)
	require.Equal(t, "D1", res.ContextChunks[0].DocID)
}

func TestOrchestrator_NeverErrorsOnStoreFailure(t *testing.T) {
	onto := loadOntology(t)
	emb := embedder.NewDeterministic(testDim, true, 1)
	planner := query.New(onto)
	orch := New(planner, emb, failingStore{})

	res := orch.Query(context.Background(), Request{Question: "anything"})
	require.Empty(t, res.ContextChunks)
	require.Empty(t, res.Citations)
	require.Empty(t, res.Confidence)
	require.NotEmpty(t, res.Plan.Intent)
}

type failingStore struct{}

func (failingStore) Upsert(context.Context, []vectorstore.Point) error      { return nil }
func (failingStore) DeleteByDocID(context.Context, string) error           { return nil }
func (failingStore) Query(context.Context, []float32, int, vectorstore.Filter) ([]vectorstore.Result, error) {
	return nil, errTest
}
func (failingStore) ArrayCapability() bool { return true }
func (failingStore) Dimension() int        { return testDim }
func (failingStore) Close() error          { return nil }

var errTest = errFixed("store unavailable")

type errFixed string

func (e errFixed) Error() string { return string(e) }
