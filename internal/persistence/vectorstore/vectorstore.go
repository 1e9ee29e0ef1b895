// Package vectorstore defines the vector-store contract (§6.5) and its
// backends: a production Qdrant-backed store and an in-memory store used
// for tests and local development.
package vectorstore

import "context"

// Filter is the core's vector-store filter expression. Exactly the
// operators §6.5 requires: scalar equality (Eq), scalar membership (In),
// inequality (Ne), array containment (Contains), and boolean
// composition (And, Or). Every field is optional; a zero-value Filter
// matches everything.
type Filter struct {
	Eq       map[string]string
	In       map[string][]string
	Ne       map[string]string
	Contains map[string]string // field -> value that must appear in a stored array field

	And []Filter
	Or  []Filter
}

// IsEmpty reports whether f imposes no constraint at all.
func (f Filter) IsEmpty() bool {
	return len(f.Eq) == 0 && len(f.In) == 0 && len(f.Ne) == 0 &&
		len(f.Contains) == 0 && len(f.And) == 0 && len(f.Or) == 0
}

// Point is a single vector with its metadata payload, as written by the
// embedder/writer stage (C7).
type Point struct {
	ID       string
	Vector   []float32
	Metadata map[string]any
}

// Result is a single top-k similarity hit.
type Result struct {
	ID       string
	Score    float32
	Metadata map[string]any
}

// VectorStore is the contract the ingestion writer and query retriever
// depend on. Implementations may or may not have native array-field
// containment support; ArrayCapability reports which, so the filter
// builder can be parameterized on it per §6.5.
type VectorStore interface {
	// Upsert writes points, inserting new IDs and replacing existing
	// ones. Batching and retrying, if any, are up to the
	// implementation; the caller passes the full set in one call.
	Upsert(ctx context.Context, points []Point) error

	// DeleteByDocID deletes every point whose metadata has
	// doc_id == docID. Used for the atomic replace-on-reingest flow (§4.7).
	DeleteByDocID(ctx context.Context, docID string) error

	// Query returns the top-k nearest neighbors to vector, constrained by
	// filter (IsEmpty() matches everything).
	Query(ctx context.Context, vector []float32, k int, filter Filter) ([]Result, error)

	// ArrayCapability reports whether this backend supports native array
	// containment for Filter.Contains, or needs the joined-string
	// emulation path instead.
	ArrayCapability() bool

	Dimension() int
	Close() error
}
