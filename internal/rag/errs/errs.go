// Package errs defines the error kinds shared across the ingestion and
// retrieval pipeline.
package errs

import "errors"

// Sentinel error kinds. Stages wrap these with fmt.Errorf("%w: ...") to add
// context; callers match with errors.Is.
var (
	// ErrConfig marks a fatal startup error: missing ontology file, missing
	// required keys. The process should not continue.
	ErrConfig = errors.New("config error")

	// ErrTransientExternal marks a network/5xx/timeout failure from an
	// external model, embedding, or vector-store call. Callers retry per
	// policy before giving up.
	ErrTransientExternal = errors.New("transient external error")

	// ErrPermanentExternal marks a 4xx or malformed response from an
	// external call, surfaced after one corrective retry.
	ErrPermanentExternal = errors.New("permanent external error")

	// ErrValidation marks metadata that could not be coerced into the
	// declared schema. Never fatal; recorded as a warning.
	ErrValidation = errors.New("validation error")

	// ErrPartialIndex marks a writer failure to complete the atomic
	// per-doc_id replace. The orchestrator aborts ingest and attempts a
	// best-effort cleanup delete.
	ErrPartialIndex = errors.New("partial index error")

	// ErrIngestFailed marks a required stage failing beyond its
	// degradation policy.
	ErrIngestFailed = errors.New("ingest failed")

	// ErrRetrievalDegraded marks the query planner or variant retrieval
	// falling back to the original question with no smart filter.
	ErrRetrievalDegraded = errors.New("retrieval degraded")
)
