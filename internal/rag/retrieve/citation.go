package retrieve

// intField reads an int-valued metadata field, tolerating the few
// numeric shapes a round trip through JSON or a store's wire format can
// produce.
func intField(md map[string]any, key string) int {
	switch v := md[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// toContextChunks and toCitations build the two result views from the
// re-ranked, already-sorted-and-truncated candidate list (§6.4).
// Dedup by (doc_id, chunk_index) is implied by the upstream per-id
// dedup in Rerank, since chunk_index is encoded into the vector id.
func toContextChunks(candidates []scored) []ContextChunk {
	out := make([]ContextChunk, len(candidates))
	for i, c := range candidates {
		out[i] = ContextChunk{
			Text:       stringField(c.metadata, "text"),
			SourceName: stringField(c.metadata, "source_name"),
			DocID:      stringField(c.metadata, "doc_id"),
			ChunkIndex: intField(c.metadata, "chunk_index"),
		}
	}
	return out
}

// citationLimit bounds citations to the top 5 surviving candidates
// (§4.9).
const citationLimit = 5

func toCitations(candidates []scored) []Citation {
	n := len(candidates)
	if n > citationLimit {
		n = citationLimit
	}
	out := make([]Citation, n)
	for i := 0; i < n; i++ {
		c := candidates[i]
		out[i] = Citation{
			SourceName: stringField(c.metadata, "source_name"),
			Season:     stringField(c.metadata, "season"),
			ChunkIndex: intField(c.metadata, "chunk_index"),
			Similarity: c.raw,
		}
	}
	return out
}

// topTwoBoosted returns the top two boosted scores from an
// already-descending-sorted candidate list, for ConfidenceTier. Missing
// entries are reported as 0.
func topTwoBoosted(candidates []scored) (float64, float64) {
	var t1, t2 float64
	if len(candidates) > 0 {
		t1 = candidates[0].boosted
	}
	if len(candidates) > 1 {
		t2 = candidates[1].boosted
	}
	return t1, t2
}
