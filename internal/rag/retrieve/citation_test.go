package retrieve

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToCitations_LimitsToTop5(t *testing.T) {
	var candidates []scored
	for i := 0; i < 8; i++ {
		candidates = append(candidates, scored{
			id:       string(rune('a' + i)),
			raw:      0.9,
			metadata: map[string]any{"source_name": "x", "season": "1", "chunk_index": i},
		})
	}
	cites := toCitations(candidates)
	require.Len(t, cites, citationLimit)
	require.Equal(t, 4, cites[4].ChunkIndex)
}

func TestToContextChunks_PreservesOrderAndFields(t *testing.T) {
	candidates := []scored{
		{metadata: map[string]any{"text": "hello", "source_name": "s1", "doc_id": "D1", "chunk_index": 2}},
	}
	chunks := toContextChunks(candidates)
	require.Equal(t, ContextChunk{Text: "hello", SourceName: "s1", DocID: "D1", ChunkIndex: 2}, chunks[0])
}

func TestIntField_HandlesNumericShapes(t *testing.T) {
	require.Equal(t, 3, intField(map[string]any{"k": 3}, "k"))
	require.Equal(t, 3, intField(map[string]any{"k": int64(3)}, "k"))
	require.Equal(t, 3, intField(map[string]any{"k": float64(3)}, "k"))
	require.Equal(t, 0, intField(map[string]any{}, "k"))
}

func TestTopTwoBoosted(t *testing.T) {
	t1, t2 := topTwoBoosted([]scored{{boosted: 0.9}, {boosted: 0.8}, {boosted: 0.5}})
	require.Equal(t, 0.9, t1)
	require.Equal(t, 0.8, t2)

	t1, t2 = topTwoBoosted(nil)
	require.Equal(t, 0.0, t1)
	require.Equal(t, 0.0, t2)
}
