package retrieve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"typologyrag/internal/persistence/vectorstore"
	"typologyrag/internal/rag/query"
)

func TestRerank_DropsBelowSimilarityFloor(t *testing.T) {
	candidates := []vectorstore.Result{
		{ID: "a#0", Score: 0.59, Metadata: map[string]any{}},
		{ID: "b#0", Score: 0.61, Metadata: map[string]any{}},
	}
	ranked := Rerank("question", query.Plan{}, candidates)
	require.Len(t, ranked, 1)
	require.Equal(t, "b#0", ranked[0].id)
}

func TestRerank_DeduplicatesByIDKeepingMaxBoosted(t *testing.T) {
	plan := query.Plan{Entities: query.Entities{Season: "22"}}
	candidates := []vectorstore.Result{
		{ID: "a#0", Score: 0.70, Metadata: map[string]any{"season": "22"}},
		{ID: "a#0", Score: 0.65, Metadata: map[string]any{"season": "1"}},
	}
	ranked := Rerank("question", plan, candidates)
	require.Len(t, ranked, 1)
	// 0.70 * 1.3 (season match) ≈ 0.91 beats 0.65 * 1.0 = 0.65; the raw
	// score is a float32, so the expected value is computed from it.
	require.InDelta(t, float64(float32(0.70))*1.3, ranked[0].boosted, 1e-9)
}

func TestRerank_SortsDescendingByBoostedScore(t *testing.T) {
	candidates := []vectorstore.Result{
		{ID: "a#0", Score: 0.65, Metadata: map[string]any{}},
		{ID: "b#0", Score: 0.90, Metadata: map[string]any{}},
		{ID: "c#0", Score: 0.75, Metadata: map[string]any{}},
	}
	ranked := Rerank("question", query.Plan{}, candidates)
	require.Equal(t, []string{"b#0", "c#0", "a#0"}, []string{ranked[0].id, ranked[1].id, ranked[2].id})
}

func TestRerank_TruncatesToFinalResults(t *testing.T) {
	var candidates []vectorstore.Result
	for i := 0; i < FinalResults+5; i++ {
		candidates = append(candidates, vectorstore.Result{
			ID:       string(rune('a' + i)),
			Score:    0.61,
			Metadata: map[string]any{},
		})
	}
	ranked := Rerank("question", query.Plan{}, candidates)
	require.Len(t, ranked, FinalResults)
}

func TestBoostFactor_CapsAtMaxProduct(t *testing.T) {
	plan := query.Plan{
		Intent: query.IntentCompatibility,
		Entities: query.Entities{
			Types:         []string{"INTJ"},
			Relationships: []string{"golden_pair"},
			Season:        "22",
			Functions:     []string{"Ni"},
		},
	}
	md := map[string]any{
		"source_name":       "Season 22 INTJ golden pair episode",
		"types_discussed":   []string{"INTJ"},
		"relationship_type": "golden_pair",
		"season":            "22",
		"functions_covered": []string{"Ni"},
		"primary_category":  "compatibility",
	}
	boost := boostFactor("INTJ golden pair season 22", plan, md)
	require.LessOrEqual(t, boost, maxBoostProduct)
	require.Equal(t, maxBoostProduct, boost)
}

func TestConfidenceTier(t *testing.T) {
	cases := []struct {
		t1, t2 float64
		want   string
	}{
		{0.95, 0.90, ConfidenceVeryHigh},
		{0.85, 0.80, ConfidenceHigh},
		{0.75, 0.10, ConfidenceMedium},
		{0.65, 0.0, ConfidenceLow},
		{0.40, 0.0, ConfidenceVeryLow},
	}
	for _, c := range cases {
		require.Equal(t, c.want, ConfidenceTier(c.t1, c.t2))
	}
}

func TestConfidenceTier_Monotonicity(t *testing.T) {
	tierRank := map[string]int{
		ConfidenceVeryLow:  0,
		ConfidenceLow:      1,
		ConfidenceMedium:   2,
		ConfidenceHigh:     3,
		ConfidenceVeryHigh: 4,
	}
	before := ConfidenceTier(0.70, 0.10)
	after := ConfidenceTier(0.80, 0.75)
	require.GreaterOrEqual(t, tierRank[after], tierRank[before])
}
