package retrieve

import (
	"regexp"
	"sort"
	"strings"

	"typologyrag/internal/persistence/vectorstore"
	"typologyrag/internal/rag/query"
)

// intentCategoryBoost maps an intent to the primary_category value it
// is expected to correlate with, and the multiplier applied on a match
// (§4.9's "intent <-> category match" signal, 1.2-1.3).
var intentCategoryBoost = map[string]struct {
	category string
	boost    float64
}{
	query.IntentCompatibility:    {"compatibility", 1.3},
	query.IntentFunctionAnalysis: {"function_theory", 1.3},
	query.IntentFourSides:        {"framework", 1.2},
}

var tokenRe = regexp.MustCompile(`[A-Za-z0-9]+`)

// scored is one candidate's boosted score plus the identity needed for
// dedup and citation assembly.
type scored struct {
	id       string
	raw      float32
	boosted  float64
	metadata map[string]any
}

// boostFactor computes the capped multiplicative boost for one
// candidate's metadata against the question and plan (§4.9's signal
// table).
func boostFactor(question string, plan query.Plan, md map[string]any) float64 {
	boost := 1.0

	if tokenOverlap(question, stringField(md, "source_name")) >= 2 {
		boost *= 1.5
	}
	if len(plan.Entities.Types) > 0 && anyIn(plan.Entities.Types, stringSliceField(md, "types_discussed")) {
		boost *= 1.4
	}
	if len(plan.Entities.Relationships) > 0 && containsStr(plan.Entities.Relationships, stringField(md, "relationship_type")) {
		boost *= 1.5
	}
	if plan.Entities.Season != "" && plan.Entities.Season == stringField(md, "season") {
		boost *= 1.3
	}
	if len(plan.Entities.Functions) > 0 && anyIn(plan.Entities.Functions, stringSliceField(md, "functions_covered")) {
		boost *= 1.3
	}
	if ic, ok := intentCategoryBoost[plan.Intent]; ok && ic.category == stringField(md, "primary_category") {
		boost *= ic.boost
	}

	if boost > maxBoostProduct {
		boost = maxBoostProduct
	}
	return boost
}

// tokenOverlap counts distinct question tokens (length >= 3, case
// folded) that also appear in filename.
func tokenOverlap(question, filename string) int {
	if filename == "" {
		return 0
	}
	qTokens := tokenSet(question)
	fTokens := tokenSet(filename)
	n := 0
	for t := range qTokens {
		if _, ok := fTokens[t]; ok {
			n++
		}
	}
	return n
}

func tokenSet(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, t := range tokenRe.FindAllString(strings.ToLower(s), -1) {
		if len(t) >= 3 {
			out[t] = struct{}{}
		}
	}
	return out
}

func anyIn(wanted, have []string) bool {
	for _, w := range wanted {
		if containsStr(have, w) {
			return true
		}
	}
	return false
}

func containsStr(haystack []string, needle string) bool {
	if needle == "" {
		return false
	}
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}

func stringField(md map[string]any, key string) string {
	s, _ := md[key].(string)
	return s
}

func stringSliceField(md map[string]any, key string) []string {
	switch v := md[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Rerank applies §4.9 to candidates gathered across every query
// variant: drops anything below SimilarityFloor on its raw similarity,
// deduplicates by vector id keeping the max boosted score, sorts
// descending by boosted score, and truncates to FinalResults.
func Rerank(question string, plan query.Plan, candidates []vectorstore.Result) []scored {
	best := map[string]scored{}
	for _, c := range candidates {
		if c.Score < SimilarityFloor {
			continue
		}
		boosted := float64(c.Score) * boostFactor(question, plan, c.Metadata)
		if prev, ok := best[c.ID]; !ok || boosted > prev.boosted {
			best[c.ID] = scored{id: c.ID, raw: c.Score, boosted: boosted, metadata: c.Metadata}
		}
	}

	out := make([]scored, 0, len(best))
	for _, s := range best {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].boosted != out[j].boosted {
			return out[i].boosted > out[j].boosted
		}
		return out[i].id < out[j].id
	})
	if len(out) > FinalResults {
		out = out[:FinalResults]
	}
	return out
}
