package query

import (
	"regexp"
	"strings"

	"typologyrag/internal/ontology"
	"typologyrag/internal/rag/normalize"
)

var seasonRe = regexp.MustCompile(`(?i)season\s+(\d+)|\[(\d+)`)

// relationshipKeywords maps a free-text relationship cue to the closed
// four-value set (§3); unmapped words are dropped per §4.8 step 2.
var relationshipKeywords = map[string]string{
	"golden":    "golden_pair",
	"pedagogue": "pedagogue_pair",
	"bronze":    "bronze_pair",
}

// extractEntities pulls MBTI types (including ontology-known typographic
// variants), cognitive functions, function positions, relationship
// keywords, quadra/temple (lowercased), and a season number out of
// question, per §4.8 step 2.
func extractEntities(onto *ontology.Ontology, question string) Entities {
	// Run the same deterministic repairs the ingestion normalizer uses so
	// spaced-out/misheard type and function spellings are recognized the
	// same way at query time as at ingest time.
	repaired := normalize.Normalize(onto, question)

	var ents Entities
	ents.Types = extractTypes(onto, repaired)
	ents.Functions = extractFunctions(onto, repaired)
	ents.Relationships = extractRelationships(question)
	ents.Quadra = extractQuadra(onto, question)
	ents.Temple = extractTemple(onto, question)
	ents.Season = extractSeason(question)
	return ents
}

func extractTypes(onto *ontology.Ontology, text string) []string {
	upper := strings.ToUpper(text)
	seen := map[string]struct{}{}
	var out []string
	for _, t := range onto.Types() {
		if strings.Contains(upper, t) {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				out = append(out, t)
			}
		}
	}
	return out
}

func extractFunctions(onto *ontology.Ontology, text string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, f := range onto.Functions() {
		re := regexp.MustCompile(`(?i)\b` + f + `\b`)
		if re.MatchString(text) {
			if _, ok := seen[f]; !ok {
				seen[f] = struct{}{}
				out = append(out, f)
			}
		}
	}
	return out
}

func extractRelationships(question string) []string {
	lower := strings.ToLower(question)
	seen := map[string]struct{}{}
	var out []string
	for kw, rel := range relationshipKeywords {
		if strings.Contains(lower, kw) {
			if _, ok := seen[rel]; !ok {
				seen[rel] = struct{}{}
				out = append(out, rel)
			}
		}
	}
	return out
}

func extractQuadra(onto *ontology.Ontology, question string) string {
	lower := strings.ToLower(question)
	for _, q := range []string{"alpha", "beta", "gamma"} {
		if onto.IsQuadra(q) && strings.Contains(lower, q) {
			return q
		}
	}
	return ""
}

func extractTemple(onto *ontology.Ontology, question string) string {
	lower := strings.ToLower(question)
	for _, t := range []string{"heart", "mind", "soul"} {
		if onto.IsTemple(t) && strings.Contains(lower, t) {
			return t
		}
	}
	return ""
}

func extractSeason(question string) string {
	m := seasonRe.FindStringSubmatch(question)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}
