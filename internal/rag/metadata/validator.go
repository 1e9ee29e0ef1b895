package metadata

import (
	"regexp"
	"strings"

	"typologyrag/internal/ontology"
)

const (
	maxKeyConcepts      = 10
	maxFreeTextLen       = 500
	maxTeachingFocusLen  = 1000
	maxBoundedArrayItems = 20
)

var functionPositionRe = regexp.MustCompile(`^(Ne|Ni|Se|Si|Te|Ti|Fe|Fi)_[a-zA-Z]+$`)

// ValidationWarnings counts unknown items dropped per field, keyed by
// field name, so the orchestrator can surface them without the
// validator silently discarding information about what happened.
type ValidationWarnings map[string]int

// Validate enforces the per-field contracts of §4.6 against rec,
// returning a conformant Record (all 18 keys always present) and a
// count of unknown-enumeration items dropped per field. Scalar fields
// are reset rather than counted when non-conformant: content type,
// difficulty, primary category and target audience fall back to "",
// and relationship type, quadra and temple fall back to "none".
func Validate(onto *ontology.Ontology, rec Record) (Record, ValidationWarnings) {
	warnings := ValidationWarnings{}
	out := rec

	if !onto.IsCategory(out.ContentType) {
		out.ContentType = ""
	}
	if !onto.IsDifficulty(out.Difficulty) {
		out.Difficulty = ""
	}
	if !onto.IsCategory(out.PrimaryCategory) {
		out.PrimaryCategory = ""
	}

	out.TypesDiscussed = filterArray(out.TypesDiscussed, "types_discussed", warnings, func(v string) (string, bool) {
		return onto.CanonicalType(v)
	})
	out.FunctionsCovered = filterArray(out.FunctionsCovered, "functions_covered", warnings, func(v string) (string, bool) {
		return onto.CanonicalFunction(v)
	})
	out.FunctionPositions = filterArray(out.FunctionPositions, "function_positions", warnings, func(v string) (string, bool) {
		if functionPositionRe.MatchString(v) {
			return v, true
		}
		return "", false
	})

	if !onto.IsRelationshipKind(out.RelationshipType) {
		out.RelationshipType = "none"
	}
	out.Quadra = strings.ToLower(out.Quadra)
	if !onto.IsQuadra(out.Quadra) {
		out.Quadra = "none"
	}
	out.Temple = strings.ToLower(out.Temple)
	if !onto.IsTemple(out.Temple) {
		out.Temple = "none"
	}

	out.OctagramStates = filterArray(out.OctagramStates, "octagram_states", warnings, func(v string) (string, bool) {
		up := strings.ToUpper(v)
		if onto.IsDevelopmentCode(up) {
			return up, true
		}
		return "", false
	})

	out.PairDynamics = capFreeTextArray(out.PairDynamics, maxBoundedArrayItems, maxFreeTextLen)
	out.Archetypes = capFreeTextArray(out.Archetypes, maxBoundedArrayItems, maxFreeTextLen)
	out.InteractionStyleDetails = capFreeTextArray(out.InteractionStyleDetails, maxBoundedArrayItems, maxFreeTextLen)

	if len(out.KeyConcepts) > maxKeyConcepts {
		out.KeyConcepts = out.KeyConcepts[:maxKeyConcepts]
	}
	out.TeachingFocus = capLen(out.TeachingFocus, maxTeachingFocusLen)
	out.PrerequisiteKnowledge = capFreeTextArray(out.PrerequisiteKnowledge, maxBoundedArrayItems, maxFreeTextLen)

	if !isTargetAudience(out.TargetAudience) {
		out.TargetAudience = ""
	}

	if out.TagConfidence < 0 {
		out.TagConfidence = 0
	}
	if out.TagConfidence > 1 {
		out.TagConfidence = 1
	}

	return out, warnings
}

func isTargetAudience(a string) bool {
	switch a {
	case "beginner", "intermediate", "advanced", "expert":
		return true
	default:
		return false
	}
}

// filterArray applies canon to each item, keeping the canonicalized
// value when it succeeds and incrementing warnings[field] when it does
// not (§4.6's "unknowns dropped, warned" policy).
func filterArray(items []string, field string, warnings ValidationWarnings, canon func(string) (string, bool)) []string {
	if len(items) == 0 {
		return items
	}
	out := make([]string, 0, len(items))
	for _, v := range items {
		if c, ok := canon(v); ok {
			out = append(out, c)
			continue
		}
		warnings[field]++
	}
	return out
}

func capFreeTextArray(items []string, maxItems, maxLen int) []string {
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	for i, v := range items {
		items[i] = capLen(v, maxLen)
	}
	return items
}

func capLen(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// seasonEpisodeRe matches the first bracketed season[.episode] marker
// anywhere in a source name, e.g. "[22]" or "[22.3]".
var seasonEpisodeRe = regexp.MustCompile(`\[(\d+)(?:\.(\d+))?\]`)

// ParseSeasonEpisode extracts season/episode from sourceName via the
// bracket convention when the extractor did not already supply them.
func ParseSeasonEpisode(sourceName, season, episode string) (string, string) {
	if season != "" && episode != "" {
		return season, episode
	}
	m := seasonEpisodeRe.FindStringSubmatch(sourceName)
	if m == nil {
		return season, episode
	}
	if season == "" {
		season = m[1]
	}
	if episode == "" && m[2] != "" {
		episode = m[2]
	}
	return season, episode
}
