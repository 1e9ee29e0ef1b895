package query

import "regexp"

// intentPattern is one signal pattern contributing at most 1 point to
// its intent's score (§4.8 step 1).
type intentPattern struct {
	intent string
	re     *regexp.Regexp
}

// intentPatterns is the abridged pattern table from §4.8, expanded into
// concrete regexes. Pattern order within an intent does not matter;
// only whether each one matches at least once.
var intentPatterns = []intentPattern{
	// compatibility
	{IntentCompatibility, regexp.MustCompile(`(?i)\bcompatib\w*`)},
	{IntentCompatibility, regexp.MustCompile(`(?i)\bpair\b`)},
	{IntentCompatibility, regexp.MustCompile(`(?i)\b(golden|pedagogue|bronze)\b`)},
	{IntentCompatibility, regexp.MustCompile(`(?i)\b(romantic|sexual|social)\b`)},

	// type_lookup
	{IntentTypeLookup, regexp.MustCompile(`(?i)\bwhat\s+is\s+[A-Za-z]{4}\b`)},
	{IntentTypeLookup, regexp.MustCompile(`(?i)\bexplain\s+[A-Za-z]{4}\b`)},
	{IntentTypeLookup, regexp.MustCompile(`(?i)[A-Za-z]{4}\s+personality\b`)},

	// function_analysis
	{IntentFunctionAnalysis, regexp.MustCompile(`(?i)\b(Ne|Ni|Se|Si|Te|Ti|Fe|Fi)\b`)},
	{IntentFunctionAnalysis, regexp.MustCompile(`(?i)\b(hero|parent|child|inferior|nemesis|critic|trickster|demon)\b.*\bfunction\b`)},

	// four_sides
	{IntentFourSides, regexp.MustCompile(`(?i)\bfour\s+sides\b`)},
	{IntentFourSides, regexp.MustCompile(`(?i)\b(ego|subconscious|unconscious|superego)\b`)},

	// development
	{IntentDevelopment, regexp.MustCompile(`(?i)\bgrow\w*`)},
	{IntentDevelopment, regexp.MustCompile(`(?i)\bdevelop\w*`)},
	{IntentDevelopment, regexp.MustCompile(`(?i)\bmatur\w*`)},
	{IntentDevelopment, regexp.MustCompile(`(?i)\bshadow\s+work\b`)},
	{IntentDevelopment, regexp.MustCompile(`(?i)\bintegrat\w*`)},

	// framework
	{IntentFramework, regexp.MustCompile(`(?i)\boctagram\b`)},
	{IntentFramework, regexp.MustCompile(`(?i)\btemple\b`)},
	{IntentFramework, regexp.MustCompile(`(?i)\bquadra\b`)},
	{IntentFramework, regexp.MustCompile(`(?i)\binteraction\s+style\b`)},
	{IntentFramework, regexp.MustCompile(`(?i)\bdeadly\s+sin\b`)},
	{IntentFramework, regexp.MustCompile(`(?i)\bholy\s+virtue\b`)},

	// season_specific
	{IntentSeasonSpecific, regexp.MustCompile(`(?i)\bseason\s+\d+\b`)},
	{IntentSeasonSpecific, regexp.MustCompile(`\[\d+\]`)},
	{IntentSeasonSpecific, regexp.MustCompile(`\[\d+\.\d+\]`)},
}

// patternCounts tallies how many patterns belong to each intent, so
// score = matches / pattern_count per §4.8 step 1.
var patternCounts = func() map[string]int {
	out := map[string]int{}
	for _, p := range intentPatterns {
		out[p.intent]++
	}
	return out
}()

// detectIntent runs the rule-based classifier over question and returns
// the top-scoring intent and its confidence. A question matching no
// pattern is classified "general" with confidence 0.5.
func detectIntent(question string) (string, float64) {
	matches := map[string]int{}
	for _, p := range intentPatterns {
		if p.re.MatchString(question) {
			matches[p.intent]++
		}
	}

	bestIntent := ""
	bestScore := 0.0
	for intent, n := range matches {
		score := float64(n) / float64(patternCounts[intent])
		if score > bestScore || (score == bestScore && intent < bestIntent) {
			bestScore = score
			bestIntent = intent
		}
	}

	if bestIntent == "" {
		return IntentGeneral, 0.5
	}
	confidence := bestScore * 2
	if confidence > 1.0 {
		confidence = 1.0
	}
	return bestIntent, confidence
}
