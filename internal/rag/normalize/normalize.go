// Package normalize implements the deterministic, dependency-free text
// repair stage (Stage 1) applied to raw lecture transcripts before the LM
// cleaner runs.
package normalize

import (
	"regexp"
	"strings"

	"typologyrag/internal/ontology"
)

var (
	bracketAnnotationRe = regexp.MustCompile(`\[(music|applause|laughter|inaudible|crosstalk)\]`)
	timestampColonRe    = regexp.MustCompile(`\b\d{1,2}:\d{2}:\d{2}\b`)
	timestampBracketRe  = regexp.MustCompile(`\[\d+(\.\d+)?\]`)
	youtubeArtifactRe   = regexp.MustCompile(`(?i)\[(music playing|background noise|subscribe|like and subscribe)\]`)

	// typeSpacingRe matches the 16 MBTI letters split across 2-4
	// whitespace-separated tokens, e.g. "is FP", "in TJ", "EN FP".
	typeSpacingRe = regexp.MustCompile(`(?i)\b([IE])\s*[-]?\s*([SN])\s*[-]?\s*([TF])\s*[-]?\s*([JP])\b`)

	// developmentNotationRe matches the 4-letter development code spelled
	// out with spaces or interpuncts between letters, e.g. "U D S F",
	// "U·D·S·F".
	developmentNotationRe = regexp.MustCompile(`(?i)\b([USsu])\s*[\s·]\s*([DSds])\s*[\s·]\s*([USsu])\s*[\s·]\s*([FSfs])\b`)

	whitespaceRunRe  = regexp.MustCompile(`[ \t]+`)
	paragraphBreakRe = regexp.MustCompile(`\n{3,}`)
	crlfRe           = regexp.MustCompile(`\r\n?`)
)

// functionHomophones maps a homophone surface form to its canonical
// two-letter function code. Replacement is guarded by
// ontology.IsFunctionRepairContextWord so ordinary English words are
// left untouched.
var functionHomophones = map[string]string{
	"tea":  "Te",
	"tie":  "Ti",
	"knee": "Ni",
	"gnu":  "Ne",
	"see":  "Se",
	"sigh": "Si",
	"fee":  "Fe",
	"fie":  "Fi",
}

// Normalize applies the six ordered repair operations from §4.2. It is a
// pure function and is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(o *ontology.Ontology, text string) string {
	s := text
	s = stripArtifacts(s)
	s = repairTypeSpellings(s)
	s = repairFunctionSpellings(o, s)
	s = repairDevelopmentNotation(o, s)
	s = collapseTripleRepetitions(s)
	s = normalizeWhitespace(s)
	return s
}

// stripArtifacts removes bracketed annotations, timestamp markers, and
// YouTube-style artifacts (§4.2.1).
func stripArtifacts(s string) string {
	s = youtubeArtifactRe.ReplaceAllString(s, "")
	s = bracketAnnotationRe.ReplaceAllString(s, "")
	s = timestampBracketRe.ReplaceAllString(s, "")
	s = timestampColonRe.ReplaceAllString(s, "")
	return s
}

// repairTypeSpellings collapses whitespace/hyphen-split MBTI type letters
// and uppercases the result (§4.2.2).
func repairTypeSpellings(s string) string {
	return typeSpacingRe.ReplaceAllStringFunc(s, func(m string) string {
		groups := typeSpacingRe.FindStringSubmatch(m)
		if groups == nil {
			return m
		}
		var b strings.Builder
		for _, g := range groups[1:] {
			b.WriteString(strings.ToUpper(g))
		}
		return b.String()
	})
}

// repairFunctionSpellings replaces function homophones with their
// canonical two-letter code, but only when a neighboring word is a
// typology context word from the ontology — never inside ordinary
// English sentences (§4.2.3).
func repairFunctionSpellings(o *ontology.Ontology, s string) string {
	if o == nil {
		return s
	}
	if strings.Contains(s, "\n") {
		lines := strings.Split(s, "\n")
		for i, l := range lines {
			lines[i] = repairFunctionSpellings(o, l)
		}
		return strings.Join(lines, "\n")
	}
	words := strings.Fields(s)
	// Each line is handled on its own so newlines survive; within a line
	// words are rejoined with single spaces, which normalizeWhitespace
	// would produce anyway.
	for i, w := range words {
		trimmed, lead, trail := stripPunct(w)
		canon, isHomophone := functionHomophones[strings.ToLower(trimmed)]
		if !isHomophone {
			continue
		}
		prev := ""
		if i > 0 {
			prev, _, _ = stripPunct(words[i-1])
		}
		next := ""
		if i < len(words)-1 {
			next, _, _ = stripPunct(words[i+1])
		}
		if o.IsFunctionRepairContextWord(prev) || o.IsFunctionRepairContextWord(next) {
			words[i] = lead + canon + trail
		}
	}
	return strings.Join(words, " ")
}

func stripPunct(w string) (core, lead, trail string) {
	start := 0
	for start < len(w) && !isWordByte(w[start]) {
		start++
	}
	end := len(w)
	for end > start && !isWordByte(w[end-1]) {
		end--
	}
	return w[start:end], w[:start], w[end:]
}

func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// repairDevelopmentNotation collapses spaced/interpunct-separated
// development-code letters to one of the canonical codes from the
// ontology (§4.2.4). Non-canonical collapses are left untouched.
func repairDevelopmentNotation(o *ontology.Ontology, s string) string {
	return developmentNotationRe.ReplaceAllStringFunc(s, func(m string) string {
		groups := developmentNotationRe.FindStringSubmatch(m)
		if groups == nil {
			return m
		}
		var b strings.Builder
		for _, g := range groups[1:] {
			b.WriteString(strings.ToUpper(g))
		}
		code := b.String()
		if o != nil && !o.IsDevelopmentCode(code) {
			return m
		}
		return code
	})
}

// collapseTripleRepetitions collapses three-or-more adjacent repetitions
// of the same short phrase (word or bigram) to a single occurrence
// (§4.2.5). This targets transcription stutter artifacts like "the the
// the" or "really really really". Each line is handled on its own, so
// newlines are kept.
func collapseTripleRepetitions(s string) string {
	if strings.Contains(s, "\n") {
		lines := strings.Split(s, "\n")
		for i, l := range lines {
			lines[i] = collapseTripleRepetitions(l)
		}
		return strings.Join(lines, "\n")
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return s
	}
	out := make([]string, 0, len(words))
	i := 0
	for i < len(words) {
		// single-word run: words[i] repeated 3+ times in a row.
		if n := runLength(words, i, 1); n >= 3 {
			out = append(out, words[i])
			i += n
			continue
		}
		// bigram run: the pair (words[i], words[i+1]) repeated 3+ times.
		if i+1 < len(words) {
			if n := runLength(words, i, 2); n >= 3 {
				out = append(out, words[i], words[i+1])
				i += n * 2
				continue
			}
		}
		out = append(out, words[i])
		i++
	}
	return strings.Join(out, " ")
}

// runLength reports how many consecutive copies of the phrase
// words[start:start+phraseLen] appear starting at start.
func runLength(words []string, start, phraseLen int) int {
	if start+phraseLen > len(words) {
		return 0
	}
	phrase := words[start : start+phraseLen]
	count := 1
	for pos := start + phraseLen; pos+phraseLen <= len(words); pos += phraseLen {
		if !equalPhrase(words[pos:pos+phraseLen], phrase) {
			break
		}
		count++
	}
	return count
}

func equalPhrase(a, b []string) bool {
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

// normalizeWhitespace trims, collapses runs of horizontal whitespace, and
// preserves paragraph breaks by collapsing 3+ consecutive newlines down
// to exactly two (§4.2.6).
func normalizeWhitespace(s string) string {
	s = crlfRe.ReplaceAllString(s, "\n")
	s = whitespaceRunRe.ReplaceAllString(s, " ")
	s = paragraphBreakRe.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
