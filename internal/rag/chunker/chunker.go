// Package chunker implements the deterministic semantic chunking stage
// (Stage 4): it produces self-contained chunks whose boundaries align
// with concept shifts, under hard size bounds.
package chunker

import (
	"regexp"
	"strings"
)

const (
	maxChunkChars     = 3000
	minTrailingChunk  = 500
	paragraphSplitMax = 5000
	safetyNetMin      = 5000
	safetyNetLow      = 2000
	safetyNetHigh     = 3000
)

// Piece is a single emitted unit of text with its position in the
// document.
type Piece struct {
	Index int
	Text  string
}

var sentenceTerminatorRe = regexp.MustCompile(`[.!?]\s`)

// Chunk splits cleaned into chunks per the six-step algorithm in §4.4.
// Output order is strictly the order of the source text.
func Chunk(cleaned string) []Piece {
	if strings.TrimSpace(cleaned) == "" {
		return []Piece{{Index: 0, Text: cleaned}}
	}
	units := primarySplit(cleaned)
	units = fallbackSplit(units)

	packed := greedyPack(units, maxChunkChars)

	var forced []string
	for _, u := range packed {
		forced = append(forced, forceSplitOversized(u, maxChunkChars)...)
	}

	forced = safetyNet(cleaned, forced)
	forced = mergeShortChunks(forced, minTrailingChunk)

	out := make([]Piece, len(forced))
	for i, t := range forced {
		out[i] = Piece{Index: i, Text: t}
	}
	return out
}

// primarySplit partitions on blank-line paragraph breaks (step 1).
func primarySplit(text string) []string {
	parts := strings.Split(text, "\n\n")
	var out []string
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}

// fallbackSplit further splits on single newlines when the primary split
// yielded a single paragraph or any paragraph exceeds 5,000 characters
// (step 2).
func fallbackSplit(units []string) []string {
	needsFallback := len(units) == 1
	if !needsFallback {
		for _, u := range units {
			if len(u) > paragraphSplitMax {
				needsFallback = true
				break
			}
		}
	}
	if !needsFallback {
		return units
	}
	var out []string
	for _, u := range units {
		if len(u) <= paragraphSplitMax {
			out = append(out, u)
			continue
		}
		for _, line := range strings.Split(u, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		return units
	}
	return out
}

// greedyPack walks units in order, accumulating into a current chunk
// while the size bound is not exceeded; on overflow it emits the current
// chunk and starts a new one (step 3).
func greedyPack(units []string, maxLen int) []string {
	var out []string
	var cur strings.Builder

	for _, u := range units {
		sep := 0
		if cur.Len() > 0 {
			sep = 2
		}
		if cur.Len() > 0 && cur.Len()+sep+len(u) > maxLen {
			out = append(out, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(u)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// forceSplitOversized splits any individual unit exceeding maxLen at the
// nearest sentence terminator; if none exists within maxLen, it splits
// at exactly maxLen (step 4).
func forceSplitOversized(unit string, maxLen int) []string {
	if len(unit) <= maxLen {
		return []string{unit}
	}
	var out []string
	remaining := unit
	for len(remaining) > maxLen {
		cut := lastSentenceBoundary(remaining[:maxLen])
		if cut <= 0 {
			cut = maxLen
		}
		out = append(out, strings.TrimSpace(remaining[:cut]))
		remaining = remaining[cut:]
	}
	if strings.TrimSpace(remaining) != "" {
		out = append(out, remaining)
	}
	return out
}

// lastSentenceBoundary returns the index just past the last sentence
// terminator found in s, or -1 if none exists.
func lastSentenceBoundary(s string) int {
	locs := sentenceTerminatorRe.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return -1
	}
	last := locs[len(locs)-1]
	return last[1]
}

// safetyNet force-splits by character count into equal pieces sized
// between 2,000 and 3,000 when the source document exceeds 5,000
// characters but the prior steps produced only a single chunk (step 5).
func safetyNet(original string, chunks []string) []string {
	if len(original) <= safetyNetMin || len(chunks) != 1 {
		return chunks
	}
	text := chunks[0]
	n := (len(text) + safetyNetHigh - 1) / safetyNetHigh
	if n < 2 {
		n = 2
	}
	size := len(text) / n
	if size < safetyNetLow {
		size = safetyNetLow
	}
	if size > safetyNetHigh {
		size = safetyNetHigh
	}

	var out []string
	for len(text) > size {
		out = append(out, text[:size])
		text = text[size:]
	}
	if len(text) > 0 {
		out = append(out, text)
	}
	return out
}

// mergeShortChunks merges every chunk smaller than minLen into its
// previous neighbor, or into its next neighbor when it is first (step 6).
// §4.4 names only the trailing case, but a mid-document short chunk (a
// small paragraph packed alone ahead of a much larger one) trips
// invariant #3 just the same, so every position is swept, not just the
// last. When a merge would exceed maxChunkChars, the merged text is cut
// into two equal halves instead, so both size bounds still hold.
func mergeShortChunks(chunks []string, minLen int) []string {
	if len(chunks) < 2 {
		return chunks
	}
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if len(out) > 0 && len(c) < minLen {
			merged := out[len(out)-1] + "\n\n" + c
			if len(merged) <= maxChunkChars {
				out[len(out)-1] = merged
				continue
			}
			half := len(merged) / 2
			out[len(out)-1], c = merged[:half], merged[half:]
		}
		out = append(out, c)
	}
	if len(out) >= 2 && len(out[0]) < minLen {
		merged := out[0] + "\n\n" + out[1]
		if len(merged) <= maxChunkChars {
			out[1] = merged
			out = out[1:]
		} else {
			half := len(merged) / 2
			out[0], out[1] = merged[:half], merged[half:]
		}
	}
	return out
}
