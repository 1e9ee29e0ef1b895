package metadata

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"typologyrag/internal/llm"
	"typologyrag/internal/obs"
	"typologyrag/internal/ontology"
)

const (
	excerptSliceChars = 4000 // three disjoint slices of this size, capped at 12,000 total
	extractorMaxTokens = 2000
)

var fencedCodeTrim = []string{"```json", "```JSON", "```"}

// Extractor calls an external text model to emit the 18-field record for
// a document's cleaned text (§4.5). It does not validate its output.
type Extractor struct {
	model llm.Completer
	onto  *ontology.Ontology
	log   obs.Logger
	cost  llm.CostRecorder
}

// Option configures an Extractor.
type Option func(*Extractor)

func WithLogger(l obs.Logger) Option             { return func(e *Extractor) { e.log = l } }
func WithCostRecorder(r llm.CostRecorder) Option { return func(e *Extractor) { e.cost = r } }

// New constructs an Extractor backed by model and the process ontology.
func New(model llm.Completer, onto *ontology.Ontology, opts ...Option) *Extractor {
	e := &Extractor{model: model, onto: onto, log: obs.NoopLogger{}, cost: llm.NoopCostRecorder{}}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract returns the model's raw structured output for text, given
// sourceName for context. On a first parse failure it retries once with
// a stricter instruction; on a second failure it returns empty() with
// tag_confidence 0.0, per §4.5's robustness policy. A nil model also
// yields empty().
func (e *Extractor) Extract(ctx context.Context, sourceName, text string) Record {
	if e.model == nil {
		return empty()
	}
	excerpt := summarizeIfOversized(text)

	start := time.Now()
	raw, err := e.model.Complete(ctx, e.prompt(sourceName, excerpt, false), extractorMaxTokens, 0.0)
	e.cost.RecordCost(llm.Cost{Duration: time.Since(start)})
	if err == nil {
		if rec, ok := parseRecord(raw); ok {
			return rec
		}
	}

	start = time.Now()
	raw, err = e.model.Complete(ctx, e.prompt(sourceName, excerpt, true), extractorMaxTokens, 0.0)
	e.cost.RecordCost(llm.Cost{Duration: time.Since(start)})
	if err == nil {
		if rec, ok := parseRecord(raw); ok {
			return rec
		}
	}

	e.log.Error("metadata_extraction_failed", map[string]any{"source_name": sourceName})
	return empty()
}

// summarizeIfOversized returns text unchanged when it fits within a
// single extraction call, otherwise returns three disjoint
// beginning/middle/end excerpts of equal size totaling <= 12,000 chars
// (§4.5).
func summarizeIfOversized(text string) string {
	const fullBudget = 3 * excerptSliceChars
	if len(text) <= fullBudget {
		return text
	}
	begin := text[:excerptSliceChars]
	mid := text[len(text)/2-excerptSliceChars/2 : len(text)/2+excerptSliceChars/2]
	end := text[len(text)-excerptSliceChars:]
	return begin + "\n\n[...]\n\n" + mid + "\n\n[...]\n\n" + end
}

func (e *Extractor) prompt(sourceName, text string, strict bool) string {
	var b strings.Builder
	b.WriteString("Extract typology-lecture metadata as a single JSON object with exactly these 18 keys: ")
	b.WriteString("content_type, difficulty, primary_category, types_discussed, functions_covered, ")
	b.WriteString("function_positions, relationship_type, quadra, temple, octagram_states, pair_dynamics, ")
	b.WriteString("archetypes, interaction_style_details, key_concepts, teaching_focus, ")
	b.WriteString("prerequisite_knowledge, target_audience, tag_confidence.\n\n")
	b.WriteString("Enumerated fields must use one of these values:\n")
	b.WriteString("types_discussed/relevant types: " + strings.Join(e.onto.Types(), ", ") + "\n")
	b.WriteString("functions_covered: " + strings.Join(e.onto.Functions(), ", ") + "\n")
	if strict {
		b.WriteString("\nRespond with ONLY the JSON object, no prose, no markdown fences, no trailing text.\n")
	}
	b.WriteString("\nSource: " + sourceName + "\n\nText:\n" + text)
	return b.String()
}

// parseRecord strips common fenced-code wrappers and parses raw JSON
// into a Record.
func parseRecord(raw string) (Record, bool) {
	s := strings.TrimSpace(raw)
	for _, fence := range fencedCodeTrim {
		s = strings.TrimPrefix(s, fence)
	}
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	var rec Record
	if err := json.Unmarshal([]byte(s), &rec); err != nil {
		return Record{}, false
	}
	return rec, true
}
