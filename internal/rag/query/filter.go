package query

import (
	"context"
	"encoding/json"
	"strings"

	"typologyrag/internal/llm"
	"typologyrag/internal/persistence/vectorstore"
)

// PlannerConfidenceGate is the minimum intent-detection confidence
// required for smart (inferred) filters to be applied. Below this gate
// only explicit user-supplied filters remain (§4.8 step 4, §8 scenario
// S4). It is deliberately a distinct constant from the re-ranker's
// per-candidate similarity floor (see DESIGN.md's Open Question #2).
const PlannerConfidenceGate = 0.6

// extractedFilter is the five-field structured filter an LM-assisted
// filter extractor may produce (§4.8 step 3): season, types_discussed,
// difficulty, primary_category, content_type.
type extractedFilter struct {
	Season          string   `json:"season"`
	TypesDiscussed  []string `json:"types_discussed"`
	Difficulty      string   `json:"difficulty"`
	PrimaryCategory string   `json:"primary_category"`
	ContentType     string   `json:"content_type"`
}

// FilterExtractor is the optional LM-assisted filter extractor (§4.8
// step 3). When unavailable or it fails, the planner degrades to the
// rule-based filter built from extracted entities.
type FilterExtractor struct {
	model llm.Completer
}

// NewFilterExtractor constructs a FilterExtractor backed by model. A
// nil model is valid and simply means no LM-assisted extraction is
// available; callers should check before invoking.
func NewFilterExtractor(model llm.Completer) *FilterExtractor {
	return &FilterExtractor{model: model}
}

// Extract asks the model for a structured filter over the five
// supported fields. On any transport or parse failure it returns
// ok=false so the caller can fall back to rule-based construction.
func (fe *FilterExtractor) Extract(ctx context.Context, question string) (extractedFilter, bool) {
	if fe == nil || fe.model == nil {
		return extractedFilter{}, false
	}
	prompt := "Extract a JSON object with exactly these keys: season, types_discussed, difficulty, " +
		"primary_category, content_type. Use empty string/array when a field is not mentioned. " +
		"Respond with ONLY the JSON object.\n\nQuestion: " + question
	raw, err := fe.model.Complete(ctx, prompt, 300, 0.0)
	if err != nil {
		return extractedFilter{}, false
	}
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	var ef extractedFilter
	if err := json.Unmarshal([]byte(s), &ef); err != nil {
		return extractedFilter{}, false
	}
	return ef, true
}

// buildRuleBasedFilter assembles a filter from the rule-based entity
// extraction alone (§4.8 step 4): each array field's multiple values
// are OR'd among themselves into their own group, and the distinct
// field groups (types, relationships, season) are AND'd together.
// For S3 ("Season 22 ... ENFP pedagogue pair") this produces
// AND(types_discussed contains ENFP, relationship_type=pedagogue_pair,
// season="22"), not one flat OR spanning both fields.
func buildRuleBasedFilter(ents Entities) vectorstore.Filter {
	f := vectorstore.Filter{}
	if ents.Season != "" {
		f.Eq = map[string]string{"season": ents.Season}
	}
	f = mergeFilter(f, disjunctionGroup(ents.Types, func(t string) vectorstore.Filter {
		return vectorstore.Filter{Contains: map[string]string{"types_discussed": t}}
	}))
	f = mergeFilter(f, disjunctionGroup(ents.Relationships, func(r string) vectorstore.Filter {
		return vectorstore.Filter{Eq: map[string]string{"relationship_type": r}}
	}))
	return f
}

// disjunctionGroup builds the OR-of-itself group for one field's
// multiple extracted values: empty for no values, the bare condition
// for one, an Or of conditions for more than one.
func disjunctionGroup(values []string, build func(string) vectorstore.Filter) vectorstore.Filter {
	switch len(values) {
	case 0:
		return vectorstore.Filter{}
	case 1:
		return build(values[0])
	default:
		ors := make([]vectorstore.Filter, len(values))
		for i, v := range values {
			ors[i] = build(v)
		}
		return vectorstore.Filter{Or: ors}
	}
}

// buildExtractedFilter turns an LM-extracted filter into a
// vectorstore.Filter, honoring season-as-string and array containment.
func buildExtractedFilter(ef extractedFilter) vectorstore.Filter {
	f := vectorstore.Filter{Eq: map[string]string{}}
	if ef.Season != "" {
		f.Eq["season"] = ef.Season
	}
	if ef.Difficulty != "" {
		f.Eq["difficulty"] = ef.Difficulty
	}
	if ef.PrimaryCategory != "" {
		f.Eq["primary_category"] = ef.PrimaryCategory
	}
	if ef.ContentType != "" {
		f.Eq["content_type"] = ef.ContentType
	}
	if len(f.Eq) == 0 {
		f.Eq = nil
	}
	if len(ef.TypesDiscussed) == 1 {
		f = mergeFilter(f, vectorstore.Filter{Contains: map[string]string{"types_discussed": ef.TypesDiscussed[0]}})
	} else if len(ef.TypesDiscussed) > 1 {
		var ors []vectorstore.Filter
		for _, t := range ef.TypesDiscussed {
			ors = append(ors, vectorstore.Filter{Contains: map[string]string{"types_discussed": t}})
		}
		f = mergeFilter(f, vectorstore.Filter{Or: ors})
	}
	return f
}

// mergeFilter combines two filters conjunctively, flattening into a
// single Filter value when possible (Filter's own fields are already
// implicitly ANDed together, per vectorstore's Eq/Ne/In/Contains/Or
// semantics) rather than nesting into an And every time. It only falls
// back to an explicit And wrapper when both operands already carry a
// disjunction of their own, since concatenating two Or lists would
// silently change OR-of-A-or-B into OR-of-everything.
func mergeFilter(a, b vectorstore.Filter) vectorstore.Filter {
	if a.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return a
	}
	if len(a.Or) > 0 && len(b.Or) > 0 {
		return vectorstore.Filter{And: []vectorstore.Filter{a, b}}
	}
	out := vectorstore.Filter{
		Eq:       mergeStringMap(a.Eq, b.Eq),
		In:       mergeSliceMap(a.In, b.In),
		Ne:       mergeStringMap(a.Ne, b.Ne),
		Contains: mergeStringMap(a.Contains, b.Contains),
		And:      append(append([]vectorstore.Filter{}, a.And...), b.And...),
	}
	if len(a.Or) > 0 {
		out.Or = a.Or
	} else {
		out.Or = b.Or
	}
	return out
}

func mergeStringMap(a, b map[string]string) map[string]string {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	out := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func mergeSliceMap(a, b map[string][]string) map[string][]string {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	out := make(map[string][]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// explicitFilter builds the filter contributed by caller-supplied
// explicit_filters (§6.3), which are never suppressed by the
// confidence gate.
func explicitFilter(docID string, tags []string) vectorstore.Filter {
	f := vectorstore.Filter{}
	if docID != "" {
		f.Eq = map[string]string{"doc_id": docID}
	}
	if len(tags) == 1 {
		f = mergeFilter(f, vectorstore.Filter{Contains: map[string]string{"key_concepts": tags[0]}})
	} else if len(tags) > 1 {
		var ors []vectorstore.Filter
		for _, t := range tags {
			ors = append(ors, vectorstore.Filter{Contains: map[string]string{"key_concepts": t}})
		}
		f = mergeFilter(f, vectorstore.Filter{Or: ors})
	}
	return f
}
