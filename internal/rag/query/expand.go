package query

import (
	"context"
	"strings"

	"typologyrag/internal/llm"
)

const maxVariants = 4

// expandQuery generates 2-4 additional query strings that preserve
// domain terminology verbatim, always including the original question
// first (§4.8 step 5). A nil model, a transport failure, or a
// malformed response degrades to the original question alone.
func expandQuery(ctx context.Context, model llm.Completer, question string) []string {
	variants := []string{question}
	if model == nil {
		return variants
	}

	prompt := "Generate 2 to 4 alternative phrasings of the following typology-lecture search query. " +
		"Preserve every domain term (MBTI types, cognitive functions, development codes) exactly. " +
		"Respond with one phrasing per line, no numbering, no extra commentary.\n\nQuery: " + question

	raw, err := model.Complete(ctx, prompt, 300, 0.3)
	if err != nil {
		return variants
	}

	for _, line := range strings.Split(raw, "\n") {
		v := strings.TrimSpace(line)
		v = strings.TrimLeft(v, "-*0123456789. \t")
		if v == "" || strings.EqualFold(v, question) {
			continue
		}
		variants = append(variants, v)
		if len(variants)-1 >= maxVariants {
			break
		}
	}
	return variants
}
