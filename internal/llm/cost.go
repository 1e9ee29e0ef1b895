package llm

import "typologyrag/internal/obs"

// MetricsCostRecorder forwards every Cost record into an observability
// sink's histograms, tagged by provider and model (§4.3's "cost per
// call is recorded to an observability sink"). It is the production
// CostRecorder wired into the cleaner, extractor, and embedder.
type MetricsCostRecorder struct {
	Metrics obs.Metrics
}

// RecordCost satisfies CostRecorder.
func (r MetricsCostRecorder) RecordCost(c Cost) {
	labels := map[string]string{"provider": c.Provider, "model": c.Model}
	r.Metrics.ObserveHistogram("llm_prompt_tokens", float64(c.PromptTokens), labels)
	r.Metrics.ObserveHistogram("llm_completion_tokens", float64(c.CompletionTokens), labels)
	r.Metrics.ObserveHistogram("llm_call_duration_ms", float64(c.Duration.Milliseconds()), labels)
}
