// Package cleaner implements Stage 2 of ingestion: condensation of
// normalized transcript text through an external text model, with
// bounded windowing, retry, and per-window degradation.
package cleaner

import (
	"context"
	"errors"
	"strings"
	"time"

	"typologyrag/internal/llm"
	"typologyrag/internal/obs"
	"typologyrag/internal/rag/errs"
)

const (
	maxWindowChars = 10000
	maxRetries     = 2
	baseBackoff    = 200 * time.Millisecond
)

// Result is the Stage 2 outcome: the condensed text plus whether any
// window fell back to its normalized input after exhausting retries.
// DegradedWindows names the 0-based window indices that fell back, so
// callers can report a per-window label (e.g. "cleaner:window#2")
// rather than a single flat flag.
type Result struct {
	Text            string
	Degraded        bool
	DegradedWindows []int
}

// Cleaner condenses normalized text via an external text model.
type Cleaner struct {
	model       llm.Completer
	log         obs.Logger
	metrics     obs.Metrics
	clock       obs.Clock
	cost        llm.CostRecorder
	maxTokens   int
	temperature float64
}

// Option configures a Cleaner.
type Option func(*Cleaner)

func WithLogger(l obs.Logger) Option             { return func(c *Cleaner) { c.log = l } }
func WithMetrics(m obs.Metrics) Option           { return func(c *Cleaner) { c.metrics = m } }
func WithClock(cl obs.Clock) Option              { return func(c *Cleaner) { c.clock = cl } }
func WithCostRecorder(r llm.CostRecorder) Option { return func(c *Cleaner) { c.cost = r } }
func WithMaxTokens(n int) Option                 { return func(c *Cleaner) { c.maxTokens = n } }
func WithTemperature(t float64) Option           { return func(c *Cleaner) { c.temperature = t } }

// New constructs a Cleaner backed by model.
func New(model llm.Completer, opts ...Option) *Cleaner {
	c := &Cleaner{
		model:       model,
		log:         obs.NoopLogger{},
		metrics:     obs.NoopMetrics{},
		clock:       obs.SystemClock{},
		cost:        llm.NoopCostRecorder{},
		maxTokens:   1500,
		temperature: 0.0,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Clean splits normalized into ≤10,000-character windows at paragraph
// boundaries when possible, condenses each window independently and in
// order, and concatenates the results with a single blank line (§4.3).
// A window that fails after exhausting retries falls back to its own
// normalized text and sets Result.Degraded.
func (c *Cleaner) Clean(ctx context.Context, docID string, normalized string) Result {
	windows := splitWindows(normalized, maxWindowChars)
	cleaned := make([]string, len(windows))
	degraded := false
	var degradedWindows []int

	for i, w := range windows {
		start := c.clock.Now()
		out, err := c.callWithRetry(ctx, w)
		dur := c.clock.Now().Sub(start)
		c.metrics.ObserveHistogram("cleaner_window_ms", float64(dur.Milliseconds()), map[string]string{"doc_id": docID})
		c.cost.RecordCost(llm.Cost{Duration: dur})

		if err != nil {
			c.log.Error("cleaner_window_degraded", map[string]any{
				"doc_id": docID, "window": i, "err": err.Error(),
			})
			c.metrics.IncCounter("cleaner_window_degraded_total", map[string]string{"doc_id": docID})
			cleaned[i] = w
			degraded = true
			degradedWindows = append(degradedWindows, i)
			continue
		}
		cleaned[i] = out
	}

	return Result{Text: strings.Join(cleaned, "\n\n"), Degraded: degraded, DegradedWindows: degradedWindows}
}

// callWithRetry calls the model once, then retries up to maxRetries
// times against transient errors with exponential backoff. A permanent
// error is not retried.
func (c *Cleaner) callWithRetry(ctx context.Context, window string) (string, error) {
	if c.model == nil {
		return "", errors.New("cleaner: no text model configured")
	}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(baseBackoff * time.Duration(1<<uint(attempt-1))):
			}
		}
		out, err := c.model.Complete(ctx, prompt(window), c.maxTokens, c.temperature)
		if err == nil {
			return strings.TrimSpace(out), nil
		}
		lastErr = err
		if !isTransient(err) {
			return "", err
		}
	}
	return "", lastErr
}

// isTransient reports whether err is retriable: either explicitly
// classified as a transient external error (llm.Classify), or a plain
// context deadline/cancellation a caller forgot to classify.
func isTransient(err error) bool {
	return errors.Is(err, errs.ErrTransientExternal) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

// splitWindows partitions text into chunks of at most maxChars
// characters, preferring to break at paragraph boundaries (blank lines)
// and falling back to a hard cut when a single paragraph exceeds
// maxChars on its own.
func splitWindows(text string, maxChars int) []string {
	if len(text) <= maxChars {
		if text == "" {
			return []string{""}
		}
		return []string{text}
	}

	paragraphs := strings.Split(text, "\n\n")
	var windows []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			windows = append(windows, cur.String())
			cur.Reset()
		}
	}

	for _, p := range paragraphs {
		if len(p) > maxChars {
			flush()
			windows = append(windows, hardSplit(p, maxChars)...)
			continue
		}
		sep := 0
		if cur.Len() > 0 {
			sep = 2
		}
		if cur.Len()+sep+len(p) > maxChars {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(p)
	}
	flush()
	if len(windows) == 0 {
		windows = []string{""}
	}
	return windows
}

func hardSplit(text string, maxChars int) []string {
	var out []string
	for len(text) > maxChars {
		out = append(out, text[:maxChars])
		text = text[maxChars:]
	}
	if len(text) > 0 {
		out = append(out, text)
	}
	return out
}

// prompt builds the condensation instruction for a single window.
func prompt(window string) string {
	var b strings.Builder
	b.WriteString("Condense the following lecture transcript excerpt by removing filler words and repetition. ")
	b.WriteString("Preserve every domain term exactly (MBTI types, cognitive functions, development codes). ")
	b.WriteString("Do not introduce new claims. Target a 30-60% reduction by character count.\n\n")
	b.WriteString(window)
	return b.String()
}
