// Package llm defines the text-model contract shared by the LM cleaner,
// metadata extractor, and optional query filter extractor.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"typologyrag/internal/rag/errs"
)

// Completer is the text model contract (§6.7): given a prompt, a
// max-token budget, and a temperature, returns the completion text.
// Calls are assumed fallible with network errors and malformed output;
// every call site must handle both.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// Cost is the per-call accounting record handed to an observability
// sink after every Completer call (§4.3's "cost per call is recorded").
type Cost struct {
	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
	Duration         time.Duration
}

// CostRecorder receives a Cost after every completion call, successful or
// not (failed calls are still recorded with zero token counts).
type CostRecorder interface {
	RecordCost(Cost)
}

// NoopCostRecorder discards every cost record.
type NoopCostRecorder struct{}

func (NoopCostRecorder) RecordCost(Cost) {}

// Classify maps a raw transport/provider error to one of the two
// external-error sentinel kinds (§7): a timeout or connection failure is
// transient and retriable, anything else (4xx, malformed body) is
// permanent.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", errs.ErrTransientExternal, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", errs.ErrTransientExternal, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %v", errs.ErrTransientExternal, err)
	}
	return fmt.Errorf("%w: %v", errs.ErrPermanentExternal, err)
}
