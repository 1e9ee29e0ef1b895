// Package anthropic adapts the Anthropic Messages API to the llm.
// Completer contract, offered as an alternate text-model provider.
package anthropic

import (
	"context"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"typologyrag/internal/llm"
	"typologyrag/internal/obs"
)

// Client wraps the Anthropic Messages endpoint.
type Client struct {
	sdk   sdk.Client
	model string
	log   obs.Logger
	cost  llm.CostRecorder
}

// Option configures a Client.
type Option func(*Client)

// WithLogger overrides the default no-op logger.
func WithLogger(l obs.Logger) Option { return func(c *Client) { c.log = l } }

// WithCostRecorder overrides the default no-op cost recorder.
func WithCostRecorder(r llm.CostRecorder) Option { return func(c *Client) { c.cost = r } }

// New constructs a Client for model using apiKey.
func New(apiKey, model string, opts ...Option) *Client {
	c := &Client{
		sdk:   sdk.NewClient(option.WithAPIKey(apiKey)),
		model: model,
		log:   obs.NoopLogger{},
		cost:  llm.NoopCostRecorder{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Complete satisfies llm.Completer.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	start := time.Now()
	msg, err := c.sdk.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   int64(maxTokens),
		Temperature: sdk.Float(temperature),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	dur := time.Since(start)
	if err != nil {
		c.log.Error("anthropic_completion_error", map[string]any{"model": c.model, "err": err.Error(), "duration_ms": dur.Milliseconds()})
		c.cost.RecordCost(llm.Cost{Provider: "anthropic", Model: c.model, Duration: dur})
		return "", llm.Classify(err)
	}

	var out string
	for _, block := range msg.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	c.cost.RecordCost(llm.Cost{
		Provider:         "anthropic",
		Model:            c.model,
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
		Duration:         dur,
	})
	c.log.Debug("anthropic_completion", map[string]any{
		"model":             c.model,
		"duration_ms":       dur.Milliseconds(),
		"prompt_tokens":     msg.Usage.InputTokens,
		"completion_tokens": msg.Usage.OutputTokens,
	})
	return out, nil
}
