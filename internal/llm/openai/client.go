// Package openai adapts the OpenAI chat-completions API to the llm.
// Completer contract.
package openai

import (
	"context"
	"time"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"typologyrag/internal/llm"
	"typologyrag/internal/obs"
)

// Client wraps the OpenAI SDK chat-completions endpoint.
type Client struct {
	sdk    sdk.Client
	model  string
	log    obs.Logger
	cost   llm.CostRecorder
}

// Option configures a Client.
type Option func(*Client)

// WithLogger overrides the default no-op logger.
func WithLogger(l obs.Logger) Option { return func(c *Client) { c.log = l } }

// WithCostRecorder overrides the default no-op cost recorder.
func WithCostRecorder(r llm.CostRecorder) Option { return func(c *Client) { c.cost = r } }

// New constructs a Client for model using apiKey, optionally against a
// self-hosted-compatible baseURL.
func New(apiKey, baseURL, model string, opts ...Option) *Client {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	c := &Client{
		sdk:   sdk.NewClient(reqOpts...),
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
	params := sdk.ChatCompletionNewParams{
		Model: sdk.ChatModel(c.model),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.UserMessage(prompt),
		},
		MaxTokens:   sdk.Int(int64(maxTokens)),
		Temperature: sdk.Float(temperature),
	}

	start := time.Now()
	comp, err := c.sdk.Chat.Completions.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		c.log.Error("openai_completion_error", map[string]any{"model": c.model, "err": err.Error(), "duration_ms": dur.Milliseconds()})
		c.cost.RecordCost(llm.Cost{Provider: "openai", Model: c.model, Duration: dur})
		return "", llm.Classify(err)
	}

	var out string
	if len(comp.Choices) > 0 {
		out = comp.Choices[0].Message.Content
	}
	c.cost.RecordCost(llm.Cost{
		Provider:         "openai",
		Model:            c.model,
		PromptTokens:     int(comp.Usage.PromptTokens),
		CompletionTokens: int(comp.Usage.CompletionTokens),
		Duration:         dur,
	})
	c.log.Debug("openai_completion", map[string]any{
		"model":             c.model,
		"duration_ms":       dur.Milliseconds(),
		"prompt_tokens":     comp.Usage.PromptTokens,
		"completion_tokens": comp.Usage.CompletionTokens,
	})
	return out, nil
}
