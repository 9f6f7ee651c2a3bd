package llm

import (
	"context"
	"fmt"

	"codewiki/internal/logging"
)

// Chain wraps a Client with an ordered list of model configurations. The
// first model is tried first; retryable failures advance to the next.
// Exhaustion is a hard failure (ErrModelFatal).
type Chain struct {
	client Client
	models []string
}

// NewChain builds a fallback chain. models must be non-empty.
func NewChain(client Client, models []string) *Chain {
	return &Chain{client: client, models: models}
}

// Models returns the configured chain order.
func (c *Chain) Models() []string {
	return c.models
}

// Primary returns the first model in the chain.
func (c *Chain) Primary() string {
	if len(c.models) == 0 {
		return ""
	}
	return c.models[0]
}

// Complete runs Client.Complete down the chain.
func (c *Chain) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var out string
	err := c.attempt(ctx, func(model string) error {
		var err error
		out, err = c.client.Complete(ctx, model, systemPrompt, userPrompt)
		return err
	})
	return out, err
}

// Chat runs Client.Chat down the chain. req.Model is overwritten per
// attempt.
func (c *Chain) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var out *ChatResponse
	err := c.attempt(ctx, func(model string) error {
		req.Model = model
		var err error
		out, err = c.client.Chat(ctx, req)
		return err
	})
	return out, err
}

// attempt walks the chain, advancing only on retryable error classes.
func (c *Chain) attempt(ctx context.Context, call func(model string) error) error {
	if len(c.models) == 0 {
		return fmt.Errorf("%w: empty chain", ErrModelFatal)
	}
	var lastErr error
	for i, model := range c.models {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := call(model)
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsRetryable(err) {
			logging.APIError("model %s failed fatally: %v", model, err)
			return err
		}
		if i < len(c.models)-1 {
			logging.APIWarn("model %s failed (retryable), advancing to %s: %v", model, c.models[i+1], err)
		}
	}
	logging.APIError("fallback chain exhausted after %d models: %v", len(c.models), lastErr)
	return fmt.Errorf("%w: %v", ErrModelFatal, lastErr)
}
