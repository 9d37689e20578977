package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docqa/internal/adapter/retry"
	"docqa/internal/domain"
	"docqa/internal/port"
)

var (
	_ port.LLM    = (*Client)(nil)
	_ port.Pinger = (*Client)(nil)
)

// Client applies the retry policy to a model and maps failures onto
// ErrGenerationUnavailable and ErrGenerationTimeout.
type Client struct {
	model  port.LLM
	runner *retry.Runner
}

func NewClient(model port.LLM, policy retry.Policy) *Client {
	return &Client{model: model, runner: retry.NewRunner("generation", policy)}
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	err := c.runner.Do(ctx, func(ctx context.Context) error {
		text, err := c.model.Generate(ctx, prompt)
		if err != nil {
			return classify(ctx, err)
		}
		out = strings.TrimSpace(text)
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

func classify(callCtx context.Context, err error) error {
	if retry.TimedOut(callCtx, err) {
		return fmt.Errorf("%w: %v", domain.ErrGenerationTimeout, err)
	}
	wrapped := fmt.Errorf("%w: %v", domain.ErrGenerationUnavailable, err)
	if errors.Is(err, context.Canceled) || !retry.Retryable(err) {
		return retry.Permanent(wrapped)
	}
	return wrapped
}

func (c *Client) ModelName() string {
	return c.model.ModelName()
}

func (c *Client) Ping(ctx context.Context) error {
	p, ok := c.model.(port.Pinger)
	if !ok {
		return nil
	}
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGenerationUnavailable, err)
	}
	return nil
}
