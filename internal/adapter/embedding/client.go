package embedding

import (
	"context"
	"errors"
	"fmt"

	"docqa/internal/adapter/retry"
	"docqa/internal/domain"
	"docqa/internal/port"
)

var (
	_ port.Embedder = (*Client)(nil)
	_ port.Pinger   = (*Client)(nil)
)

// Client is the embedding client used by the pipeline. It splits input into
// batches, applies the retry policy to each provider call, and maps failures
// onto ErrEmbeddingUnavailable and ErrEmbeddingTimeout.
type Client struct {
	provider  port.Embedder
	runner    *retry.Runner
	batchSize int
}

// NewClient wraps a raw provider.
func NewClient(provider port.Embedder, policy retry.Policy, batchSize int) *Client {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &Client{
		provider:  provider,
		runner:    retry.NewRunner("embedding", policy),
		batchSize: batchSize,
	}
}

// Embed returns one vector per text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += c.batchSize {
		end := min(i+c.batchSize, len(texts))
		batch := texts[i:end]

		vecs, err := c.embedBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", i, end, err)
		}
		all = append(all, vecs...)
	}

	return all, nil
}

func (c *Client) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	var out [][]float32
	err := c.runner.Do(ctx, func(ctx context.Context) error {
		vecs, err := c.provider.Embed(ctx, batch)
		if err != nil {
			return classify(ctx, err)
		}
		if len(vecs) != len(batch) {
			return retry.Permanent(fmt.Errorf("%w: expected %d vectors, got %d", domain.ErrEmbeddingUnavailable, len(batch), len(vecs)))
		}
		out = vecs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func classify(callCtx context.Context, err error) error {
	if retry.TimedOut(callCtx, err) {
		return fmt.Errorf("%w: %v", domain.ErrEmbeddingTimeout, err)
	}
	wrapped := fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	if errors.Is(err, context.Canceled) || !retry.Retryable(err) {
		return retry.Permanent(wrapped)
	}
	return wrapped
}

func (c *Client) Dimension() int {
	return c.provider.Dimension()
}

func (c *Client) ModelName() string {
	return c.provider.ModelName()
}

// Ping asks the provider whether it is reachable. Providers without a ping
// are assumed reachable.
func (c *Client) Ping(ctx context.Context) error {
	p, ok := c.provider.(port.Pinger)
	if !ok {
		return nil
	}
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	return nil
}
