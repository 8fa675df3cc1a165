package embedding

import (
	"context"
	"fmt"
)

const defaultBatchSize = 100

// Client selects between a primary and fallback Provider by which key
// is configured, primary preferred.
type Client struct {
	primary  Provider
	fallback Provider
}

// NewClient builds a Client. fallback may be nil.
func NewClient(primary, fallback Provider) *Client {
	return &Client{primary: primary, fallback: fallback}
}

func (c *Client) activeProvider() (Provider, error) {
	if c.primary != nil && c.primary.Configured() {
		return c.primary, nil
	}
	if c.fallback != nil && c.fallback.Configured() {
		return c.fallback, nil
	}
	return nil, fmt.Errorf("embedding: no provider is configured")
}

// Embed embeds inputs in a single call via whichever provider is
// configured.
func (c *Client) Embed(ctx context.Context, inputs []string) (Result, error) {
	p, err := c.activeProvider()
	if err != nil {
		return Result{}, err
	}
	return p.Embed(ctx, inputs)
}

// ProgressFunc is invoked after each batch completes during BatchEmbed.
type ProgressFunc func(done, total int)

// BatchEmbed chunks inputs at defaultBatchSize and calls Embed
// sequentially, reporting progress after each chunk.
func (c *Client) BatchEmbed(ctx context.Context, inputs []string, onProgress ProgressFunc) ([]Vector, error) {
	out := make([]Vector, 0, len(inputs))
	for start := 0; start < len(inputs); start += defaultBatchSize {
		end := start + defaultBatchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		chunk := inputs[start:end]
		res, err := c.Embed(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("embedding: batch [%d:%d]: %w", start, end, err)
		}
		out = append(out, res.Vectors...)
		if onProgress != nil {
			onProgress(end, len(inputs))
		}
	}
	return out, nil
}
