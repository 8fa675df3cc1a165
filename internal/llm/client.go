// Package llm is the gateway's only generative-model caller:
// Anthropic-backed classification, HyDE query synthesis, and result
// reranking. The client is constructed once and issues one request per
// call, wrapping errors with the provider name.
package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 1024

// Client wraps the Anthropic Messages API behind the narrow text-in,
// text-out surface the classification consumer and the query planner's
// HyDE/reranker hooks both need.
type Client struct {
	sdk   anthropic.Client
	model string
}

// New builds a Client. model is the Anthropic model slug.
func New(apiKey, model string) *Client {
	return &Client{
		sdk:   anthropic.NewClient(option.WithAPIKey(apiKey)),
		model: model,
	}
}

// complete issues a single-turn message and returns the concatenated
// text of the response's content blocks.
func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.sdk.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: defaultMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm: anthropic: %w", err)
	}

	var out string
	for _, block := range resp.Content {
		out += block.Text
	}
	return out, nil
}
