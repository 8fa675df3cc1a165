// Package embedding converts text to vectors via a primary/fallback
// provider pair, with shared text assembly and cosine similarity.
package embedding

import (
	"context"
	"fmt"
	"sort"

	openai "github.com/sashabaranov/go-openai"
)

const VectorDimensions = 1024

// Vector is a single embedding vector. Dimensionality is fixed at 1024
// regardless of provider.
type Vector = []float32

// Result is the response of a single embed call.
type Result struct {
	Vectors     []Vector
	Model       string
	Provider    string
	TotalTokens int
}

// Provider is implemented by each embedding backend. Selection between
// primary and fallback is by which key is configured, done by the
// Client rather than the Provider itself.
type Provider interface {
	Name() string
	Configured() bool
	Embed(ctx context.Context, inputs []string) (Result, error)
}

// openAIProvider wraps github.com/sashabaranov/go-openai. The response
// entries are sorted by their Index field before being returned, so
// callers can rely on positional correspondence with the input slice
// even if the provider's wire response reorders them.
type openAIProvider struct {
	name   string
	apiKey string
	model  string
	client *openai.Client
}

// NewOpenAIProvider builds a Provider backed by an OpenAI-compatible
// embeddings endpoint. baseURL may be empty to use the default OpenAI
// API, or set to target an OpenAI-compatible fallback gateway (Azure
// OpenAI, a self-hosted embeddings proxy).
func NewOpenAIProvider(name, apiKey, model, baseURL string) Provider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &openAIProvider{
		name:   name,
		apiKey: apiKey,
		model:  model,
		client: openai.NewClientWithConfig(cfg),
	}
}

func (p *openAIProvider) Name() string { return p.name }

func (p *openAIProvider) Configured() bool { return p.apiKey != "" }

func (p *openAIProvider) Embed(ctx context.Context, inputs []string) (Result, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input:      inputs,
		Model:      openai.EmbeddingModel(p.model),
		Dimensions: VectorDimensions,
	})
	if err != nil {
		return Result{}, fmt.Errorf("embedding: %s: %w", p.name, err)
	}

	sort.Slice(resp.Data, func(i, j int) bool {
		return resp.Data[i].Index < resp.Data[j].Index
	})

	vectors := make([]Vector, len(resp.Data))
	for _, d := range resp.Data {
		vectors[d.Index] = d.Embedding
	}

	return Result{
		Vectors:     vectors,
		Model:       string(resp.Model),
		Provider:    p.name,
		TotalTokens: resp.Usage.TotalTokens,
	}, nil
}
