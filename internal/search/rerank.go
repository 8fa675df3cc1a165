package search

import "context"

// rerankerTopK is how many candidates the reranker is handed before
// the final limit slice.
const rerankerTopK = 50

// Reranker is the generative re-scoring pass applied to the top
// semantic-search hits. Implementations are expected to return hits in
// their own preferred order; the planner slices the result to the
// caller's limit and reverses it for an ascending sort.
type Reranker interface {
	Rerank(ctx context.Context, query string, hits []Hit) ([]Hit, error)
}
