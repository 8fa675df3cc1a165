// Package search implements the query planner: the decision tree that
// turns one search request into either a filtered listing or a
// semantic search, optionally sharpened by HyDE query expansion and a
// reranking pass.
package search

import (
	"github.com/agentauri/gateway/internal/vectorstore/filter"
)

// SortField is the set of fields a request may sort by.
type SortField string

const (
	SortRelevance  SortField = "relevance"
	SortName       SortField = "name"
	SortCreatedAt  SortField = "createdAt"
	SortReputation SortField = "reputation"
)

// SortOrder is ascending or descending.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// Sort is the request's requested ordering.
type Sort struct {
	Field SortField
	Order SortOrder
}

// Request is the query planner's input. Cursor, when set, takes
// priority over Offset: it is the encoded continuation of a prior
// page.
type Request struct {
	Query       string
	Filters     filter.Request
	Limit       int
	Offset      int
	Cursor      string
	MinScore    *float32
	Sort        Sort
	UseHyDE     bool
	UseReranker bool
}

// Hit is a single result row.
type Hit struct {
	AgentID      string
	Score        float32
	Payload      map[string]any
	MatchReasons []string
}

// ChainCount is one entry of the per-chain result breakdown.
type ChainCount struct {
	ChainID int64
	Count   uint64
}

// HyDEInfo reports whether and how HyDE participated in the request.
type HyDEInfo struct {
	Used        bool
	Description string
	Cached      bool
	FellBack    bool
}

// RerankerInfo reports whether the reranker participated.
type RerankerInfo struct {
	Used bool
	TopK int
}

// Response is the query planner's output.
type Response struct {
	Results        []Hit
	Total          uint64
	HasMore        bool
	NextCursor     string
	ChainBreakdown []ChainCount
	HyDE           HyDEInfo
	Reranker       RerankerInfo
}
