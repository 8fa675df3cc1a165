package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/agentauri/gateway/internal/embedding"
	"github.com/agentauri/gateway/internal/vectorstore"
	"github.com/agentauri/gateway/internal/vectorstore/filter"
	"github.com/agentauri/gateway/pkg/xsync"
)

// maxInMemorySort bounds how many records an in-memory sort will pull,
// used both for the string-keyed 'name' listing sort and the
// non-relevance semantic-search sort path.
const maxInMemorySort = 1000

// VectorStore is the subset of the vector store the planner drives.
type VectorStore interface {
	Search(ctx context.Context, vector []float32, f *qdrant.Filter, limit uint64, offset uint64, scoreThreshold *float32) (vectorstore.SearchResult, error)
	Scroll(ctx context.Context, f *qdrant.Filter, limit uint64, orderBy string, cursor string) (vectorstore.ScrollResult, error)
	ScrollDesc(ctx context.Context, f *qdrant.Filter, limit uint64, orderBy string, cursor string) (vectorstore.ScrollResult, error)
	Count(ctx context.Context, f *qdrant.Filter) (uint64, error)
}

// EmbeddingClient is the single-call embedding surface the planner uses
// to embed the effective query text.
type EmbeddingClient interface {
	Embed(ctx context.Context, inputs []string) (embedding.Result, error)
}

// Config wires the planner's dependencies. HyDE and Reranker may be nil
// even when a request sets UseHyDE/UseReranker. A nil HyDE means the raw
// query is embedded with the caller's filters, with no heuristic
// fallback; a nil Reranker leaves hits in store order, as when
// reranking fails.
type Config struct {
	Store    VectorStore
	Embedder EmbeddingClient
	HyDE     HyDEGenerator
	Reranker Reranker
}

// Planner turns one search request into store calls and a response.
type Planner struct {
	store     VectorStore
	embedder  EmbeddingClient
	hydeGen   HyDEGenerator
	reranker  Reranker
	hydeCache *hydeCache
	now       func() time.Time
}

func New(cfg Config) *Planner {
	return &Planner{
		store:     cfg.Store,
		embedder:  cfg.Embedder,
		hydeGen:   cfg.HyDE,
		reranker:  cfg.Reranker,
		hydeCache: newHydeCache(),
		now:       time.Now,
	}
}

// Plan executes the planning decision tree: a filtered listing when no
// query text is present, otherwise a semantic search.
func (p *Planner) Plan(ctx context.Context, req Request) (Response, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	offset := req.Offset
	if req.Cursor != "" {
		decoded, err := decodeCursor(req.Cursor)
		if err != nil {
			return Response{}, err
		}
		offset = decoded
	}

	if strings.TrimSpace(req.Query) == "" {
		return p.planListing(ctx, req, offset)
	}
	return p.planSemantic(ctx, req, offset)
}

// planListing handles the no-query-text branch: a filtered listing.
func (p *Planner) planListing(ctx context.Context, req Request, offset int) (Response, error) {
	now := p.now()
	compiled, err := filter.Compile(req.Filters, now)
	if err != nil {
		return Response{}, fmt.Errorf("search: compile filter: %w", err)
	}

	sortField := req.Sort.Field
	if sortField == "" || sortField == SortRelevance {
		// Relevance is meaningless without query text; fall back to
		// the default field.
		sortField = SortCreatedAt
	}
	order := req.Sort.Order
	if order == "" {
		order = OrderDesc
	}

	var (
		points  []vectorstore.ScoredPoint
		total   uint64
		hasMore bool
	)

	switch sortField {
	case SortCreatedAt, SortReputation:
		points, total, hasMore, err = p.listOrdered(ctx, compiled, payloadKeyFor(sortField), order, offset, req.Limit)
	case SortName:
		points, total, hasMore, err = p.listSortedInMemory(ctx, compiled, sortField, order, offset, req.Limit)
	default:
		return Response{}, fmt.Errorf("search: unsupported sort field %q", sortField)
	}
	if err != nil {
		return Response{}, err
	}

	hits := toHits(points, nil)
	return buildResponse(hits, total, hasMore, offset, req.Limit), nil
}

// listOrdered fetches offset+limit+1 in store order and skips offset in
// memory, detecting has_more from whether more than offset+limit rows
// came back.
func (p *Planner) listOrdered(ctx context.Context, f *qdrant.Filter, key string, order SortOrder, offset, limit int) ([]vectorstore.ScoredPoint, uint64, bool, error) {
	fetch := uint64(offset + limit + 1)

	var (
		scrollRes vectorstore.ScrollResult
		total     uint64
		scrollErr error
		countErr  error
	)
	done := make(chan struct{}, 2)
	xsync.Go(func() {
		defer func() { done <- struct{}{} }()
		if order == OrderAsc {
			scrollRes, scrollErr = p.store.Scroll(ctx, f, fetch, key, "")
		} else {
			scrollRes, scrollErr = p.store.ScrollDesc(ctx, f, fetch, key, "")
		}
	}, nil)
	xsync.Go(func() {
		defer func() { done <- struct{}{} }()
		total, countErr = p.store.Count(ctx, f)
	}, nil)
	<-done
	<-done

	if scrollErr != nil {
		return nil, 0, false, fmt.Errorf("search: list ordered: %w", scrollErr)
	}
	if countErr != nil {
		return nil, 0, false, fmt.Errorf("search: count: %w", countErr)
	}

	points := scrollRes.Points
	hasMore := len(points) > offset+limit
	if offset < len(points) {
		points = points[offset:]
	} else {
		points = nil
	}
	if len(points) > limit {
		points = points[:limit]
	}

	return points, total, hasMore, nil
}

// listSortedInMemory handles the 'name' sort field, which the vector
// store cannot order by natively: scroll a capped number of records,
// sort in memory with a stable tie-break on agent_id, then slice.
func (p *Planner) listSortedInMemory(ctx context.Context, f *qdrant.Filter, field SortField, order SortOrder, offset, limit int) ([]vectorstore.ScoredPoint, uint64, bool, error) {
	var (
		scrollRes vectorstore.ScrollResult
		total     uint64
		scrollErr error
		countErr  error
	)
	done := make(chan struct{}, 2)
	xsync.Go(func() {
		defer func() { done <- struct{}{} }()
		scrollRes, scrollErr = p.store.Scroll(ctx, f, maxInMemorySort, "", "")
	}, nil)
	xsync.Go(func() {
		defer func() { done <- struct{}{} }()
		total, countErr = p.store.Count(ctx, f)
	}, nil)
	<-done
	<-done

	if scrollErr != nil {
		return nil, 0, false, fmt.Errorf("search: scroll for in-memory sort: %w", scrollErr)
	}
	if countErr != nil {
		return nil, 0, false, fmt.Errorf("search: count: %w", countErr)
	}

	points := scrollRes.Points
	sortPointsBy(points, field, order)

	hasMore := offset+limit < len(points)
	end := offset + limit
	if end > len(points) {
		end = len(points)
	}
	if offset > len(points) {
		offset = len(points)
	}
	return points[offset:end], total, hasMore, nil
}

// planSemantic handles the query-text branch: a vector search.
func (p *Planner) planSemantic(ctx context.Context, req Request, offset int) (Response, error) {
	now := p.now()

	effectiveText, effectiveFilters, hydeInfo := p.resolveHyde(ctx, req)

	embedded, err := p.embedder.Embed(ctx, []string{effectiveText})
	if err != nil {
		return Response{}, fmt.Errorf("search: embed query: %w", err)
	}
	if len(embedded.Vectors) == 0 {
		return Response{}, fmt.Errorf("search: embed query: no vector returned")
	}
	vector := embedded.Vectors[0]

	compiled, err := filter.Compile(effectiveFilters, now)
	if err != nil {
		return Response{}, fmt.Errorf("search: compile filter: %w", err)
	}

	sortField := req.Sort.Field
	if sortField == "" {
		sortField = SortRelevance
	}

	var (
		hits         []Hit
		total        uint64
		hasMore      bool
		rerankerInfo RerankerInfo
	)

	if sortField == SortRelevance {
		fetchLimit := req.Limit
		if req.UseReranker && p.reranker != nil {
			fetchLimit = max(fetchLimit, rerankerTopK)
		}

		var (
			searchRes vectorstore.SearchResult
			searchErr error
			countErr  error
		)
		done := make(chan struct{}, 2)
		xsync.Go(func() {
			defer func() { done <- struct{}{} }()
			searchRes, searchErr = p.store.Search(ctx, vector, compiled, uint64(fetchLimit), uint64(offset), req.MinScore)
		}, nil)
		xsync.Go(func() {
			defer func() { done <- struct{}{} }()
			total, countErr = p.store.Count(ctx, compiled)
		}, nil)
		<-done
		<-done
		if searchErr != nil {
			return Response{}, fmt.Errorf("search: semantic search: %w", searchErr)
		}
		if countErr != nil {
			return Response{}, fmt.Errorf("search: count: %w", countErr)
		}

		hits = toHits(searchRes.Points, scoreOf(searchRes.Points))
		hasMore = searchRes.HasMore

		if req.UseReranker && p.reranker != nil && len(hits) > 0 {
			reranked, err := p.reranker.Rerank(ctx, req.Query, hits)
			if err == nil {
				hits = reranked
				rerankerInfo = RerankerInfo{Used: true, TopK: rerankerTopK}
			}
		}
		if len(hits) > req.Limit {
			hits = hits[:req.Limit]
		}
		if req.Sort.Order == OrderAsc {
			reverseHits(hits)
		}
	} else {
		var (
			searchRes vectorstore.SearchResult
			searchErr error
			countErr  error
		)
		done := make(chan struct{}, 2)
		xsync.Go(func() {
			defer func() { done <- struct{}{} }()
			searchRes, searchErr = p.store.Search(ctx, vector, compiled, maxInMemorySort, 0, req.MinScore)
		}, nil)
		xsync.Go(func() {
			defer func() { done <- struct{}{} }()
			total, countErr = p.store.Count(ctx, compiled)
		}, nil)
		<-done
		<-done
		if searchErr != nil {
			return Response{}, fmt.Errorf("search: semantic search: %w", searchErr)
		}
		if countErr != nil {
			return Response{}, fmt.Errorf("search: count: %w", countErr)
		}

		points := searchRes.Points
		sortPointsBy(points, sortField, req.Sort.Order)

		hasMore = offset+req.Limit < len(points)
		end := offset + req.Limit
		if end > len(points) {
			end = len(points)
		}
		start := offset
		if start > len(points) {
			start = len(points)
		}
		hits = toHits(points[start:end], scoreOf(points[start:end]))
	}

	resp := buildResponse(hits, total, hasMore, offset, req.Limit)
	resp.HyDE = hydeInfo
	resp.Reranker = rerankerInfo
	return resp, nil
}

// resolveHyde runs the HyDE synthesis-or-fallback pipeline and returns
// the effective embedding text, the effective filter request (caller
// filters merged over HyDE/heuristic hints), and the metadata to
// report back to the caller.
func (p *Planner) resolveHyde(ctx context.Context, req Request) (string, filter.Request, HyDEInfo) {
	if !req.UseHyDE || p.hydeGen == nil || !hydeGate(req.Query) {
		return req.Query, req.Filters, HyDEInfo{}
	}

	sanitized := sanitizeQuery(req.Query)

	if cached, ok := p.hydeCache.get(sanitized); ok {
		return cached.Description, mergeFilterHints(req.Filters, cached.Filters), HyDEInfo{
			Used:        true,
			Description: cached.Description,
			Cached:      true,
		}
	}

	raw, err := p.hydeGen.Generate(ctx, sanitized)
	if err == nil {
		entry, perr := parseHydeResponse(raw)
		if perr == nil && entry.Description != "" {
			p.hydeCache.put(sanitized, entry)
			return entry.Description, mergeFilterHints(req.Filters, entry.Filters), HyDEInfo{
				Used:        true,
				Description: entry.Description,
			}
		}
	}

	hints := heuristicExtract(req.Query)
	return expandQuery(req.Query), mergeFilterHints(req.Filters, hints), HyDEInfo{FellBack: true}
}

func payloadKeyFor(field SortField) string {
	switch field {
	case SortCreatedAt:
		return "created_at"
	case SortReputation:
		return "reputation"
	case SortName:
		return "name"
	default:
		return ""
	}
}

func scoreOf(points []vectorstore.ScoredPoint) []float32 {
	out := make([]float32, len(points))
	for i, p := range points {
		out[i] = p.Score
	}
	return out
}

func toHits(points []vectorstore.ScoredPoint, scores []float32) []Hit {
	hits := make([]Hit, len(points))
	for i, pt := range points {
		var score float32
		if scores != nil {
			score = scores[i]
		}
		hits[i] = Hit{
			AgentID:      pt.AgentID,
			Score:        score,
			Payload:      pt.Payload,
			MatchReasons: matchReasons(score, pt.Payload),
		}
	}
	return hits
}

func reverseHits(hits []Hit) {
	for i, j := 0, len(hits)-1; i < j; i, j = i+1, j-1 {
		hits[i], hits[j] = hits[j], hits[i]
	}
}

// sortPointsBy sorts ScoredPoint rows in memory by the requested field,
// tie-breaking on agent_id for determinism.
func sortPointsBy(points []vectorstore.ScoredPoint, field SortField, order SortOrder) {
	less := func(i, j int) bool {
		a, b := sortKey(points[i].Payload, field), sortKey(points[j].Payload, field)
		if a == b {
			return points[i].AgentID < points[j].AgentID
		}
		if order == OrderAsc {
			return a < b
		}
		return a > b
	}
	sort.SliceStable(points, less)
}

func sortKey(payload map[string]any, field SortField) string {
	switch field {
	case SortName:
		s, _ := payload["name"].(string)
		return s
	case SortCreatedAt:
		s, _ := payload["created_at"].(string)
		return s
	case SortReputation:
		switch v := payload["reputation"].(type) {
		case float64:
			return fmt.Sprintf("%020.4f", v)
		case int64:
			return fmt.Sprintf("%020.4f", float64(v))
		case int:
			return fmt.Sprintf("%020.4f", float64(v))
		}
		return ""
	default:
		return ""
	}
}

func buildResponse(hits []Hit, total uint64, hasMore bool, offset, limit int) Response {
	resp := Response{
		Results:        hits,
		Total:          total,
		HasMore:        hasMore,
		ChainBreakdown: chainBreakdown(hits),
	}
	if hasMore {
		resp.NextCursor = encodeCursor(offset + limit)
	}
	return resp
}

func chainBreakdown(hits []Hit) []ChainCount {
	counts := make(map[int64]uint64)
	var order []int64
	for _, h := range hits {
		var chainID int64
		switch v := h.Payload["chain_id"].(type) {
		case int64:
			chainID = v
		case int:
			chainID = int64(v)
		case float64:
			chainID = int64(v)
		default:
			continue
		}
		if _, seen := counts[chainID]; !seen {
			order = append(order, chainID)
		}
		counts[chainID]++
	}
	out := make([]ChainCount, 0, len(order))
	for _, id := range order {
		out = append(out, ChainCount{ChainID: id, Count: counts[id]})
	}
	return out
}
