package search

import (
	"context"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/require"

	"github.com/agentauri/gateway/internal/embedding"
	"github.com/agentauri/gateway/internal/vectorstore"
)

type fakeStore struct {
	scrollPoints     []vectorstore.ScoredPoint
	searchPoints     []vectorstore.ScoredPoint
	searchHasMore    bool
	count            uint64
	lastSearchVector []float32
	lastSearchLimit  uint64
	lastScrollDesc   bool
	lastOrderBy      string
}

func (s *fakeStore) Search(_ context.Context, vector []float32, _ *qdrant.Filter, limit uint64, _ uint64, _ *float32) (vectorstore.SearchResult, error) {
	s.lastSearchVector = vector
	s.lastSearchLimit = limit
	return vectorstore.SearchResult{Points: s.searchPoints, HasMore: s.searchHasMore}, nil
}

func (s *fakeStore) Scroll(_ context.Context, _ *qdrant.Filter, _ uint64, orderBy string, _ string) (vectorstore.ScrollResult, error) {
	s.lastOrderBy = orderBy
	s.lastScrollDesc = false
	return vectorstore.ScrollResult{Points: s.scrollPoints}, nil
}

func (s *fakeStore) ScrollDesc(_ context.Context, _ *qdrant.Filter, _ uint64, orderBy string, _ string) (vectorstore.ScrollResult, error) {
	s.lastOrderBy = orderBy
	s.lastScrollDesc = true
	return vectorstore.ScrollResult{Points: s.scrollPoints}, nil
}

func (s *fakeStore) Count(_ context.Context, _ *qdrant.Filter) (uint64, error) {
	return s.count, nil
}

type fakeEmbedder struct{ vector embedding.Vector }

func (f *fakeEmbedder) Embed(_ context.Context, inputs []string) (embedding.Result, error) {
	return embedding.Result{Vectors: []embedding.Vector{f.vector}}, nil
}

type fakeHyDE struct {
	response string
	err      error
	calls    int
}

func (f *fakeHyDE) Generate(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.response, f.err
}

type fakeReranker struct {
	order []string
	calls int
}

func (f *fakeReranker) Rerank(_ context.Context, _ string, hits []Hit) ([]Hit, error) {
	f.calls++
	byID := make(map[string]Hit, len(hits))
	for _, h := range hits {
		byID[h.AgentID] = h
	}
	out := make([]Hit, 0, len(hits))
	for _, id := range f.order {
		if h, ok := byID[id]; ok {
			out = append(out, h)
		}
	}
	return out, nil
}

func point(agentID string, chainID int64, score float32) vectorstore.ScoredPoint {
	return vectorstore.ScoredPoint{
		AgentID: agentID,
		Score:   score,
		Payload: map[string]any{
			"agent_id": agentID,
			"chain_id": chainID,
			"name":     agentID,
			"has_mcp":  true,
		},
	}
}

func TestPlanListingDefaultsToCreatedAtDesc(t *testing.T) {
	store := &fakeStore{
		scrollPoints: []vectorstore.ScoredPoint{point("1:a", 1, 0)},
		count:        1,
	}
	p := New(Config{Store: store, Embedder: &fakeEmbedder{}})

	resp, err := p.Plan(context.Background(), Request{Limit: 20})
	require.NoError(t, err)
	require.Equal(t, "created_at", store.lastOrderBy)
	require.True(t, store.lastScrollDesc)
	require.Len(t, resp.Results, 1)
	require.Equal(t, uint64(1), resp.Total)
	require.False(t, resp.HasMore)
}

func TestPlanListingHasMoreAndCursor(t *testing.T) {
	store := &fakeStore{
		scrollPoints: []vectorstore.ScoredPoint{
			point("1:a", 1, 0), point("1:b", 1, 0), point("1:c", 1, 0),
		},
		count: 3,
	}
	p := New(Config{Store: store, Embedder: &fakeEmbedder{}})

	resp, err := p.Plan(context.Background(), Request{Limit: 2})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	require.True(t, resp.HasMore)
	require.NotEmpty(t, resp.NextCursor)

	offset, err := decodeCursor(resp.NextCursor)
	require.NoError(t, err)
	require.Equal(t, 2, offset)
}

func TestPlanListingNameSortsInMemory(t *testing.T) {
	store := &fakeStore{
		scrollPoints: []vectorstore.ScoredPoint{
			point("1:b", 1, 0), point("1:a", 1, 0),
		},
		count: 2,
	}
	p := New(Config{Store: store, Embedder: &fakeEmbedder{}})

	resp, err := p.Plan(context.Background(), Request{
		Limit: 10,
		Sort:  Sort{Field: SortName, Order: OrderAsc},
	})
	require.NoError(t, err)
	require.Equal(t, "1:a", resp.Results[0].AgentID)
	require.Equal(t, "1:b", resp.Results[1].AgentID)
}

func TestPlanSemanticSearchEmbedsQueryAndReturnsHits(t *testing.T) {
	store := &fakeStore{
		searchPoints: []vectorstore.ScoredPoint{point("1:a", 1, 0.9)},
		count:        1,
	}
	embedder := &fakeEmbedder{vector: embedding.Vector{0.1, 0.2}}
	p := New(Config{Store: store, Embedder: embedder})

	resp, err := p.Plan(context.Background(), Request{Query: "a trading bot", Limit: 10})
	require.NoError(t, err)
	require.Equal(t, embedder.vector, store.lastSearchVector)
	require.Len(t, resp.Results, 1)
	require.Contains(t, resp.Results[0].MatchReasons, "high_relevance")
	require.Contains(t, resp.Results[0].MatchReasons, "has_mcp")
}

func TestPlanSemanticSearchAppliesReranker(t *testing.T) {
	store := &fakeStore{
		searchPoints: []vectorstore.ScoredPoint{
			point("1:a", 1, 0.9), point("1:b", 1, 0.6),
		},
		count: 2,
	}
	reranker := &fakeReranker{order: []string{"1:b", "1:a"}}
	p := New(Config{Store: store, Embedder: &fakeEmbedder{}, Reranker: reranker})

	resp, err := p.Plan(context.Background(), Request{Query: "a trading bot", Limit: 10, UseReranker: true})
	require.NoError(t, err)
	require.Equal(t, 1, reranker.calls)
	require.Equal(t, "1:b", resp.Results[0].AgentID)
	require.True(t, resp.Reranker.Used)
}

func TestPlanSemanticUsesHyDEDescriptionWhenGateOpens(t *testing.T) {
	store := &fakeStore{searchPoints: nil, count: 0}
	embedder := &fakeEmbedder{}
	hyde := &fakeHyDE{response: `{"description":"an agent that trades defi tokens","filters":{"domains":["defi"]}}`}
	p := New(Config{Store: store, Embedder: embedder, HyDE: hyde})

	resp, err := p.Plan(context.Background(), Request{Query: "defi trading agent", Limit: 10, UseHyDE: true})
	require.NoError(t, err)
	require.Equal(t, 1, hyde.calls)
	require.True(t, resp.HyDE.Used)
	require.Equal(t, "an agent that trades defi tokens", resp.HyDE.Description)
}

func TestPlanSemanticHyDECachesSecondCall(t *testing.T) {
	store := &fakeStore{count: 0}
	hyde := &fakeHyDE{response: `{"description":"cached description","filters":{}}`}
	p := New(Config{Store: store, Embedder: &fakeEmbedder{}, HyDE: hyde})

	_, err := p.Plan(context.Background(), Request{Query: "defi trading agent", Limit: 10, UseHyDE: true})
	require.NoError(t, err)
	resp2, err := p.Plan(context.Background(), Request{Query: "defi trading agent", Limit: 10, UseHyDE: true})
	require.NoError(t, err)

	require.Equal(t, 1, hyde.calls)
	require.True(t, resp2.HyDE.Cached)
}

func TestPlanSemanticFallsBackToHeuristicWhenHyDEFails(t *testing.T) {
	store := &fakeStore{count: 0}
	failing := &fakeHyDE{response: "not json at all"}
	p := New(Config{Store: store, Embedder: &fakeEmbedder{}, HyDE: failing})

	resp, err := p.Plan(context.Background(), Request{Query: "a defi trading agent", Limit: 10, UseHyDE: true})
	require.NoError(t, err)
	require.True(t, resp.HyDE.FellBack)
	require.False(t, resp.HyDE.Used)
}

func TestPlanSemanticSkipsHyDEForBareWordQuery(t *testing.T) {
	store := &fakeStore{count: 0}
	hyde := &fakeHyDE{response: `{"description":"x"}`}
	p := New(Config{Store: store, Embedder: &fakeEmbedder{}, HyDE: hyde})

	_, err := p.Plan(context.Background(), Request{Query: "defi", Limit: 10, UseHyDE: true})
	require.NoError(t, err)
	require.Equal(t, 0, hyde.calls)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := decodeCursor("not-valid-base64!!")
	require.Error(t, err)
}

func TestCursorRoundTrip(t *testing.T) {
	for _, offset := range []int{0, 1, 20, 1000, 99999} {
		decoded, err := decodeCursor(encodeCursor(offset))
		require.NoError(t, err)
		require.Equal(t, offset, decoded)
	}
}

func TestMatchReasonsDefaultsToFilterMatch(t *testing.T) {
	reasons := matchReasons(0, map[string]any{})
	require.Equal(t, []string{"filter_match"}, reasons)
}

func TestMatchReasonsModerateRelevance(t *testing.T) {
	reasons := matchReasons(0.6, map[string]any{})
	require.Contains(t, reasons, "moderate_relevance")
}
