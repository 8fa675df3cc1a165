package reputation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentauri/gateway/internal/agent"
)

type fakeStore struct {
	aggregates map[string]agent.ReputationAggregate
	feedback   map[string][]agent.Feedback
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		aggregates: map[string]agent.ReputationAggregate{},
		feedback:   map[string][]agent.Feedback{},
	}
}

func (f *fakeStore) LoadAggregate(_ context.Context, id agent.Identifier) (agent.ReputationAggregate, error) {
	return f.aggregates[id.String()], nil
}

func (f *fakeStore) UpsertAggregate(_ context.Context, agg agent.ReputationAggregate) error {
	f.aggregates[agg.AgentID.String()] = agg
	return nil
}

func (f *fakeStore) ListFeedbackByAgent(_ context.Context, id agent.Identifier) ([]agent.Feedback, error) {
	return f.feedback[id.String()], nil
}

func (f *fakeStore) DistinctFeedbackAgents(_ context.Context) ([]agent.Identifier, error) {
	ids := make([]agent.Identifier, 0, len(f.feedback))
	for k := range f.feedback {
		ids = append(ids, agent.Identifier{ChainID: 1, TokenID: k})
	}
	return ids, nil
}

var testID = agent.Identifier{ChainID: 11155111, TokenID: "t1"}

// TestApplyIncrementalUpdatesAverageAndBuckets: aggregate
// {count:3, average_score:70.00, low:0, medium:2, high:1} plus a new
// feedback of 100 yields {count:4, average_score:77.50, low:0,
// medium:2, high:2}.
func TestApplyIncrementalUpdatesAverageAndBuckets(t *testing.T) {
	store := newFakeStore()
	store.aggregates[testID.String()] = agent.ReputationAggregate{
		AgentID:       testID,
		FeedbackCount: 3,
		AverageScore:  70.00,
		Medium:        2,
		High:          1,
	}

	agg := New(store)
	result, err := agg.ApplyIncremental(context.Background(), testID, 100)
	require.NoError(t, err)

	require.Equal(t, 4, result.FeedbackCount)
	require.InDelta(t, 77.50, result.AverageScore, 1e-9)
	require.Equal(t, 0, result.Low)
	require.Equal(t, 2, result.Medium)
	require.Equal(t, 2, result.High)
}

func TestApplyIncrementalFromEmptyAggregate(t *testing.T) {
	store := newFakeStore()
	agg := New(store)

	result, err := agg.ApplyIncremental(context.Background(), testID, 50)
	require.NoError(t, err)
	require.Equal(t, 1, result.FeedbackCount)
	require.InDelta(t, 50.0, result.AverageScore, 1e-9)
	require.Equal(t, 1, result.Medium)
}

func TestFullRecomputeSkipsRevoked(t *testing.T) {
	store := newFakeStore()
	store.feedback[testID.String()] = []agent.Feedback{
		{AgentID: testID, Score: 90},
		{AgentID: testID, Score: 10, Revoked: true},
		{AgentID: testID, Score: 80},
	}

	agg := New(store)
	result, err := agg.FullRecompute(context.Background(), testID)
	require.NoError(t, err)

	require.Equal(t, 2, result.FeedbackCount)
	require.InDelta(t, 85.0, result.AverageScore, 1e-9)
	require.Equal(t, 2, result.High)
}

func TestRecomputeAllReturnsProcessedCount(t *testing.T) {
	store := newFakeStore()
	store.feedback["t1"] = []agent.Feedback{{AgentID: agent.Identifier{ChainID: 1, TokenID: "t1"}, Score: 50}}
	store.feedback["t2"] = []agent.Feedback{{AgentID: agent.Identifier{ChainID: 1, TokenID: "t2"}, Score: 20}}

	agg := New(store)
	n, err := agg.RecomputeAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
}
