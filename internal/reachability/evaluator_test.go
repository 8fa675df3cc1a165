package reachability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentauri/gateway/internal/agent"
)

type fakeLister struct {
	rows []agent.Feedback
}

func (f *fakeLister) ListRecentFeedback(_ context.Context, _ agent.Identifier, _ time.Time) ([]agent.Feedback, error) {
	return f.rows, nil
}

func (f *fakeLister) ListRecentFeedbackBatch(_ context.Context, ids []agent.Identifier, _ time.Time) (map[string][]agent.Feedback, error) {
	out := map[string][]agent.Feedback{}
	for _, id := range ids {
		out[id.String()] = f.rows
	}
	return out, nil
}

var testID = agent.Identifier{ChainID: 11155111, TokenID: "t1"}

// TestEvaluateUsesMostRecentFeedbackPerTag: mcp uses the most recent
// matching feedback above the threshold, a2a the most recent one
// below it.
func TestEvaluateUsesMostRecentFeedbackPerTag(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	lister := &fakeLister{rows: []agent.Feedback{
		{Tags: []string{"reachability_mcp"}, Score: 95, CreatedAt: now.Add(-1 * time.Hour)},
		{Tags: []string{"reachability_mcp"}, Score: 30, CreatedAt: now.Add(-3 * time.Hour)},
		{Tags: []string{"reachability_a2a"}, Score: 50, CreatedAt: now.Add(-2 * time.Hour)},
	}}

	e := New(lister)
	e.now = func() time.Time { return now }

	result, err := e.Evaluate(context.Background(), testID)
	require.NoError(t, err)
	require.True(t, result.MCP)
	require.False(t, result.A2A)
}

func TestEvaluateNoMatchingTagsYieldsFalse(t *testing.T) {
	lister := &fakeLister{rows: []agent.Feedback{{Tags: []string{"other"}, Score: 100}}}
	e := New(lister)

	result, err := e.Evaluate(context.Background(), testID)
	require.NoError(t, err)
	require.False(t, result.MCP)
	require.False(t, result.A2A)
}

func TestEvaluateBatchMapsBack(t *testing.T) {
	lister := &fakeLister{rows: []agent.Feedback{
		{Tags: []string{"reachability_mcp"}, Score: 80, CreatedAt: time.Now()},
	}}
	e := New(lister)

	ids := []agent.Identifier{testID, {ChainID: 1, TokenID: "t2"}}
	results, err := e.EvaluateBatch(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.True(t, results[testID.String()].MCP)
}
