// Package reachability derives a reachable-yes/no per protocol from
// recent feedback tags.
package reachability

import (
	"context"
	"fmt"
	"time"

	"github.com/agentauri/gateway/internal/agent"
)

// window is how far back feedback still counts as recent.
const window = 24 * time.Hour

// reachableThreshold is the minimum score that counts as reachable.
const reachableThreshold = 70

const (
	tagReachabilityMCP = "reachability_mcp"
	tagReachabilityA2A = "reachability_a2a"
)

// Result is the per-agent derived reachability.
type Result struct {
	MCP bool
	A2A bool
}

// FeedbackLister loads the feedback rows the evaluator needs. The
// relational store filters server-side by createdAt only; the evaluator
// re-filters by both createdAt and tag, so a looser query still yields
// the correct result.
type FeedbackLister interface {
	ListRecentFeedback(ctx context.Context, id agent.Identifier, since time.Time) ([]agent.Feedback, error)
	ListRecentFeedbackBatch(ctx context.Context, ids []agent.Identifier, since time.Time) (map[string][]agent.Feedback, error)
}

// Evaluator derives reachability from the feedback store.
type Evaluator struct {
	store FeedbackLister
	now   func() time.Time
}

func New(store FeedbackLister) *Evaluator {
	return &Evaluator{store: store, now: time.Now}
}

// Evaluate derives reachability for a single agent.
func (e *Evaluator) Evaluate(ctx context.Context, id agent.Identifier) (Result, error) {
	since := e.now().Add(-window)
	rows, err := e.store.ListRecentFeedback(ctx, id, since)
	if err != nil {
		return Result{}, fmt.Errorf("reachability: list feedback for %s: %w", id.String(), err)
	}
	return derive(rows, since), nil
}

// EvaluateBatch derives reachability for every id in one pass.
func (e *Evaluator) EvaluateBatch(ctx context.Context, ids []agent.Identifier) (map[string]Result, error) {
	since := e.now().Add(-window)
	byAgent, err := e.store.ListRecentFeedbackBatch(ctx, ids, since)
	if err != nil {
		return nil, fmt.Errorf("reachability: list feedback batch: %w", err)
	}

	out := make(map[string]Result, len(ids))
	for _, id := range ids {
		out[id.String()] = derive(byAgent[id.String()], since)
	}
	return out, nil
}

// derive takes the most recent matching feedback per tag created at or
// after since and applies the threshold.
func derive(rows []agent.Feedback, since time.Time) Result {
	var latestMCP, latestA2A *agent.Feedback

	for i := range rows {
		f := &rows[i]
		if f.CreatedAt.Before(since) {
			continue
		}
		for _, tag := range f.Tags {
			switch tag {
			case tagReachabilityMCP:
				if latestMCP == nil || f.CreatedAt.After(latestMCP.CreatedAt) {
					latestMCP = f
				}
			case tagReachabilityA2A:
				if latestA2A == nil || f.CreatedAt.After(latestA2A.CreatedAt) {
					latestA2A = f
				}
			}
		}
	}

	var res Result
	if latestMCP != nil {
		res.MCP = latestMCP.Score >= reachableThreshold
	}
	if latestA2A != nil {
		res.A2A = latestA2A.Score >= reachableThreshold
	}
	return res
}
