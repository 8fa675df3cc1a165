// Package reputation aggregates per-agent reputation stats from raw
// feedback rows, incrementally per new event and in full after
// migrations or corruption.
package reputation

import (
	"context"
	"fmt"
	"math"

	"github.com/agentauri/gateway/internal/agent"
)

// AggregateLoader reads the current aggregate for an agent, or the
// zero-value aggregate (count 0) if none exists yet.
type AggregateLoader interface {
	LoadAggregate(ctx context.Context, id agent.Identifier) (agent.ReputationAggregate, error)
}

// AggregateWriter upserts a recomputed aggregate.
type AggregateWriter interface {
	UpsertAggregate(ctx context.Context, agg agent.ReputationAggregate) error
}

// FeedbackLister reads every (non-revoked) feedback row for an agent,
// for full recompute.
type FeedbackLister interface {
	ListFeedbackByAgent(ctx context.Context, id agent.Identifier) ([]agent.Feedback, error)
	DistinctFeedbackAgents(ctx context.Context) ([]agent.Identifier, error)
}

// Store composes the three narrow interfaces the Aggregator consumes.
type Store interface {
	AggregateLoader
	AggregateWriter
	FeedbackLister
}

// Aggregator holds the incremental and full-recompute paths.
type Aggregator struct {
	store Store
}

func New(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// ApplyIncremental is the O(1) path, applied once per new, non-revoked
// feedback event: count becomes n+1, the average becomes
// round2((a*n+S)/(n+1)), and the matching bucket is bumped.
func (a *Aggregator) ApplyIncremental(ctx context.Context, id agent.Identifier, score int) (agent.ReputationAggregate, error) {
	agg, err := a.store.LoadAggregate(ctx, id)
	if err != nil {
		return agent.ReputationAggregate{}, fmt.Errorf("reputation: load aggregate for %s: %w", id.String(), err)
	}
	agg.AgentID = id

	n := agg.FeedbackCount
	agg.AverageScore = round2((agg.AverageScore*float64(n) + float64(score)) / float64(n+1))
	agg.FeedbackCount = n + 1

	switch agent.ScoreBucket(score) {
	case agent.BucketLow:
		agg.Low++
	case agent.BucketMedium:
		agg.Medium++
	case agent.BucketHigh:
		agg.High++
	}

	if err := a.store.UpsertAggregate(ctx, agg); err != nil {
		return agent.ReputationAggregate{}, fmt.Errorf("reputation: upsert aggregate for %s: %w", id.String(), err)
	}
	return agg, nil
}

// FullRecompute rebuilds the aggregate for a single agent from its
// complete feedback history.
func (a *Aggregator) FullRecompute(ctx context.Context, id agent.Identifier) (agent.ReputationAggregate, error) {
	rows, err := a.store.ListFeedbackByAgent(ctx, id)
	if err != nil {
		return agent.ReputationAggregate{}, fmt.Errorf("reputation: list feedback for %s: %w", id.String(), err)
	}

	agg := recompute(id, rows)

	if err := a.store.UpsertAggregate(ctx, agg); err != nil {
		return agent.ReputationAggregate{}, fmt.Errorf("reputation: upsert aggregate for %s: %w", id.String(), err)
	}
	return agg, nil
}

// RecomputeAll runs FullRecompute for every distinct agent with
// feedback, returning the number of agents processed.
func (a *Aggregator) RecomputeAll(ctx context.Context) (int, error) {
	ids, err := a.store.DistinctFeedbackAgents(ctx)
	if err != nil {
		return 0, fmt.Errorf("reputation: list distinct agents: %w", err)
	}

	for _, id := range ids {
		if _, err := a.FullRecompute(ctx, id); err != nil {
			return 0, fmt.Errorf("reputation: recompute %s: %w", id.String(), err)
		}
	}
	return len(ids), nil
}

// SnapshotStore is the narrow surface the daily reputation snapshot
// cadence task consumes.
type SnapshotStore interface {
	AggregateLoader
	AllReputationAgentIDs(ctx context.Context) ([]agent.Identifier, error)
	InsertReputationSnapshot(ctx context.Context, id agent.Identifier, averageScore float64, feedbackCount int) error
}

// Snapshot appends one reputation_snapshots row per agent with a
// reputation aggregate, building the history a trending surface can
// read later. Same list-then-loop shape as RecomputeAll.
func Snapshot(ctx context.Context, store SnapshotStore) (int, error) {
	ids, err := store.AllReputationAgentIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("reputation: list snapshot agents: %w", err)
	}

	for _, id := range ids {
		agg, err := store.LoadAggregate(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("reputation: load aggregate for snapshot %s: %w", id.String(), err)
		}
		if err := store.InsertReputationSnapshot(ctx, id, agg.AverageScore, agg.FeedbackCount); err != nil {
			return 0, fmt.Errorf("reputation: insert snapshot for %s: %w", id.String(), err)
		}
	}
	return len(ids), nil
}

func recompute(id agent.Identifier, rows []agent.Feedback) agent.ReputationAggregate {
	agg := agent.ReputationAggregate{AgentID: id}
	if len(rows) == 0 {
		return agg
	}

	var sum float64
	for _, f := range rows {
		if f.Revoked {
			continue
		}
		sum += float64(f.Score)
		agg.FeedbackCount++
		switch agent.ScoreBucket(f.Score) {
		case agent.BucketLow:
			agg.Low++
		case agent.BucketMedium:
			agg.Medium++
		case agent.BucketHigh:
			agg.High++
		}
	}
	if agg.FeedbackCount > 0 {
		agg.AverageScore = round2(sum / float64(agg.FeedbackCount))
	}
	return agg
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
