package scheduler

import (
	"context"

	"github.com/agentauri/gateway/internal/classify"
	"github.com/agentauri/gateway/internal/reputation"
	feedbacksync "github.com/agentauri/gateway/internal/sync/feedback"
	graphsync "github.com/agentauri/gateway/internal/sync/graph"
	reconcilesync "github.com/agentauri/gateway/internal/sync/reconcile"
	relationalsync "github.com/agentauri/gateway/internal/sync/relational"
)

// Cadence specs for the default task set.
const (
	every15Minutes = "*/15 * * * *"
	hourlyOnZero   = "0 * * * *"
	daily          = "0 0 * * *"
)

// Deps wires the concrete workers the default cadence table drives.
// Every field is the narrow dependency its worker/helper already
// depends on -- the scheduler itself has no knowledge of their
// implementations.
type Deps struct {
	Graph          *graphsync.Worker
	Relational     *relationalsync.Worker
	Feedback       *feedbacksync.Worker
	Reconciliation *reconcilesync.Worker

	ClassifyQueue classify.Enqueuer
	Reputation    reputation.SnapshotStore
}

// RegisterDefaults registers the full default cadence table onto s.
func RegisterDefaults(s *Scheduler, d Deps) error {
	tasks := []Task{
		{
			Name: "graph_sync",
			Spec: every15Minutes,
			Run: func(ctx context.Context) error {
				_, err := d.Graph.Run(ctx)
				return err
			},
		},
		{
			Name: "relational_sync",
			Spec: every15Minutes,
			Run: func(ctx context.Context) error {
				_, err := d.Relational.Run(ctx)
				return err
			},
		},
		{
			Name: "reconciliation",
			Spec: hourlyOnZero,
			Run: func(ctx context.Context) error {
				_, err := d.Reconciliation.Run(ctx)
				return err
			},
		},
		{
			Name: "feedback_sync",
			Spec: hourlyOnZero,
			Run: func(ctx context.Context) error {
				_, err := d.Feedback.Run(ctx)
				return err
			},
		},
		{
			Name: "classification_enqueue",
			Spec: hourlyOnZero,
			Run: func(ctx context.Context) error {
				_, err := classify.EnqueueUnclassified(ctx, d.ClassifyQueue)
				return err
			},
		},
		{
			Name: "reputation_snapshot",
			Spec: daily,
			Run: func(ctx context.Context) error {
				_, err := reputation.Snapshot(ctx, d.Reputation)
				return err
			},
		},
	}

	for _, t := range tasks {
		if err := s.Register(t); err != nil {
			return err
		}
	}
	return nil
}
