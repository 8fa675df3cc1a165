// Package feedback implements the feedback sync worker:
// cursor-paginated ingestion of new feedback events from the upstream
// indexer into the relational feedback table, with an incremental
// reputation update per new event.
package feedback

import (
	"context"
	"fmt"
	"time"

	"github.com/agentauri/gateway/internal/agent"
)

// pageSize is the upstream page size per pull.
const pageSize = 1000

// safetyCap bounds how many events a single run will ingest.
const safetyCap = 50000

// Puller fetches one page of new feedback, filtered server-side to
// createdAt > createdAtGt (unix seconds) wherever the upstream supports
// it.
type Puller interface {
	PullFeedbacksPage(ctx context.Context, skip int, createdAtGt int64) ([]agent.Feedback, error)
}

// ExistenceChecker is the dedupe-by-external-id check against the
// feedback table.
type ExistenceChecker interface {
	FeedbackExists(ctx context.Context, externalID string) (bool, error)
}

// FeedbackWriter inserts one new feedback row.
type FeedbackWriter interface {
	InsertFeedback(ctx context.Context, f agent.Feedback) error
}

// ReputationUpdater applies the O(1) incremental reputation update for
// one new, non-revoked feedback event.
type ReputationUpdater interface {
	ApplyIncremental(ctx context.Context, id agent.Identifier, score int) (agent.ReputationAggregate, error)
}

// SyncStateStore is the process-wide sync-state singleton surface.
type SyncStateStore interface {
	LoadSyncState(ctx context.Context) (agent.SyncState, error)
	UpdateSyncState(ctx context.Context, st agent.SyncState) error
}

type Config struct {
	Puller            Puller
	ExistenceChecker  ExistenceChecker
	FeedbackWriter    FeedbackWriter
	ReputationUpdater ReputationUpdater
	SyncStateStore    SyncStateStore
}

// Worker runs the feedback sync.
type Worker struct {
	puller      Puller
	exists      ExistenceChecker
	writer      FeedbackWriter
	reputation  ReputationUpdater
	syncState   SyncStateStore
}

func New(cfg Config) *Worker {
	return &Worker{
		puller:     cfg.Puller,
		exists:     cfg.ExistenceChecker,
		writer:     cfg.FeedbackWriter,
		reputation: cfg.ReputationUpdater,
		syncState:  cfg.SyncStateStore,
	}
}

// Summary is the per-run outcome.
type Summary struct {
	Pulled    int
	Processed int
	Skipped   int
	Errored   int
}

// Run executes one cursor-paginated pull-and-ingest pass. As with the
// other sync workers, a per-event failure is counted and the run
// continues rather than aborting.
func (w *Worker) Run(ctx context.Context) (Summary, error) {
	st, err := w.syncState.LoadSyncState(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("feedback sync: load sync state: %w", err)
	}

	cursor := st.LastFeedbackCreatedAt
	maxCreatedAt := cursor

	var summary Summary
	skip := 0
	for summary.Pulled < safetyCap {
		page, err := w.puller.PullFeedbacksPage(ctx, skip, cursor.Unix())
		if err != nil {
			return summary, fmt.Errorf("feedback sync: pull page at skip=%d: %w", skip, err)
		}
		if len(page) == 0 {
			break
		}

		for _, f := range page {
			summary.Pulled++
			if f.Revoked {
				summary.Skipped++
				continue
			}

			already, err := w.exists.FeedbackExists(ctx, f.ExternalID)
			if err != nil {
				summary.Errored++
				continue
			}
			if already {
				summary.Skipped++
				continue
			}

			if err := w.writer.InsertFeedback(ctx, f); err != nil {
				summary.Errored++
				continue
			}
			if _, err := w.reputation.ApplyIncremental(ctx, f.AgentID, f.Score); err != nil {
				summary.Errored++
				continue
			}

			summary.Processed++
			if f.CreatedAt.After(maxCreatedAt) {
				maxCreatedAt = f.CreatedAt
			}
		}

		skip += len(page)
		if len(page) < pageSize {
			break
		}
	}

	if summary.Processed > 0 {
		st.LastFeedbackCreatedAt = maxCreatedAt
	}
	st.FeedbackSynced += int64(summary.Processed)
	st.LastGraphFeedbackSync = time.Now().UTC()
	if summary.Errored > 0 {
		st.LastError = fmt.Sprintf("feedback sync: %d events failed to ingest", summary.Errored)
	} else {
		st.LastError = ""
	}
	if err := w.syncState.UpdateSyncState(ctx, st); err != nil {
		return summary, fmt.Errorf("feedback sync: update sync state: %w", err)
	}

	return summary, nil
}
