package agent

import "time"

// SyncStatus is the per-agent sync health reported in SyncMetadata.
type SyncStatus string

const (
	SyncStatusSynced SyncStatus = "synced"
	SyncStatusError  SyncStatus = "error"
)

// SyncMetadata is the per-agent sync bookkeeping row. It is the
// coordination fence between the authoritative source and the vector
// store: it must be written only after the corresponding vector-store
// write has succeeded.
type SyncMetadata struct {
	AgentID Identifier

	EmbedHash   string
	ContentHash string

	QdrantSyncedAt     time.Time
	SyncStatus         SyncStatus
	NeedsReembed       bool
	LastError          string
	D1ClassificationAt time.Time
	D1ReputationAt     time.Time
	UpdatedAt          time.Time
}

// ClassificationJobStatus is the classification job state machine:
// pending -> processing -> completed or failed.
type ClassificationJobStatus string

const (
	ClassificationJobPending    ClassificationJobStatus = "pending"
	ClassificationJobProcessing ClassificationJobStatus = "processing"
	ClassificationJobCompleted ClassificationJobStatus = "completed"
	ClassificationJobFailed    ClassificationJobStatus = "failed"
)

// ClassificationJob is one row of the classification job queue.
type ClassificationJob struct {
	AgentID   Identifier
	Force     bool
	Attempts  int
	Status    ClassificationJobStatus
	LastError string
}

// SyncState is the process-wide sync-state singleton: per-worker
// watermarks, counters, and the last recorded error.
type SyncState struct {
	LastGraphSync         time.Time
	LastD1Sync            time.Time
	LastReconciliation    time.Time
	LastGraphFeedbackSync time.Time
	LastFeedbackCreatedAt time.Time

	AgentsSynced        int64
	EmbeddingsGenerated int64
	FeedbackSynced      int64
	AgentsDeleted       int64

	LastError string
}
