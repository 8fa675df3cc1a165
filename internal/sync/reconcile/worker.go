// Package reconcile implements the reconciliation worker: an hourly
// full-set diff between the upstream indexer and the vector store that
// catches whatever the incremental graph sync missed (dropped events,
// crashed runs, manual vector-store edits).
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/agentauri/gateway/internal/agent"
	"github.com/agentauri/gateway/internal/embedding"
	"github.com/agentauri/gateway/internal/hash"
	"github.com/agentauri/gateway/internal/payload"
	"github.com/agentauri/gateway/internal/vectorstore"
	"github.com/agentauri/gateway/pkg/xset"
)

// upstreamPageSize matches the graph sync worker's page size; the
// safety cap is ten times the graph worker's, since reconciliation
// walks the same upstream source in full.
const (
	upstreamPageSize  = 1000
	upstreamSafetyCap = 100000
)

// missingBatchSize is how many missing agents get indexed per batch.
const missingBatchSize = 50

// UpstreamPuller pulls one page of every upstream agent record,
// ignoring any registration-file filter a listing endpoint might apply
// elsewhere.
type UpstreamPuller interface {
	PullAgentsPage(ctx context.Context, skip int) ([]agent.Record, error)
}

// VectorIDLister lists every agent identifier present in the vector
// store, the V set.
type VectorIDLister interface {
	ListAllAgentIDs(ctx context.Context) ([]agent.Identifier, error)
}

// VectorWriter is the subset of the Vector Store Adapter this worker
// drives: hard-delete of orphans, upsert of missing agents.
type VectorWriter interface {
	Upsert(ctx context.Context, points []vectorstore.Point) error
	Delete(ctx context.Context, ids []agent.Identifier) error
}

// MetadataStore is the sync-metadata surface this worker keeps
// consistent with the vector store.
type MetadataStore interface {
	UpsertSyncMetadata(ctx context.Context, meta agent.SyncMetadata) error
	DeleteSyncMetadata(ctx context.Context, id agent.Identifier) error
}

// SyncStateStore is the process-wide sync-state singleton surface.
type SyncStateStore interface {
	LoadSyncState(ctx context.Context) (agent.SyncState, error)
	UpdateSyncState(ctx context.Context, st agent.SyncState) error
}

// EmbeddingClient is the batch embedding surface used to index missing
// agents.
type EmbeddingClient interface {
	BatchEmbed(ctx context.Context, inputs []string, onProgress embedding.ProgressFunc) ([]embedding.Vector, error)
}

type Config struct {
	Upstream        UpstreamPuller
	VectorIDs       VectorIDLister
	Vectors         VectorWriter
	MetadataStore   MetadataStore
	SyncStateStore  SyncStateStore
	EmbeddingClient EmbeddingClient
}

// Worker runs the reconciliation.
type Worker struct {
	upstream   UpstreamPuller
	vectorIDs  VectorIDLister
	vectors    VectorWriter
	metaStore  MetadataStore
	syncState  SyncStateStore
	embedder   EmbeddingClient
	now        func() time.Time
}

func New(cfg Config) *Worker {
	return &Worker{
		upstream:  cfg.Upstream,
		vectorIDs: cfg.VectorIDs,
		vectors:   cfg.Vectors,
		metaStore: cfg.MetadataStore,
		syncState: cfg.SyncStateStore,
		embedder:  cfg.EmbeddingClient,
		now:       time.Now,
	}
}

// Summary is the per-run outcome.
type Summary struct {
	Upstream int
	Indexed  int
	Orphaned int
	Errored  int
}

// Run executes one full diff and reconciliation pass.
func (w *Worker) Run(ctx context.Context) (Summary, error) {
	upstreamRecords, err := w.pullAllUpstream(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("reconcile: pull upstream: %w", err)
	}
	upstreamByID := make(map[string]agent.Record, len(upstreamRecords))
	upstreamIDs := xset.New[string]()
	for _, r := range upstreamRecords {
		key := r.ID.String()
		upstreamByID[key] = r
		upstreamIDs.Add(key)
	}

	vectorIDs, err := w.vectorIDs.ListAllAgentIDs(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("reconcile: list vector store ids: %w", err)
	}
	vectorByID := make(map[string]agent.Identifier, len(vectorIDs))
	vectorIDSet := xset.New[string]()
	for _, id := range vectorIDs {
		key := id.String()
		vectorByID[key] = id
		vectorIDSet.Add(key)
	}

	summary := Summary{Upstream: len(upstreamRecords)}

	// Orphans are vector-store entries no longer upstream; missing are
	// upstream entries not yet indexed.
	orphanKeys := vectorIDSet.Diff(upstreamIDs)
	orphans := make([]agent.Identifier, len(orphanKeys))
	for i, key := range orphanKeys {
		orphans[i] = vectorByID[key]
	}
	if err := w.deleteOrphans(ctx, orphans, &summary); err != nil {
		return summary, fmt.Errorf("reconcile: delete orphans: %w", err)
	}

	missingKeys := upstreamIDs.Diff(vectorIDSet)
	missing := make([]agent.Record, len(missingKeys))
	for i, key := range missingKeys {
		missing[i] = upstreamByID[key]
	}
	if err := w.indexMissing(ctx, missing, &summary); err != nil {
		return summary, fmt.Errorf("reconcile: index missing: %w", err)
	}

	st, err := w.syncState.LoadSyncState(ctx)
	if err != nil {
		return summary, fmt.Errorf("reconcile: load sync state: %w", err)
	}
	st.LastReconciliation = w.now().UTC()
	st.AgentsDeleted += int64(summary.Orphaned)
	st.AgentsSynced += int64(summary.Indexed)
	if summary.Errored > 0 {
		st.LastError = fmt.Sprintf("reconcile: %d operations failed", summary.Errored)
	} else {
		st.LastError = ""
	}
	if err := w.syncState.UpdateSyncState(ctx, st); err != nil {
		return summary, fmt.Errorf("reconcile: update sync state: %w", err)
	}

	return summary, nil
}

func (w *Worker) pullAllUpstream(ctx context.Context) ([]agent.Record, error) {
	var all []agent.Record
	skip := 0
	for {
		page, err := w.upstream.PullAgentsPage(ctx, skip)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		skip += len(page)
		if len(page) < upstreamPageSize || skip >= upstreamSafetyCap {
			break
		}
	}
	return all, nil
}

func (w *Worker) deleteOrphans(ctx context.Context, orphans []agent.Identifier, summary *Summary) error {
	for _, id := range orphans {
		if err := w.vectors.Delete(ctx, []agent.Identifier{id}); err != nil {
			summary.Errored++
			continue
		}
		if err := w.metaStore.DeleteSyncMetadata(ctx, id); err != nil {
			summary.Errored++
			continue
		}
		summary.Orphaned++
	}
	return nil
}

func (w *Worker) indexMissing(ctx context.Context, missing []agent.Record, summary *Summary) error {
	for start := 0; start < len(missing); start += missingBatchSize {
		end := start + missingBatchSize
		if end > len(missing) {
			end = len(missing)
		}
		if err := w.indexBatch(ctx, missing[start:end], summary); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) indexBatch(ctx context.Context, batch []agent.Record, summary *Summary) error {
	texts := make([]string, len(batch))
	for i, r := range batch {
		texts[i] = embedding.AgentText(r.Name, r.Description)
	}

	vectors, err := w.embedder.BatchEmbed(ctx, texts, nil)
	if err != nil {
		summary.Errored += len(batch)
		return nil
	}

	points := make([]vectorstore.Point, len(batch))
	for i, r := range batch {
		p := payload.Build(payload.Input{Record: &r}, nil)
		points[i] = vectorstore.Point{ID: r.ID, Vector: vectors[i], Payload: p}
	}

	if err := w.vectors.Upsert(ctx, points); err != nil {
		summary.Errored += len(batch)
		return nil
	}

	for _, r := range batch {
		embedHash, contentHash, err := hash.Both(&r)
		if err != nil {
			summary.Errored++
			continue
		}
		meta := agent.SyncMetadata{
			AgentID:        r.ID,
			EmbedHash:      embedHash,
			ContentHash:    contentHash,
			QdrantSyncedAt: w.now().UTC(),
			SyncStatus:     agent.SyncStatusSynced,
			UpdatedAt:      w.now().UTC(),
		}
		if err := w.metaStore.UpsertSyncMetadata(ctx, meta); err != nil {
			summary.Errored++
			continue
		}
		summary.Indexed++
	}
	return nil
}
