// Package graph implements the graph sync worker: incremental
// pull-and-diff against the upstream indexer, fan-out capability and
// reachability enrichment, and embed/upsert or payload-only update,
// bounded to 100 agents per invocation.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/agentauri/gateway/internal/agent"
	"github.com/agentauri/gateway/internal/capability"
	"github.com/agentauri/gateway/internal/embedding"
	"github.com/agentauri/gateway/internal/hash"
	"github.com/agentauri/gateway/internal/payload"
	"github.com/agentauri/gateway/internal/reachability"
	"github.com/agentauri/gateway/internal/vectorstore"
)

// upstreamPageSize and upstreamSafetyCap bound the upstream pull: one
// page of 1000 records at a time, at most 10000 records per run.
const (
	upstreamPageSize  = 1000
	upstreamSafetyCap = 10000
)

// maxAgentsPerRun caps how many agents one invocation will enqueue, to
// respect the hosting runtime's sub-request ceiling.
const maxAgentsPerRun = 100

// capabilityConcurrency is not read by this worker: the capability-card
// fan-out is bounded by the CapabilityFetcher's own concurrency cap.
const capabilityConcurrency = 10

// Puller pulls one page of agent records from the upstream indexer. A
// page shorter than upstreamPageSize signals the final page.
type Puller interface {
	PullAgentsPage(ctx context.Context, skip int) ([]agent.Record, error)
}

// MetadataStore is the sync-metadata surface this worker reads and
// writes.
type MetadataStore interface {
	LoadSyncMetadataBatch(ctx context.Context, ids []agent.Identifier) (map[string]agent.SyncMetadata, error)
	UpsertSyncMetadata(ctx context.Context, meta agent.SyncMetadata) error
}

// SyncStateStore is the process-wide sync-state singleton surface.
type SyncStateStore interface {
	LoadSyncState(ctx context.Context) (agent.SyncState, error)
	UpdateSyncState(ctx context.Context, st agent.SyncState) error
}

// VectorWriter is the subset of the vector store this worker drives.
type VectorWriter interface {
	Upsert(ctx context.Context, points []vectorstore.Point) error
	SetPayloadByAgentID(ctx context.Context, id agent.Identifier, partial payload.Payload) error
}

// CapabilityFetcher is the batch capability-enrichment surface.
type CapabilityFetcher interface {
	FetchBatch(ctx context.Context, targets []capability.Target) []capability.Enrichment
}

// ReachabilityEvaluator is the batch reachability surface.
type ReachabilityEvaluator interface {
	EvaluateBatch(ctx context.Context, ids []agent.Identifier) (map[string]reachability.Result, error)
}

// EmbeddingClient is the batch embedding surface.
type EmbeddingClient interface {
	BatchEmbed(ctx context.Context, inputs []string, onProgress embedding.ProgressFunc) ([]embedding.Vector, error)
}

// Worker runs the graph sync.
type Worker struct {
	puller     Puller
	metaStore  MetadataStore
	syncState  SyncStateStore
	vectors    VectorWriter
	capFetcher CapabilityFetcher
	reachEval  ReachabilityEvaluator
	embedder   EmbeddingClient
	now        func() time.Time
}

type Config struct {
	Puller                Puller
	MetadataStore         MetadataStore
	SyncStateStore        SyncStateStore
	VectorWriter          VectorWriter
	CapabilityFetcher     CapabilityFetcher
	ReachabilityEvaluator ReachabilityEvaluator
	EmbeddingClient       EmbeddingClient
}

func New(cfg Config) *Worker {
	return &Worker{
		puller:     cfg.Puller,
		metaStore:  cfg.MetadataStore,
		syncState:  cfg.SyncStateStore,
		vectors:    cfg.VectorWriter,
		capFetcher: cfg.CapabilityFetcher,
		reachEval:  cfg.ReachabilityEvaluator,
		embedder:   cfg.EmbeddingClient,
		now:        time.Now,
	}
}

// Summary is the per-run outcome, useful for logging and tests.
type Summary struct {
	Pulled         int
	Queued         int
	Missing        int
	ContentChanged int
	Skipped        int
	Embedded       int
	Errored        int
	HasMore        bool
}

type decision int

const (
	decisionMissing decision = iota
	decisionContentChanged
)

type queuedAgent struct {
	record       agent.Record
	decision     decision
	existingMeta agent.SyncMetadata
}

// Run executes one full pull-diff-enrich-sync pass. It never returns a
// per-record error to the caller: per-record failures are recorded in
// sync metadata and the sync-state last_error field, and the run
// continues. A non-nil error return means the run aborted before
// completing its own bookkeeping (e.g. the initial pull failed).
func (w *Worker) Run(ctx context.Context) (Summary, error) {
	records, err := w.pullAll(ctx)
	if err != nil {
		_ = w.recordWorkerFailure(ctx, err)
		return Summary{}, fmt.Errorf("graph sync: pull upstream: %w", err)
	}

	ids := make([]agent.Identifier, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}

	metaByID, err := w.metaStore.LoadSyncMetadataBatch(ctx, ids)
	if err != nil {
		_ = w.recordWorkerFailure(ctx, err)
		return Summary{}, fmt.Errorf("graph sync: load sync metadata: %w", err)
	}

	queued, skipped, hasMore, err := w.classify(records, metaByID)
	if err != nil {
		_ = w.recordWorkerFailure(ctx, err)
		return Summary{}, fmt.Errorf("graph sync: classify: %w", err)
	}

	capByID := w.fetchCapabilities(ctx, queued)
	reachByID, err := w.evaluateReachability(ctx, queued)
	if err != nil {
		_ = w.recordWorkerFailure(ctx, err)
		return Summary{}, fmt.Errorf("graph sync: evaluate reachability: %w", err)
	}

	vectors, err := w.embedMissing(ctx, queued)

	summary := Summary{Pulled: len(records), Queued: len(queued), Skipped: skipped, HasMore: hasMore}
	embedIdx := 0
	for _, qa := range queued {
		vec := embedding.Vector(nil)
		if qa.decision == decisionMissing {
			if err != nil {
				meta := qa.existingMeta
				meta.AgentID = qa.record.ID
				meta.SyncStatus = agent.SyncStatusError
				meta.LastError = err.Error()
				meta.UpdatedAt = w.now().UTC()
				_ = w.metaStore.UpsertSyncMetadata(ctx, meta)
				summary.Errored++
				continue
			}
			vec = vectors[embedIdx]
			embedIdx++
			summary.Missing++
		} else {
			summary.ContentChanged++
		}

		if err := w.syncOne(ctx, qa, vec, capByID, reachByID); err != nil {
			summary.Errored++
			continue
		}
		summary.Embedded++
	}

	st, err := w.syncState.LoadSyncState(ctx)
	if err != nil {
		return summary, fmt.Errorf("graph sync: load sync state: %w", err)
	}
	st.LastGraphSync = w.now().UTC()
	st.AgentsSynced += int64(summary.Embedded)
	st.EmbeddingsGenerated += int64(summary.Missing)
	if summary.Errored > 0 {
		st.LastError = fmt.Sprintf("graph sync: %d of %d queued agents failed", summary.Errored, summary.Queued)
	} else {
		st.LastError = ""
	}
	if err := w.syncState.UpdateSyncState(ctx, st); err != nil {
		return summary, fmt.Errorf("graph sync: update sync state: %w", err)
	}

	return summary, nil
}

func (w *Worker) pullAll(ctx context.Context) ([]agent.Record, error) {
	var all []agent.Record
	skip := 0
	for {
		page, err := w.puller.PullAgentsPage(ctx, skip)
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

// classify buckets each record into missing/content-changed/unchanged,
// stopping once the per-run cap is reached and setting has_more.
func (w *Worker) classify(records []agent.Record, metaByID map[string]agent.SyncMetadata) ([]queuedAgent, int, bool, error) {
	var queued []queuedAgent
	skipped := 0
	hasMore := false

	for _, rec := range records {
		if len(queued) >= maxAgentsPerRun {
			hasMore = true
			break
		}

		meta, known := metaByID[rec.ID.String()]
		if !known {
			queued = append(queued, queuedAgent{record: rec, decision: decisionMissing})
			continue
		}

		embedHash, contentHash, err := hash.Both(&rec)
		if err != nil {
			return nil, 0, false, fmt.Errorf("hash %s: %w", rec.ID.String(), err)
		}

		// needs_reembed forces the full (embed) path even if the
		// embed-field set appears unchanged.
		if meta.NeedsReembed || embedHash != meta.EmbedHash {
			queued = append(queued, queuedAgent{record: rec, decision: decisionMissing, existingMeta: meta})
			continue
		}
		if contentHash != meta.ContentHash {
			queued = append(queued, queuedAgent{record: rec, decision: decisionContentChanged, existingMeta: meta})
			continue
		}
		skipped++
	}

	return queued, skipped, hasMore, nil
}

func (w *Worker) fetchCapabilities(ctx context.Context, queued []queuedAgent) map[string]capability.Enrichment {
	var targets []capability.Target
	for _, qa := range queued {
		if qa.record.A2AEndpoint == "" && qa.record.MCPEndpoint == "" {
			continue
		}
		targets = append(targets, capability.Target{
			AgentID:     qa.record.ID,
			A2AEndpoint: qa.record.A2AEndpoint,
			MCPEndpoint: qa.record.MCPEndpoint,
		})
	}
	if len(targets) == 0 {
		return nil
	}

	results := w.capFetcher.FetchBatch(ctx, targets)
	out := make(map[string]capability.Enrichment, len(results))
	for _, r := range results {
		out[r.AgentID.String()] = r
	}
	return out
}

func (w *Worker) evaluateReachability(ctx context.Context, queued []queuedAgent) (map[string]reachability.Result, error) {
	if len(queued) == 0 {
		return nil, nil
	}
	ids := make([]agent.Identifier, len(queued))
	for i, qa := range queued {
		ids[i] = qa.record.ID
	}
	return w.reachEval.EvaluateBatch(ctx, ids)
}

func (w *Worker) embedMissing(ctx context.Context, queued []queuedAgent) ([]embedding.Vector, error) {
	var texts []string
	for _, qa := range queued {
		if qa.decision == decisionMissing {
			texts = append(texts, embedding.AgentText(qa.record.Name, qa.record.Description))
		}
	}
	if len(texts) == 0 {
		return nil, nil
	}
	return w.embedder.BatchEmbed(ctx, texts, nil)
}

// syncOne performs the serialized hash -> embed -> upsert -> metadata
// write sequence for a single agent. On failure it writes an
// error-status metadata row and returns the error; the caller continues
// with the next agent.
func (w *Worker) syncOne(ctx context.Context, qa queuedAgent, vec embedding.Vector, capByID map[string]capability.Enrichment, reachByID map[string]reachability.Result) error {
	rec := qa.record

	var enr payload.Enrichment
	if c, ok := capByID[rec.ID.String()]; ok {
		enr.Capability = &payload.CapabilityEnrichment{
			InputModes:  c.InputModes,
			OutputModes: c.OutputModes,
			SkillNames:  c.SkillNames,
		}
	}
	if rr, ok := reachByID[rec.ID.String()]; ok {
		enr.Reachability = &payload.ReachabilityEnrichment{
			ReachableMCP:  rr.MCP,
			ReachableA2A:  rr.A2A,
			LastCheckedAt: w.now().UTC(),
		}
	}

	// A creator-declared classification (sourced directly from the
	// agent's own on-chain OASF slugs, already in hand here) always
	// outranks whatever LLM classification the relational sync worker
	// last forwarded, so it is applied synchronously rather than
	// waiting a cycle.
	if declared := agent.BuildCreatorDeclared(&rec); declared.Source == agent.ClassificationSourceCreatorDefined {
		rec.Enrichment.ResolvedSkills = declared.Skills
		rec.Enrichment.ResolvedDomains = declared.Domains
	}

	p := payload.Build(payload.Input{Record: &rec}, &enr)

	var syncErr error
	switch qa.decision {
	case decisionMissing:
		syncErr = w.vectors.Upsert(ctx, []vectorstore.Point{{ID: rec.ID, Vector: vec, Payload: p}})
	case decisionContentChanged:
		syncErr = w.vectors.SetPayloadByAgentID(ctx, rec.ID, p)
	}

	embedHash, contentHash, hashErr := hash.Both(&rec)
	if hashErr != nil && syncErr == nil {
		syncErr = hashErr
	}

	meta := qa.existingMeta
	meta.AgentID = rec.ID
	meta.EmbedHash = embedHash
	meta.ContentHash = contentHash
	meta.UpdatedAt = w.now().UTC()

	if syncErr != nil {
		meta.SyncStatus = agent.SyncStatusError
		meta.LastError = syncErr.Error()
		_ = w.metaStore.UpsertSyncMetadata(ctx, meta)
		return syncErr
	}

	meta.QdrantSyncedAt = w.now().UTC()
	meta.SyncStatus = agent.SyncStatusSynced
	meta.NeedsReembed = false
	meta.LastError = ""
	if err := w.metaStore.UpsertSyncMetadata(ctx, meta); err != nil {
		return fmt.Errorf("write sync metadata for %s: %w", rec.ID.String(), err)
	}
	return nil
}

func (w *Worker) recordWorkerFailure(ctx context.Context, cause error) error {
	st, err := w.syncState.LoadSyncState(ctx)
	if err != nil {
		return err
	}
	st.LastError = cause.Error()
	return w.syncState.UpdateSyncState(ctx, st)
}
