package graph

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentauri/gateway/internal/agent"
	"github.com/agentauri/gateway/internal/capability"
	"github.com/agentauri/gateway/internal/embedding"
	"github.com/agentauri/gateway/internal/hash"
	"github.com/agentauri/gateway/internal/payload"
	"github.com/agentauri/gateway/internal/reachability"
	"github.com/agentauri/gateway/internal/vectorstore"
)

type fakePuller struct{ pages [][]agent.Record }

func (p *fakePuller) PullAgentsPage(_ context.Context, skip int) ([]agent.Record, error) {
	idx := skip / upstreamPageSize
	if idx >= len(p.pages) {
		return nil, nil
	}
	return p.pages[idx], nil
}

type fakeMetaStore struct {
	meta    map[string]agent.SyncMetadata
	written []agent.SyncMetadata
}

func (s *fakeMetaStore) LoadSyncMetadataBatch(_ context.Context, ids []agent.Identifier) (map[string]agent.SyncMetadata, error) {
	out := make(map[string]agent.SyncMetadata)
	for _, id := range ids {
		if m, ok := s.meta[id.String()]; ok {
			out[id.String()] = m
		}
	}
	return out, nil
}

func (s *fakeMetaStore) UpsertSyncMetadata(_ context.Context, meta agent.SyncMetadata) error {
	s.written = append(s.written, meta)
	return nil
}

type fakeSyncState struct{ state agent.SyncState }

func (s *fakeSyncState) LoadSyncState(_ context.Context) (agent.SyncState, error) {
	return s.state, nil
}

func (s *fakeSyncState) UpdateSyncState(_ context.Context, st agent.SyncState) error {
	s.state = st
	return nil
}

type fakeVectorWriter struct {
	upserted []vectorstore.Point
	payloads map[string]payload.Payload
}

func (v *fakeVectorWriter) Upsert(_ context.Context, points []vectorstore.Point) error {
	v.upserted = append(v.upserted, points...)
	return nil
}

func (v *fakeVectorWriter) SetPayloadByAgentID(_ context.Context, id agent.Identifier, partial payload.Payload) error {
	if v.payloads == nil {
		v.payloads = make(map[string]payload.Payload)
	}
	v.payloads[id.String()] = partial
	return nil
}

type fakeCapFetcher struct{}

func (fakeCapFetcher) FetchBatch(_ context.Context, targets []capability.Target) []capability.Enrichment {
	out := make([]capability.Enrichment, len(targets))
	for i, t := range targets {
		out[i] = capability.Enrichment{AgentID: t.AgentID, InputModes: []string{"text"}}
	}
	return out
}

type fakeReachEval struct{}

func (fakeReachEval) EvaluateBatch(_ context.Context, ids []agent.Identifier) (map[string]reachability.Result, error) {
	out := make(map[string]reachability.Result, len(ids))
	for _, id := range ids {
		out[id.String()] = reachability.Result{MCP: true}
	}
	return out, nil
}

type fakeEmbedder struct{ err error }

func (f *fakeEmbedder) BatchEmbed(_ context.Context, inputs []string, _ embedding.ProgressFunc) ([]embedding.Vector, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]embedding.Vector, len(inputs))
	for i := range inputs {
		out[i] = embedding.Vector{0.1, 0.2}
	}
	return out, nil
}

func newRecord(chain int64, token string) agent.Record {
	return agent.Record{
		ID:     agent.Identifier{ChainID: chain, TokenID: token},
		Name:   "agent-" + token,
		Active: true,
	}
}

func TestRunEmbedsMissingAgents(t *testing.T) {
	rec := newRecord(1, "a")
	puller := &fakePuller{pages: [][]agent.Record{{rec}}}
	metaStore := &fakeMetaStore{meta: map[string]agent.SyncMetadata{}}
	vectors := &fakeVectorWriter{}
	syncState := &fakeSyncState{}

	w := New(Config{
		Puller:                puller,
		MetadataStore:         metaStore,
		SyncStateStore:        syncState,
		VectorWriter:          vectors,
		CapabilityFetcher:     fakeCapFetcher{},
		ReachabilityEvaluator: fakeReachEval{},
		EmbeddingClient:       &fakeEmbedder{},
	})

	summary, err := w.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Pulled)
	require.Equal(t, 1, summary.Missing)
	require.Equal(t, 0, summary.ContentChanged)
	require.Equal(t, 1, summary.Embedded)
	require.Len(t, vectors.upserted, 1)
	require.Equal(t, rec.ID, vectors.upserted[0].ID)
	require.Len(t, metaStore.written, 1)
	require.Equal(t, agent.SyncStatusSynced, metaStore.written[0].SyncStatus)
	require.Equal(t, int64(1), syncState.state.AgentsSynced)
	require.Equal(t, int64(1), syncState.state.EmbeddingsGenerated)
}

func TestRunSkipsUnchangedAgent(t *testing.T) {
	rec := newRecord(1, "a")
	embedHash, contentHash, err := hashBoth(t, &rec)
	require.NoError(t, err)

	puller := &fakePuller{pages: [][]agent.Record{{rec}}}
	metaStore := &fakeMetaStore{meta: map[string]agent.SyncMetadata{
		rec.ID.String(): {AgentID: rec.ID, EmbedHash: embedHash, ContentHash: contentHash, SyncStatus: agent.SyncStatusSynced},
	}}
	vectors := &fakeVectorWriter{}

	w := New(Config{
		Puller:                puller,
		MetadataStore:         metaStore,
		SyncStateStore:        &fakeSyncState{},
		VectorWriter:          vectors,
		CapabilityFetcher:     fakeCapFetcher{},
		ReachabilityEvaluator: fakeReachEval{},
		EmbeddingClient:       &fakeEmbedder{},
	})

	summary, err := w.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Skipped)
	require.Equal(t, 0, summary.Queued)
	require.Empty(t, vectors.upserted)
}

func TestRunContentChangedUsesSetPayload(t *testing.T) {
	rec := newRecord(1, "a")
	embedHash, _, err := hashBoth(t, &rec)
	require.NoError(t, err)

	puller := &fakePuller{pages: [][]agent.Record{{rec}}}
	metaStore := &fakeMetaStore{meta: map[string]agent.SyncMetadata{
		// embed hash matches but content hash is stale, so only the
		// payload should be touched.
		rec.ID.String(): {AgentID: rec.ID, EmbedHash: embedHash, ContentHash: "stale", SyncStatus: agent.SyncStatusSynced},
	}}
	vectors := &fakeVectorWriter{}

	w := New(Config{
		Puller:                puller,
		MetadataStore:         metaStore,
		SyncStateStore:        &fakeSyncState{},
		VectorWriter:          vectors,
		CapabilityFetcher:     fakeCapFetcher{},
		ReachabilityEvaluator: fakeReachEval{},
		EmbeddingClient:       &fakeEmbedder{},
	})

	summary, err := w.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.ContentChanged)
	require.Empty(t, vectors.upserted)
	require.Contains(t, vectors.payloads, rec.ID.String())
}

func TestRunNeedsReembedForcesFullPath(t *testing.T) {
	rec := newRecord(1, "a")
	embedHash, contentHash, err := hashBoth(t, &rec)
	require.NoError(t, err)

	puller := &fakePuller{pages: [][]agent.Record{{rec}}}
	metaStore := &fakeMetaStore{meta: map[string]agent.SyncMetadata{
		rec.ID.String(): {AgentID: rec.ID, EmbedHash: embedHash, ContentHash: contentHash, NeedsReembed: true},
	}}
	vectors := &fakeVectorWriter{}

	w := New(Config{
		Puller:                puller,
		MetadataStore:         metaStore,
		SyncStateStore:        &fakeSyncState{},
		VectorWriter:          vectors,
		CapabilityFetcher:     fakeCapFetcher{},
		ReachabilityEvaluator: fakeReachEval{},
		EmbeddingClient:       &fakeEmbedder{},
	})

	summary, err := w.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Missing)
	require.Len(t, vectors.upserted, 1)
}

func TestRunStopsAtCapAndSetsHasMore(t *testing.T) {
	var records []agent.Record
	for i := 0; i < maxAgentsPerRun+5; i++ {
		records = append(records, newRecord(1, fmt.Sprintf("t%d", i)))
	}
	puller := &fakePuller{pages: [][]agent.Record{records}}

	w := New(Config{
		Puller:                puller,
		MetadataStore:         &fakeMetaStore{meta: map[string]agent.SyncMetadata{}},
		SyncStateStore:        &fakeSyncState{},
		VectorWriter:          &fakeVectorWriter{},
		CapabilityFetcher:     fakeCapFetcher{},
		ReachabilityEvaluator: fakeReachEval{},
		EmbeddingClient:       &fakeEmbedder{},
	})

	summary, err := w.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, maxAgentsPerRun, summary.Queued)
	require.True(t, summary.HasMore)
}

func TestRunRecordsPerAgentErrorAndContinues(t *testing.T) {
	rec := newRecord(1, "a")
	puller := &fakePuller{pages: [][]agent.Record{{rec}}}
	metaStore := &fakeMetaStore{meta: map[string]agent.SyncMetadata{}}

	w := New(Config{
		Puller:                puller,
		MetadataStore:         metaStore,
		SyncStateStore:        &fakeSyncState{},
		VectorWriter:          &fakeVectorWriter{},
		CapabilityFetcher:     fakeCapFetcher{},
		ReachabilityEvaluator: fakeReachEval{},
		EmbeddingClient:       &fakeEmbedder{err: fmt.Errorf("provider unavailable")},
	})

	summary, err := w.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, summary.Embedded)
	require.Equal(t, 1, summary.Errored)
	require.Len(t, metaStore.written, 1)
	require.Equal(t, agent.SyncStatusError, metaStore.written[0].SyncStatus)
}

func TestRunAppliesCreatorDeclaredClassification(t *testing.T) {
	rec := newRecord(1, "a")
	rec.OASFSkillSlugs = []string{"web-search"}
	puller := &fakePuller{pages: [][]agent.Record{{rec}}}
	vectors := &fakeVectorWriter{}

	w := New(Config{
		Puller:                puller,
		MetadataStore:         &fakeMetaStore{meta: map[string]agent.SyncMetadata{}},
		SyncStateStore:        &fakeSyncState{},
		VectorWriter:          vectors,
		CapabilityFetcher:     fakeCapFetcher{},
		ReachabilityEvaluator: fakeReachEval{},
		EmbeddingClient:       &fakeEmbedder{},
	})

	_, err := w.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, vectors.upserted, 1)
	skills, ok := vectors.upserted[0].Payload["skills"].([]string)
	require.True(t, ok)
	require.Contains(t, skills, "web-search")
}

func hashBoth(t *testing.T, r *agent.Record) (string, string, error) {
	t.Helper()
	return hash.Both(r)
}
