package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentauri/gateway/internal/agent"
	"github.com/agentauri/gateway/internal/embedding"
	"github.com/agentauri/gateway/internal/vectorstore"
)

type fakeUpstream struct{ pages [][]agent.Record }

func (f *fakeUpstream) PullAgentsPage(_ context.Context, skip int) ([]agent.Record, error) {
	idx := skip / upstreamPageSize
	if idx >= len(f.pages) {
		return nil, nil
	}
	return f.pages[idx], nil
}

type fakeVectorIDs struct{ ids []agent.Identifier }

func (f *fakeVectorIDs) ListAllAgentIDs(_ context.Context) ([]agent.Identifier, error) {
	return f.ids, nil
}

type fakeVectors struct {
	deleted  []agent.Identifier
	upserted []vectorstore.Point
}

func (v *fakeVectors) Upsert(_ context.Context, points []vectorstore.Point) error {
	v.upserted = append(v.upserted, points...)
	return nil
}

func (v *fakeVectors) Delete(_ context.Context, ids []agent.Identifier) error {
	v.deleted = append(v.deleted, ids...)
	return nil
}

type fakeMetaStore struct {
	written []agent.SyncMetadata
	deleted []agent.Identifier
}

func (s *fakeMetaStore) UpsertSyncMetadata(_ context.Context, meta agent.SyncMetadata) error {
	s.written = append(s.written, meta)
	return nil
}

func (s *fakeMetaStore) DeleteSyncMetadata(_ context.Context, id agent.Identifier) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type fakeSyncState struct{ state agent.SyncState }

func (s *fakeSyncState) LoadSyncState(_ context.Context) (agent.SyncState, error) { return s.state, nil }
func (s *fakeSyncState) UpdateSyncState(_ context.Context, st agent.SyncState) error {
	s.state = st
	return nil
}

type fakeEmbedder struct{ err error }

func (f *fakeEmbedder) BatchEmbed(_ context.Context, inputs []string, _ embedding.ProgressFunc) ([]embedding.Vector, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]embedding.Vector, len(inputs))
	for i := range inputs {
		out[i] = embedding.Vector{0.1}
	}
	return out, nil
}

func newRecord(token string) agent.Record {
	return agent.Record{ID: agent.Identifier{ChainID: 1, TokenID: token}, Name: "agent-" + token}
}

func TestRunDeletesOrphansNotInUpstream(t *testing.T) {
	upstream := &fakeUpstream{pages: [][]agent.Record{{newRecord("a")}}}
	vectorIDs := &fakeVectorIDs{ids: []agent.Identifier{
		{ChainID: 1, TokenID: "a"},
		{ChainID: 1, TokenID: "orphan"},
	}}
	vectors := &fakeVectors{}
	metaStore := &fakeMetaStore{}

	w := New(Config{
		Upstream:        upstream,
		VectorIDs:       vectorIDs,
		Vectors:         vectors,
		MetadataStore:   metaStore,
		SyncStateStore:  &fakeSyncState{},
		EmbeddingClient: &fakeEmbedder{},
	})

	summary, err := w.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Orphaned)
	require.Equal(t, []agent.Identifier{{ChainID: 1, TokenID: "orphan"}}, vectors.deleted)
	require.Equal(t, []agent.Identifier{{ChainID: 1, TokenID: "orphan"}}, metaStore.deleted)
}

func TestRunIndexesMissingFromUpstream(t *testing.T) {
	upstream := &fakeUpstream{pages: [][]agent.Record{{newRecord("a"), newRecord("b")}}}
	vectorIDs := &fakeVectorIDs{ids: []agent.Identifier{{ChainID: 1, TokenID: "a"}}}
	vectors := &fakeVectors{}
	metaStore := &fakeMetaStore{}
	syncState := &fakeSyncState{}

	w := New(Config{
		Upstream:        upstream,
		VectorIDs:       vectorIDs,
		Vectors:         vectors,
		MetadataStore:   metaStore,
		SyncStateStore:  syncState,
		EmbeddingClient: &fakeEmbedder{},
	})

	summary, err := w.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Indexed)
	require.Len(t, vectors.upserted, 1)
	require.Equal(t, agent.Identifier{ChainID: 1, TokenID: "b"}, vectors.upserted[0].ID)
	require.Len(t, metaStore.written, 1)
	require.Equal(t, int64(1), syncState.state.AgentsSynced)
}

func TestRunCountsEmbedFailureWithoutAborting(t *testing.T) {
	upstream := &fakeUpstream{pages: [][]agent.Record{{newRecord("a")}}}
	vectorIDs := &fakeVectorIDs{}
	vectors := &fakeVectors{}

	w := New(Config{
		Upstream:        upstream,
		VectorIDs:       vectorIDs,
		Vectors:         vectors,
		MetadataStore:   &fakeMetaStore{},
		SyncStateStore:  &fakeSyncState{},
		EmbeddingClient: &fakeEmbedder{err: errors.New("provider down")},
	})

	summary, err := w.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Errored)
	require.Equal(t, 0, summary.Indexed)
}

func TestRunNoOpWhenSetsMatch(t *testing.T) {
	upstream := &fakeUpstream{pages: [][]agent.Record{{newRecord("a")}}}
	vectorIDs := &fakeVectorIDs{ids: []agent.Identifier{{ChainID: 1, TokenID: "a"}}}

	w := New(Config{
		Upstream:        upstream,
		VectorIDs:       vectorIDs,
		Vectors:         &fakeVectors{},
		MetadataStore:   &fakeMetaStore{},
		SyncStateStore:  &fakeSyncState{},
		EmbeddingClient: &fakeEmbedder{},
	})

	summary, err := w.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, summary.Orphaned)
	require.Equal(t, 0, summary.Indexed)
}
