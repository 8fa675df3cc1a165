package relational

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentauri/gateway/internal/agent"
	"github.com/agentauri/gateway/internal/payload"
	"github.com/agentauri/gateway/internal/store"
)

var errBoom = errors.New("boom")

type fakeClassifications struct {
	rows []store.ClassificationRow
	err  error
}

func (f *fakeClassifications) ListClassificationsSince(_ context.Context, _ time.Time) ([]store.ClassificationRow, error) {
	return f.rows, f.err
}

type fakeReputations struct {
	rows []store.ReputationRow
	err  error
}

func (f *fakeReputations) ListReputationSince(_ context.Context, _ time.Time) ([]store.ReputationRow, error) {
	return f.rows, f.err
}

type fakeTrustScores struct {
	rows []store.TrustRow
	err  error
}

func (f *fakeTrustScores) ListTrustScoresSince(_ context.Context, _ time.Time) ([]store.TrustRow, error) {
	return f.rows, f.err
}

type fakeMetaStore struct {
	written []agent.SyncMetadata
}

func (s *fakeMetaStore) LoadSyncMetadataBatch(_ context.Context, _ []agent.Identifier) (map[string]agent.SyncMetadata, error) {
	return map[string]agent.SyncMetadata{}, nil
}

func (s *fakeMetaStore) UpsertSyncMetadata(_ context.Context, meta agent.SyncMetadata) error {
	s.written = append(s.written, meta)
	return nil
}

type fakeSyncState struct{ state agent.SyncState }

func (s *fakeSyncState) LoadSyncState(_ context.Context) (agent.SyncState, error) { return s.state, nil }
func (s *fakeSyncState) UpdateSyncState(_ context.Context, st agent.SyncState) error {
	s.state = st
	return nil
}

type fakeVectorWriter struct {
	payloads map[string]payload.Payload
	failFor  map[string]bool
}

func (v *fakeVectorWriter) SetPayloadByAgentID(_ context.Context, id agent.Identifier, partial payload.Payload) error {
	if v.failFor[id.String()] {
		return errBoom
	}
	if v.payloads == nil {
		v.payloads = make(map[string]payload.Payload)
	}
	v.payloads[id.String()] = partial
	return nil
}

func TestRunForwardsClassificationAndFlagsReembed(t *testing.T) {
	id := agent.Identifier{ChainID: 1, TokenID: "a"}
	updatedAt := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	classifications := &fakeClassifications{rows: []store.ClassificationRow{
		{AgentID: id, Skills: []agent.ConfidentSlug{{Slug: "web-search", Confidence: 0.9}}, UpdatedAt: updatedAt},
	}}
	vectors := &fakeVectorWriter{}
	metaStore := &fakeMetaStore{}
	syncState := &fakeSyncState{}

	w := New(Config{
		Classifications: classifications,
		Reputations:     &fakeReputations{},
		TrustScores:     &fakeTrustScores{},
		MetadataStore:   metaStore,
		SyncStateStore:  syncState,
		VectorWriter:    vectors,
	})

	summary, err := w.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.ClassificationsProcessed)
	require.Contains(t, vectors.payloads, id.String())
	require.Equal(t, []string{"web-search"}, vectors.payloads[id.String()]["skills"])
	require.Len(t, metaStore.written, 1)
	require.True(t, metaStore.written[0].NeedsReembed)
	require.Equal(t, updatedAt, syncState.state.LastD1Sync)
}

func TestRunNormalizesLegacyReputationScale(t *testing.T) {
	id := agent.Identifier{ChainID: 1, TokenID: "a"}
	reputations := &fakeReputations{rows: []store.ReputationRow{
		{AgentID: id, AverageScore: 4.5, ComputedAt: time.Now()},
	}}
	vectors := &fakeVectorWriter{}

	w := New(Config{
		Classifications: &fakeClassifications{},
		Reputations:     reputations,
		TrustScores:     &fakeTrustScores{},
		MetadataStore:   &fakeMetaStore{},
		SyncStateStore:  &fakeSyncState{},
		VectorWriter:    vectors,
	})

	summary, err := w.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.ReputationsProcessed)
	require.InDelta(t, 90.0, vectors.payloads[id.String()]["reputation"], 0.01)
}

func TestRunDoesNotRescaleAlready0To100Reputation(t *testing.T) {
	id := agent.Identifier{ChainID: 1, TokenID: "a"}
	reputations := &fakeReputations{rows: []store.ReputationRow{
		{AgentID: id, AverageScore: 82, ComputedAt: time.Now()},
	}}
	vectors := &fakeVectorWriter{}

	w := New(Config{
		Classifications: &fakeClassifications{},
		Reputations:     reputations,
		TrustScores:     &fakeTrustScores{},
		MetadataStore:   &fakeMetaStore{},
		SyncStateStore:  &fakeSyncState{},
		VectorWriter:    vectors,
	})

	_, err := w.Run(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 82.0, vectors.payloads[id.String()]["reputation"], 0.01)
}

func TestRunLeavesWatermarkUntouchedOnZeroWork(t *testing.T) {
	syncState := &fakeSyncState{state: agent.SyncState{LastD1Sync: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}}

	w := New(Config{
		Classifications: &fakeClassifications{},
		Reputations:     &fakeReputations{},
		TrustScores:     &fakeTrustScores{},
		MetadataStore:   &fakeMetaStore{},
		SyncStateStore:  syncState,
		VectorWriter:    &fakeVectorWriter{},
	})

	_, err := w.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), syncState.state.LastD1Sync)
}

func TestRunCountsPerRowFailureWithoutAborting(t *testing.T) {
	id1 := agent.Identifier{ChainID: 1, TokenID: "a"}
	id2 := agent.Identifier{ChainID: 1, TokenID: "b"}
	reputations := &fakeReputations{rows: []store.ReputationRow{
		{AgentID: id1, AverageScore: 90, ComputedAt: time.Now()},
		{AgentID: id2, AverageScore: 80, ComputedAt: time.Now()},
	}}
	vectors := &fakeVectorWriter{failFor: map[string]bool{id1.String(): true}}

	w := New(Config{
		Classifications: &fakeClassifications{},
		Reputations:     reputations,
		TrustScores:     &fakeTrustScores{},
		MetadataStore:   &fakeMetaStore{},
		SyncStateStore:  &fakeSyncState{},
		VectorWriter:    vectors,
	})

	summary, err := w.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Errored)
	require.Equal(t, 1, summary.ReputationsProcessed)
}
