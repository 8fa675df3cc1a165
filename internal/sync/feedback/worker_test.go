package feedback

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentauri/gateway/internal/agent"
)

type fakePuller struct{ pages [][]agent.Feedback }

func (p *fakePuller) PullFeedbacksPage(_ context.Context, skip int, _ int64) ([]agent.Feedback, error) {
	idx := skip / pageSize
	if idx >= len(p.pages) {
		return nil, nil
	}
	return p.pages[idx], nil
}

type fakeExistence struct{ known map[string]bool }

func (f *fakeExistence) FeedbackExists(_ context.Context, externalID string) (bool, error) {
	return f.known[externalID], nil
}

type fakeWriter struct{ inserted []agent.Feedback }

func (f *fakeWriter) InsertFeedback(_ context.Context, fb agent.Feedback) error {
	f.inserted = append(f.inserted, fb)
	return nil
}

type fakeReputation struct{ calls []agent.Identifier }

func (r *fakeReputation) ApplyIncremental(_ context.Context, id agent.Identifier, _ int) (agent.ReputationAggregate, error) {
	r.calls = append(r.calls, id)
	return agent.ReputationAggregate{AgentID: id}, nil
}

type fakeSyncState struct{ state agent.SyncState }

func (s *fakeSyncState) LoadSyncState(_ context.Context) (agent.SyncState, error) { return s.state, nil }
func (s *fakeSyncState) UpdateSyncState(_ context.Context, st agent.SyncState) error {
	s.state = st
	return nil
}

func TestRunIngestsNewFeedbackAndUpdatesReputation(t *testing.T) {
	id := agent.Identifier{ChainID: 1, TokenID: "a"}
	createdAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fb := agent.Feedback{ExternalID: "graph:1", AgentID: id, Score: 80, CreatedAt: createdAt}

	puller := &fakePuller{pages: [][]agent.Feedback{{fb}}}
	writer := &fakeWriter{}
	reputation := &fakeReputation{}
	syncState := &fakeSyncState{}

	w := New(Config{
		Puller:            puller,
		ExistenceChecker:  &fakeExistence{known: map[string]bool{}},
		FeedbackWriter:    writer,
		ReputationUpdater: reputation,
		SyncStateStore:    syncState,
	})

	summary, err := w.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Processed)
	require.Len(t, writer.inserted, 1)
	require.Len(t, reputation.calls, 1)
	require.Equal(t, createdAt, syncState.state.LastFeedbackCreatedAt)
	require.Equal(t, int64(1), syncState.state.FeedbackSynced)
}

func TestRunSkipsRevokedEntries(t *testing.T) {
	fb := agent.Feedback{ExternalID: "graph:1", Revoked: true}
	puller := &fakePuller{pages: [][]agent.Feedback{{fb}}}
	writer := &fakeWriter{}

	w := New(Config{
		Puller:            puller,
		ExistenceChecker:  &fakeExistence{known: map[string]bool{}},
		FeedbackWriter:    writer,
		ReputationUpdater: &fakeReputation{},
		SyncStateStore:    &fakeSyncState{},
	})

	summary, err := w.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Skipped)
	require.Empty(t, writer.inserted)
}

func TestRunSkipsAlreadyKnownExternalID(t *testing.T) {
	fb := agent.Feedback{ExternalID: "graph:1"}
	puller := &fakePuller{pages: [][]agent.Feedback{{fb}}}
	writer := &fakeWriter{}

	w := New(Config{
		Puller:            puller,
		ExistenceChecker:  &fakeExistence{known: map[string]bool{"graph:1": true}},
		FeedbackWriter:    writer,
		ReputationUpdater: &fakeReputation{},
		SyncStateStore:    &fakeSyncState{},
	})

	summary, err := w.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Skipped)
	require.Empty(t, writer.inserted)
}

func TestRunStopsAtSafetyCap(t *testing.T) {
	var page []agent.Feedback
	for i := 0; i < pageSize; i++ {
		page = append(page, agent.Feedback{ExternalID: "graph:" + strconv.Itoa(i)})
	}
	pages := make([][]agent.Feedback, 0, safetyCap/pageSize+1)
	for i := 0; i < safetyCap/pageSize+1; i++ {
		pages = append(pages, page)
	}
	puller := &fakePuller{pages: pages}

	w := New(Config{
		Puller:            puller,
		ExistenceChecker:  &fakeExistence{known: map[string]bool{}},
		FeedbackWriter:    &fakeWriter{},
		ReputationUpdater: &fakeReputation{},
		SyncStateStore:    &fakeSyncState{},
	})

	summary, err := w.Run(context.Background())
	require.NoError(t, err)
	require.LessOrEqual(t, summary.Pulled, safetyCap+pageSize)
}

func TestRunCountsWriteFailureWithoutAborting(t *testing.T) {
	fb1 := agent.Feedback{ExternalID: "graph:1", Score: 50}
	fb2 := agent.Feedback{ExternalID: "graph:2", Score: 60}
	puller := &fakePuller{pages: [][]agent.Feedback{{fb1, fb2}}}
	writer := &failingWriter{failExternalID: "graph:1"}

	w := New(Config{
		Puller:            puller,
		ExistenceChecker:  &fakeExistence{known: map[string]bool{}},
		FeedbackWriter:    writer,
		ReputationUpdater: &fakeReputation{},
		SyncStateStore:    &fakeSyncState{},
	})

	summary, err := w.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Errored)
	require.Equal(t, 1, summary.Processed)
}

type failingWriter struct {
	failExternalID string
	inserted       []agent.Feedback
}

func (f *failingWriter) InsertFeedback(_ context.Context, fb agent.Feedback) error {
	if fb.ExternalID == f.failExternalID {
		return errors.New("boom")
	}
	f.inserted = append(f.inserted, fb)
	return nil
}

