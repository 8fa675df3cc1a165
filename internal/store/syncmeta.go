package store

import (
	"context"
	"fmt"

	"github.com/agentauri/gateway/internal/agent"
)

// LoadSyncMetadataBatch returns a map keyed by "chain:token" for every
// requested identifier that has a row, used by the graph sync worker's
// batched diff classification.
func (s *Store) LoadSyncMetadataBatch(ctx context.Context, ids []agent.Identifier) (map[string]agent.SyncMetadata, error) {
	out := make(map[string]agent.SyncMetadata, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	chainIDs := make([]int64, len(ids))
	tokenIDs := make([]string, len(ids))
	for i, id := range ids {
		chainIDs[i] = id.ChainID
		tokenIDs[i] = id.TokenID
	}

	rows, err := s.pool.Query(ctx, `
		SELECT chain_id, token_id, embed_hash, content_hash, qdrant_synced_at, sync_status, needs_reembed,
		       last_error, d1_classification_at, d1_reputation_at, updated_at
		FROM agent_sync_metadata
		WHERE (chain_id, token_id) IN (SELECT * FROM unnest($1::bigint[], $2::text[]))`, chainIDs, tokenIDs)
	if err != nil {
		return nil, fmt.Errorf("store: load sync metadata batch: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var meta agent.SyncMetadata
		if err := rows.Scan(&meta.AgentID.ChainID, &meta.AgentID.TokenID, &meta.EmbedHash, &meta.ContentHash,
			&meta.QdrantSyncedAt, &meta.SyncStatus, &meta.NeedsReembed, &meta.LastError,
			&meta.D1ClassificationAt, &meta.D1ReputationAt, &meta.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan sync metadata: %w", err)
		}
		out[meta.AgentID.String()] = meta
	}
	return out, rows.Err()
}

// UpsertSyncMetadata writes the full sync-metadata row. Callers write
// it only after the corresponding vector-store write has finished.
func (s *Store) UpsertSyncMetadata(ctx context.Context, meta agent.SyncMetadata) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO agent_sync_metadata (chain_id, token_id, embed_hash, content_hash, qdrant_synced_at,
		                                  sync_status, needs_reembed, last_error, d1_classification_at,
		                                  d1_reputation_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (chain_id, token_id) DO UPDATE SET
			embed_hash           = EXCLUDED.embed_hash,
			content_hash         = EXCLUDED.content_hash,
			qdrant_synced_at     = EXCLUDED.qdrant_synced_at,
			sync_status          = EXCLUDED.sync_status,
			needs_reembed        = EXCLUDED.needs_reembed,
			last_error           = EXCLUDED.last_error,
			d1_classification_at = EXCLUDED.d1_classification_at,
			d1_reputation_at     = EXCLUDED.d1_reputation_at,
			updated_at           = now()`,
		meta.AgentID.ChainID, meta.AgentID.TokenID, meta.EmbedHash, meta.ContentHash, meta.QdrantSyncedAt,
		meta.SyncStatus, meta.NeedsReembed, meta.LastError, meta.D1ClassificationAt, meta.D1ReputationAt)
	if err != nil {
		return fmt.Errorf("store: upsert sync metadata: %w", err)
	}
	return nil
}

// DeleteSyncMetadata removes a row, used by the reconciliation worker
// after it hard-deletes an orphaned vector-store point.
func (s *Store) DeleteSyncMetadata(ctx context.Context, id agent.Identifier) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM agent_sync_metadata WHERE chain_id = $1 AND token_id = $2`, id.ChainID, id.TokenID)
	if err != nil {
		return fmt.Errorf("store: delete sync metadata: %w", err)
	}
	return nil
}

// AllSyncedAgentIDs returns every agent identifier the relational
// store believes is indexed.
func (s *Store) AllSyncedAgentIDs(ctx context.Context) ([]agent.Identifier, error) {
	rows, err := s.pool.Query(ctx, `SELECT chain_id, token_id FROM agent_sync_metadata`)
	if err != nil {
		return nil, fmt.Errorf("store: all synced agent ids: %w", err)
	}
	defer rows.Close()

	var out []agent.Identifier
	for rows.Next() {
		var id agent.Identifier
		if err := rows.Scan(&id.ChainID, &id.TokenID); err != nil {
			return nil, fmt.Errorf("store: scan synced agent id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// LoadSyncState returns the singleton sync-state row.
func (s *Store) LoadSyncState(ctx context.Context) (agent.SyncState, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT last_graph_sync, last_d1_sync, last_reconciliation, last_graph_feedback_sync,
		       last_feedback_created_at, agents_synced, embeddings_generated, feedback_synced,
		       agents_deleted, last_error
		FROM sync_state WHERE id = TRUE`)

	var st agent.SyncState
	err := row.Scan(&st.LastGraphSync, &st.LastD1Sync, &st.LastReconciliation, &st.LastGraphFeedbackSync,
		&st.LastFeedbackCreatedAt, &st.AgentsSynced, &st.EmbeddingsGenerated, &st.FeedbackSynced,
		&st.AgentsDeleted, &st.LastError)
	if err != nil {
		return agent.SyncState{}, fmt.Errorf("store: load sync state: %w", err)
	}
	return st, nil
}

// UpdateSyncState overwrites the singleton sync-state row. Callers
// should load-modify-store rather than constructing a SyncState from
// scratch, so a worker only touching its own cadence's fields doesn't
// clobber another worker's counters.
func (s *Store) UpdateSyncState(ctx context.Context, st agent.SyncState) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE sync_state SET
			last_graph_sync          = $1,
			last_d1_sync             = $2,
			last_reconciliation      = $3,
			last_graph_feedback_sync = $4,
			last_feedback_created_at = $5,
			agents_synced            = $6,
			embeddings_generated     = $7,
			feedback_synced          = $8,
			agents_deleted           = $9,
			last_error               = $10
		WHERE id = TRUE`,
		st.LastGraphSync, st.LastD1Sync, st.LastReconciliation, st.LastGraphFeedbackSync,
		st.LastFeedbackCreatedAt, st.AgentsSynced, st.EmbeddingsGenerated, st.FeedbackSynced,
		st.AgentsDeleted, st.LastError)
	if err != nil {
		return fmt.Errorf("store: update sync state: %w", err)
	}
	return nil
}
