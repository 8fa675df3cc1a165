package store

import (
	"context"
	"fmt"
	"time"

	"github.com/agentauri/gateway/internal/agent"
)

// ClassificationRow is one row of agent_classifications whose
// updated_at exceeds a sync worker's watermark.
type ClassificationRow struct {
	AgentID   agent.Identifier
	Skills    []agent.ConfidentSlug
	Domains   []agent.ConfidentSlug
	UpdatedAt time.Time
}

// ListClassificationsSince returns every agent_classifications row
// with updated_at > since.
func (s *Store) ListClassificationsSince(ctx context.Context, since time.Time) ([]ClassificationRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT chain_id, token_id, skills, domains, updated_at
		FROM agent_classifications
		WHERE updated_at > $1
		ORDER BY updated_at ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("store: list classifications since: %w", err)
	}
	defer rows.Close()

	var out []ClassificationRow
	for rows.Next() {
		var row ClassificationRow
		var skillsRaw, domainsRaw []byte
		if err := rows.Scan(&row.AgentID.ChainID, &row.AgentID.TokenID, &skillsRaw, &domainsRaw, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan classification row: %w", err)
		}
		row.Skills = agent.ParseConfidentSlugs(skillsRaw)
		row.Domains = agent.ParseConfidentSlugs(domainsRaw)
		out = append(out, row)
	}
	return out, rows.Err()
}

// ReputationRow is one row of agent_reputation whose computed_at
// exceeds a sync worker's watermark.
type ReputationRow struct {
	AgentID      agent.Identifier
	AverageScore float64
	ComputedAt   time.Time
}

// ListReputationSince returns every agent_reputation row with
// computed_at > since.
func (s *Store) ListReputationSince(ctx context.Context, since time.Time) ([]ReputationRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT chain_id, token_id, average_score, computed_at
		FROM agent_reputation
		WHERE computed_at > $1
		ORDER BY computed_at ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("store: list reputation since: %w", err)
	}
	defer rows.Close()

	var out []ReputationRow
	for rows.Next() {
		var row ReputationRow
		if err := rows.Scan(&row.AgentID.ChainID, &row.AgentID.TokenID, &row.AverageScore, &row.ComputedAt); err != nil {
			return nil, fmt.Errorf("store: scan reputation row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// TrustRow is one row of agent_trust_scores whose computed_at exceeds
// a sync worker's watermark.
type TrustRow struct {
	AgentID    agent.Identifier
	TrustScore float64
	ComputedAt time.Time
}

// ListTrustScoresSince returns every agent_trust_scores row with
// computed_at > since.
func (s *Store) ListTrustScoresSince(ctx context.Context, since time.Time) ([]TrustRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT chain_id, token_id, trust_score, computed_at
		FROM agent_trust_scores
		WHERE computed_at > $1
		ORDER BY computed_at ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("store: list trust scores since: %w", err)
	}
	defer rows.Close()

	var out []TrustRow
	for rows.Next() {
		var row TrustRow
		if err := rows.Scan(&row.AgentID.ChainID, &row.AgentID.TokenID, &row.TrustScore, &row.ComputedAt); err != nil {
			return nil, fmt.Errorf("store: scan trust score row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// InsertReputationSnapshot appends one row to the append-only
// reputation_snapshots table, written by the scheduler's daily cadence
// task.
func (s *Store) InsertReputationSnapshot(ctx context.Context, id agent.Identifier, averageScore float64, feedbackCount int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reputation_snapshots (chain_id, token_id, average_score, feedback_count)
		VALUES ($1, $2, $3, $4)`, id.ChainID, id.TokenID, averageScore, feedbackCount)
	if err != nil {
		return fmt.Errorf("store: insert reputation snapshot: %w", err)
	}
	return nil
}

// AllReputationAgentIDs returns every agent identifier with a
// reputation row, used by the daily snapshot task to decide which
// agents to snapshot.
func (s *Store) AllReputationAgentIDs(ctx context.Context) ([]agent.Identifier, error) {
	rows, err := s.pool.Query(ctx, `SELECT chain_id, token_id FROM agent_reputation`)
	if err != nil {
		return nil, fmt.Errorf("store: all reputation agent ids: %w", err)
	}
	defer rows.Close()

	var out []agent.Identifier
	for rows.Next() {
		var id agent.Identifier
		if err := rows.Scan(&id.ChainID, &id.TokenID); err != nil {
			return nil, fmt.Errorf("store: scan reputation agent id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
