package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/agentauri/gateway/internal/agent"
)

// --- agent.ReputationAggregate (internal/reputation.Store) ---

func (s *Store) LoadAggregate(ctx context.Context, id agent.Identifier) (agent.ReputationAggregate, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT feedback_count, average_score, low_count, medium_count, high_count, computed_at
		FROM agent_reputation WHERE chain_id = $1 AND token_id = $2`, id.ChainID, id.TokenID)

	var agg agent.ReputationAggregate
	agg.AgentID = id
	err := row.Scan(&agg.FeedbackCount, &agg.AverageScore, &agg.Low, &agg.Medium, &agg.High, &agg.LastCalculatedAt)
	if err == pgx.ErrNoRows {
		return agg, nil
	}
	if err != nil {
		return agent.ReputationAggregate{}, fmt.Errorf("store: load aggregate: %w", err)
	}
	return agg, nil
}

func (s *Store) UpsertAggregate(ctx context.Context, agg agent.ReputationAggregate) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO agent_reputation (chain_id, token_id, feedback_count, average_score, low_count, medium_count, high_count, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (chain_id, token_id) DO UPDATE SET
			feedback_count = EXCLUDED.feedback_count,
			average_score  = EXCLUDED.average_score,
			low_count      = EXCLUDED.low_count,
			medium_count   = EXCLUDED.medium_count,
			high_count     = EXCLUDED.high_count,
			computed_at    = now()`,
		agg.AgentID.ChainID, agg.AgentID.TokenID, agg.FeedbackCount, agg.AverageScore, agg.Low, agg.Medium, agg.High)
	if err != nil {
		return fmt.Errorf("store: upsert aggregate: %w", err)
	}
	return nil
}

func (s *Store) ListFeedbackByAgent(ctx context.Context, id agent.Identifier) ([]agent.Feedback, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT external_id, chain_id, token_id, score, tags, context, uri, submitter, created_at, tx_hash, revoked
		FROM feedback_events WHERE chain_id = $1 AND token_id = $2`, id.ChainID, id.TokenID)
	if err != nil {
		return nil, fmt.Errorf("store: list feedback by agent: %w", err)
	}
	defer rows.Close()
	return scanFeedback(rows)
}

func (s *Store) DistinctFeedbackAgents(ctx context.Context) ([]agent.Identifier, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT chain_id, token_id FROM feedback_events`)
	if err != nil {
		return nil, fmt.Errorf("store: distinct feedback agents: %w", err)
	}
	defer rows.Close()

	var out []agent.Identifier
	for rows.Next() {
		var id agent.Identifier
		if err := rows.Scan(&id.ChainID, &id.TokenID); err != nil {
			return nil, fmt.Errorf("store: scan distinct agent: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// --- internal/reachability.FeedbackLister ---

func (s *Store) ListRecentFeedback(ctx context.Context, id agent.Identifier, since time.Time) ([]agent.Feedback, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT external_id, chain_id, token_id, score, tags, context, uri, submitter, created_at, tx_hash, revoked
		FROM feedback_events
		WHERE chain_id = $1 AND token_id = $2 AND created_at >= $3`, id.ChainID, id.TokenID, since)
	if err != nil {
		return nil, fmt.Errorf("store: list recent feedback: %w", err)
	}
	defer rows.Close()
	return scanFeedback(rows)
}

// ListRecentFeedbackBatch is the one-pass batch variant of
// ListRecentFeedback, mapping rows back per agent.
func (s *Store) ListRecentFeedbackBatch(ctx context.Context, ids []agent.Identifier, since time.Time) (map[string][]agent.Feedback, error) {
	out := make(map[string][]agent.Feedback, len(ids))
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
		SELECT external_id, chain_id, token_id, score, tags, context, uri, submitter, created_at, tx_hash, revoked
		FROM feedback_events
		WHERE (chain_id, token_id) IN (SELECT * FROM unnest($1::bigint[], $2::text[]))
		  AND created_at >= $3`, chainIDs, tokenIDs, since)
	if err != nil {
		return nil, fmt.Errorf("store: list recent feedback batch: %w", err)
	}
	defer rows.Close()

	all, err := scanFeedback(rows)
	if err != nil {
		return nil, err
	}
	for _, f := range all {
		out[f.AgentID.String()] = append(out[f.AgentID.String()], f)
	}
	return out, nil
}

func scanFeedback(rows pgx.Rows) ([]agent.Feedback, error) {
	var out []agent.Feedback
	for rows.Next() {
		var f agent.Feedback
		if err := rows.Scan(&f.ExternalID, &f.ChainID, &f.AgentID.TokenID, &f.Score, &f.Tags, &f.Context, &f.URI, &f.Submitter, &f.CreatedAt, &f.TxHash, &f.Revoked); err != nil {
			return nil, fmt.Errorf("store: scan feedback: %w", err)
		}
		f.AgentID.ChainID = f.ChainID
		out = append(out, f)
	}
	return out, rows.Err()
}

// InsertFeedback inserts a new, never-before-seen feedback row. The
// caller is responsible for the dedupe check (by ExternalID) against
// the feedback table before calling this.
func (s *Store) InsertFeedback(ctx context.Context, f agent.Feedback) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO feedback_events (external_id, chain_id, token_id, score, tags, context, uri, submitter, tx_hash, revoked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (external_id) DO NOTHING`,
		f.ExternalID, f.AgentID.ChainID, f.AgentID.TokenID, f.Score, f.Tags, f.Context, f.URI, f.Submitter, f.TxHash, f.Revoked, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: insert feedback: %w", err)
	}
	return nil
}

// FeedbackExists is the feedback dedupe check by external ID.
func (s *Store) FeedbackExists(ctx context.Context, externalID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM feedback_events WHERE external_id = $1)`, externalID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("store: feedback exists: %w", err)
	}
	return exists, nil
}

// --- internal/classify.Queue / Enqueuer ---

func (s *Store) PullNext(ctx context.Context) (agent.ClassificationJob, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT chain_id, token_id, force, attempts, status, last_error
		FROM classification_jobs
		WHERE status = 'pending'
		ORDER BY updated_at ASC
		LIMIT 1`)

	var job agent.ClassificationJob
	var chainID int64
	var tokenID string
	err := row.Scan(&chainID, &tokenID, &job.Force, &job.Attempts, &job.Status, &job.LastError)
	if err == pgx.ErrNoRows {
		return agent.ClassificationJob{}, false, nil
	}
	if err != nil {
		return agent.ClassificationJob{}, false, fmt.Errorf("store: pull next job: %w", err)
	}
	job.AgentID = agent.Identifier{ChainID: chainID, TokenID: tokenID}
	return job, true, nil
}

func (s *Store) Transition(ctx context.Context, id agent.Identifier, status agent.ClassificationJobStatus, attempts int, lastError string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE classification_jobs
		SET status = $3, attempts = $4, last_error = $5, updated_at = now()
		WHERE chain_id = $1 AND token_id = $2`,
		id.ChainID, id.TokenID, status, attempts, lastError)
	if err != nil {
		return fmt.Errorf("store: transition job: %w", err)
	}
	return nil
}

func (s *Store) ListUnclassifiedAgents(ctx context.Context, limit int) ([]agent.Identifier, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.chain_id, m.token_id
		FROM agent_sync_metadata m
		LEFT JOIN agent_classifications c ON c.chain_id = m.chain_id AND c.token_id = m.token_id
		LEFT JOIN classification_jobs j ON j.chain_id = m.chain_id AND j.token_id = m.token_id
		WHERE c.chain_id IS NULL AND j.chain_id IS NULL
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list unclassified agents: %w", err)
	}
	defer rows.Close()

	var out []agent.Identifier
	for rows.Next() {
		var id agent.Identifier
		if err := rows.Scan(&id.ChainID, &id.TokenID); err != nil {
			return nil, fmt.Errorf("store: scan unclassified agent: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) Enqueue(ctx context.Context, id agent.Identifier, force bool) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO classification_jobs (chain_id, token_id, force, status)
		VALUES ($1, $2, $3, 'pending')
		ON CONFLICT (chain_id, token_id) DO UPDATE SET force = EXCLUDED.force, status = 'pending', updated_at = now()`,
		id.ChainID, id.TokenID, force)
	if err != nil {
		return fmt.Errorf("store: enqueue job: %w", err)
	}
	return nil
}

func (s *Store) ResetFailedJobs(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE classification_jobs SET status = 'pending', attempts = 0 WHERE status = 'failed'`)
	if err != nil {
		return 0, fmt.Errorf("store: reset failed jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// --- internal/apiserver (GET /agents/{id}/classify) ---

// JobStatus reports the classification_jobs row's current status for
// id, used by GET /agents/{id}/classify to decide between 200 (completed
// or failed) and 202 (still pending/processing).
func (s *Store) JobStatus(ctx context.Context, id agent.Identifier) (agent.ClassificationJobStatus, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT status FROM classification_jobs WHERE chain_id = $1 AND token_id = $2`,
		id.ChainID, id.TokenID)

	var status agent.ClassificationJobStatus
	err := row.Scan(&status)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: job status: %w", err)
	}
	return status, true, nil
}

// LoadClassification reads back the persisted LLM-derived classification
// for id, if one has been saved.
func (s *Store) LoadClassification(ctx context.Context, id agent.Identifier) (agent.Classification, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT skills, domains, overall_confidence, source, model_version, classified_at
		FROM agent_classifications WHERE chain_id = $1 AND token_id = $2`,
		id.ChainID, id.TokenID)

	var (
		c              agent.Classification
		skillsRaw      []byte
		domainsRaw     []byte
		classifiedAt   *time.Time
	)
	err := row.Scan(&skillsRaw, &domainsRaw, &c.OverallConfidence, &c.Source, &c.ModelVersion, &classifiedAt)
	if err == pgx.ErrNoRows {
		return agent.Classification{}, false, nil
	}
	if err != nil {
		return agent.Classification{}, false, fmt.Errorf("store: load classification: %w", err)
	}
	if err := json.Unmarshal(skillsRaw, &c.Skills); err != nil {
		return agent.Classification{}, false, fmt.Errorf("store: unmarshal skills: %w", err)
	}
	if err := json.Unmarshal(domainsRaw, &c.Domains); err != nil {
		return agent.Classification{}, false, fmt.Errorf("store: unmarshal domains: %w", err)
	}
	if classifiedAt != nil {
		c.ClassifiedAt = *classifiedAt
	}
	c.AgentID = id
	return c, true, nil
}

// --- internal/classify.ClassificationWriter ---
//
// classify.AgentLoader is not implemented here: this store never holds
// an agent's name/description (those are upstream-authoritative), so
// the classification consumer is wired against
// internal/classify/vectoragent.go's vectorstore-backed loader
// instead.

func (s *Store) SaveClassification(ctx context.Context, id agent.Identifier, result agent.Classification) error {
	skills, err := json.Marshal(result.Skills)
	if err != nil {
		return fmt.Errorf("store: marshal skills: %w", err)
	}
	domains, err := json.Marshal(result.Domains)
	if err != nil {
		return fmt.Errorf("store: marshal domains: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO agent_classifications (chain_id, token_id, skills, domains, overall_confidence, source, model_version, classified_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (chain_id, token_id) DO UPDATE SET
			skills             = EXCLUDED.skills,
			domains            = EXCLUDED.domains,
			overall_confidence = EXCLUDED.overall_confidence,
			source             = EXCLUDED.source,
			model_version      = EXCLUDED.model_version,
			classified_at      = now(),
			updated_at         = now()`,
		id.ChainID, id.TokenID, skills, domains, result.OverallConfidence, result.Source, result.ModelVersion)
	if err != nil {
		return fmt.Errorf("store: save classification: %w", err)
	}

	// A saved classification may change the text the vector was
	// embedded from, so flag the agent for re-embedding on the next
	// graph sync.
	_, err = s.pool.Exec(ctx, `
		UPDATE agent_sync_metadata SET needs_reembed = TRUE, updated_at = now()
		WHERE chain_id = $1 AND token_id = $2`, id.ChainID, id.TokenID)
	if err != nil {
		return fmt.Errorf("store: flag needs_reembed: %w", err)
	}
	return nil
}
