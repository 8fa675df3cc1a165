// Package relational implements the relational-to-vector sync worker:
// forwarding classification, reputation, and trust-score updates from
// the authoritative relational tables into the vector store's payload
// without touching any vector.
package relational

import (
	"context"
	"fmt"
	"time"

	"github.com/agentauri/gateway/internal/agent"
	"github.com/agentauri/gateway/internal/payload"
	"github.com/agentauri/gateway/internal/store"
)

// indexConfidenceThreshold mirrors agent.Record.IndexedSkills's
// threshold: only confidence >= 0.7 slugs are promoted into the
// indexed skills/domains fields.
const indexConfidenceThreshold = 0.7

// reputationLegacyCeiling marks the cutover between the legacy 1-5
// average-score scale and the current 0-100 one.
const reputationLegacyCeiling = 5.0

// ClassificationLister pulls agent_classifications rows newer than a
// watermark.
type ClassificationLister interface {
	ListClassificationsSince(ctx context.Context, since time.Time) ([]store.ClassificationRow, error)
}

// ReputationLister pulls agent_reputation rows newer than a watermark.
type ReputationLister interface {
	ListReputationSince(ctx context.Context, since time.Time) ([]store.ReputationRow, error)
}

// TrustLister pulls agent_trust_scores rows newer than a watermark.
type TrustLister interface {
	ListTrustScoresSince(ctx context.Context, since time.Time) ([]store.TrustRow, error)
}

// MetadataStore is the sync-metadata surface this worker needs to flag
// needs_reembed after a classification change.
type MetadataStore interface {
	LoadSyncMetadataBatch(ctx context.Context, ids []agent.Identifier) (map[string]agent.SyncMetadata, error)
	UpsertSyncMetadata(ctx context.Context, meta agent.SyncMetadata) error
}

// SyncStateStore is the process-wide sync-state singleton surface.
type SyncStateStore interface {
	LoadSyncState(ctx context.Context) (agent.SyncState, error)
	UpdateSyncState(ctx context.Context, st agent.SyncState) error
}

// VectorWriter is the payload-merge surface this worker drives.
type VectorWriter interface {
	SetPayloadByAgentID(ctx context.Context, id agent.Identifier, partial payload.Payload) error
}

type Config struct {
	Classifications ClassificationLister
	Reputations     ReputationLister
	TrustScores     TrustLister
	MetadataStore   MetadataStore
	SyncStateStore  SyncStateStore
	VectorWriter    VectorWriter
}

// Worker runs the relational-to-vector sync.
type Worker struct {
	classifications ClassificationLister
	reputations     ReputationLister
	trustScores     TrustLister
	metaStore       MetadataStore
	syncState       SyncStateStore
	vectors         VectorWriter
	now             func() time.Time
}

func New(cfg Config) *Worker {
	return &Worker{
		classifications: cfg.Classifications,
		reputations:     cfg.Reputations,
		trustScores:     cfg.TrustScores,
		metaStore:       cfg.MetadataStore,
		syncState:       cfg.SyncStateStore,
		vectors:         cfg.VectorWriter,
		now:             time.Now,
	}
}

// Summary is the per-run outcome.
type Summary struct {
	ClassificationsProcessed int
	ReputationsProcessed     int
	TrustScoresProcessed     int
	Errored                  int
}

// Run executes one forward-sync pass. It never aborts on a per-row
// payload-write failure; it counts the failure and continues, like the
// graph sync worker.
func (w *Worker) Run(ctx context.Context) (Summary, error) {
	st, err := w.syncState.LoadSyncState(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("relational sync: load sync state: %w", err)
	}
	since := st.LastD1Sync

	var summary Summary
	newWatermark := since

	classifications, err := w.classifications.ListClassificationsSince(ctx, since)
	if err != nil {
		return Summary{}, fmt.Errorf("relational sync: list classifications: %w", err)
	}
	for _, row := range classifications {
		if err := w.applyClassification(ctx, row); err != nil {
			summary.Errored++
			continue
		}
		summary.ClassificationsProcessed++
		if row.UpdatedAt.After(newWatermark) {
			newWatermark = row.UpdatedAt
		}
	}

	reputations, err := w.reputations.ListReputationSince(ctx, since)
	if err != nil {
		return Summary{}, fmt.Errorf("relational sync: list reputation: %w", err)
	}
	for _, row := range reputations {
		if err := w.applyReputation(ctx, row); err != nil {
			summary.Errored++
			continue
		}
		summary.ReputationsProcessed++
		if row.ComputedAt.After(newWatermark) {
			newWatermark = row.ComputedAt
		}
	}

	trustScores, err := w.trustScores.ListTrustScoresSince(ctx, since)
	if err != nil {
		return Summary{}, fmt.Errorf("relational sync: list trust scores: %w", err)
	}
	for _, row := range trustScores {
		if err := w.applyTrustScore(ctx, row); err != nil {
			summary.Errored++
			continue
		}
		summary.TrustScoresProcessed++
		if row.ComputedAt.After(newWatermark) {
			newWatermark = row.ComputedAt
		}
	}

	processed := summary.ClassificationsProcessed + summary.ReputationsProcessed + summary.TrustScoresProcessed
	if processed > 0 {
		// The watermark only advances when at least one row was
		// processed, and moves to the max updated_at/computed_at over
		// processed rows. A zero-work run leaves it untouched so a
		// transient listing failure on one table doesn't silently skip
		// rows on the next run.
		st.LastD1Sync = newWatermark
	}
	if summary.Errored > 0 {
		st.LastError = fmt.Sprintf("relational sync: %d rows failed to forward", summary.Errored)
	} else {
		st.LastError = ""
	}
	if err := w.syncState.UpdateSyncState(ctx, st); err != nil {
		return summary, fmt.Errorf("relational sync: update sync state: %w", err)
	}

	return summary, nil
}

func (w *Worker) applyClassification(ctx context.Context, row store.ClassificationRow) error {
	indexedSkills := indexedSlugs(row.Skills)
	indexedDomains := indexedSlugs(row.Domains)

	p := payload.Build(payload.Input{Record: &agent.Record{ID: row.AgentID}}, &payload.Enrichment{
		Classification: &payload.ClassificationEnrichment{
			IndexedSkills:         indexedSkills,
			IndexedDomains:        indexedDomains,
			SkillsWithConfidence:  row.Skills,
			DomainsWithConfidence: row.Domains,
		},
	})
	classificationOnly := payload.Payload{
		"skills":                  p["skills"],
		"domains":                 p["domains"],
		"skills_with_confidence":  p["skills_with_confidence"],
		"domains_with_confidence": p["domains_with_confidence"],
	}

	if err := w.vectors.SetPayloadByAgentID(ctx, row.AgentID, classificationOnly); err != nil {
		return fmt.Errorf("set classification payload for %s: %w", row.AgentID.String(), err)
	}

	// A classification change may affect the text the vector was
	// embedded from; this worker can't tell here, so it flags
	// needs_reembed and lets the graph sync worker decide on its next
	// pass.
	return w.flagNeedsReembed(ctx, row.AgentID)
}

func (w *Worker) flagNeedsReembed(ctx context.Context, id agent.Identifier) error {
	metaByID, err := w.metaStore.LoadSyncMetadataBatch(ctx, []agent.Identifier{id})
	if err != nil {
		return fmt.Errorf("load sync metadata for %s: %w", id.String(), err)
	}
	meta := metaByID[id.String()]
	meta.AgentID = id
	meta.NeedsReembed = true
	meta.UpdatedAt = w.now().UTC()
	if err := w.metaStore.UpsertSyncMetadata(ctx, meta); err != nil {
		return fmt.Errorf("flag needs_reembed for %s: %w", id.String(), err)
	}
	return nil
}

func (w *Worker) applyReputation(ctx context.Context, row store.ReputationRow) error {
	p := payload.Payload{"reputation": normalizeReputation(row.AverageScore)}
	if err := w.vectors.SetPayloadByAgentID(ctx, row.AgentID, p); err != nil {
		return fmt.Errorf("set reputation payload for %s: %w", row.AgentID.String(), err)
	}
	return nil
}

func (w *Worker) applyTrustScore(ctx context.Context, row store.TrustRow) error {
	p := payload.Payload{"trust": row.TrustScore}
	if err := w.vectors.SetPayloadByAgentID(ctx, row.AgentID, p); err != nil {
		return fmt.Errorf("set trust payload for %s: %w", row.AgentID.String(), err)
	}
	return nil
}

// normalizeReputation rescales a legacy 1-5 average score onto 0-100
// and rounds to the nearest integer.
func normalizeReputation(averageScore float64) float64 {
	score := averageScore
	if score <= reputationLegacyCeiling {
		score *= 20
	}
	return float64(int64(score + 0.5))
}

func indexedSlugs(slugs []agent.ConfidentSlug) []string {
	out := make([]string, 0, len(slugs))
	for _, s := range slugs {
		if s.Confidence >= indexConfidenceThreshold {
			out = append(out, s.Slug)
		}
	}
	return out
}
