package vectorstore

import (
	"context"
	"fmt"

	"github.com/agentauri/gateway/internal/agent"
)

// reconcileScrollBatch is the page size used when walking the entire
// collection for the reconciliation worker.
const reconcileScrollBatch = 1000

// ListAllAgentIDs walks the whole collection via repeated Scroll calls
// and returns every agent identifier present, used by the
// reconciliation worker's full diff. Points whose agent_id field doesn't
// parse as a valid identifier are skipped rather than aborting the
// whole walk: a malformed payload shouldn't block reconciliation of
// every other agent.
func (s *Store) ListAllAgentIDs(ctx context.Context) ([]agent.Identifier, error) {
	var out []agent.Identifier
	seen := make(map[string]struct{})
	cursor := ""

	for {
		res, err := s.Scroll(ctx, nil, reconcileScrollBatch, "", cursor)
		if err != nil {
			return nil, fmt.Errorf("vectorstore: list all agent ids: %w", err)
		}

		for _, p := range res.Points {
			// The scroll offset is inclusive of the cursor point, so a
			// page boundary re-yields the previous page's last point.
			if _, dup := seen[p.AgentID]; dup {
				continue
			}
			seen[p.AgentID] = struct{}{}

			id, err := agent.ParseIdentifier(p.AgentID, nil)
			if err != nil {
				continue
			}
			out = append(out, id)
		}

		if len(res.Points) < reconcileScrollBatch || res.NextOffset == "" {
			break
		}
		cursor = res.NextOffset
	}

	return out, nil
}
