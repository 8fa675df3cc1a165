package classify

import (
	"context"

	"github.com/agentauri/gateway/internal/agent"
)

// maxEnqueuePerRun caps how many unclassified agents one enqueue pass
// will queue. The scheduler owns the hourly cadence; this package only
// owns the batch cap.
const maxEnqueuePerRun = 50

// Enqueuer is the relational-store surface the scheduler's periodic
// enqueue job consumes.
type Enqueuer interface {
	ListUnclassifiedAgents(ctx context.Context, limit int) ([]agent.Identifier, error)
	Enqueue(ctx context.Context, id agent.Identifier, force bool) error
	ResetFailedJobs(ctx context.Context) (int, error)
}

// EnqueueUnclassified pulls up to maxEnqueuePerRun unclassified agents
// and enqueues a classification job for each.
func EnqueueUnclassified(ctx context.Context, store Enqueuer) (int, error) {
	ids, err := store.ListUnclassifiedAgents(ctx, maxEnqueuePerRun)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := store.Enqueue(ctx, id, false); err != nil {
			return 0, err
		}
	}

	// When there are no unclassified agents left, recycle failed jobs
	// for another attempt rather than sitting idle.
	if len(ids) == 0 {
		if _, err := store.ResetFailedJobs(ctx); err != nil {
			return 0, err
		}
	}

	return len(ids), nil
}
