package classify

import (
	"context"
	"fmt"

	"github.com/agentauri/gateway/internal/agent"
	"github.com/agentauri/gateway/internal/vectorstore"
)

// PayloadGetter is satisfied by *internal/vectorstore.Store.
type PayloadGetter interface {
	GetByIDs(ctx context.Context, ids []agent.Identifier) ([]vectorstore.ScoredPoint, error)
}

// VectorAgentLoader implements AgentLoader by reading the name and
// description back out of an agent's indexed payload. The relational
// store never holds them; the vector store is what the gateway has on
// hand for an agent once it has been indexed.
type VectorAgentLoader struct {
	store PayloadGetter
}

func NewVectorAgentLoader(store PayloadGetter) *VectorAgentLoader {
	return &VectorAgentLoader{store: store}
}

func (l *VectorAgentLoader) LoadAgent(ctx context.Context, id agent.Identifier) (agent.Record, error) {
	points, err := l.store.GetByIDs(ctx, []agent.Identifier{id})
	if err != nil {
		return agent.Record{}, fmt.Errorf("classify: load agent from index: %w", err)
	}
	if len(points) == 0 {
		return agent.Record{}, fmt.Errorf("classify: agent %s not indexed yet", id)
	}

	p := points[0].Payload
	rec := agent.Record{ID: id}
	if v, ok := p["name"].(string); ok {
		rec.Name = v
	}
	if v, ok := p["description"].(string); ok {
		rec.Description = v
	}
	return rec, nil
}
