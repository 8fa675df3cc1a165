package graphclient

import (
	"context"

	"github.com/agentauri/gateway/internal/agent"
)

// RecordPuller adapts Client.PullAgentsPage's DTO wire shape to
// agent.Record, the shape internal/sync/graph.Worker depends on. Kept
// as a thin separate type (rather than changing Client's own method
// signature) so Client continues to expose its literal wire response
// for anything that wants the DTO directly.
type RecordPuller struct {
	client *Client
}

// NewRecordPuller wraps client.
func NewRecordPuller(client *Client) *RecordPuller {
	return &RecordPuller{client: client}
}

// PullAgentsPage satisfies internal/sync/graph.Puller.
func (p *RecordPuller) PullAgentsPage(ctx context.Context, skip int) ([]agent.Record, error) {
	dtos, err := p.client.PullAgentsPage(ctx, skip)
	if err != nil {
		return nil, err
	}
	out := make([]agent.Record, len(dtos))
	for i, d := range dtos {
		out[i] = d.ToRecord()
	}
	return out, nil
}

// FeedbackPuller adapts Client.PullFeedbacksPage's DTO wire shape to
// agent.Feedback, the shape internal/sync/feedback.Worker depends on.
type FeedbackPuller struct {
	client *Client
}

// NewFeedbackPuller wraps client.
func NewFeedbackPuller(client *Client) *FeedbackPuller {
	return &FeedbackPuller{client: client}
}

// PullFeedbacksPage satisfies internal/sync/feedback.Puller.
func (p *FeedbackPuller) PullFeedbacksPage(ctx context.Context, skip int, createdAtGt int64) ([]agent.Feedback, error) {
	dtos, err := p.client.PullFeedbacksPage(ctx, skip, createdAtGt)
	if err != nil {
		return nil, err
	}
	out := make([]agent.Feedback, len(dtos))
	for i, d := range dtos {
		out[i] = d.ToFeedback()
	}
	return out, nil
}
