// Package classify runs the classification job queue: the pending ->
// processing -> completed/failed state machine over a durable,
// SQL-backed job table, with a limiter-gated pull loop that sleeps
// when the queue is empty.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/agentauri/gateway/internal/agent"
	"github.com/agentauri/gateway/internal/errs"
	"github.com/agentauri/gateway/pkg/xsync"
)

// maxAttempts is how many times a job may run before it parks in the
// terminal failed status, which doubles as the dead-letter state.
const maxAttempts = 5

// Queue is the durable job-queue surface the consumer pulls from.
// PullNext returns (job, false, nil) when the queue is empty rather
// than an error.
type Queue interface {
	PullNext(ctx context.Context) (agent.ClassificationJob, bool, error)
	Transition(ctx context.Context, agentID agent.Identifier, status agent.ClassificationJobStatus, attempts int, lastError string) error
}

// AgentLoader fetches the full agent record needed to build the
// classification prompt.
type AgentLoader interface {
	LoadAgent(ctx context.Context, id agent.Identifier) (agent.Record, error)
}

// ClassificationWriter persists the resolved classification.
type ClassificationWriter interface {
	SaveClassification(ctx context.Context, id agent.Identifier, result agent.Classification) error
}

// LLM is the generative classification call. The prompt is built by the
// consumer; the implementation only needs to round-trip text.
type LLM interface {
	Classify(ctx context.Context, agentID agent.Identifier, name, description string) (string, error)
}

// Consumer drains the classification job queue.
type Consumer struct {
	queue   Queue
	agents  AgentLoader
	writer  ClassificationWriter
	llm     LLM
	limiter *xsync.Limiter
	onPanic func(error)
}

type Config struct {
	Queue      Queue
	Agents     AgentLoader
	Writer     ClassificationWriter
	LLM        LLM
	Concurrency int
	OnPanic    func(error)
}

func New(cfg Config) *Consumer {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Consumer{
		queue:   cfg.Queue,
		agents:  cfg.Agents,
		writer:  cfg.Writer,
		llm:     cfg.LLM,
		limiter: xsync.NewLimiter(concurrency),
		onPanic: cfg.OnPanic,
	}
}

// Run pulls and processes jobs until ctx is cancelled, gated by the
// configured concurrency limiter.
func (c *Consumer) Run(ctx context.Context, sleep func()) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.limiter.Acquire()
		job, ok, err := c.queue.PullNext(ctx)
		if err != nil || !ok {
			c.limiter.Release()
			if sleep != nil {
				sleep()
			}
			continue
		}

		xsync.Go(func() {
			defer c.limiter.Release()
			c.ProcessOne(ctx, job)
		}, c.onPanic)
	}
}

// ProcessOne runs the full state machine for a single job: transition
// to processing, increment attempts, fetch the agent, call the LLM,
// parse and validate its response, persist, and transition to the
// terminal state.
func (c *Consumer) ProcessOne(ctx context.Context, job agent.ClassificationJob) {
	attempts := job.Attempts + 1
	if err := c.queue.Transition(ctx, job.AgentID, agent.ClassificationJobProcessing, attempts, ""); err != nil {
		return
	}

	rec, err := c.agents.LoadAgent(ctx, job.AgentID)
	if err != nil {
		c.fail(ctx, job.AgentID, attempts, fmt.Errorf("load agent: %w", err))
		return
	}

	raw, err := c.llm.Classify(ctx, job.AgentID, rec.Name, rec.Description)
	if err != nil {
		c.fail(ctx, job.AgentID, attempts, errs.Wrap(errs.UpstreamTransient, err))
		return
	}

	result, err := parseClassification(raw)
	if err != nil {
		c.fail(ctx, job.AgentID, attempts, errs.Wrap(errs.Validation, err))
		return
	}
	result.AgentID = job.AgentID

	if err := c.writer.SaveClassification(ctx, job.AgentID, result); err != nil {
		c.fail(ctx, job.AgentID, attempts, fmt.Errorf("persist classification: %w", err))
		return
	}

	_ = c.queue.Transition(ctx, job.AgentID, agent.ClassificationJobCompleted, attempts, "")
}

func (c *Consumer) fail(ctx context.Context, id agent.Identifier, attempts int, cause error) {
	status := agent.ClassificationJobFailed
	if attempts < maxAttempts {
		status = agent.ClassificationJobPending
	}
	_ = c.queue.Transition(ctx, id, status, attempts, cause.Error())
}

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// slugEntry is the wire shape of one skill/domain entry in the LLM's
// response.
type slugEntry struct {
	Slug       string  `json:"slug"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

type classificationResponse struct {
	Skills     []slugEntry `json:"skills"`
	Domains    []slugEntry `json:"domains"`
	Confidence float64     `json:"confidence"`
}

// parseClassification strips a fenced code block if present, then
// decodes and validates the JSON response.
func parseClassification(raw string) (agent.Classification, error) {
	body := raw
	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		body = m[1]
	}
	body = strings.TrimSpace(body)

	var resp classificationResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return agent.Classification{}, fmt.Errorf("classify: invalid LLM response: %w", err)
	}

	toSlugs := func(entries []slugEntry) []agent.ConfidentSlug {
		out := make([]agent.ConfidentSlug, 0, len(entries))
		for _, e := range entries {
			if e.Slug == "" {
				continue
			}
			out = append(out, agent.ConfidentSlug{
				Slug:       e.Slug,
				Confidence: e.Confidence,
				Reasoning:  e.Reasoning,
			})
		}
		return out
	}

	return agent.Classification{
		Skills:            toSlugs(resp.Skills),
		Domains:           toSlugs(resp.Domains),
		OverallConfidence: resp.Confidence,
		Source:            agent.ClassificationSourceLLMClassification,
	}, nil
}
