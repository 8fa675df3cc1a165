package capability

import (
	"context"
	"net/http"
	"time"

	"github.com/agentauri/gateway/internal/agent"
	"github.com/agentauri/gateway/pkg/xsync"
)

const defaultBatchConcurrency = 10

// Enrichment is the per-agent outcome of fetching capability endpoints:
// the I/O modes and skill names from the A2A agent card. An MCP
// endpoint is probed too, but only its error (if any) is recorded; its
// tool, prompt and resource listings are not carried here.
type Enrichment struct {
	AgentID     agent.Identifier
	InputModes  []string
	OutputModes []string
	SkillNames  []string
	Error       string
}

// Fetcher batch-fetches capability enrichment at a bounded
// concurrency.
type Fetcher struct {
	client      *http.Client
	concurrency int
}

// NewFetcher builds a Fetcher with the given HTTP client and
// concurrency cap.
func NewFetcher(client *http.Client, concurrency int) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}
	return &Fetcher{client: client, concurrency: concurrency}
}

// Target describes one agent's capability endpoints to enrich.
type Target struct {
	AgentID     agent.Identifier
	A2AEndpoint string
	MCPEndpoint string
}

// FetchBatch fetches capability enrichment for every target, processing
// in windows bounded by the fetcher's concurrency cap.
func (f *Fetcher) FetchBatch(ctx context.Context, targets []Target) []Enrichment {
	results := make([]Enrichment, len(targets))
	limiter := xsync.NewLimiter(f.concurrency)
	done := make(chan struct{}, len(targets))

	for i, t := range targets {
		i, t := i, t
		limiter.Acquire()
		xsync.Go(func() {
			defer limiter.Release()
			defer func() { done <- struct{}{} }()
			results[i] = f.fetchOne(ctx, t)
		}, nil)
	}
	for range targets {
		<-done
	}
	return results
}

func (f *Fetcher) fetchOne(ctx context.Context, t Target) Enrichment {
	enr := Enrichment{AgentID: t.AgentID}

	var errParts []string

	if t.A2AEndpoint != "" {
		a2a := FetchA2A(ctx, f.client, t.A2AEndpoint)
		enr.InputModes = append(enr.InputModes, a2a.InputModes...)
		enr.OutputModes = append(enr.OutputModes, a2a.OutputModes...)
		enr.SkillNames = append(enr.SkillNames, a2a.SkillNames...)
		if !a2a.Success && a2a.Error != "" {
			errParts = append(errParts, "a2a: "+a2a.Error)
		}
	}
	if t.MCPEndpoint != "" {
		mcp := FetchMCP(ctx, f.client, t.MCPEndpoint)
		if mcp.Error != "" {
			errParts = append(errParts, "mcp: "+mcp.Error)
		}
	}

	enr.InputModes = dedupeStrings(enr.InputModes)
	enr.OutputModes = dedupeStrings(enr.OutputModes)
	enr.SkillNames = dedupeStrings(enr.SkillNames)
	if len(errParts) > 0 {
		enr.Error = joinErrors(errParts)
	}
	return enr
}

func joinErrors(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += "; " + p
	}
	return out
}
