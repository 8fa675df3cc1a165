package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/agentauri/gateway/internal/search"
)

const rerankSystemPrompt = `You rerank agent search results by relevance to a query.
Respond with a single JSON array of agent_id strings, best match first, containing every agent_id from the candidates list exactly once.`

var rerankFencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// Rerank implements search.Reranker: passes the query and candidate
// hits to the model and reorders hits by the returned
// ranking. Candidates the model's response omits keep their relative
// order and are appended after every ranked hit.
func (c *Client) Rerank(ctx context.Context, query string, hits []search.Hit) ([]search.Hit, error) {
	prompt := buildRerankPrompt(query, hits)
	raw, err := c.complete(ctx, rerankSystemPrompt, prompt)
	if err != nil {
		return hits, err
	}

	order, err := parseRerankOrder(raw)
	if err != nil {
		return hits, nil
	}

	return applyRerankOrder(hits, order), nil
}

func buildRerankPrompt(query string, hits []search.Hit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nCandidates:\n", query)
	for _, h := range hits {
		name, _ := h.Payload["name"].(string)
		description, _ := h.Payload["description"].(string)
		fmt.Fprintf(&b, "- agent_id=%s name=%q description=%q\n", h.AgentID, name, truncate(description, 300))
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func parseRerankOrder(raw string) ([]string, error) {
	body := raw
	if m := rerankFencedBlock.FindStringSubmatch(raw); m != nil {
		body = m[1]
	}
	body = strings.TrimSpace(body)

	var order []string
	if err := json.Unmarshal([]byte(body), &order); err != nil {
		return nil, fmt.Errorf("llm: invalid rerank response: %w", err)
	}
	return order, nil
}

func applyRerankOrder(hits []search.Hit, order []string) []search.Hit {
	byID := make(map[string]search.Hit, len(hits))
	for _, h := range hits {
		byID[h.AgentID] = h
	}

	out := make([]search.Hit, 0, len(hits))
	seen := make(map[string]bool, len(hits))
	for _, id := range order {
		h, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		out = append(out, h)
		seen[id] = true
	}
	for _, h := range hits {
		if !seen[h.AgentID] {
			out = append(out, h)
		}
	}
	return out
}
