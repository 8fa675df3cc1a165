package llm

import (
	"context"
	"fmt"
)

const hydeSystemPrompt = `You expand a search query into a hypothetical agent description for embedding-based retrieval (HyDE).
Respond with a single JSON object: {"description": string, "filters": {"skills": [string], "domains": [string], "hasMCP": bool|null, "hasA2A": bool|null, "hasX402": bool|null, "chainId": number|null, "minReputation": number|null}}.
description should read like a real agent profile matching the query's intent. filters should only be set when the query clearly implies them; otherwise use null/empty.`

// Generate implements search.HyDEGenerator: synthesizes a hypothetical
// agent description plus structured filter hints from the sanitized
// query.
func (c *Client) Generate(ctx context.Context, sanitizedQuery string) (string, error) {
	prompt := fmt.Sprintf("Query: %s", sanitizedQuery)
	return c.complete(ctx, hydeSystemPrompt, prompt)
}
