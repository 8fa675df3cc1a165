package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentauri/gateway/internal/agent"
)

const classifySystemPrompt = `You classify autonomous agents against a fixed skill/domain taxonomy.
Respond with a single JSON object: {"skills":[{"slug","confidence","reasoning"}],"domains":[{"slug","confidence","reasoning"}],"confidence":number}.
Only use slugs from the taxonomy below. confidence is 0-1.`

// Classify implements classify.LLM: builds a classification prompt
// from the agent's name/description and the static taxonomy, and
// returns the model's raw text for the consumer to parse.
func (c *Client) Classify(ctx context.Context, agentID agent.Identifier, name, description string) (string, error) {
	prompt := buildClassifyPrompt(agentID, name, description)
	return c.complete(ctx, classifySystemPrompt, prompt)
}

func buildClassifyPrompt(agentID agent.Identifier, name, description string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Agent: %s (%s)\n", name, agentID.String())
	b.WriteString("Description:\n")
	b.WriteString(description)
	b.WriteString("\n\nTaxonomy:\n")
	for _, entry := range agent.Taxonomy("") {
		fmt.Fprintf(&b, "- %s (%s): %s\n", entry.Slug, entry.Kind, entry.Label)
	}
	return b.String()
}
