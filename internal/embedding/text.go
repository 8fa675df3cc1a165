package embedding

import "strings"

const maxEmbedTextLength = 30000

// AgentText assembles the embedding input text for an agent: name,
// then a blank line, then description, truncated at the length cap.
// This is the single implementation shared by the graph sync worker
// and the reconciliation backfill.
func AgentText(name, description string) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteString("\n\n")
	b.WriteString(description)
	text := b.String()
	if len(text) > maxEmbedTextLength {
		text = text[:maxEmbedTextLength]
	}
	return text
}
