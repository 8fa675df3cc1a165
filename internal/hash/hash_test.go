package hash

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentauri/gateway/internal/agent"
)

func sampleRecord() *agent.Record {
	return &agent.Record{
		ID:            agent.Identifier{ChainID: 11155111, TokenID: "1"},
		Name:          "Example Agent",
		Description:   "Does things.",
		MCPTools:      []string{"b-tool", "a-tool"},
		MCPPrompts:    []string{"p1"},
		MCPResources:  []string{"r1"},
		A2ASkillNames: []string{"skill-b", "skill-a"},
		InputModes:    []string{"text"},
		OutputModes:   []string{"text"},
		Owner:         "0xAA",
	}
}

func TestEmbedHashStableUnderReorder(t *testing.T) {
	r1 := sampleRecord()
	r2 := sampleRecord()
	r2.MCPTools = []string{"a-tool", "b-tool"}
	r2.A2ASkillNames = []string{"skill-a", "skill-b"}

	h1, err := EmbedHash(r1)
	require.NoError(t, err)
	h2, err := EmbedHash(r2)
	require.NoError(t, err)

	require.Equal(t, h1, h2, "reordering set-like fields must not change the embed hash")
}

func TestContentHashChangesOnOwnerChange(t *testing.T) {
	r1 := sampleRecord()
	r1.Normalize()
	h1, err := ContentHash(r1)
	require.NoError(t, err)

	r2 := sampleRecord()
	r2.Owner = "0xBB"
	r2.Normalize()
	h2, err := ContentHash(r2)
	require.NoError(t, err)

	require.NotEqual(t, h1, h2)
}

func TestContentHashLowercasesOwner(t *testing.T) {
	upper := sampleRecord()
	upper.Owner = "0xAB"
	lower := sampleRecord()
	lower.Owner = "0xab"

	h1, err := ContentHash(upper)
	require.NoError(t, err)
	h2, err := ContentHash(lower)
	require.NoError(t, err)

	require.Equal(t, h1, h2, "hash must be computed over the lowercased owner")
}

func TestEmbedHashUnaffectedByContentFields(t *testing.T) {
	r1 := sampleRecord()
	r2 := sampleRecord()
	r2.Owner = "0xBB"
	r2.Active = true

	h1, err := EmbedHash(r1)
	require.NoError(t, err)
	h2, err := EmbedHash(r2)
	require.NoError(t, err)

	require.Equal(t, h1, h2, "embed hash must only cover EmbedFields")
}
