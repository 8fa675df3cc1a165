package payload

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentauri/gateway/internal/agent"
)

func TestBuildNoNullsReachVectorStore(t *testing.T) {
	r := &agent.Record{
		ID: agent.Identifier{ChainID: 1, TokenID: "42"},
	}
	p := Build(Input{Record: r}, nil)

	require.Equal(t, "", p["name"])
	require.Equal(t, []string{}, p["mcp_tools"])
	require.Equal(t, false, p["active"])
	require.Equal(t, "", p["created_at"])

	for k, v := range p {
		require.NotNil(t, v, "field %q must not be nil", k)
	}
}

func TestBuildMergesCapabilityEnrichment(t *testing.T) {
	r := &agent.Record{
		ID:          agent.Identifier{ChainID: 1, TokenID: "42"},
		InputModes:  []string{"text"},
		OutputModes: []string{"text"},
	}
	enr := &Enrichment{
		Capability: &CapabilityEnrichment{
			InputModes:  []string{"text", "image"},
			OutputModes: []string{"audio"},
			SkillNames:  []string{"translate"},
		},
	}
	p := Build(Input{Record: r}, enr)

	require.ElementsMatch(t, []string{"text", "image"}, p["input_modes"])
	require.ElementsMatch(t, []string{"text", "audio"}, p["output_modes"])
	require.ElementsMatch(t, []string{"translate"}, p["a2a_skills"])
}

func TestBuildMergesClassificationEnrichment(t *testing.T) {
	r := &agent.Record{ID: agent.Identifier{ChainID: 1, TokenID: "42"}}
	enr := &Enrichment{
		Classification: &ClassificationEnrichment{
			IndexedSkills:  []string{"chat"},
			IndexedDomains: []string{"finance"},
		},
	}
	p := Build(Input{Record: r}, enr)

	require.Equal(t, []string{"chat"}, p["skills"])
	require.Equal(t, []string{"finance"}, p["domains"])
}
