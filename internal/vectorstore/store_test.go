package vectorstore

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/require"

	"github.com/agentauri/gateway/internal/agent"
)

// TestPointIDHashIsStable checks that the same Identifier always
// resolves to the same point ID and that different identifiers do not
// collide (within the scope of this sample).
func TestPointIDHashIsStable(t *testing.T) {
	a := agent.Identifier{ChainID: 11155111, TokenID: "abc123"}
	b := agent.Identifier{ChainID: 11155111, TokenID: "abc124"}

	require.Equal(t, pointIDHash(a), pointIDHash(a))
	require.NotEqual(t, pointIDHash(a), pointIDHash(b))
}

func TestConvertValueRoundTripsScalars(t *testing.T) {
	strVal, err := qdrant.NewValue("hello")
	require.NoError(t, err)
	require.Equal(t, "hello", convertValue(strVal))

	boolVal, err := qdrant.NewValue(true)
	require.NoError(t, err)
	require.Equal(t, true, convertValue(boolVal))
}

func TestAgentIDFromPayloadMissingKey(t *testing.T) {
	require.Equal(t, "", agentIDFromPayload(nil))
	require.Equal(t, "", agentIDFromPayload(map[string]*qdrant.Value{}))
}

func TestPayloadValuesKeepsChainIDIntegral(t *testing.T) {
	vals, err := payloadValues(map[string]any{
		"chain_id":   int64(11155111),
		"reputation": 77.5,
		"mcp_tools":  []string{"search"},
		"skills_with_confidence": []map[string]any{
			{"slug": "web-search", "confidence": 0.9},
		},
	})
	require.NoError(t, err)

	require.Equal(t, int64(11155111), vals["chain_id"].GetIntegerValue())
	require.InDelta(t, 77.5, vals["reputation"].GetDoubleValue(), 1e-9)

	tools := vals["mcp_tools"].GetListValue().GetValues()
	require.Len(t, tools, 1)
	require.Equal(t, "search", tools[0].GetStringValue())

	slugs := vals["skills_with_confidence"].GetListValue().GetValues()
	require.Len(t, slugs, 1)
	require.Equal(t, "web-search", slugs[0].GetStructValue().GetFields()["slug"].GetStringValue())
}

func TestToValueRejectsUnsupportedType(t *testing.T) {
	_, err := toValue(struct{}{})
	require.Error(t, err)
}
