package embedding

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity(Vector{1, 2}, Vector{1, 2, 3})
	require.Error(t, err)
}

func TestCosineSimilarityZeroMagnitude(t *testing.T) {
	sim, err := CosineSimilarity(Vector{0, 0, 0}, Vector{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 0.0, sim)
}

func TestCosineSimilarityIdentical(t *testing.T) {
	sim, err := CosineSimilarity(Vector{1, 0, 0}, Vector{1, 0, 0})
	require.NoError(t, err)
	require.InDelta(t, 1.0, sim, 1e-9)
}

func TestAgentTextAssembly(t *testing.T) {
	text := AgentText("Name", "Description")
	require.Equal(t, "Name\n\nDescription", text)
}

func TestAgentTextTruncation(t *testing.T) {
	longDesc := make([]byte, maxEmbedTextLength*2)
	for i := range longDesc {
		longDesc[i] = 'x'
	}
	text := AgentText("n", string(longDesc))
	require.LessOrEqual(t, len(text), maxEmbedTextLength)
}
