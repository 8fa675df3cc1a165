package capability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

// allowLoopback swaps the SSRF admission check for the duration of a
// test so the loopback httptest server passes it.
func allowLoopback(t *testing.T) {
	t.Helper()
	orig := admitURL
	admitURL = func(raw string) (*url.URL, error) { return url.Parse(raw) }
	t.Cleanup(func() { admitURL = orig })
}

func TestFetchA2AUsesHintPathDirectly(t *testing.T) {
	allowLoopback(t)
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/.well-known/agent.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"defaultInputModes":["text"],"defaultOutputModes":["text"],"skills":[{"id":"s1","name":"Summarize","inputModes":["text"]}]}`))
	}))
	defer srv.Close()

	result := FetchA2A(context.Background(), srv.Client(), srv.URL+"/.well-known/agent.json")
	require.True(t, result.Success)
	require.ElementsMatch(t, []string{"text"}, result.InputModes)
	require.ElementsMatch(t, []string{"text"}, result.OutputModes)
	require.ElementsMatch(t, []string{"Summarize"}, result.SkillNames)
}

func TestFetchA2ATriesCanonicalPathsInOrder(t *testing.T) {
	allowLoopback(t)
	var hits []string
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits = append(hits, r.URL.Path)
		if r.URL.Path == "/.well-known/agent.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"defaultInputModes":["text"],"defaultOutputModes":["text"]}`))
	}))
	defer srv.Close()

	result := FetchA2A(context.Background(), srv.Client(), srv.URL)
	require.True(t, result.Success)
	require.Equal(t, []string{"/.well-known/agent.json", "/.well-known/agent-card.json"}, hits)
}

func TestFetchA2ADegradesOnFailure(t *testing.T) {
	result := FetchA2A(context.Background(), http.DefaultClient, "https://localhost/.well-known/agent.json")
	require.False(t, result.Success)
	require.NotEmpty(t, result.Error)
}
