package apiserver

import (
	"context"
	"net/http"
	"time"
)

const healthCheckTimeout = 3 * time.Second

type dependencyStatus struct {
	Name string `json:"name"`
	OK   bool   `json:"ok"`
	Note string `json:"note,omitempty"`
}

type healthResponse struct {
	OK           bool               `json:"ok"`
	Dependencies []dependencyStatus `json:"dependencies"`
}

// Pinger is satisfied by both *internal/store.Store and
// *internal/vectorstore.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// handleHealth implements GET /health: a liveness matrix over every
// external dependency the gateway needs, rather than a bare 200. Every
// dependency is reported with its own OK flag; if any of them is not OK
// the overall OK flag is false and the status is 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	deps := []dependencyStatus{
		pingDependency(ctx, "postgres", s.relationalStore),
		pingDependency(ctx, "qdrant", s.payloads),
		httpDependency(ctx, s.httpClient, "upstream_graphql", s.upstreamGraphQLURL),
		keyPresenceDependency("anthropic_api_key", s.anthropicKeySet),
	}

	allOK := true
	for _, d := range deps {
		if !d.OK {
			allOK = false
		}
	}

	status := http.StatusOK
	if !allOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{OK: allOK, Dependencies: deps})
}

func pingDependency(ctx context.Context, name string, p Pinger) dependencyStatus {
	if err := p.Ping(ctx); err != nil {
		return dependencyStatus{Name: name, OK: false, Note: err.Error()}
	}
	return dependencyStatus{Name: name, OK: true}
}

func httpDependency(ctx context.Context, client *http.Client, name, url string) dependencyStatus {
	if url == "" {
		return dependencyStatus{Name: name, OK: false, Note: "not configured"}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return dependencyStatus{Name: name, OK: false, Note: err.Error()}
	}
	resp, err := client.Do(req)
	if err != nil {
		return dependencyStatus{Name: name, OK: false, Note: err.Error()}
	}
	defer resp.Body.Close()
	return dependencyStatus{Name: name, OK: true}
}

func keyPresenceDependency(name string, present bool) dependencyStatus {
	if !present {
		return dependencyStatus{Name: name, OK: false, Note: "not configured"}
	}
	return dependencyStatus{Name: name, OK: true}
}
