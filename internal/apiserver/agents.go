package apiserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agentauri/gateway/internal/agent"
	"github.com/agentauri/gateway/internal/capability"
	"github.com/agentauri/gateway/internal/errs"
	"github.com/agentauri/gateway/internal/search"
)

// handleListAgents implements GET /agents: every recognized filter key
// as a query param, no query text, routed through the same planner
// POST /search uses. A listing is just a search request whose Query is
// empty.
func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())
	q := r.URL.Query()

	req := search.Request{
		Filters: toFilterRequest(filterParamsFromQuery(q)),
		Limit:   queryIntOrDefault(q, "limit", 20),
		Offset:  queryIntOrDefault(q, "offset", 0),
		Cursor:  q.Get("cursor"),
		Sort: search.Sort{
			Field: search.SortField(q.Get("sortField")),
			Order: search.SortOrder(q.Get("sortOrder")),
		},
	}

	resp, err := s.planner.Plan(r.Context(), req)
	if err != nil {
		respondFromErr(w, requestID, err)
		return
	}
	respondOK(w, resp)
}

func queryIntOrDefault(q map[string][]string, key string, def int) int {
	v := urlValuesGet(q, key)
	if v == "" {
		return def
	}
	n, err := castToInt(v)
	if err != nil {
		return def
	}
	return n
}

func urlValuesGet(q map[string][]string, key string) string {
	vs, ok := q[key]
	if !ok || len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// agentDetail is the response shape of GET /agents/{id}: the indexed
// payload plus the resolved classification (creator-declared beats
// stored LLM classification) and a live A2A capability probe.
type agentDetail struct {
	AgentID        string                    `json:"agentId"`
	Payload        map[string]any            `json:"payload"`
	Classification resolvedClassificationDTO `json:"classification"`
	LiveA2A        *capability.A2AResult     `json:"liveA2A,omitempty"`
}

type resolvedClassificationDTO struct {
	Source  agent.ClassificationSource `json:"source"`
	Skills  []agent.ConfidentSlug      `json:"skills"`
	Domains []agent.ConfidentSlug      `json:"domains"`
}

// handleGetAgent implements GET /agents/{id}: load the indexed payload,
// resolve its classification against the stored LLM result via
// agent.Resolve, and, if the payload carries an A2A endpoint, probe it
// live rather than trusting the last-synced capability snapshot.
func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	id, err := agent.ParseIdentifier(chi.URLParam(r, "id"), s.knownChains)
	if err != nil {
		respondError(w, requestID, http.StatusBadRequest, CodeValidation, err)
		return
	}

	points, err := s.payloads.GetByIDs(r.Context(), []agent.Identifier{id})
	if err != nil {
		respondFromErr(w, requestID, errs.Wrap(errs.Unexpected, err))
		return
	}
	if len(points) == 0 {
		respondError(w, requestID, http.StatusNotFound, CodeNotFound, errs.NotFound)
		return
	}
	p := points[0].Payload

	declared := creatorDeclaredFromPayload(id, p)
	stored, _, err := s.classifier.LoadClassification(r.Context(), id)
	if err != nil {
		respondFromErr(w, requestID, err)
		return
	}
	resolved := agent.Resolve(declared, stored)

	detail := agentDetail{
		AgentID: id.String(),
		Payload: p,
		Classification: resolvedClassificationDTO{
			Source:  resolved.Source,
			Skills:  resolved.Skills,
			Domains: resolved.Domains,
		},
	}

	if endpoint, _ := p["a2a_endpoint"].(string); endpoint != "" {
		result := capability.FetchA2A(r.Context(), s.httpClient, endpoint)
		detail.LiveA2A = &result
	}

	respondOK(w, detail)
}

// creatorDeclaredFromPayload rebuilds a creator-declared Classification
// from the payload's full-confidence slug entries. Confidence 1.0 is
// BuildCreatorDeclared's own signature, so any slug at that confidence
// in the indexed payload originated there.
func creatorDeclaredFromPayload(id agent.Identifier, p map[string]any) agent.Classification {
	c := agent.Classification{AgentID: id, Source: agent.ClassificationSourceNone}
	c.Skills = confidentSlugsAt(p["skills_with_confidence"], 1.0)
	c.Domains = confidentSlugsAt(p["domains_with_confidence"], 1.0)
	if len(c.Skills) > 0 || len(c.Domains) > 0 {
		c.Source = agent.ClassificationSourceCreatorDefined
		c.OverallConfidence = 1.0
	}
	return c
}

// confidentSlugsAt extracts every {slug, confidence} entry matching
// confidence from raw. The vector store round-trips nested arrays as
// []any of map[string]any (qdrant's generic struct/list decoding), not
// the []map[string]any shape the Payload Builder originally wrote, so
// both are accepted.
func confidentSlugsAt(raw any, confidence float64) []agent.ConfidentSlug {
	var out []agent.ConfidentSlug
	each := func(e map[string]any) {
		conf, _ := e["confidence"].(float64)
		if conf != confidence {
			return
		}
		slug, _ := e["slug"].(string)
		if slug == "" {
			return
		}
		out = append(out, agent.ConfidentSlug{Slug: slug, Confidence: conf})
	}

	switch entries := raw.(type) {
	case []map[string]any:
		for _, e := range entries {
			each(e)
		}
	case []any:
		for _, v := range entries {
			if e, ok := v.(map[string]any); ok {
				each(e)
			}
		}
	}
	return out
}
