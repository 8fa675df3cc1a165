package apiserver

import (
	"net/http"

	"github.com/agentauri/gateway/internal/agent"
)

// handleTaxonomy implements GET /taxonomy?type=skill|domain|all,
// serving the static OASF taxonomy table that creator-declared
// classifications are validated against.
func (s *Server) handleTaxonomy(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("type") {
	case string(agent.TaxonomySkill):
		respondOK(w, agent.Taxonomy(agent.TaxonomySkill))
	case string(agent.TaxonomyDomain):
		respondOK(w, agent.Taxonomy(agent.TaxonomyDomain))
	default:
		respondOK(w, agent.Taxonomy(""))
	}
}
