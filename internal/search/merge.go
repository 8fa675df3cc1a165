package search

import "github.com/agentauri/gateway/internal/vectorstore/filter"

// mergeFilterHints folds HyDE-derived (or heuristic-derived) filter
// hints into the caller-supplied filter request, with the caller always
// winning on conflicts.
func mergeFilterHints(base filter.Request, hints HyDEFilters) filter.Request {
	out := base

	if len(out.Skills) == 0 {
		out.Skills = hints.Skills
	}
	if len(out.Domains) == 0 {
		out.Domains = hints.Domains
	}
	if out.HasMCP == filter.Unset && hints.HasMCP != nil {
		out.HasMCP = filter.Bool(*hints.HasMCP)
	}
	if out.HasA2A == filter.Unset && hints.HasA2A != nil {
		out.HasA2A = filter.Bool(*hints.HasA2A)
	}
	if out.HasX402 == filter.Unset && hints.HasX402 != nil {
		out.HasX402 = filter.Bool(*hints.HasX402)
	}
	if out.ChainID == nil && hints.ChainID != nil {
		out.ChainID = hints.ChainID
	}
	if out.MinRep == nil && hints.MinRep != nil {
		out.MinRep = hints.MinRep
	}

	return out
}
