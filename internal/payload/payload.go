// Package payload builds the flat, typed-default record the vector
// store keeps alongside each agent's vector, merging upstream data
// with out-of-band enrichment.
package payload

import (
	"time"

	"github.com/samber/lo"

	"github.com/agentauri/gateway/internal/agent"
)

// Payload is the flat, snake_case, string-keyed record stored in the
// vector store. The field names are part of the external contract (the
// filter compiler emits them verbatim). Every field has a typed
// zero-value default; no field is ever left nil, since filter
// semantics depend on default-as-empty.
type Payload map[string]any

// Input carries the upstream-authoritative fields.
type Input struct {
	Record *agent.Record
}

// CapabilityEnrichment carries fields sourced from capability fetches:
// the union of input/output modes and skill names discovered live from
// the agent's own endpoints.
type CapabilityEnrichment struct {
	InputModes  []string
	OutputModes []string
	SkillNames  []string
}

// ReachabilityEnrichment carries the derived reachability booleans.
type ReachabilityEnrichment struct {
	ReachableMCP   bool
	ReachableA2A   bool
	LastCheckedAt  time.Time
}

// ClassificationEnrichment carries the resolved classification.
type ClassificationEnrichment struct {
	IndexedSkills        []string
	IndexedDomains       []string
	SkillsWithConfidence []agent.ConfidentSlug
	DomainsWithConfidence []agent.ConfidentSlug
}

// ReputationEnrichment carries reputation/trust fields.
type ReputationEnrichment struct {
	Reputation float64
	Trust      float64
}

// Enrichment is the optional out-of-band merge input. A nil sub-struct
// is treated as "no update for this concern" and the existing/default
// value is kept.
type Enrichment struct {
	Capability     *CapabilityEnrichment
	Reachability   *ReachabilityEnrichment
	Classification *ClassificationEnrichment
	Reputation     *ReputationEnrichment
}

// Build merges Input and an optional Enrichment into a flat Payload
// with every field present and typed-defaulted.
func Build(in Input, enr *Enrichment) Payload {
	r := in.Record

	inputModes := r.InputModes
	outputModes := r.OutputModes
	skillNames := append([]string{}, r.A2ASkillNames...)

	var reachableMCP, reachableA2A bool
	var lastReachCheck time.Time
	indexedSkills := r.IndexedSkills()
	indexedDomains := r.IndexedDomains()
	skillsWithConfidence := r.Enrichment.ResolvedSkills
	domainsWithConfidence := r.Enrichment.ResolvedDomains
	reputation := r.Enrichment.Reputation
	trust := r.Enrichment.Trust

	if enr != nil {
		if enr.Capability != nil {
			inputModes = lo.Union(inputModes, enr.Capability.InputModes)
			outputModes = lo.Union(outputModes, enr.Capability.OutputModes)
			skillNames = lo.Union(skillNames, enr.Capability.SkillNames)
		}
		if enr.Reachability != nil {
			reachableMCP = enr.Reachability.ReachableMCP
			reachableA2A = enr.Reachability.ReachableA2A
			lastReachCheck = enr.Reachability.LastCheckedAt
		}
		if enr.Classification != nil {
			indexedSkills = enr.Classification.IndexedSkills
			indexedDomains = enr.Classification.IndexedDomains
			skillsWithConfidence = enr.Classification.SkillsWithConfidence
			domainsWithConfidence = enr.Classification.DomainsWithConfidence
		}
		if enr.Reputation != nil {
			reputation = enr.Reputation.Reputation
			trust = enr.Reputation.Trust
		}
	}

	p := Payload{
		"agent_id":               r.ID.String(),
		"chain_id":               r.ID.ChainID,
		"token_id":                r.ID.TokenID,
		"name":                   defaultString(r.Name),
		"description":            defaultString(r.Description),
		"image_url":              defaultString(r.ImageURL),
		"active":                 r.Active,
		"has_mcp":                r.HasMCP,
		"has_a2a":                r.HasA2A,
		"has_x402":               r.HasX402,
		"has_registration_file":  r.HasRegistrationFile,
		"mcp_endpoint":           defaultString(r.MCPEndpoint),
		"a2a_endpoint":           defaultString(r.A2AEndpoint),
		"oasf_endpoint":          defaultString(r.OASFEndpoint),
		"email":                  defaultString(r.Email),
		"mcp_version":            defaultString(r.MCPVersion),
		"a2a_version":            defaultString(r.A2AVersion),
		"mcp_tools":              defaultSlice(r.MCPTools),
		"mcp_prompts":            defaultSlice(r.MCPPrompts),
		"mcp_resources":          defaultSlice(r.MCPResources),
		"a2a_skills":             defaultSlice(skillNames),
		"input_modes":            defaultSlice(inputModes),
		"output_modes":           defaultSlice(outputModes),
		"skills":                 defaultSlice(indexedSkills),
		"domains":                defaultSlice(indexedDomains),
		"skills_with_confidence": confidentSlugsToAny(skillsWithConfidence),
		"domains_with_confidence": confidentSlugsToAny(domainsWithConfidence),
		"ens":                    defaultString(r.ENS),
		"did":                    defaultString(r.DID),
		"owner":                  defaultString(r.Owner),
		"wallet":                 defaultString(r.Wallet),
		"operator_addresses":     defaultSlice(r.OperatorAddresses),
		"trust_systems":          defaultSlice(r.TrustSystems),
		"agent_uri":              defaultString(r.AgentURI),
		"created_at":             formatTime(r.CreatedAt),
		"updated_at":             formatTime(r.UpdatedAt),
		"reputation":             reputation,
		"trust":                  trust,
		"reachable_mcp":          reachableMCP,
		"reachable_a2a":          reachableA2A,
		"last_reachability_check": formatTime(lastReachCheck),
		"curated_by":             defaultString(r.Enrichment.CuratedBy),
	}
	return p
}

func defaultString(s string) string {
	return s
}

func defaultSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func confidentSlugsToAny(slugs []agent.ConfidentSlug) []map[string]any {
	out := make([]map[string]any, 0, len(slugs))
	for _, s := range slugs {
		out = append(out, map[string]any{
			"slug":       s.Slug,
			"confidence": s.Confidence,
			"reasoning":  s.Reasoning,
		})
	}
	return out
}
