package agent

import (
	"strings"
	"time"
)

// Record is the canonical agent record. Address-like string fields
// (owner, ENS, wallet, operators) are stored lowercased; Normalize()
// enforces that so callers constructing a Record from heterogeneous
// upstream JSON don't have to remember which fields need it.
type Record struct {
	ID Identifier

	Name        string
	Description string
	ImageURL    string
	Active      bool

	HasMCP               bool
	HasA2A               bool
	HasX402              bool
	HasRegistrationFile  bool
	MCPEndpoint          string
	A2AEndpoint          string
	OASFEndpoint         string
	Email                string
	MCPVersion           string
	A2AVersion           string
	MCPTools             []string
	MCPPrompts           []string
	MCPResources         []string
	A2ASkillNames        []string
	OASFSkillSlugs       []string
	OASFDomainSlugs      []string
	InputModes           []string
	OutputModes          []string

	ENS               string
	DID               string
	Owner             string
	Wallet            string
	OperatorAddresses []string
	TrustSystems      []string
	AgentURI          string

	CreatedAt time.Time
	UpdatedAt time.Time

	Enrichment Enrichment
}

// Enrichment holds the fields that are never authoritative from the
// upstream indexer: resolved classification, reputation/trust, and
// reachability.
type Enrichment struct {
	ResolvedSkills  []ConfidentSlug
	ResolvedDomains []ConfidentSlug
	Reputation      float64
	Trust           float64
	ReachableMCP    bool
	ReachableA2A    bool
	LastReachCheck  time.Time
	CuratedBy       string
}

// ConfidentSlug is a taxonomy slug (skill or domain) with an associated
// confidence, used both for the full-confidence display list and the
// >=0.7 indexed subset.
type ConfidentSlug struct {
	Slug       string  `json:"slug"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// Normalize lowercases every address-like field in place.
func (r *Record) Normalize() {
	r.ENS = strings.ToLower(r.ENS)
	r.Owner = strings.ToLower(r.Owner)
	r.Wallet = strings.ToLower(r.Wallet)
	r.AgentURI = strings.ToLower(r.AgentURI)
	for i, op := range r.OperatorAddresses {
		r.OperatorAddresses[i] = strings.ToLower(op)
	}
}

// IndexedSkills returns the skill slugs whose confidence meets the
// indexing threshold.
func (r *Record) IndexedSkills() []string {
	return indexedSlugs(r.Enrichment.ResolvedSkills)
}

// IndexedDomains returns the domain slugs whose confidence meets the
// indexing threshold.
func (r *Record) IndexedDomains() []string {
	return indexedSlugs(r.Enrichment.ResolvedDomains)
}

const indexConfidenceThreshold = 0.7

func indexedSlugs(slugs []ConfidentSlug) []string {
	out := make([]string, 0, len(slugs))
	for _, s := range slugs {
		if s.Confidence >= indexConfidenceThreshold {
			out = append(out, s.Slug)
		}
	}
	return out
}
