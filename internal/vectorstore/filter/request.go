// Package filter translates a flat structured filter request into the
// vector store's native boolean filter tree. The compiler targets
// github.com/qdrant/go-client's qdrant.Filter shape directly, driven by
// a fixed set of recognized keys rather than a parsed expression tree,
// since the filter request arrives already structured (query params or
// a JSON body), not as free text.
package filter

// Mode selects how the boolean protocol filters (MCP/A2A/x402)
// compose.
type Mode string

const (
	ModeAnd Mode = "AND"
	ModeOr  Mode = "OR"
)

// TriState distinguishes "filter absent" from "filter present with a
// false value" for the handful of optional boolean keys.
type TriState int

const (
	Unset TriState = iota
	True
	False
)

func Bool(b bool) TriState {
	if b {
		return True
	}
	return False
}

// Range is a numeric range leaf. A nil pointer means the bound is
// absent.
type Range struct {
	Gte *float64
	Lte *float64
	Gt  *float64
	Lt  *float64
}

func (r Range) isZero() bool {
	return r.Gte == nil && r.Lte == nil && r.Gt == nil && r.Lt == nil
}

func F(v float64) *float64 { return &v }

// Request is the flat structured filter, restricted to the keys the
// payload schema (internal/payload) actually materializes. Every field
// is optional; an unset field contributes no clause.
type Request struct {
	// FilterMode governs composition of the protocol booleans below:
	// AND (the default) places each in must; OR places them in should,
	// but only when at least two are present.
	FilterMode Mode

	HasMCP  TriState
	HasA2A  TriState
	HasX402 TriState

	// Presence toggles. HasRegistrationFile matches the boolean payload
	// field; the other three are "has field" (non-empty string) toggles.
	HasRegistrationFile TriState
	HasENS              TriState
	HasDID              TriState
	HasAgentURI         TriState

	// Exact matches, identifier-like keys lowercased before comparison.
	ChainID   *int64
	Active    TriState
	AgentID   string
	Owner     string
	ENS       string
	CuratedBy string

	// Match-any (field, scalar or list, intersects the set).
	Skills            []string
	Domains           []string
	MCPTools          []string
	A2ASkills         []string
	OperatorAddresses []string
	Chains            []int64

	// Numeric ranges.
	MinRep   *float64
	MaxRep   *float64
	MinTrust *float64
	MaxTrust *float64

	// "Has items" on genuine arrays -> values_count.
	HasSkills  TriState
	HasDomains TriState

	// Reachability booleans.
	ReachableMCP TriState
	ReachableA2A TriState

	// Within-N-days filter: the last reachability check must fall
	// inside the window below.
	HasRecentReachability TriState
}

// recentReachabilityWindowDays is the lookback window for
// HasRecentReachability.
const recentReachabilityWindowDays = 14
