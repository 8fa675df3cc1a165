package filter

import (
	"strings"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/agentauri/gateway/pkg/ptr"
)

// NoFilter is the sentinel returned for an empty Request. A nil
// *qdrant.Filter means "match everything" to the go-client, which is
// the desired behavior here.
var NoFilter *qdrant.Filter

// Compile translates a Request into a *qdrant.Filter, building one
// leaf condition per recognized key.
func Compile(req Request, now time.Time) (*qdrant.Filter, error) {
	var must, should, mustNot []*qdrant.Condition

	must = appendProtocolBooleans(must, &should, req)

	if req.HasRegistrationFile != Unset {
		must = append(must, qdrant.NewMatchBool("has_registration_file", req.HasRegistrationFile == True))
	}
	if req.HasENS != Unset {
		must, mustNot = appendHasField(must, mustNot, "ens", req.HasENS == True)
	}
	if req.HasDID != Unset {
		must, mustNot = appendHasField(must, mustNot, "did", req.HasDID == True)
	}
	if req.HasAgentURI != Unset {
		must, mustNot = appendHasField(must, mustNot, "agent_uri", req.HasAgentURI == True)
	}

	if req.ChainID != nil {
		must = append(must, qdrant.NewMatchInt("chain_id", *req.ChainID))
	}
	if len(req.Chains) > 0 {
		must = append(must, qdrant.NewMatchInts("chain_id", req.Chains...))
	}
	if req.Active != Unset {
		must = append(must, qdrant.NewMatchBool("active", req.Active == True))
	}
	if req.AgentID != "" {
		must = append(must, qdrant.NewMatchKeyword("agent_id", req.AgentID))
	}
	if req.Owner != "" {
		must = append(must, qdrant.NewMatchKeyword("owner", strings.ToLower(req.Owner)))
	}
	if req.ENS != "" {
		must = append(must, qdrant.NewMatchKeyword("ens", strings.ToLower(req.ENS)))
	}
	if req.CuratedBy != "" {
		must = append(must, qdrant.NewMatchKeyword("curated_by", strings.ToLower(req.CuratedBy)))
	}

	if len(req.Skills) > 0 {
		must = append(must, qdrant.NewMatchKeywords("skills", req.Skills...))
	}
	if len(req.Domains) > 0 {
		must = append(must, qdrant.NewMatchKeywords("domains", req.Domains...))
	}
	if len(req.MCPTools) > 0 {
		must = append(must, qdrant.NewMatchKeywords("mcp_tools", req.MCPTools...))
	}
	if len(req.A2ASkills) > 0 {
		must = append(must, qdrant.NewMatchKeywords("a2a_skills", req.A2ASkills...))
	}
	if len(req.OperatorAddresses) > 0 {
		lowered := make([]string, len(req.OperatorAddresses))
		for i, a := range req.OperatorAddresses {
			lowered[i] = strings.ToLower(a)
		}
		must = append(must, qdrant.NewMatchKeywords("operator_addresses", lowered...))
	}

	if rep := rangeFromMinMax(req.MinRep, req.MaxRep); !rep.isZero() {
		must = append(must, qdrant.NewRange("reputation", rep.toQdrant()))
	}
	if tr := rangeFromMinMax(req.MinTrust, req.MaxTrust); !tr.isZero() {
		must = append(must, qdrant.NewRange("trust", tr.toQdrant()))
	}

	if req.HasSkills != Unset {
		must = appendHasItems(must, "skills", req.HasSkills == True)
	}
	if req.HasDomains != Unset {
		must = appendHasItems(must, "domains", req.HasDomains == True)
	}

	if req.ReachableMCP != Unset {
		must = append(must, qdrant.NewMatchBool("reachable_mcp", req.ReachableMCP == True))
	}
	if req.ReachableA2A != Unset {
		must = append(must, qdrant.NewMatchBool("reachable_a2a", req.ReachableA2A == True))
	}

	if req.HasRecentReachability == True {
		// The cutoff timestamp is computed at compile time. The payload
		// stores last_reachability_check as RFC3339, which the store's
		// datetime index compares against a DatetimeRange, not a
		// numeric Range.
		since := now.Add(-recentReachabilityWindowDays * 24 * time.Hour).UTC()
		must = append(must, qdrant.NewDatetimeRange("last_reachability_check", &qdrant.DatetimeRange{
			Gte: timestamppb.New(since),
		}))
	}

	return assembleFilter(must, should, mustNot), nil
}

// appendProtocolBooleans implements the filterMode composition rule:
// AND places each present boolean in must; OR places them in should
// only when at least two are present, otherwise demotes the lone
// boolean to must.
func appendProtocolBooleans(must []*qdrant.Condition, should *[]*qdrant.Condition, req Request) []*qdrant.Condition {
	type proto struct {
		key   string
		state TriState
	}
	protocols := []proto{
		{"has_mcp", req.HasMCP},
		{"has_a2a", req.HasA2A},
		{"has_x402", req.HasX402},
	}

	var present []*qdrant.Condition
	for _, p := range protocols {
		if p.state == Unset {
			continue
		}
		present = append(present, qdrant.NewMatchBool(p.key, p.state == True))
	}
	if len(present) == 0 {
		return must
	}

	if req.FilterMode == ModeOr && len(present) >= 2 {
		*should = append(*should, present...)
		return must
	}
	return append(must, present...)
}

// appendHasField implements the "has field" (non-empty string) toggle:
// true emits a must_not match-empty-string; false emits a must
// match-empty-string.
func appendHasField(must, mustNot []*qdrant.Condition, key string, want bool) ([]*qdrant.Condition, []*qdrant.Condition) {
	cond := qdrant.NewMatchKeyword(key, "")
	if want {
		mustNot = append(mustNot, cond)
	} else {
		must = append(must, cond)
	}
	return must, mustNot
}

// appendHasItems implements the "has items" toggle for genuine array
// fields via values_count: true requires count >= 1, false requires
// count == 0.
func appendHasItems(must []*qdrant.Condition, key string, want bool) []*qdrant.Condition {
	if want {
		return append(must, qdrant.NewValuesCount(key, &qdrant.ValuesCount{
			Gte: ptr.Pointer(uint64(1)),
		}))
	}
	return append(must, qdrant.NewValuesCount(key, &qdrant.ValuesCount{
		Lte: ptr.Pointer(uint64(0)),
	}))
}

type numericRange struct {
	gte, lte *float64
}

func (r numericRange) isZero() bool { return r.gte == nil && r.lte == nil }

func (r numericRange) toQdrant() *qdrant.Range {
	return &qdrant.Range{Gte: r.gte, Lte: r.lte}
}

func rangeFromMinMax(min, max *float64) numericRange {
	return numericRange{gte: min, lte: max}
}

// assembleFilter implements the must/should interaction and
// empty-filter rules: when should is present with an empty must, wrap
// it so at least one should-clause is required; an entirely empty tree
// returns the NoFilter sentinel.
func assembleFilter(must, should, mustNot []*qdrant.Condition) *qdrant.Filter {
	if len(must) == 0 && len(should) == 0 && len(mustNot) == 0 {
		return NoFilter
	}

	f := &qdrant.Filter{
		MustNot: mustNot,
		Should:  should,
		Must:    must,
	}

	if len(should) > 0 && len(must) == 0 {
		// With should present and must empty, a bare Should would be
		// purely advisory; require at least one should-clause to
		// match.
		f.MinShould = &qdrant.MinShould{
			Conditions: should,
			MinCount:   1,
		}
		f.Should = nil
	}

	return f
}
