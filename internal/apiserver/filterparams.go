package apiserver

import (
	"net/url"
	"strings"

	"github.com/spf13/cast"

	"github.com/agentauri/gateway/internal/vectorstore/filter"
)

// filterParams is the wire shape of the recognized filter keys,
// independent of whether they arrived as GET query params or a
// POST /search JSON body -- both paths build one of these and hand it
// to toFilterRequest.
type filterParams struct {
	FilterMode string `json:"filterMode"`

	MCP                 *bool `json:"mcp"`
	A2A                 *bool `json:"a2a"`
	X402                *bool `json:"x402"`
	HasRegistrationFile *bool `json:"hasRegistrationFile"`
	HasENS              *bool `json:"hasENS"`
	HasDID              *bool `json:"hasDID"`
	HasAgentURI         *bool `json:"hasAgentURI"`

	ChainID   *int64   `json:"chainId"`
	Chains    []int64  `json:"chains"`
	Active    *bool    `json:"active"`
	AgentID   string   `json:"agentId"`
	Owner     string   `json:"owner"`
	ENS       string   `json:"ens"`
	CuratedBy string   `json:"curatedBy"`

	Skills            []string `json:"skills"`
	Domains           []string `json:"domains"`
	MCPTools          []string `json:"mcpTools"`
	A2ASkills         []string `json:"a2aSkills"`
	OperatorAddresses []string `json:"operatorAddresses"`

	MinRep   *float64 `json:"minRep"`
	MaxRep   *float64 `json:"maxRep"`
	MinTrust *float64 `json:"minTrust"`
	MaxTrust *float64 `json:"maxTrust"`

	HasSkills  *bool `json:"hasSkills"`
	HasDomains *bool `json:"hasDomains"`

	ReachableMCP          *bool `json:"reachableMcp"`
	ReachableA2A          *bool `json:"reachableA2a"`
	HasRecentReachability *bool `json:"hasRecentReachability"`
}

// toFilterRequest converts the wire-shaped params into the filter
// compiler's Request, translating the JSON/query-friendly *bool fields
// into filter.TriState.
func toFilterRequest(p filterParams) filter.Request {
	mode := filter.ModeAnd
	if strings.EqualFold(p.FilterMode, string(filter.ModeOr)) {
		mode = filter.ModeOr
	}

	return filter.Request{
		FilterMode: mode,

		HasMCP:  triFromPtr(p.MCP),
		HasA2A:  triFromPtr(p.A2A),
		HasX402: triFromPtr(p.X402),

		HasRegistrationFile: triFromPtr(p.HasRegistrationFile),
		HasENS:              triFromPtr(p.HasENS),
		HasDID:              triFromPtr(p.HasDID),
		HasAgentURI:         triFromPtr(p.HasAgentURI),

		ChainID:   p.ChainID,
		Active:    triFromPtr(p.Active),
		AgentID:   p.AgentID,
		Owner:     p.Owner,
		ENS:       p.ENS,
		CuratedBy: p.CuratedBy,

		Skills:            p.Skills,
		Domains:           p.Domains,
		MCPTools:          p.MCPTools,
		A2ASkills:         p.A2ASkills,
		OperatorAddresses: p.OperatorAddresses,
		Chains:            p.Chains,

		MinRep:   p.MinRep,
		MaxRep:   p.MaxRep,
		MinTrust: p.MinTrust,
		MaxTrust: p.MaxTrust,

		HasSkills:  triFromPtr(p.HasSkills),
		HasDomains: triFromPtr(p.HasDomains),

		ReachableMCP:          triFromPtr(p.ReachableMCP),
		ReachableA2A:          triFromPtr(p.ReachableA2A),
		HasRecentReachability: triFromPtr(p.HasRecentReachability),
	}
}

func triFromPtr(b *bool) filter.TriState {
	if b == nil {
		return filter.Unset
	}
	return filter.Bool(*b)
}

// filterParamsFromQuery parses filterParams out of a GET request's query
// string, accepting both comma-separated arrays and repeated "k[]="
// array syntax. Every scalar
// coercion goes through github.com/spf13/cast so a present-but-empty or
// malformed value degrades to "absent" rather than a parse error --
// GET /agents is a read path, and an unrecognized filter value should
// narrow to "no constraint", not 400.
func filterParamsFromQuery(q url.Values) filterParams {
	return filterParams{
		FilterMode: q.Get("filterMode"),

		MCP:                 queryBool(q, "mcp"),
		A2A:                 queryBool(q, "a2a"),
		X402:                queryBool(q, "x402"),
		HasRegistrationFile: queryBool(q, "hasRegistrationFile"),
		HasENS:              queryBool(q, "hasENS"),
		HasDID:              queryBool(q, "hasDID"),
		HasAgentURI:         queryBool(q, "hasAgentURI"),

		ChainID:   queryInt64(q, "chainId"),
		Chains:    queryInt64Array(q, "chains"),
		Active:    queryBool(q, "active"),
		AgentID:   q.Get("agentId"),
		Owner:     q.Get("owner"),
		ENS:       q.Get("ens"),
		CuratedBy: q.Get("curatedBy"),

		Skills:            queryArray(q, "skills"),
		Domains:           queryArray(q, "domains"),
		MCPTools:          queryArray(q, "mcpTools"),
		A2ASkills:         queryArray(q, "a2aSkills"),
		OperatorAddresses: queryArray(q, "operatorAddresses"),

		MinRep:   queryFloat64(q, "minRep"),
		MaxRep:   queryFloat64(q, "maxRep"),
		MinTrust: queryFloat64(q, "minTrust"),
		MaxTrust: queryFloat64(q, "maxTrust"),

		HasSkills:  queryBool(q, "hasSkills"),
		HasDomains: queryBool(q, "hasDomains"),

		ReachableMCP:          queryBool(q, "reachableMcp"),
		ReachableA2A:          queryBool(q, "reachableA2a"),
		HasRecentReachability: queryBool(q, "hasRecentReachability"),
	}
}

// queryArray implements "comma-separated arrays and k[]= array syntax
// both": repeated k[]= values take priority when present, else a single
// k=a,b,c value is split on commas.
func queryArray(q url.Values, key string) []string {
	if vs, ok := q[key+"[]"]; ok && len(vs) > 0 {
		return trimAll(vs)
	}
	if v := q.Get(key); v != "" {
		return trimAll(strings.Split(v, ","))
	}
	return nil
}

func queryInt64Array(q url.Values, key string) []int64 {
	raw := queryArray(q, key)
	if len(raw) == 0 {
		return nil
	}
	out := make([]int64, 0, len(raw))
	for _, s := range raw {
		if v, err := cast.ToInt64E(s); err == nil {
			out = append(out, v)
		}
	}
	return out
}

func trimAll(vs []string) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func queryBool(q url.Values, key string) *bool {
	v := q.Get(key)
	if v == "" {
		return nil
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return nil
	}
	return &b
}

func queryInt64(q url.Values, key string) *int64 {
	v := q.Get(key)
	if v == "" {
		return nil
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return nil
	}
	return &n
}

func castToInt(v string) (int, error) {
	return cast.ToIntE(v)
}

func queryFloat64(q url.Values, key string) *float64 {
	v := q.Get(key)
	if v == "" {
		return nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil
	}
	return &f
}
