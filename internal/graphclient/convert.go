package graphclient

import (
	"strings"
	"time"

	"github.com/agentauri/gateway/internal/agent"
)

// ToRecord converts an AgentDTO into the canonical agent.Record,
// normalizing address-like fields and deriving HasRegistrationFile
// from the presence of the inlined registrationFile object.
func (d AgentDTO) ToRecord() agent.Record {
	r := agent.Record{
		ID:          agent.Identifier{ChainID: d.ChainID, TokenID: d.TokenID},
		Name:        d.Name,
		Description: d.Description,
		ImageURL:    d.ImageURL,
		Active:      d.Active,

		HasMCP:              d.HasMCP,
		HasA2A:               d.HasA2A,
		HasX402:              d.HasX402,
		HasRegistrationFile:  d.RegistrationFile != nil,
		MCPEndpoint:          d.MCPEndpoint,
		A2AEndpoint:          d.A2AEndpoint,
		OASFEndpoint:         d.OASFEndpoint,
		Email:                d.Email,
		MCPVersion:           d.MCPVersion,
		A2AVersion:           d.A2AVersion,
		OASFSkillSlugs:       d.OASFSkillSlugs,
		OASFDomainSlugs:      d.OASFDomainSlugs,

		ENS:               d.ENS,
		DID:               d.DID,
		Owner:             d.Owner,
		Wallet:            d.Wallet,
		OperatorAddresses: d.OperatorAddresses,
		TrustSystems:      d.TrustSystems,
		AgentURI:          d.AgentURI,

		CreatedAt: parseUpstreamTime(d.CreatedAt),
		UpdatedAt: parseUpstreamTime(d.UpdatedAt),
	}
	r.Normalize()
	return r
}

// parseUpstreamTime tolerates both RFC3339 timestamps and bare unix
// seconds, since subgraph indexers commonly emit BigInt-typed
// timestamps as decimal strings.
func parseUpstreamTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	if secs, ok := parseUnixSeconds(raw); ok {
		return time.Unix(secs, 0).UTC()
	}
	return time.Time{}
}

func parseUnixSeconds(raw string) (int64, bool) {
	var secs int64
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, false
		}
		secs = secs*10 + int64(r-'0')
	}
	if raw == "" {
		return 0, false
	}
	return secs, true
}

// ToFeedback converts a FeedbackDTO into the canonical agent.Feedback,
// building the tag list from tag1/tag2 where non-empty and prefixing
// the external ID with the source name for dedupe.
func (d FeedbackDTO) ToFeedback() agent.Feedback {
	var tags []string
	if d.Tag1 != "" {
		tags = append(tags, d.Tag1)
	}
	if d.Tag2 != "" {
		tags = append(tags, d.Tag2)
	}

	return agent.Feedback{
		ExternalID: "graph:" + d.ID,
		AgentID:    agent.Identifier{ChainID: d.ChainID, TokenID: d.TokenID},
		ChainID:    d.ChainID,
		Score:      d.Score,
		Tags:       tags,
		Context:    d.Context,
		URI:        d.URI,
		Submitter:  strings.ToLower(d.Submitter),
		CreatedAt:  parseUpstreamTime(d.CreatedAt),
		TxHash:     d.TxHash,
		Revoked:    d.IsRevoked,
	}
}
