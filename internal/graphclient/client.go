// Package graphclient is the upstream chain indexer GraphQL client,
// built on github.com/machinebox/graphql. It issues the two queries
// the sync workers depend on: the agents listing and the feedbacks
// cursor pull.
package graphclient

import (
	"context"
	"fmt"
	"time"

	"github.com/machinebox/graphql"

	"github.com/agentauri/gateway/internal/httpx"
)

// pageSize is the upstream page size for both queries.
const pageSize = 1000

// Client wraps *graphql.Client with the upstream-read deadline applied
// per request via context.
type Client struct {
	gql     *graphql.Client
	timeout time.Duration
}

// New builds a Client targeting endpoint.
func New(endpoint string) *Client {
	return &Client{
		gql:     graphql.NewClient(endpoint),
		timeout: httpx.UpstreamTimeout,
	}
}

func (c *Client) run(ctx context.Context, req *graphql.Request, out any) error {
	nctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.gql.Run(nctx, req, out); err != nil {
		return fmt.Errorf("graphclient: run: %w", err)
	}
	return nil
}

// AgentDTO is the wire shape of one row of the `agents` query,
// including the inlined registration-file fields.
type AgentDTO struct {
	ChainID     int64  `json:"chainId"`
	TokenID     string `json:"tokenId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	Active      bool   `json:"active"`

	HasMCP      bool   `json:"hasMcp"`
	HasA2A      bool   `json:"hasA2a"`
	HasX402     bool   `json:"hasX402"`
	MCPEndpoint string `json:"mcpEndpoint"`
	A2AEndpoint string `json:"a2aEndpoint"`
	OASFEndpoint string `json:"oasfEndpoint"`
	Email       string `json:"email"`
	MCPVersion  string `json:"mcpVersion"`
	A2AVersion  string `json:"a2aVersion"`

	OASFSkillSlugs  []string `json:"oasfSkillSlugs"`
	OASFDomainSlugs []string `json:"oasfDomainSlugs"`

	ENS               string   `json:"ens"`
	DID               string   `json:"did"`
	Owner             string   `json:"owner"`
	Wallet            string   `json:"wallet"`
	OperatorAddresses []string `json:"operatorAddresses"`
	TrustSystems      []string `json:"trustSystems"`
	AgentURI          string   `json:"agentUri"`

	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`

	// RegistrationFile is present (non-null) when the agent has
	// registered an off-chain metadata document. Its mere presence sets
	// HasRegistrationFile; its own contents are not otherwise modeled
	// here.
	RegistrationFile *struct {
		URI string `json:"uri"`
	} `json:"registrationFile"`
}

type agentsQueryResponse struct {
	Agents []AgentDTO `json:"agents"`
}

const agentsQuery = `
query Agents($first: Int!, $skip: Int!) {
  agents(first: $first, skip: $skip, orderBy: tokenId) {
    chainId
    tokenId
    name
    description
    imageUrl
    active
    hasMcp
    hasA2a
    hasX402
    mcpEndpoint
    a2aEndpoint
    oasfEndpoint
    email
    mcpVersion
    a2aVersion
    oasfSkillSlugs
    oasfDomainSlugs
    ens
    did
    owner
    wallet
    operatorAddresses
    trustSystems
    agentUri
    createdAt
    updatedAt
    registrationFile {
      uri
    }
  }
}`

// PullAgentsPage fetches one page of the `agents` query.
func (c *Client) PullAgentsPage(ctx context.Context, skip int) ([]AgentDTO, error) {
	req := graphql.NewRequest(agentsQuery)
	req.Var("first", pageSize)
	req.Var("skip", skip)

	var resp agentsQueryResponse
	if err := c.run(ctx, req, &resp); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

// FeedbackDTO is the wire shape of one row of the `feedbacks` query.
type FeedbackDTO struct {
	ID        string `json:"id"`
	ChainID   int64  `json:"chainId"`
	TokenID   string `json:"tokenId"`
	Score     int    `json:"score"`
	Tag1      string `json:"tag1"`
	Tag2      string `json:"tag2"`
	Context   string `json:"context"`
	URI       string `json:"uri"`
	Submitter string `json:"submitter"`
	CreatedAt string `json:"createdAt"`
	TxHash    string `json:"txHash"`
	IsRevoked bool   `json:"isRevoked"`
}

type feedbacksQueryResponse struct {
	Feedbacks []FeedbackDTO `json:"feedbacks"`
}

const feedbacksQuery = `
query Feedbacks($first: Int!, $skip: Int!, $createdAtGt: BigInt!) {
  feedbacks(
    first: $first
    skip: $skip
    orderBy: createdAt
    orderDirection: asc
    where: { createdAt_gt: $createdAtGt, isRevoked: false }
  ) {
    id
    chainId
    tokenId
    score
    tag1
    tag2
    context
    uri
    submitter
    createdAt
    txHash
    isRevoked
  }
}`

// PullFeedbacksPage fetches one page of the `feedbacks` query, filtered
// server-side to createdAt > createdAtGt and isRevoked = false.
func (c *Client) PullFeedbacksPage(ctx context.Context, skip int, createdAtGt int64) ([]FeedbackDTO, error) {
	req := graphql.NewRequest(feedbacksQuery)
	req.Var("first", pageSize)
	req.Var("skip", skip)
	req.Var("createdAtGt", createdAtGt)

	var resp feedbacksQueryResponse
	if err := c.run(ctx, req, &resp); err != nil {
		return nil, err
	}
	return resp.Feedbacks, nil
}

// PageSize exposes the fixed page size to callers that need to detect a
// short (final) page.
func PageSize() int { return pageSize }
