// Package hash computes the two deterministic SHA-256 hashes the sync
// workers diff on: one over the fields that feed the embedding text,
// one over the payload-only fields.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agentauri/gateway/internal/agent"
	"github.com/agentauri/gateway/pkg/xset"
)

// embedFields and contentFields are the JSON shapes hashed for the embed
// and content fields. Keys are emitted in a fixed struct-field order (Go's encoding/json
// preserves struct field order, which doubles as our "keys sorted"
// canonicalization since the field set and order are fixed at compile
// time), addresses are lowercased by agent.Record.Normalize before this
// point, and set-like fields are sorted-unique via xset.
type embedFields struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	MCPTools    []string `json:"mcp_tools"`
	MCPPrompts  []string `json:"mcp_prompts"`
	MCPResources []string `json:"mcp_resources"`
	A2ASkills   []string `json:"a2a_skills"`
	InputModes  []string `json:"input_modes"`
	OutputModes []string `json:"output_modes"`
}

type contentFields struct {
	AgentID              string   `json:"agent_id"`
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	Active               bool     `json:"active"`
	HasMCP               bool     `json:"has_mcp"`
	HasA2A               bool     `json:"has_a2a"`
	Skills               []string `json:"skills"`
	Domains              []string `json:"domains"`
	Reputation           float64  `json:"reputation"`
	Owner                string   `json:"owner"`
	HasRegistrationFile  bool     `json:"has_registration_file"`
}

// EmbedHash computes the SHA-256 of the canonicalized embed-input field
// set, the fields that influence the vector. Two calls with equivalent
// input produce identical output even if in-memory slice order differs,
// because all set-like fields are sorted before hashing.
func EmbedHash(r *agent.Record) (string, error) {
	fields := embedFields{
		Name:         r.Name,
		Description:  r.Description,
		MCPTools:     xset.SortedStrings(r.MCPTools),
		MCPPrompts:   xset.SortedStrings(r.MCPPrompts),
		MCPResources: xset.SortedStrings(r.MCPResources),
		A2ASkills:    xset.SortedStrings(r.A2ASkillNames),
		InputModes:   xset.SortedStrings(r.InputModes),
		OutputModes:  xset.SortedStrings(r.OutputModes),
	}
	return hashJSON(fields)
}

// ContentHash computes the SHA-256 of the canonicalized payload-only
// field set, everything else the vector store exposes for filtering.
func ContentHash(r *agent.Record) (string, error) {
	fields := contentFields{
		AgentID:             r.ID.String(),
		Name:                r.Name,
		Description:         r.Description,
		Active:              r.Active,
		HasMCP:              r.HasMCP,
		HasA2A:              r.HasA2A,
		Skills:              xset.SortedStrings(r.IndexedSkills()),
		Domains:             xset.SortedStrings(r.IndexedDomains()),
		Reputation:          r.Enrichment.Reputation,
		Owner:               strings.ToLower(r.Owner),
		HasRegistrationFile: r.HasRegistrationFile,
	}
	return hashJSON(fields)
}

// Both computes EmbedHash and ContentHash together. The graph sync
// worker calls this for both new and existing records.
func Both(r *agent.Record) (embedHash, contentHash string, err error) {
	embedHash, err = EmbedHash(r)
	if err != nil {
		return "", "", fmt.Errorf("hash: embed hash: %w", err)
	}
	contentHash, err = ContentHash(r)
	if err != nil {
		return "", "", fmt.Errorf("hash: content hash: %w", err)
	}
	return embedHash, contentHash, nil
}

func hashJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hash: marshal: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
