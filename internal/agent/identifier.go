package agent

import (
	"fmt"
	"strconv"
	"strings"
)

// Identifier is the composite "chain_id:token_id" identity used
// throughout the gateway. It is the single source of truth for parsing,
// formatting, and validating agent identity so every component
// (hasher, payload builder, vector store adapter, HTTP API) agrees on
// the same representation.
type Identifier struct {
	ChainID int64
	TokenID string
}

// String renders the canonical "chain:token" form.
func (id Identifier) String() string {
	return fmt.Sprintf("%d:%s", id.ChainID, id.TokenID)
}

// PointID renders the identifier with ':' replaced by '_', the form
// carried in the vector store's payload.
func (id Identifier) PointID() string {
	return fmt.Sprintf("%d_%s", id.ChainID, id.TokenID)
}

// ParseIdentifier parses a "chain:token" string, validating that the
// chain segment is a known integer chain ID and the token segment is a
// non-empty alphanumeric string.
func ParseIdentifier(raw string, knownChains map[int64]struct{}) (Identifier, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return Identifier{}, fmt.Errorf("agent: invalid identifier %q: expected chain:token", raw)
	}
	chainID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Identifier{}, fmt.Errorf("agent: invalid chain id in %q: %w", raw, err)
	}
	if knownChains != nil {
		if _, ok := knownChains[chainID]; !ok {
			return Identifier{}, fmt.Errorf("agent: unknown chain id %d in %q", chainID, raw)
		}
	}
	token := parts[1]
	if token == "" || !isAlphanumeric(token) {
		return Identifier{}, fmt.Errorf("agent: invalid token id in %q: must be non-empty alphanumeric", raw)
	}
	return Identifier{ChainID: chainID, TokenID: token}, nil
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return false
		}
	}
	return true
}
