package search

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"sync"

	"github.com/agentauri/gateway/pkg/kv"
)

// hydeCacheLimit caps the expansion cache; the oldest entry is evicted
// beyond it.
const hydeCacheLimit = 1000

// minHydeQueryLength is the shortest query worth expanding.
const minHydeQueryLength = 5

// maxSanitizedQueryLength bounds what a user query may feed the model.
const maxSanitizedQueryLength = 500

// HyDEGenerator is the generative call that synthesizes a hypothetical
// agent description plus structured filter hints from a search query.
// It returns the model's raw response text; parsing and validation
// happen in this package.
type HyDEGenerator interface {
	Generate(ctx context.Context, sanitizedQuery string) (string, error)
}

// HyDEFilters is the validated shape of the structured filter hints a
// HyDE synthesis may extract from the query. Every field is optional;
// zero values contribute no override.
type HyDEFilters struct {
	Skills  []string `json:"skills"`
	Domains []string `json:"domains"`
	HasMCP  *bool    `json:"hasMCP"`
	HasA2A  *bool    `json:"hasA2A"`
	HasX402 *bool    `json:"hasX402"`
	ChainID *int64   `json:"chainId"`
	MinRep  *float64 `json:"minReputation"`
}

type hydeResponse struct {
	Description string       `json:"description"`
	Filters     HyDEFilters  `json:"filters"`
}

// hydeCacheEntry is what's cached per query.
type hydeCacheEntry struct {
	Description string
	Filters     HyDEFilters
}

// hydeCache is a process-wide, FIFO-evicting cache keyed by lowercased
// query text: a kv.KV for the entries and a plain slice to track
// insertion order.
type hydeCache struct {
	mu      sync.Mutex
	entries kv.KV[string, hydeCacheEntry]
	order   []string
}

func newHydeCache() *hydeCache {
	return &hydeCache{entries: kv.New[string, hydeCacheEntry](0)}
}

func (c *hydeCache) get(query string) (hydeCacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries.Value(strings.ToLower(query))
	return v, ok
}

func (c *hydeCache) put(query string, entry hydeCacheEntry) {
	key := strings.ToLower(query)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries.Value(key); !exists {
		c.order = append(c.order, key)
	}
	c.entries.Put(key, entry)
	for len(c.order) > hydeCacheLimit {
		oldest := c.order[0]
		c.order = c.order[1:]
		c.entries.Remove(oldest)
	}
}

// hydeGate reports whether query is worth synthesizing HyDE for: long
// enough to carry semantic content, and not itself a bare filter value
// a user would type into a structured field.
func hydeGate(query string) bool {
	trimmed := strings.TrimSpace(query)
	if len(trimmed) < minHydeQueryLength {
		return false
	}
	if !strings.ContainsAny(trimmed, " \t") && len(strings.Fields(trimmed)) <= 1 {
		// A single bare token (e.g. "defi", "mcp") reads as a filter
		// value, not a description to expand.
		return false
	}
	return true
}

var (
	controlChars  = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f]`)
	systemMarkers = regexp.MustCompile(`\{\{.*?\}\}`)
	codeFences    = regexp.MustCompile("(?s)```.*?```")
)

// sanitizeQuery strips control characters, curly system-prompt markers,
// and fenced code blocks from user input before it reaches the
// generative model, then truncates to the length cap.
func sanitizeQuery(query string) string {
	s := controlChars.ReplaceAllString(query, "")
	s = systemMarkers.ReplaceAllString(s, "")
	s = codeFences.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if len(s) > maxSanitizedQueryLength {
		s = s[:maxSanitizedQueryLength]
	}
	return s
}

var hydeFencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// parseHydeResponse extracts and validates the model's JSON block and
// cleans the synthesized description.
func parseHydeResponse(raw string) (hydeCacheEntry, error) {
	body := raw
	if m := hydeFencedBlock.FindStringSubmatch(raw); m != nil {
		body = m[1]
	}
	body = strings.TrimSpace(body)

	var resp hydeResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return hydeCacheEntry{}, err
	}

	return hydeCacheEntry{
		Description: strings.TrimSpace(resp.Description),
		Filters:     resp.Filters,
	}, nil
}
