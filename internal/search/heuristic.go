package search

import (
	"regexp"
	"strings"

	"github.com/agentauri/gateway/internal/agent"
)

// chainNames maps the chain names users actually type into a query onto
// their chain IDs, for the heuristic fallback's chainId hint.
var chainNames = map[string]int64{
	"ethereum": 1,
	"mainnet":  1,
	"sepolia":  11155111,
	"base":     8453,
	"optimism": 10,
	"arbitrum": 42161,
	"polygon":  137,
}

// minRepPattern catches "reputation > 80", "reputation over 80",
// "reputation at least 80" and the >=/above variants.
var minRepPattern = regexp.MustCompile(`reputation\s*(?:>=?|over|above|at least)\s*(\d{1,3})`)

// heuristicExtract is the regex-based fallback used when HyDE synthesis
// fails: it scans the raw query for taxonomy slugs,
// protocol and chain mentions, and a reputation floor, and turns them
// into filter hints without any model call.
func heuristicExtract(query string) HyDEFilters {
	lower := strings.ToLower(query)
	var hints HyDEFilters

	for _, entry := range agent.Taxonomy("") {
		if !strings.Contains(lower, entry.Slug) && !strings.Contains(lower, strings.ReplaceAll(entry.Slug, "-", " ")) {
			continue
		}
		switch entry.Kind {
		case agent.TaxonomySkill:
			hints.Skills = append(hints.Skills, entry.Slug)
		case agent.TaxonomyDomain:
			hints.Domains = append(hints.Domains, entry.Slug)
		}
	}

	if mentionsWord(lower, "mcp") {
		t := true
		hints.HasMCP = &t
	}
	if mentionsWord(lower, "a2a") {
		t := true
		hints.HasA2A = &t
	}
	if mentionsWord(lower, "x402") || mentionsWord(lower, "payment") {
		t := true
		hints.HasX402 = &t
	}

	for name, id := range chainNames {
		if mentionsWord(lower, name) {
			id := id
			hints.ChainID = &id
			break
		}
	}

	if m := minRepPattern.FindStringSubmatch(lower); m != nil {
		if rep := parseScore(m[1]); rep != nil {
			hints.MinRep = rep
		}
	}

	return hints
}

func parseScore(digits string) *float64 {
	var v float64
	for _, r := range digits {
		v = v*10 + float64(r-'0')
	}
	if v > 100 {
		return nil
	}
	return &v
}

func mentionsWord(lower, word string) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
	return re.MatchString(lower)
}

// expandQuery is the static expansion applied alongside the heuristic
// filter extraction: the original query restated through the canonical
// "AI agent that ..." template, plus the taxonomy labels behind any
// mentioned slug, so the embedded text carries the same vocabulary a
// HyDE description would have synthesized.
func expandQuery(query string) string {
	lower := strings.ToLower(query)
	parts := []string{query, "AI agent that " + strings.TrimSpace(lower)}
	for _, entry := range agent.Taxonomy("") {
		if strings.Contains(lower, entry.Slug) {
			parts = append(parts, entry.Label)
		}
	}
	return strings.Join(parts, " ")
}
