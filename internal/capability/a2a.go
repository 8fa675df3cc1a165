package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultFetchTimeout = 5 * time.Second

var wellKnownAgentPaths = []string{
	"/.well-known/agent.json",
	"/.well-known/agent-card.json",
}

// A2AResult is the structured return of an agent-card fetch. Failures
// degrade to "empty with error set", never an error return to
// callers.
type A2AResult struct {
	InputModes  []string
	OutputModes []string
	SkillNames  []string
	Success     bool
	Error       string
}

type a2aAgentCard struct {
	DefaultInputModes  []string        `json:"defaultInputModes"`
	DefaultOutputModes []string        `json:"defaultOutputModes"`
	Skills             []a2aSkillEntry `json:"skills"`
}

type a2aSkillEntry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	InputModes  []string `json:"inputModes"`
	OutputModes []string `json:"outputModes"`
}

// FetchA2A fetches an agent card starting from hintURL. If hintURL
// already points at a well-known agent
// path it is used as-is; otherwise the two canonical paths are tried in
// order against hintURL's origin, and the first one that returns a
// non-empty result wins.
func FetchA2A(ctx context.Context, client *http.Client, hintURL string) A2AResult {
	candidates, err := a2aCandidates(hintURL)
	if err != nil {
		return A2AResult{Success: false, Error: err.Error()}
	}

	var lastErr string
	for _, candidate := range candidates {
		card, err := fetchAgentCard(ctx, client, candidate)
		if err != nil {
			lastErr = err.Error()
			continue
		}
		result := extractA2AResult(card)
		if len(result.InputModes) > 0 || len(result.OutputModes) > 0 || len(result.SkillNames) > 0 {
			result.Success = true
			return result
		}
	}
	return A2AResult{Success: false, Error: lastErr}
}

func a2aCandidates(hintURL string) ([]string, error) {
	u, err := admitURL(hintURL)
	if err != nil {
		return nil, err
	}
	if strings.Contains(u.Path, ".well-known/agent") {
		return []string{u.String()}, nil
	}
	origin := fmt.Sprintf("%s://%s", u.Scheme, u.Host)
	candidates := make([]string, 0, len(wellKnownAgentPaths))
	for _, p := range wellKnownAgentPaths {
		candidates = append(candidates, origin+p)
	}
	return candidates, nil
}

func fetchAgentCard(ctx context.Context, client *http.Client, rawURL string) (*a2aAgentCard, error) {
	if _, err := admitURL(rawURL); err != nil {
		return nil, err
	}
	nctx, cancel := context.WithTimeout(ctx, defaultFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(nctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("capability: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("capability: fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("capability: %s returned status %d", rawURL, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "json") {
		return nil, fmt.Errorf("capability: %s did not return a json body (content-type %q)", rawURL, ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("capability: read body of %s: %w", rawURL, err)
	}

	var card a2aAgentCard
	if err := json.Unmarshal(body, &card); err != nil {
		return nil, fmt.Errorf("capability: parse json of %s: %w", rawURL, err)
	}
	return &card, nil
}

func extractA2AResult(card *a2aAgentCard) A2AResult {
	inputModes := dedupeStrings(card.DefaultInputModes)
	outputModes := dedupeStrings(card.DefaultOutputModes)
	var skillNames []string
	for _, s := range card.Skills {
		inputModes = append(inputModes, s.InputModes...)
		outputModes = append(outputModes, s.OutputModes...)
		if s.Name != "" {
			skillNames = append(skillNames, s.Name)
		} else if s.ID != "" {
			skillNames = append(skillNames, s.ID)
		}
	}
	return A2AResult{
		InputModes:  dedupeStrings(inputModes),
		OutputModes: dedupeStrings(outputModes),
		SkillNames:  dedupeStrings(skillNames),
	}
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
