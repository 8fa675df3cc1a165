package agent

import "encoding/json"

// ParseConfidentSlugs tolerantly decodes a JSON value that may be
// either a list of plain strings or a list of {slug, confidence,
// reasoning?} objects into a canonical []ConfidentSlug; upstream
// sources emit both shapes. A bare string entry is treated as a slug at
// full confidence (1.0), since the upstream has no confidence signal
// for a creator-declared, non-scored slug. Malformed entries are
// skipped rather than failing the whole decode.
func ParseConfidentSlugs(raw json.RawMessage) []ConfidentSlug {
	if len(raw) == 0 {
		return nil
	}

	var asObjects []ConfidentSlug
	if err := json.Unmarshal(raw, &asObjects); err == nil {
		out := asObjects[:0]
		for _, obj := range asObjects {
			if obj.Slug != "" {
				out = append(out, obj)
			}
		}
		return out
	}

	var asStrings []string
	if err := json.Unmarshal(raw, &asStrings); err == nil {
		out := make([]ConfidentSlug, 0, len(asStrings))
		for _, s := range asStrings {
			if s == "" {
				continue
			}
			out = append(out, ConfidentSlug{Slug: s, Confidence: 1.0})
		}
		return out
	}

	// Last resort: a heterogeneous array mixing strings and objects.
	var mixed []json.RawMessage
	if err := json.Unmarshal(raw, &mixed); err != nil {
		return nil
	}
	out := make([]ConfidentSlug, 0, len(mixed))
	for _, entry := range mixed {
		var obj ConfidentSlug
		if err := json.Unmarshal(entry, &obj); err == nil && obj.Slug != "" {
			out = append(out, obj)
			continue
		}
		var s string
		if err := json.Unmarshal(entry, &s); err == nil && s != "" {
			out = append(out, ConfidentSlug{Slug: s, Confidence: 1.0})
		}
	}
	return out
}
