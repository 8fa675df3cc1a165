package search

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// cursorPayload is the decoded shape of a pagination cursor: base64url
// of {offset: n}.
type cursorPayload struct {
	Offset int `json:"offset"`
}

func encodeCursor(offset int) string {
	bs, _ := json.Marshal(cursorPayload{Offset: offset})
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(bs)
}

// decodeCursor parses a nextCursor value back into an offset. An empty
// string decodes to offset 0, matching "no cursor supplied" at the start
// of a listing.
func decodeCursor(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	bs, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(raw)
	if err != nil {
		return 0, fmt.Errorf("search: invalid cursor: %w", err)
	}
	var p cursorPayload
	if err := json.Unmarshal(bs, &p); err != nil {
		return 0, fmt.Errorf("search: invalid cursor: %w", err)
	}
	if p.Offset < 0 {
		return 0, fmt.Errorf("search: invalid cursor: negative offset")
	}
	return p.Offset, nil
}
