package apiserver

import (
	"encoding/json"
	"net/http"

	"github.com/agentauri/gateway/internal/search"
)

// searchRequestBody is the JSON body of POST /search, sharing the same
// filterParams shape GET /agents builds from its query string so both
// paths go through one toFilterRequest conversion.
type searchRequestBody struct {
	Query       string        `json:"query"`
	Filters     filterParams  `json:"filters"`
	Limit       int           `json:"limit"`
	Offset      int           `json:"offset"`
	Cursor      string        `json:"cursor"`
	MinScore    *float32      `json:"minScore"`
	Sort        sortBody      `json:"sort"`
	UseHyDE     bool          `json:"useHyde"`
	UseReranker bool          `json:"useReranker"`
}

type sortBody struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	var body searchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, requestID, http.StatusBadRequest, CodeValidation, err)
		return
	}

	req := search.Request{
		Query:       body.Query,
		Filters:     toFilterRequest(body.Filters),
		Limit:       body.Limit,
		Offset:      body.Offset,
		Cursor:      body.Cursor,
		MinScore:    body.MinScore,
		Sort:        search.Sort{Field: search.SortField(body.Sort.Field), Order: search.SortOrder(body.Sort.Order)},
		UseHyDE:     body.UseHyDE,
		UseReranker: body.UseReranker,
	}

	resp, err := s.planner.Plan(r.Context(), req)
	if err != nil {
		respondFromErr(w, requestID, err)
		return
	}
	respondOK(w, resp)
}
