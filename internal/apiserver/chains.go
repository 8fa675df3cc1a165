package apiserver

import (
	"net/http"
	"sort"
	"time"

	"github.com/agentauri/gateway/internal/vectorstore/filter"
)

type chainCountResponse struct {
	ChainID int64  `json:"chainId"`
	Count   uint64 `json:"count"`
}

// handleListChains implements GET /chains: a per-configured-chain
// agent count, reusing the filter compiler's existing ChainID leaf and
// the store's Count rather than adding any new vector store method.
func (s *Server) handleListChains(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())
	now := time.Now()

	out := make([]chainCountResponse, 0, len(s.knownChains))
	for chainID := range s.knownChains {
		chainID := chainID
		f, err := filter.Compile(filter.Request{ChainID: &chainID}, now)
		if err != nil {
			respondFromErr(w, requestID, err)
			return
		}
		count, err := s.payloads.Count(r.Context(), f)
		if err != nil {
			respondFromErr(w, requestID, err)
			return
		}
		out = append(out, chainCountResponse{ChainID: chainID, Count: count})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	respondOK(w, out)
}
