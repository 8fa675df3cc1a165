package apiserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agentauri/gateway/internal/agent"
	"github.com/agentauri/gateway/internal/errs"
)

// handlePostClassify implements POST /agents/{id}/classify: force
// (re-)enqueue a classification job and return 202 immediately. The
// queue consumer processes it out of band.
func (s *Server) handlePostClassify(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	id, err := agent.ParseIdentifier(chi.URLParam(r, "id"), s.knownChains)
	if err != nil {
		respondError(w, requestID, http.StatusBadRequest, CodeValidation, err)
		return
	}

	if err := s.classifier.Enqueue(r.Context(), id, true); err != nil {
		respondFromErr(w, requestID, errs.Wrap(errs.Unexpected, err))
		return
	}
	respondCreated(w, map[string]string{"agentId": id.String(), "status": string(agent.ClassificationJobPending)})
}

type classifyStatusResponse struct {
	AgentID        string                        `json:"agentId"`
	Status         agent.ClassificationJobStatus `json:"status"`
	Classification *agent.Classification         `json:"classification,omitempty"`
}

// handleGetClassify implements GET /agents/{id}/classify: 200 with the
// persisted result once a job has reached a terminal state, 202 while
// it is still pending/processing.
func (s *Server) handleGetClassify(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	id, err := agent.ParseIdentifier(chi.URLParam(r, "id"), s.knownChains)
	if err != nil {
		respondError(w, requestID, http.StatusBadRequest, CodeValidation, err)
		return
	}

	status, found, err := s.classifier.JobStatus(r.Context(), id)
	if err != nil {
		respondFromErr(w, requestID, errs.Wrap(errs.Unexpected, err))
		return
	}
	if !found {
		respondError(w, requestID, http.StatusNotFound, CodeNotFound, errs.NotFound)
		return
	}

	resp := classifyStatusResponse{AgentID: id.String(), Status: status}
	if status == agent.ClassificationJobCompleted || status == agent.ClassificationJobFailed {
		result, ok, err := s.classifier.LoadClassification(r.Context(), id)
		if err != nil {
			respondFromErr(w, requestID, errs.Wrap(errs.Unexpected, err))
			return
		}
		if ok {
			resp.Classification = &result
		}
		respondOK(w, resp)
		return
	}

	writeJSON(w, http.StatusAccepted, successEnvelope{Success: true, Data: resp})
}
