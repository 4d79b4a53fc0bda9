package controller

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"meshforge.dev/server/ai3d"
	"meshforge.dev/server/repository"
	"meshforge.dev/server/tracker"
)

// Controller exposes the local HTTP surface: submission, status snapshots
// and cancellation. It never talks to the remote API directly; the tracker
// owns that.
type Controller struct {
	Tracker *tracker.Tracker
	Store   repository.JobStore
}

// Generate3D handles POST /generate-3d. Submission outcome is reported
// synchronously; only an accepted job enters the async state machine.
func (c Controller) Generate3D(writer http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(writer, http.StatusBadRequest, GenerateResponse{Success: false, Error: "invalid request body"})
		return
	}
	if req.Prompt == "" {
		writeJSON(writer, http.StatusBadRequest, GenerateResponse{Success: false, Error: "prompt is required"})
		return
	}

	jobID, err := c.Tracker.Submit(r.Context(), req.Prompt)
	if err != nil {
		var apiErr *ai3d.APIError
		if errors.As(err, &apiErr) {
			writeJSON(writer, http.StatusOK, GenerateResponse{Success: false, Error: apiErr.Message, Code: apiErr.Code})
			return
		}
		log.Printf("[Controller] Submission failed: %v", err)
		writeJSON(writer, http.StatusBadGateway, GenerateResponse{Success: false, Error: err.Error()})
		return
	}

	writeJSON(writer, http.StatusOK, GenerateResponse{Success: true, JobID: jobID})
}

// JobStatus handles GET /job-status/{jobID}. Pure read; the snapshot comes
// straight from the store and is well-formed even for FAILED jobs.
func (c Controller) JobStatus(writer http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, ok, err := c.Store.Get(jobID)
	if err != nil {
		log.Printf("[Controller] Status lookup for %s failed: %v", jobID, err)
		writeJSON(writer, http.StatusInternalServerError, ErrorResponse{Success: false, Error: "status lookup failed"})
		return
	}
	if !ok {
		writeJSON(writer, http.StatusOK, ErrorResponse{Success: false, Error: "JobId not found"})
		return
	}

	writeJSON(writer, http.StatusOK, StatusResponse{Success: true, Job: job})
}

// CancelJob handles DELETE /jobs/{jobID}. Stops future polling; the record
// keeps its last published state.
func (c Controller) CancelJob(writer http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	if !c.Tracker.Cancel(jobID) {
		writeJSON(writer, http.StatusOK, ErrorResponse{Success: false, Error: "JobId not found or already stopped"})
		return
	}
	writeJSON(writer, http.StatusOK, CancelResponse{Success: true, JobID: jobID})
}

func writeJSON(writer http.ResponseWriter, status int, body any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	if err := json.NewEncoder(writer).Encode(body); err != nil {
		log.Printf("[Controller] Failed to encode response: %v", err)
	}
}
