package controller

import "meshforge.dev/server/repository"

// GenerateRequest is the local submission payload.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

// GenerateResponse reports the outcome of a submission synchronously.
// Error and Code carry the vendor rejection when Success is false.
type GenerateResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// StatusResponse is a point-in-time snapshot of one tracked job. The
// embedded record contributes jobId, status, progress, the model fields
// and, for FAILED jobs, the error message.
type StatusResponse struct {
	Success bool `json:"success"`
	repository.Job
}

// ErrorResponse is the generic failure shape for lookups and cancels.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type CancelResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId,omitempty"`
}
