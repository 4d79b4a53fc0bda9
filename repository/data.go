package repository

import "time"

const (
	StatusProcessing = "PROCESSING"
	StatusSuccess    = "SUCCESS"
	StatusFailed     = "FAILED"
)

// Job is the locally-tracked view of one remote generation job. Stores hold
// and hand out Job by value, so a read is always a consistent snapshot and
// callers can never mutate live state through it.
//
// Invariants maintained by the tracker: Progress is 100 exactly when Status
// is SUCCESS; Error is set exactly when Status is FAILED; ModelURL is set
// exactly when Status is SUCCESS.
type Job struct {
	ID              string     `json:"jobId"`
	Status          string     `json:"status"`
	Progress        int        `json:"progress"`
	ModelURL        string     `json:"modelUrl,omitempty"`
	ModelType       string     `json:"modelType,omitempty"`
	PreviewImageURL string     `json:"previewImageUrl,omitempty"`
	Error           string     `json:"error,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

// Terminal reports whether no further transition can occur.
func (j Job) Terminal() bool {
	return j.Status == StatusSuccess || j.Status == StatusFailed
}
