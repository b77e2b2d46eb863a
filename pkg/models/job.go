package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// IsTerminal reports whether a job status permits no further transitions.
// The store does not enforce this; callers must not write past a terminal
// status for the same job id.
func IsTerminal(status string) bool {
	return status == JobStatusCompleted || status == JobStatusFailed
}

// AnalysisJob tracks one ingested file through the scoring pipeline. The API
// returns the job id on ingestion; the client polls GET /api/v1/jobs/{jobID}
// until status is completed or failed.
type AnalysisJob struct {
	ID        uuid.UUID      `db:"id"         json:"id"`
	OwnerID   uuid.UUID      `db:"owner_id"   json:"owner_id"`
	Filename  string         `db:"filename"   json:"filename"`
	SourceKey *string        `db:"source_key" json:"source_key,omitempty"`
	Status    string         `db:"status"     json:"status"`
	Score     float64        `db:"score"      json:"score"`
	Details   map[string]any `db:"details"    json:"details,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}
