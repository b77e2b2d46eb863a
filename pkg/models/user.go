// Package models contains shared data models used across the ResuMatch codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the owning account for jobs and history. Authentication fields live
// with the upstream identity service; this core only keys lookups by user id.
type User struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Email     string    `db:"email"      json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HistoryEntry is one completed-batch result snapshot in a user's bounded,
// most-recent-first history. Independent of the per-job persistent record.
type HistoryEntry struct {
	JobID    uuid.UUID      `db:"job_id"   json:"job_id"`
	Filename string         `db:"filename" json:"filename"`
	Analysis map[string]any `db:"analysis" json:"ml_analysis"`
}
