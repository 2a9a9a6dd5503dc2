// Package ingest defines the job types and lifecycle states shared by the
// queue, the worker, and the job status store.
package ingest

import "time"

// Status is the lifecycle state of an ingestion job.
type Status string

const (
	StatusQueued         Status = "queued"
	StatusProcessing     Status = "processing"
	StatusCompleted      Status = "completed"
	StatusRetryScheduled Status = "retry_scheduled"
	StatusFailed         Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is the unit of work carried by the queue. It is transient: it lives in
// Redis, never in the primary database.
type Job struct {
	JobID    string `json:"job_id"`
	BotID    string `json:"bot_id"`
	FileKey  string `json:"file_key"`
	FileName string `json:"file_name"`

	// Attempt counts prior failed attempts; zero on first delivery.
	Attempt int `json:"attempt"`
	// NextRunAt is epoch milliseconds, set only while the job sits in the
	// delayed set waiting for a retry.
	NextRunAt int64 `json:"next_run_at,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at"`
}

// DeadLetterEntry is a job that exhausted its retry budget, kept for manual
// inspection. It is appended once and never automatically reprocessed.
type DeadLetterEntry struct {
	Job       Job       `json:"job"`
	FailedAt  time.Time `json:"failed_at"`
	LastError string    `json:"last_error"`
}

// StatusRecord is the pollable view of a job held in the job status store.
// The worker mutates it in place on every transition; it is never deleted
// here (retention is an external concern).
type StatusRecord struct {
	JobID         string    `json:"job_id"`
	Status        Status    `json:"status"`
	Attempt       int       `json:"attempt"`
	NextRunAt     int64     `json:"next_run_at,omitempty"`
	SuccessChunks int       `json:"success_chunks"`
	TotalChunks   int       `json:"total_chunks"`
	LastError     string    `json:"last_error,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}
