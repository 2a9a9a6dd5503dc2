// Package jobstatus persists the pollable lifecycle view of ingestion jobs,
// keyed by job id. The worker writes a full record on every transition; UI
// pollers read it without touching queue internals.
package jobstatus

import (
	"context"

	"github.com/sehxxnee/botbuilder/internal/ingest"
)

// Store is the job status contract. Write replaces the record (records are
// mutated in place across the job lifecycle, never deleted by the worker);
// Get returns pkg/errors.ErrJobNotFound for unknown ids.
type Store interface {
	Write(ctx context.Context, rec ingest.StatusRecord) error
	Get(ctx context.Context, jobID string) (*ingest.StatusRecord, error)
}
