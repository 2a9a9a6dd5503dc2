// Package queue provides the durable job queue backing the ingestion
// pipeline: a FIFO for runnable jobs, a time-ordered delayed set for
// scheduled retries, a lease set for in-flight jobs, and a dead-letter list
// for jobs that exhausted their retry budget.
//
// Delivery is at-least-once: Pop is atomic (at most one consumer receives a
// given job) but a consumer that crashes mid-job leaves the job leased until
// ReclaimExpired returns it to the FIFO.
package queue

import (
	"context"
	"time"

	"github.com/sehxxnee/botbuilder/internal/ingest"
)

// Depths reports the number of jobs in each queue structure.
type Depths struct {
	Main       int64
	Delayed    int64
	Processing int64
	DeadLetter int64
}

// Queue is the contract between producers, the worker, and the status
// pollers. Implementations must make Pop, PromoteDue, and ReclaimExpired
// safe against concurrent consumers.
type Queue interface {
	// Enqueue appends a job to the FIFO.
	Enqueue(ctx context.Context, job ingest.Job) error

	// Pop removes the oldest job from the FIFO, blocking up to wait.
	// The returned job is leased until now+lease; it must be settled with
	// Ack, ScheduleRetry, or DeadLetter before the lease expires or it
	// becomes eligible for re-delivery. Returns (nil, nil) on timeout.
	Pop(ctx context.Context, wait, lease time.Duration) (*ingest.Job, error)

	// Ack releases the lease after a successful (or terminally failed)
	// job, removing it from the queue entirely.
	Ack(ctx context.Context, job ingest.Job) error

	// ScheduleRetry releases the lease and inserts the job into the
	// delayed set with the given attempt count, due at runAt.
	ScheduleRetry(ctx context.Context, job ingest.Job, attempt int, runAt time.Time) error

	// DeadLetter releases the lease and appends the job to the
	// dead-letter list with its final error.
	DeadLetter(ctx context.Context, job ingest.Job, lastError string) error

	// PromoteDue moves up to limit delayed jobs whose due time has passed
	// back onto the FIFO, returning how many were promoted.
	PromoteDue(ctx context.Context, now time.Time, limit int) (int, error)

	// ReclaimExpired returns up to limit jobs whose lease has expired to
	// the FIFO, returning how many were reclaimed.
	ReclaimExpired(ctx context.Context, now time.Time, limit int) (int, error)

	// DeadLetters returns up to limit dead-letter entries, newest last.
	DeadLetters(ctx context.Context, limit int64) ([]ingest.DeadLetterEntry, error)

	// Depths reports per-structure job counts, for metrics and health.
	Depths(ctx context.Context) (Depths, error)
}
