package queue

import (
	"context"
	"sync"
	"time"

	"github.com/sehxxnee/botbuilder/internal/ingest"
)

// MemoryQueue is an in-process Queue with the same semantics as RedisQueue.
// It backs unit tests and single-node development setups without Redis.
type MemoryQueue struct {
	mu         sync.Mutex
	main       []ingest.Job
	delayed    []delayedJob
	processing []leasedJob
	deadLetter []ingest.DeadLetterEntry
	notify     chan struct{}
}

type delayedJob struct {
	job   ingest.Job
	dueAt time.Time
}

type leasedJob struct {
	job      ingest.Job
	expireAt time.Time
}

var _ Queue = (*MemoryQueue)(nil)

func NewMemory() *MemoryQueue {
	return &MemoryQueue{
		notify: make(chan struct{}, 1),
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job ingest.Job) error {
	q.mu.Lock()
	q.main = append(q.main, job)
	q.mu.Unlock()
	q.wake()
	return nil
}

func (q *MemoryQueue) Pop(ctx context.Context, wait, lease time.Duration) (*ingest.Job, error) {
	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	for {
		q.mu.Lock()
		if len(q.main) > 0 {
			job := q.main[0]
			q.main = q.main[1:]
			q.processing = append(q.processing, leasedJob{job: job, expireAt: time.Now().Add(lease)})
			q.mu.Unlock()
			return &job, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, nil
		case <-q.notify:
		}
	}
}

func (q *MemoryQueue) Ack(ctx context.Context, job ingest.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dropLease(job.JobID)
	return nil
}

func (q *MemoryQueue) ScheduleRetry(ctx context.Context, job ingest.Job, attempt int, runAt time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dropLease(job.JobID)
	job.Attempt = attempt
	job.NextRunAt = runAt.UnixMilli()
	q.delayed = append(q.delayed, delayedJob{job: job, dueAt: runAt})
	return nil
}

func (q *MemoryQueue) DeadLetter(ctx context.Context, job ingest.Job, lastError string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dropLease(job.JobID)
	q.deadLetter = append(q.deadLetter, ingest.DeadLetterEntry{
		Job:       job,
		FailedAt:  time.Now().UTC(),
		LastError: lastError,
	})
	return nil
}

func (q *MemoryQueue) PromoteDue(ctx context.Context, now time.Time, limit int) (int, error) {
	q.mu.Lock()
	moved := 0
	remaining := q.delayed[:0]
	for _, d := range q.delayed {
		if moved < limit && !d.dueAt.After(now) {
			q.main = append(q.main, d.job)
			moved++
			continue
		}
		remaining = append(remaining, d)
	}
	q.delayed = remaining
	q.mu.Unlock()
	if moved > 0 {
		q.wake()
	}
	return moved, nil
}

func (q *MemoryQueue) ReclaimExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	q.mu.Lock()
	moved := 0
	remaining := q.processing[:0]
	for _, l := range q.processing {
		if moved < limit && !l.expireAt.After(now) {
			q.main = append(q.main, l.job)
			moved++
			continue
		}
		remaining = append(remaining, l)
	}
	q.processing = remaining
	q.mu.Unlock()
	if moved > 0 {
		q.wake()
	}
	return moved, nil
}

func (q *MemoryQueue) DeadLetters(ctx context.Context, limit int64) ([]ingest.DeadLetterEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if limit <= 0 || limit > int64(len(q.deadLetter)) {
		limit = int64(len(q.deadLetter))
	}
	start := int64(len(q.deadLetter)) - limit
	out := make([]ingest.DeadLetterEntry, limit)
	copy(out, q.deadLetter[start:])
	return out, nil
}

func (q *MemoryQueue) Depths(ctx context.Context) (Depths, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Depths{
		Main:       int64(len(q.main)),
		Delayed:    int64(len(q.delayed)),
		Processing: int64(len(q.processing)),
		DeadLetter: int64(len(q.deadLetter)),
	}, nil
}

// dropLease removes the lease for jobID. Caller holds q.mu.
func (q *MemoryQueue) dropLease(jobID string) {
	for i, l := range q.processing {
		if l.job.JobID == jobID {
			q.processing = append(q.processing[:i], q.processing[i+1:]...)
			return
		}
	}
}

func (q *MemoryQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
