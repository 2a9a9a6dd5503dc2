package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sehxxnee/botbuilder/internal/ingest"
	pkgredis "github.com/sehxxnee/botbuilder/pkg/redis"
)

const (
	mainKey       = "ingest:queue"
	delayedKey    = "ingest:delayed"
	processingKey = "ingest:processing"
	deadLetterKey = "ingest:dead_letter"
)

// RedisQueue implements Queue on Redis: the FIFO is a list (LPUSH/BRPOP),
// the delayed and processing sets are sorted sets scored by epoch
// milliseconds, and the dead-letter list is a plain list.
type RedisQueue struct {
	client *pkgredis.Client
	logger *slog.Logger
}

var _ Queue = (*RedisQueue)(nil)

// NewRedis creates a RedisQueue on the given client.
func NewRedis(client *pkgredis.Client) *RedisQueue {
	return &RedisQueue{
		client: client,
		logger: slog.Default().With("component", "redis-queue"),
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job ingest.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling job %s: %w", job.JobID, err)
	}
	if err := q.client.LPush(ctx, mainKey, payload); err != nil {
		return fmt.Errorf("pushing job %s: %w", job.JobID, err)
	}
	return nil
}

func (q *RedisQueue) Pop(ctx context.Context, wait, lease time.Duration) (*ingest.Job, error) {
	payload, err := q.client.BRPop(ctx, wait, mainKey)
	if err != nil {
		return nil, fmt.Errorf("popping job: %w", err)
	}
	if payload == "" {
		return nil, nil
	}
	var job ingest.Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		// Undecodable payloads cannot be processed or retried; park them
		// in the dead-letter list for inspection.
		q.logger.Error("dropping undecodable job payload to dead letter", "error", err)
		entry, _ := json.Marshal(ingest.DeadLetterEntry{
			FailedAt:  time.Now().UTC(),
			LastError: fmt.Sprintf("undecodable payload: %v", err),
		})
		if dlqErr := q.client.RPush(ctx, deadLetterKey, entry); dlqErr != nil {
			q.logger.Error("failed to dead-letter undecodable payload", "error", dlqErr)
		}
		return nil, nil
	}
	expiry := float64(time.Now().Add(lease).UnixMilli())
	if err := q.client.ZAdd(ctx, processingKey, expiry, payload); err != nil {
		return nil, fmt.Errorf("leasing job %s: %w", job.JobID, err)
	}
	return &job, nil
}

func (q *RedisQueue) Ack(ctx context.Context, job ingest.Job) error {
	return q.releaseLease(ctx, job)
}

// ScheduleRetry inserts into the delayed set before releasing the lease.
// A failure between the two calls leaves the job in both structures, where
// lease expiry eventually produces a duplicate run rather than a lost job.
func (q *RedisQueue) ScheduleRetry(ctx context.Context, job ingest.Job, attempt int, runAt time.Time) error {
	leased := job
	job.Attempt = attempt
	job.NextRunAt = runAt.UnixMilli()
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling retry for job %s: %w", job.JobID, err)
	}
	if err := q.client.ZAdd(ctx, delayedKey, float64(job.NextRunAt), string(payload)); err != nil {
		return fmt.Errorf("scheduling retry for job %s: %w", job.JobID, err)
	}
	return q.releaseLease(ctx, leased)
}

// DeadLetter appends the entry before releasing the lease, for the same
// reason as ScheduleRetry.
func (q *RedisQueue) DeadLetter(ctx context.Context, job ingest.Job, lastError string) error {
	entry := ingest.DeadLetterEntry{
		Job:       job,
		FailedAt:  time.Now().UTC(),
		LastError: lastError,
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling dead letter for job %s: %w", job.JobID, err)
	}
	if err := q.client.RPush(ctx, deadLetterKey, payload); err != nil {
		return fmt.Errorf("appending dead letter for job %s: %w", job.JobID, err)
	}
	return q.releaseLease(ctx, job)
}

func (q *RedisQueue) PromoteDue(ctx context.Context, now time.Time, limit int) (int, error) {
	return q.moveDue(ctx, delayedKey, now, limit)
}

func (q *RedisQueue) ReclaimExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	return q.moveDue(ctx, processingKey, now, limit)
}

// moveDue atomically transfers due members of a scored set onto the FIFO.
// ZREM gates the transfer: with several workers scanning concurrently, only
// the one that actually removed the member pushes it.
func (q *RedisQueue) moveDue(ctx context.Context, key string, now time.Time, limit int) (int, error) {
	due, err := q.client.ZRangeByScore(ctx, key, 0, float64(now.UnixMilli()), int64(limit))
	if err != nil {
		return 0, fmt.Errorf("scanning %s: %w", key, err)
	}
	moved := 0
	for _, payload := range due {
		removed, err := q.client.ZRem(ctx, key, payload)
		if err != nil {
			return moved, fmt.Errorf("removing from %s: %w", key, err)
		}
		if !removed {
			continue // another worker won the race
		}
		if err := q.client.LPush(ctx, mainKey, payload); err != nil {
			return moved, fmt.Errorf("requeueing from %s: %w", key, err)
		}
		moved++
	}
	return moved, nil
}

func (q *RedisQueue) DeadLetters(ctx context.Context, limit int64) ([]ingest.DeadLetterEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	raw, err := q.client.LRange(ctx, deadLetterKey, -limit, -1)
	if err != nil {
		return nil, fmt.Errorf("listing dead letters: %w", err)
	}
	entries := make([]ingest.DeadLetterEntry, 0, len(raw))
	for _, payload := range raw {
		var entry ingest.DeadLetterEntry
		if err := json.Unmarshal([]byte(payload), &entry); err != nil {
			q.logger.Error("skipping undecodable dead letter entry", "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (q *RedisQueue) Depths(ctx context.Context) (Depths, error) {
	var d Depths
	var err error
	if d.Main, err = q.client.LLen(ctx, mainKey); err != nil {
		return d, fmt.Errorf("main depth: %w", err)
	}
	if d.Delayed, err = q.client.ZCard(ctx, delayedKey); err != nil {
		return d, fmt.Errorf("delayed depth: %w", err)
	}
	if d.Processing, err = q.client.ZCard(ctx, processingKey); err != nil {
		return d, fmt.Errorf("processing depth: %w", err)
	}
	if d.DeadLetter, err = q.client.LLen(ctx, deadLetterKey); err != nil {
		return d, fmt.Errorf("dead letter depth: %w", err)
	}
	return d, nil
}

// releaseLease drops the job's member from the processing set. The member
// must match the payload as delivered, so the job value passed to Ack,
// ScheduleRetry, and DeadLetter must be the one returned by Pop, unmodified.
func (q *RedisQueue) releaseLease(ctx context.Context, job ingest.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling lease release for job %s: %w", job.JobID, err)
	}
	if _, err := q.client.ZRem(ctx, processingKey, string(payload)); err != nil {
		return fmt.Errorf("releasing lease for job %s: %w", job.JobID, err)
	}
	return nil
}
