package queue

import (
	"context"
	"testing"
	"time"

	"github.com/sehxxnee/botbuilder/internal/ingest"
)

func job(id string) ingest.Job {
	return ingest.Job{
		JobID:    id,
		BotID:    "bot-1",
		FileKey:  "uploads/" + id + ".txt",
		FileName: id + ".txt",
	}
}

func TestMemoryQueueFIFO(t *testing.T) {
	ctx := context.Background()
	q := NewMemory()

	for _, id := range []string{"a", "b", "c"} {
		if err := q.Enqueue(ctx, job(id)); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}
	for _, want := range []string{"a", "b", "c"} {
		got, err := q.Pop(ctx, time.Second, time.Minute)
		if err != nil {
			t.Fatalf("pop: %v", err)
		}
		if got == nil || got.JobID != want {
			t.Fatalf("pop = %v, want job %s", got, want)
		}
	}
}

func TestMemoryQueuePopTimeout(t *testing.T) {
	q := NewMemory()
	start := time.Now()
	got, err := q.Pop(context.Background(), 20*time.Millisecond, time.Minute)
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil on timeout, got %v", got)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("pop returned before the wait elapsed: %v", elapsed)
	}
}

func TestMemoryQueueScheduleAndPromote(t *testing.T) {
	ctx := context.Background()
	q := NewMemory()

	if err := q.Enqueue(ctx, job("r")); err != nil {
		t.Fatal(err)
	}
	popped, err := q.Pop(ctx, time.Second, time.Minute)
	if err != nil || popped == nil {
		t.Fatalf("pop: %v %v", popped, err)
	}

	runAt := time.Now().Add(30 * time.Millisecond)
	if err := q.ScheduleRetry(ctx, *popped, 1, runAt); err != nil {
		t.Fatalf("schedule retry: %v", err)
	}

	// Not due yet.
	n, err := q.PromoteDue(ctx, time.Now(), 10)
	if err != nil || n != 0 {
		t.Fatalf("premature promote = %d, %v", n, err)
	}

	n, err = q.PromoteDue(ctx, runAt.Add(time.Millisecond), 10)
	if err != nil || n != 1 {
		t.Fatalf("promote = %d, %v, want 1", n, err)
	}

	got, err := q.Pop(ctx, time.Second, time.Minute)
	if err != nil || got == nil {
		t.Fatalf("pop after promote: %v %v", got, err)
	}
	if got.Attempt != 1 {
		t.Errorf("promoted job attempt = %d, want 1", got.Attempt)
	}
	if got.NextRunAt != runAt.UnixMilli() {
		t.Errorf("promoted job nextRunAt = %d, want %d", got.NextRunAt, runAt.UnixMilli())
	}
}

func TestMemoryQueueLeaseReclaim(t *testing.T) {
	ctx := context.Background()
	q := NewMemory()

	if err := q.Enqueue(ctx, job("lost")); err != nil {
		t.Fatal(err)
	}
	popped, err := q.Pop(ctx, time.Second, 10*time.Millisecond)
	if err != nil || popped == nil {
		t.Fatalf("pop: %v %v", popped, err)
	}

	// Simulate a crashed worker: never settle, wait out the lease.
	n, err := q.ReclaimExpired(ctx, time.Now().Add(20*time.Millisecond), 10)
	if err != nil || n != 1 {
		t.Fatalf("reclaim = %d, %v, want 1", n, err)
	}

	got, err := q.Pop(ctx, time.Second, time.Minute)
	if err != nil || got == nil || got.JobID != "lost" {
		t.Fatalf("pop after reclaim = %v, %v", got, err)
	}
}

func TestMemoryQueueAckReleasesLease(t *testing.T) {
	ctx := context.Background()
	q := NewMemory()

	if err := q.Enqueue(ctx, job("done")); err != nil {
		t.Fatal(err)
	}
	popped, _ := q.Pop(ctx, time.Second, time.Millisecond)
	if err := q.Ack(ctx, *popped); err != nil {
		t.Fatalf("ack: %v", err)
	}

	n, err := q.ReclaimExpired(ctx, time.Now().Add(time.Second), 10)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("reclaimed %d jobs after ack, want 0", n)
	}
}

func TestMemoryQueueDeadLetter(t *testing.T) {
	ctx := context.Background()
	q := NewMemory()

	if err := q.Enqueue(ctx, job("doomed")); err != nil {
		t.Fatal(err)
	}
	popped, _ := q.Pop(ctx, time.Second, time.Minute)
	if err := q.DeadLetter(ctx, *popped, "download failed"); err != nil {
		t.Fatalf("dead letter: %v", err)
	}

	entries, err := q.DeadLetters(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("dead letters = %d, want 1", len(entries))
	}
	if entries[0].Job.JobID != "doomed" || entries[0].LastError != "download failed" {
		t.Errorf("unexpected entry: %+v", entries[0])
	}

	d, err := q.Depths(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if d.Main != 0 || d.Delayed != 0 || d.Processing != 0 || d.DeadLetter != 1 {
		t.Errorf("depths = %+v", d)
	}
}
