package jobstatus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sehxxnee/botbuilder/internal/ingest"
	apperrors "github.com/sehxxnee/botbuilder/pkg/errors"
)

func TestMemoryStoreWriteAndGet(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	rec := ingest.StatusRecord{
		JobID:         "job-1",
		Status:        ingest.StatusProcessing,
		Attempt:       2,
		SuccessChunks: 3,
		TotalChunks:   5,
		UpdatedAt:     time.Now(),
	}
	if err := store.Write(ctx, rec); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := store.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != ingest.StatusProcessing || got.Attempt != 2 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.SuccessChunks != 3 || got.TotalChunks != 5 {
		t.Fatalf("unexpected chunk counters: %+v", got)
	}
}

func TestMemoryStoreOverwrite(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	if err := store.Write(ctx, ingest.StatusRecord{JobID: "job-1", Status: ingest.StatusQueued}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.Write(ctx, ingest.StatusRecord{JobID: "job-1", Status: ingest.StatusCompleted}); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	got, err := store.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != ingest.StatusCompleted {
		t.Fatalf("status = %q, want %q", got.Status, ingest.StatusCompleted)
	}
}

func TestMemoryStoreUnknownJob(t *testing.T) {
	store := NewMemory()

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, apperrors.ErrJobNotFound) {
		t.Fatalf("err = %v, want ErrJobNotFound", err)
	}
}
