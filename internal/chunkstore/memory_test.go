package chunkstore

import (
	"context"
	"testing"
	"time"
)

func TestChunkIDDeterministic(t *testing.T) {
	a := ChunkID("bots/b1/doc.txt", 0)
	b := ChunkID("bots/b1/doc.txt", 0)
	if a != b {
		t.Fatalf("same inputs produced different ids: %s vs %s", a, b)
	}
	if ChunkID("bots/b1/doc.txt", 1) == a {
		t.Fatal("different index produced same id")
	}
	if ChunkID("bots/b2/doc.txt", 0) == a {
		t.Fatal("different file key produced same id")
	}
}

func TestMemoryStoreUpsert(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	created := time.Now().Add(-time.Hour)

	id := ChunkID("bots/b1/doc.txt", 0)
	if err := store.Put(ctx, TextChunk{ID: id, BotID: "b1", DatasourceID: "job-1", Content: "old", CreatedAt: created}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, TextChunk{ID: id, BotID: "b1", DatasourceID: "job-2", Content: "new", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("put again: %v", err)
	}

	chunks, err := store.ListByBot(ctx, "b1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("len = %d, want 1 (upsert, not duplicate)", len(chunks))
	}
	if chunks[0].Content != "new" {
		t.Fatalf("content = %q, want %q", chunks[0].Content, "new")
	}
	if chunks[0].DatasourceID != "job-2" {
		t.Fatalf("datasource = %q, want the re-ingesting job", chunks[0].DatasourceID)
	}
	if !chunks[0].CreatedAt.Equal(created) {
		t.Fatal("upsert changed creation time")
	}
}

func TestMemoryStoreListByBotOrderAndIsolation(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	base := time.Now()

	put := func(id, botID string, at time.Time) {
		t.Helper()
		if err := store.Put(ctx, TextChunk{ID: id, BotID: botID, CreatedAt: at}); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}
	put("c2", "b1", base.Add(2*time.Second))
	put("c1", "b1", base.Add(time.Second))
	put("x1", "b2", base)

	chunks, err := store.ListByBot(ctx, "b1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("len = %d, want 2", len(chunks))
	}
	if chunks[0].ID != "c1" || chunks[1].ID != "c2" {
		t.Fatalf("order = [%s %s], want [c1 c2]", chunks[0].ID, chunks[1].ID)
	}
}
