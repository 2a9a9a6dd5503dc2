package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sehxxnee/botbuilder/internal/bots"
	"github.com/sehxxnee/botbuilder/internal/chunkstore"
	"github.com/sehxxnee/botbuilder/internal/embedding"
	apperrors "github.com/sehxxnee/botbuilder/pkg/errors"
)

type fixedEmbedder struct {
	vectors   map[string][]float32
	dimension int
	err       error
}

func (f *fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors[text], nil
}

func (f *fixedEmbedder) Dimension() int { return f.dimension }

func putChunk(t *testing.T, store *chunkstore.MemoryStore, id, botID, content string, vec []float32, at time.Time) {
	t.Helper()
	err := store.Put(context.Background(), chunkstore.TextChunk{
		ID: id, BotID: botID, Content: content, Embedding: vec, CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("put %s: %v", id, err)
	}
}

func TestRetrieveRanksByDistance(t *testing.T) {
	chunks := chunkstore.NewMemory()
	base := time.Now()
	putChunk(t, chunks, "far", "b1", "far away", []float32{10, 10}, base)
	putChunk(t, chunks, "near", "b1", "right here", []float32{1, 1}, base.Add(time.Second))
	putChunk(t, chunks, "mid", "b1", "somewhat close", []float32{3, 3}, base.Add(2*time.Second))

	emb := &fixedEmbedder{dimension: 2, vectors: map[string][]float32{"q": {1, 1}}}
	engine := New(bots.NewMemory("b1"), chunks, emb, 2, nil)

	res, err := engine.Retrieve(context.Background(), "b1", "q")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(res.ChunkIDs) != 2 {
		t.Fatalf("chunk ids = %v, want 2 entries", res.ChunkIDs)
	}
	if res.ChunkIDs[0] != "near" || res.ChunkIDs[1] != "mid" {
		t.Fatalf("order = %v, want [near mid]", res.ChunkIDs)
	}
	want := "right here" + ContextDelimiter + "somewhat close"
	if res.ContextText != want {
		t.Fatalf("context = %q, want %q", res.ContextText, want)
	}
}

func TestRetrieveTieBreaksByCreationTime(t *testing.T) {
	chunks := chunkstore.NewMemory()
	base := time.Now()
	putChunk(t, chunks, "younger", "b1", "b", []float32{2, 2}, base.Add(time.Second))
	putChunk(t, chunks, "older", "b1", "a", []float32{2, 2}, base)

	emb := &fixedEmbedder{dimension: 2, vectors: map[string][]float32{"q": {0, 0}}}
	engine := New(bots.NewMemory("b1"), chunks, emb, 1, nil)

	res, err := engine.Retrieve(context.Background(), "b1", "q")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(res.ChunkIDs) != 1 || res.ChunkIDs[0] != "older" {
		t.Fatalf("chunk ids = %v, want [older]", res.ChunkIDs)
	}
}

func TestRetrieveUnknownBot(t *testing.T) {
	engine := New(bots.NewMemory(), chunkstore.NewMemory(), embedding.NewMemoryGateway(2), 3, nil)

	_, err := engine.Retrieve(context.Background(), "ghost", "q")
	if !errors.Is(err, apperrors.ErrBotNotFound) {
		t.Fatalf("err = %v, want ErrBotNotFound", err)
	}
}

func TestRetrieveUnknownBotSkipsEmbedding(t *testing.T) {
	emb := embedding.NewMemoryGateway(2)
	engine := New(bots.NewMemory(), chunkstore.NewMemory(), emb, 3, nil)

	_, _ = engine.Retrieve(context.Background(), "ghost", "q")
	if calls := emb.Calls(); len(calls) != 0 {
		t.Fatalf("embedder called %d times for unknown bot, want 0", len(calls))
	}
}

func TestRetrieveEmptyQueryVector(t *testing.T) {
	chunks := chunkstore.NewMemory()
	putChunk(t, chunks, "c1", "b1", "content", []float32{1, 1}, time.Now())

	emb := &fixedEmbedder{dimension: 2, vectors: map[string][]float32{}}
	engine := New(bots.NewMemory("b1"), chunks, emb, 3, nil)

	res, err := engine.Retrieve(context.Background(), "b1", "q")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if res.ContextText != "" || len(res.ChunkIDs) != 0 {
		t.Fatalf("result = %+v, want empty", res)
	}
}

func TestRetrieveNoChunks(t *testing.T) {
	emb := &fixedEmbedder{dimension: 2, vectors: map[string][]float32{"q": {1, 1}}}
	engine := New(bots.NewMemory("b1"), chunkstore.NewMemory(), emb, 3, nil)

	res, err := engine.Retrieve(context.Background(), "b1", "q")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if res.ContextText != "" {
		t.Fatalf("context = %q, want empty", res.ContextText)
	}
}

func TestRetrieveIgnoresOtherBots(t *testing.T) {
	chunks := chunkstore.NewMemory()
	now := time.Now()
	putChunk(t, chunks, "mine", "b1", "mine", []float32{1, 1}, now)
	putChunk(t, chunks, "theirs", "b2", "theirs", []float32{1, 1}, now)

	emb := &fixedEmbedder{dimension: 2, vectors: map[string][]float32{"q": {1, 1}}}
	engine := New(bots.NewMemory("b1", "b2"), chunks, emb, 10, nil)

	res, err := engine.Retrieve(context.Background(), "b1", "q")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(res.ChunkIDs) != 1 || res.ChunkIDs[0] != "mine" {
		t.Fatalf("chunk ids = %v, want [mine]", res.ChunkIDs)
	}
	if strings.Contains(res.ContextText, "theirs") {
		t.Fatal("context leaked another bot's chunk")
	}
}
