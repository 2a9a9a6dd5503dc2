package retriever

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sehxxnee/botbuilder/internal/bots"
	"github.com/sehxxnee/botbuilder/internal/chunkstore"
	"github.com/sehxxnee/botbuilder/internal/embedding"
	"github.com/sehxxnee/botbuilder/internal/ingest"
	"github.com/sehxxnee/botbuilder/internal/jobstatus"
	"github.com/sehxxnee/botbuilder/internal/queue"
	"github.com/sehxxnee/botbuilder/internal/retrieval"
)

type env struct {
	bots   *bots.MemoryStore
	queue  *queue.MemoryQueue
	status *jobstatus.MemoryStore
	chunks *chunkstore.MemoryStore
	server http.Handler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		bots:   bots.NewMemory("b1"),
		queue:  queue.NewMemory(),
		status: jobstatus.NewMemory(),
		chunks: chunkstore.NewMemory(),
	}
	engine := retrieval.New(e.bots, e.chunks, embedding.NewMemoryGateway(4), 3, nil)
	h := New(e.bots, e.queue, e.status, engine, 1000)
	e.server = NewRouter(h, nil, nil, 0)
	return e
}

func (e *env) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)
	return rr
}

func TestEnqueueDocumentAccepted(t *testing.T) {
	e := newEnv(t)

	rr := e.do(t, http.MethodPost, "/api/v1/bots/b1/documents",
		`{"file_key":"bots/b1/doc.txt","file_name":"doc.txt"}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rr.Code, rr.Body)
	}

	var resp enqueueResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.JobID == "" {
		t.Fatal("response missing job_id")
	}
	if resp.Status != ingest.StatusQueued {
		t.Fatalf("status = %q, want %q", resp.Status, ingest.StatusQueued)
	}

	rec, err := e.status.Get(context.Background(), resp.JobID)
	if err != nil {
		t.Fatalf("status record not written: %v", err)
	}
	if rec.Status != ingest.StatusQueued {
		t.Fatalf("record status = %q, want queued", rec.Status)
	}

	job, err := e.queue.Pop(context.Background(), 10*time.Millisecond, time.Second)
	if err != nil || job == nil {
		t.Fatalf("job not queued: job=%v err=%v", job, err)
	}
	if job.BotID != "b1" || job.FileKey != "bots/b1/doc.txt" {
		t.Fatalf("queued job = %+v", job)
	}
}

// racingQueue simulates a worker that pops and finishes the job before
// Enqueue even returns to the handler.
type racingQueue struct {
	*queue.MemoryQueue
	status *jobstatus.MemoryStore
}

func (q *racingQueue) Enqueue(ctx context.Context, job ingest.Job) error {
	err := q.status.Write(ctx, ingest.StatusRecord{
		JobID:         job.JobID,
		Status:        ingest.StatusCompleted,
		Attempt:       1,
		SuccessChunks: 2,
		TotalChunks:   2,
		UpdatedAt:     time.Now(),
	})
	if err != nil {
		return err
	}
	return q.MemoryQueue.Enqueue(ctx, job)
}

func TestEnqueueDocumentStatusWrittenBeforeEnqueue(t *testing.T) {
	status := jobstatus.NewMemory()
	q := &racingQueue{MemoryQueue: queue.NewMemory(), status: status}
	h := New(bots.NewMemory("b1"), q, status, nil, 1000)
	server := NewRouter(h, nil, nil, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bots/b1/documents",
		strings.NewReader(`{"file_key":"bots/b1/doc.txt"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rr.Code, rr.Body)
	}

	var resp enqueueResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	rec, err := status.Get(context.Background(), resp.JobID)
	if err != nil {
		t.Fatalf("status record not written: %v", err)
	}
	if rec.Status != ingest.StatusCompleted || rec.SuccessChunks != 2 {
		t.Fatalf("record = %+v, want the worker's completed write to survive", rec)
	}
}

func TestEnqueueDocumentUnknownBot(t *testing.T) {
	e := newEnv(t)

	rr := e.do(t, http.MethodPost, "/api/v1/bots/ghost/documents", `{"file_key":"k"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}

	depths, _ := e.queue.Depths(context.Background())
	if depths.Main != 0 {
		t.Fatal("job queued for unknown bot")
	}
}

func TestEnqueueDocumentValidation(t *testing.T) {
	e := newEnv(t)

	if rr := e.do(t, http.MethodPost, "/api/v1/bots/b1/documents", `not json`); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad JSON: status = %d, want 400", rr.Code)
	}
	if rr := e.do(t, http.MethodPost, "/api/v1/bots/b1/documents", `{"file_name":"x"}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("missing file_key: status = %d, want 400", rr.Code)
	}
}

func TestJobStatusEndpoint(t *testing.T) {
	e := newEnv(t)
	err := e.status.Write(context.Background(), ingest.StatusRecord{
		JobID:         "j1",
		Status:        ingest.StatusCompleted,
		Attempt:       1,
		SuccessChunks: 3,
		TotalChunks:   4,
		UpdatedAt:     time.Now(),
	})
	if err != nil {
		t.Fatalf("seed status: %v", err)
	}

	rr := e.do(t, http.MethodGet, "/api/v1/jobs/j1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var rec ingest.StatusRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Status != ingest.StatusCompleted || rec.SuccessChunks != 3 {
		t.Fatalf("record = %+v", rec)
	}

	if rr := e.do(t, http.MethodGet, "/api/v1/jobs/missing", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown job: status = %d, want 404", rr.Code)
	}
}

func TestRetrieveEndpoint(t *testing.T) {
	e := newEnv(t)
	emb := embedding.NewMemoryGateway(4)
	vec, _ := emb.Embed(context.Background(), "what is alpha")
	err := e.chunks.Put(context.Background(), chunkstore.TextChunk{
		ID: "c1", BotID: "b1", Content: "Alpha is first.", Embedding: vec, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("seed chunk: %v", err)
	}

	rr := e.do(t, http.MethodPost, "/api/v1/bots/b1/retrieve", `{"question":"what is alpha"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body)
	}
	var res retrieval.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(res.ContextText, "Alpha is first.") {
		t.Fatalf("context = %q, want the seeded chunk", res.ContextText)
	}
}

func TestRetrieveEndpointValidation(t *testing.T) {
	e := newEnv(t)

	if rr := e.do(t, http.MethodPost, "/api/v1/bots/b1/retrieve", `{"question":"  "}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("blank question: status = %d, want 400", rr.Code)
	}
	long := `{"question":"` + strings.Repeat("x", 2000) + `"}`
	if rr := e.do(t, http.MethodPost, "/api/v1/bots/b1/retrieve", long); rr.Code != http.StatusBadRequest {
		t.Fatalf("oversized question: status = %d, want 400", rr.Code)
	}
	if rr := e.do(t, http.MethodPost, "/api/v1/bots/ghost/retrieve", `{"question":"q"}`); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown bot: status = %d, want 404", rr.Code)
	}
}

func TestDeadLettersEndpoint(t *testing.T) {
	e := newEnv(t)
	job := ingest.Job{JobID: "j1", BotID: "b1", FileKey: "k"}
	if err := e.queue.DeadLetter(context.Background(), job, "gave up"); err != nil {
		t.Fatalf("seed dead letter: %v", err)
	}

	rr := e.do(t, http.MethodGet, "/api/v1/dead-letters", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp struct {
		Entries []ingest.DeadLetterEntry `json:"entries"`
		Count   int                      `json:"count"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || len(resp.Entries) != 1 {
		t.Fatalf("count = %d, entries = %d, want 1/1", resp.Count, len(resp.Entries))
	}
	if resp.Entries[0].LastError != "gave up" {
		t.Fatalf("last error = %q", resp.Entries[0].LastError)
	}

	if rr := e.do(t, http.MethodGet, "/api/v1/dead-letters?limit=0", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("limit=0: status = %d, want 400", rr.Code)
	}
}
