// Package retriever is the HTTP surface of the pipeline: document upload
// acknowledgement, job status polling, retrieval, and dead-letter
// inspection.
package retriever

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sehxxnee/botbuilder/internal/bots"
	"github.com/sehxxnee/botbuilder/internal/ingest"
	"github.com/sehxxnee/botbuilder/internal/jobstatus"
	"github.com/sehxxnee/botbuilder/internal/queue"
	"github.com/sehxxnee/botbuilder/internal/retrieval"
	apperrors "github.com/sehxxnee/botbuilder/pkg/errors"
	"github.com/sehxxnee/botbuilder/pkg/logger"
)

// Retriever answers retrieval questions.
type Retriever interface {
	Retrieve(ctx context.Context, botID, question string) (retrieval.Result, error)
}

type Handler struct {
	bots           bots.Store
	queue          queue.Queue
	status         jobstatus.Store
	retriever      Retriever
	maxQuestionLen int
	logger         *slog.Logger
}

func New(botStore bots.Store, q queue.Queue, status jobstatus.Store, retriever Retriever, maxQuestionLen int) *Handler {
	return &Handler{
		bots:           botStore,
		queue:          q,
		status:         status,
		retriever:      retriever,
		maxQuestionLen: maxQuestionLen,
		logger:         slog.Default().With("component", "retriever-handler"),
	}
}

type enqueueRequest struct {
	FileKey  string `json:"file_key"`
	FileName string `json:"file_name"`
}

type enqueueResponse struct {
	JobID  string        `json:"job_id"`
	Status ingest.Status `json:"status"`
}

// EnqueueDocument accepts an uploaded document reference and queues an
// ingestion job. The response is an acknowledgement; processing is
// asynchronous.
func (h *Handler) EnqueueDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	botID := r.PathValue("botID")

	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.FileKey) == "" {
		h.writeError(w, http.StatusBadRequest, "file_key is required")
		return
	}

	exists, err := h.bots.Exists(ctx, botID)
	if err != nil {
		h.logger.Error("bot lookup failed", "bot_id", botID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "bot lookup failed")
		return
	}
	if !exists {
		h.writeError(w, http.StatusNotFound, "bot not found")
		return
	}

	job := ingest.Job{
		JobID:      uuid.NewString(),
		BotID:      botID,
		FileKey:    req.FileKey,
		FileName:   req.FileName,
		EnqueuedAt: time.Now().UTC(),
	}
	// The queued record must land before the job is visible to workers,
	// otherwise a fast worker's processing/completed write could be
	// overwritten by a late queued write here.
	h.writeStatus(ctx, ingest.StatusRecord{
		JobID:     job.JobID,
		Status:    ingest.StatusQueued,
		UpdatedAt: job.EnqueuedAt,
	})
	if err := h.queue.Enqueue(ctx, job); err != nil {
		h.logger.Error("enqueue failed", "bot_id", botID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "could not queue document")
		return
	}

	logger.FromContext(ctx).Info("document queued",
		"job_id", job.JobID, "bot_id", botID, "file_key", req.FileKey)
	h.writeJSON(w, http.StatusAccepted, enqueueResponse{JobID: job.JobID, Status: ingest.StatusQueued})
}

// JobStatus returns the pollable record for one job.
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobID")

	rec, err := h.status.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, apperrors.ErrJobNotFound) {
			h.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error("status lookup failed", "job_id", jobID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "status lookup failed")
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

type retrieveRequest struct {
	Question string `json:"question"`
}

// Retrieve embeds the question and returns the assembled context.
func (h *Handler) Retrieve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	botID := r.PathValue("botID")

	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		h.writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	if h.maxQuestionLen > 0 && len(question) > h.maxQuestionLen {
		h.writeError(w, http.StatusBadRequest, "question too long")
		return
	}

	res, err := h.retriever.Retrieve(ctx, botID, question)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("retrieval failed", "bot_id", botID, "error", err)
		}
		h.writeError(w, status, retrieveErrorMessage(err))
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func retrieveErrorMessage(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrBotNotFound):
		return "bot not found"
	case errors.Is(err, apperrors.ErrEmbeddingUnavailable):
		return "embedding service unavailable"
	default:
		return "retrieval failed"
	}
}

// DeadLetters lists jobs that exhausted their retry budget.
func (h *Handler) DeadLetters(w http.ResponseWriter, r *http.Request) {
	limit := int64(50)
	if s := r.URL.Query().Get("limit"); s != "" {
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	entries, err := h.queue.DeadLetters(r.Context(), limit)
	if err != nil {
		h.logger.Error("dead letter listing failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "dead letter listing failed")
		return
	}
	if entries == nil {
		entries = []ingest.DeadLetterEntry{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

func (h *Handler) writeStatus(ctx context.Context, rec ingest.StatusRecord) {
	if err := h.status.Write(ctx, rec); err != nil {
		h.logger.Error("writing job status failed", "job_id", rec.JobID, "error", err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
