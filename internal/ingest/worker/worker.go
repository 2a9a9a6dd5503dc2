// Package worker runs the ingestion pipeline: it consumes jobs from the
// queue, downloads and chunks the document, embeds and persists each chunk,
// and settles the job with an ack, a scheduled retry, or a dead-letter.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/sehxxnee/botbuilder/internal/blob"
	"github.com/sehxxnee/botbuilder/internal/chunkstore"
	"github.com/sehxxnee/botbuilder/internal/embedding"
	"github.com/sehxxnee/botbuilder/internal/events"
	"github.com/sehxxnee/botbuilder/internal/ingest"
	"github.com/sehxxnee/botbuilder/internal/ingest/chunker"
	"github.com/sehxxnee/botbuilder/internal/jobstatus"
	"github.com/sehxxnee/botbuilder/internal/queue"
	"github.com/sehxxnee/botbuilder/pkg/config"
	apperrors "github.com/sehxxnee/botbuilder/pkg/errors"
	"github.com/sehxxnee/botbuilder/pkg/logger"
	"github.com/sehxxnee/botbuilder/pkg/metrics"
	"github.com/sehxxnee/botbuilder/pkg/resilience"
)

// Worker ties the queue, the blob store, the chunker, the embedder, and the
// chunk store together.
type Worker struct {
	cfg       config.IngestConfig
	blobCfg   config.BlobConfig
	queue     queue.Queue
	status    jobstatus.Store
	chunks    chunkstore.Store
	blobs     blob.Downloader
	embedder  embedding.Gateway
	publisher events.Publisher
	metrics   *metrics.Metrics
	policy    Policy
	logger    *slog.Logger
	clock     func() time.Time
}

// Options carries the worker's dependencies. Publisher and Metrics may be
// nil.
type Options struct {
	Ingest    config.IngestConfig
	Blob      config.BlobConfig
	Queue     queue.Queue
	Status    jobstatus.Store
	Chunks    chunkstore.Store
	Blobs     blob.Downloader
	Embedder  embedding.Gateway
	Publisher events.Publisher
	Metrics   *metrics.Metrics
}

func New(opts Options) *Worker {
	pub := opts.Publisher
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Worker{
		cfg:       opts.Ingest,
		blobCfg:   opts.Blob,
		queue:     opts.Queue,
		status:    opts.Status,
		chunks:    opts.Chunks,
		blobs:     opts.Blobs,
		embedder:  opts.Embedder,
		publisher: pub,
		metrics:   opts.Metrics,
		policy: Policy{
			MaxAttempts: opts.Ingest.MaxAttempts,
			BaseDelay:   opts.Ingest.BaseDelay,
			Factor:      opts.Ingest.BackoffFactor,
			MaxDelay:    opts.Ingest.MaxDelay,
		},
		logger: logger.WithComponent("worker"),
		clock:  time.Now,
	}
}

// Run blocks until ctx is cancelled, driving the scheduler and consumer
// loops.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.runScheduler(ctx) })
	g.Go(func() error { return w.runConsumer(ctx) })
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// runScheduler periodically promotes due retries, reclaims expired leases,
// and exports queue depths.
func (w *Worker) runScheduler(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PromoteInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		now := w.clock()
		if n, err := w.queue.PromoteDue(ctx, now, w.cfg.PromoteBatch); err != nil {
			w.logger.Error("promoting due jobs failed", "error", err)
		} else if n > 0 {
			w.logger.Debug("promoted due jobs", "count", n)
		}
		if n, err := w.queue.ReclaimExpired(ctx, now, w.cfg.PromoteBatch); err != nil {
			w.logger.Error("reclaiming expired leases failed", "error", err)
		} else if n > 0 {
			w.logger.Warn("reclaimed expired leases", "count", n)
		}
		w.exportDepths(ctx)
	}
}

func (w *Worker) exportDepths(ctx context.Context) {
	if w.metrics == nil {
		return
	}
	d, err := w.queue.Depths(ctx)
	if err != nil {
		return
	}
	w.metrics.QueueDepth.WithLabelValues("main").Set(float64(d.Main))
	w.metrics.QueueDepth.WithLabelValues("delayed").Set(float64(d.Delayed))
	w.metrics.QueueDepth.WithLabelValues("processing").Set(float64(d.Processing))
	w.metrics.QueueDepth.WithLabelValues("dead_letter").Set(float64(d.DeadLetter))
}

func (w *Worker) runConsumer(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		job, err := w.queue.Pop(ctx, w.cfg.PopTimeout, w.cfg.LeaseTTL)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("popping job failed", "error", err)
			continue
		}
		if job == nil {
			continue
		}
		w.handle(ctx, *job)
	}
}

// handle runs one job execution and settles it. The job passed to Ack,
// ScheduleRetry, or DeadLetter must be exactly the popped job; the lease
// entry is matched by payload.
func (w *Worker) handle(ctx context.Context, job ingest.Job) {
	attempt := job.Attempt + 1
	ctx = logger.WithJobID(ctx, job.JobID)
	log := logger.FromContext(ctx).With("bot_id", job.BotID, "file_key", job.FileKey, "attempt", attempt)

	start := w.clock()
	w.writeStatus(ctx, ingest.StatusRecord{
		JobID:     job.JobID,
		Status:    ingest.StatusProcessing,
		Attempt:   attempt,
		UpdatedAt: start,
	})
	w.publish(ctx, job, ingest.StatusProcessing, attempt, "")

	success, total, err := w.process(ctx, job)
	if err != nil {
		log.Warn("job attempt failed", "error", err)
		w.settleFailure(ctx, job, attempt, err)
		return
	}

	now := w.clock()
	if err := w.queue.Ack(ctx, job); err != nil {
		log.Error("acking job failed", "error", err)
	}
	w.writeStatus(ctx, ingest.StatusRecord{
		JobID:         job.JobID,
		Status:        ingest.StatusCompleted,
		Attempt:       attempt,
		SuccessChunks: success,
		TotalChunks:   total,
		UpdatedAt:     now,
	})
	w.publish(ctx, job, ingest.StatusCompleted, attempt, "")
	if w.metrics != nil {
		w.metrics.JobsTotal.WithLabelValues("completed").Inc()
		w.metrics.JobDuration.Observe(now.Sub(start).Seconds())
	}
	log.Info("job completed", "success_chunks", success, "total_chunks", total)
}

// process downloads, chunks, embeds, and persists. It returns the chunk
// counters on success; any returned error is classified by settleFailure.
func (w *Worker) process(ctx context.Context, job ingest.Job) (success, total int, err error) {
	var data []byte
	err = resilience.WithTimeout(ctx, w.blobCfg.DownloadTimeout, "blob-download", func(ctx context.Context) error {
		var dlErr error
		data, dlErr = w.blobs.Download(ctx, job.FileKey)
		return dlErr
	})
	if err != nil {
		return 0, 0, fmt.Errorf("downloading document: %w", err)
	}

	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	if strings.TrimSpace(text) == "" {
		return 0, 0, fmt.Errorf("%w: %s", apperrors.ErrEmptyContent, job.FileKey)
	}

	pieces := chunker.Chunk(text, w.cfg.ChunkSize, w.cfg.ChunkOverlap)
	if len(pieces) == 0 {
		return 0, 0, fmt.Errorf("%w: %s", apperrors.ErrNoChunks, job.FileKey)
	}
	total = len(pieces)

	var stored atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.EmbedConcurrency)
	for i, piece := range pieces {
		g.Go(func() error {
			// Embedding latency is observed by the gateway decorator, not
			// here.
			vec, embedErr := w.embedder.Embed(gctx, piece)
			if embedErr != nil || len(vec) == 0 {
				// A chunk the embedder cannot handle is skipped, not
				// retried; the job still completes with partial counters.
				if w.metrics != nil {
					w.metrics.ChunksTotal.WithLabelValues("skipped").Inc()
				}
				logger.FromContext(ctx).Debug("skipping chunk",
					"file_key", job.FileKey, "index", i, "error", embedErr)
				return nil
			}

			chunk := chunkstore.TextChunk{
				ID:            chunkstore.ChunkID(job.FileKey, i),
				BotID:         job.BotID,
				DatasourceID:  job.JobID,
				Content:       piece,
				SourceFileKey: job.FileKey,
				Embedding:     vec,
				CreatedAt:     w.clock(),
			}
			if putErr := w.chunks.Put(gctx, chunk); putErr != nil {
				return fmt.Errorf("persisting chunk %d: %w", i, putErr)
			}
			stored.Add(1)
			if w.metrics != nil {
				w.metrics.ChunksTotal.WithLabelValues("stored").Inc()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}
	return int(stored.Load()), total, nil
}

// settleFailure routes a failed attempt: content errors and an exhausted
// budget dead-letter the job; everything else schedules a retry.
func (w *Worker) settleFailure(ctx context.Context, job ingest.Job, attempt int, cause error) {
	log := logger.FromContext(ctx)
	now := w.clock()

	if apperrors.IsContentError(cause) || w.policy.Exhausted(attempt) {
		if err := w.queue.DeadLetter(ctx, job, cause.Error()); err != nil {
			log.Error("dead-lettering job failed", "error", err)
		}
		w.writeStatus(ctx, ingest.StatusRecord{
			JobID:     job.JobID,
			Status:    ingest.StatusFailed,
			Attempt:   attempt,
			LastError: cause.Error(),
			UpdatedAt: now,
		})
		w.publish(ctx, job, ingest.StatusFailed, attempt, cause.Error())
		if w.metrics != nil {
			w.metrics.JobsTotal.WithLabelValues("failed").Inc()
			w.metrics.JobsDeadLettered.Inc()
		}
		log.Error("job dead-lettered", "attempt", attempt, "error", cause)
		return
	}

	runAt := now.Add(w.policy.Delay(attempt))
	if err := w.queue.ScheduleRetry(ctx, job, attempt, runAt); err != nil {
		// The lease is still held, so expiry re-delivers the job. Record
		// the retry anyway so pollers are not left at processing.
		log.Error("scheduling retry failed", "error", err)
	}
	w.writeStatus(ctx, ingest.StatusRecord{
		JobID:     job.JobID,
		Status:    ingest.StatusRetryScheduled,
		Attempt:   attempt,
		NextRunAt: runAt.UnixMilli(),
		LastError: cause.Error(),
		UpdatedAt: now,
	})
	w.publish(ctx, job, ingest.StatusRetryScheduled, attempt, cause.Error())
	if w.metrics != nil {
		w.metrics.JobsTotal.WithLabelValues("retry_scheduled").Inc()
		w.metrics.JobRetriesTotal.Inc()
	}
	log.Info("retry scheduled", "attempt", attempt, "run_at", runAt)
}

func (w *Worker) writeStatus(ctx context.Context, rec ingest.StatusRecord) {
	if err := w.status.Write(ctx, rec); err != nil {
		logger.FromContext(ctx).Error("writing job status failed", "job_id", rec.JobID, "error", err)
	}
}

func (w *Worker) publish(ctx context.Context, job ingest.Job, status ingest.Status, attempt int, lastError string) {
	w.publisher.JobTransitioned(ctx, events.JobEvent{
		JobID:      job.JobID,
		BotID:      job.BotID,
		Status:     status,
		Attempt:    attempt,
		LastError:  lastError,
		OccurredAt: w.clock(),
	})
}
