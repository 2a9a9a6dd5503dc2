package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sehxxnee/botbuilder/internal/blob"
	"github.com/sehxxnee/botbuilder/internal/chunkstore"
	"github.com/sehxxnee/botbuilder/internal/embedding"
	"github.com/sehxxnee/botbuilder/internal/events"
	"github.com/sehxxnee/botbuilder/internal/ingest/worker"
	"github.com/sehxxnee/botbuilder/internal/jobstatus"
	"github.com/sehxxnee/botbuilder/internal/queue"
	"github.com/sehxxnee/botbuilder/pkg/config"
	"github.com/sehxxnee/botbuilder/pkg/kafka"
	"github.com/sehxxnee/botbuilder/pkg/logger"
	"github.com/sehxxnee/botbuilder/pkg/metrics"
	"github.com/sehxxnee/botbuilder/pkg/postgres"
	pkgredis "github.com/sehxxnee/botbuilder/pkg/redis"
	"github.com/sehxxnee/botbuilder/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting ingestion worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var redisClient *pkgredis.Client
	err = resilience.Retry(ctx, "redis-connect", resilience.RetryConfig{}, func() error {
		var connErr error
		redisClient, connErr = pkgredis.NewClient(cfg.Redis)
		return connErr
	})
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.Info("redis connected", "addr", cfg.Redis.Addr)

	var pgClient *postgres.Client
	err = resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{}, func() error {
		var connErr error
		pgClient, connErr = postgres.New(cfg.Postgres)
		return connErr
	})
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pgClient.Close()
	slog.Info("postgres connected", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)

	downloader, err := blob.NewS3(ctx, cfg.Blob)
	if err != nil {
		slog.Error("failed to initialise blob storage", "error", err)
		os.Exit(1)
	}
	slog.Info("blob storage ready", "bucket", cfg.Blob.Bucket)

	m := metrics.New()
	embedder := embedding.NewBreaker(
		embedding.NewHTTP(cfg.Embedding),
		m.CircuitBreakerState.WithLabelValues("embedding"),
		m.EmbeddingLatency,
	)

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.JobEventsTopic)
		defer producer.Close()
		publisher = events.NewKafka(producer, logger.WithComponent("job-events"))
		slog.Info("job events enabled", "topic", cfg.Kafka.JobEventsTopic)
	}

	w := worker.New(worker.Options{
		Ingest:    cfg.Ingest,
		Blob:      cfg.Blob,
		Queue:     queue.NewRedis(redisClient),
		Status:    jobstatus.NewRedis(redisClient),
		Chunks:    chunkstore.NewPostgres(pgClient),
		Blobs:     downloader,
		Embedder:  embedder,
		Publisher: publisher,
		Metrics:   m,
	})

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}()
	}

	slog.Info("worker running",
		"max_attempts", cfg.Ingest.MaxAttempts,
		"chunk_size", cfg.Ingest.ChunkSize,
		"embed_concurrency", cfg.Ingest.EmbedConcurrency,
	)
	if err := w.Run(ctx); err != nil {
		slog.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("worker stopped")
}
