package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sehxxnee/botbuilder/internal/bots"
	"github.com/sehxxnee/botbuilder/internal/chunkstore"
	"github.com/sehxxnee/botbuilder/internal/embedding"
	"github.com/sehxxnee/botbuilder/internal/jobstatus"
	"github.com/sehxxnee/botbuilder/internal/queue"
	"github.com/sehxxnee/botbuilder/internal/retrieval"
	"github.com/sehxxnee/botbuilder/internal/retriever"
	"github.com/sehxxnee/botbuilder/pkg/config"
	"github.com/sehxxnee/botbuilder/pkg/health"
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
	slog.Info("starting retriever service", "port", cfg.Server.Port)

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

	m := metrics.New()
	embedder := embedding.NewBreaker(
		embedding.NewHTTP(cfg.Embedding),
		m.CircuitBreakerState.WithLabelValues("embedding"),
		m.EmbeddingLatency,
	)

	botStore := bots.NewPostgres(pgClient)
	chunks := chunkstore.NewPostgres(pgClient)
	jobQueue := queue.NewRedis(redisClient)
	statusStore := jobstatus.NewRedis(redisClient)
	engine := retrieval.New(botStore, chunks, embedder, cfg.Retrieval.TopK, m)

	checker := health.NewChecker()
	checker.Register("redis", health.PingCheck(redisClient.Ping))
	checker.Register("postgres", health.PingCheck(pgClient.Ping))

	h := retriever.New(botStore, jobQueue, statusStore, engine, cfg.Retrieval.MaxQuestionLen)
	router := retriever.NewRouter(h, checker, m, cfg.Server.RequestTimeout)

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

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("retriever service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("retriever service stopped")
}
