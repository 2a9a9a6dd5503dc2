package logger

import (
	"context"
	"log/slog"
	"os"
)

type contextKey struct{}

func Setup(level string, format string) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// WithJobID stores a job id in the context so every log line emitted while
// processing that job can be correlated.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, contextKey{}, jobID)
}

func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if jobID, ok := ctx.Value(contextKey{}).(string); ok {
		logger = logger.With("job_id", jobID)
	}
	return logger
}

func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
