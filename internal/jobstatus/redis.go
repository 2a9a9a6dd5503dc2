package jobstatus

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sehxxnee/botbuilder/internal/ingest"
	apperrors "github.com/sehxxnee/botbuilder/pkg/errors"
	pkgredis "github.com/sehxxnee/botbuilder/pkg/redis"
)

// RedisStore keeps each record as a Redis hash under job:{id}.
type RedisStore struct {
	client *pkgredis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedis(client *pkgredis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func key(jobID string) string {
	return "job:" + jobID
}

func (s *RedisStore) Write(ctx context.Context, rec ingest.StatusRecord) error {
	fields := map[string]any{
		"status":        string(rec.Status),
		"attempt":       rec.Attempt,
		"nextRunAt":     rec.NextRunAt,
		"successChunks": rec.SuccessChunks,
		"totalChunks":   rec.TotalChunks,
		"lastError":     rec.LastError,
		"updatedAt":     rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if err := s.client.HSet(ctx, key(rec.JobID), fields); err != nil {
		return fmt.Errorf("writing status for job %s: %w", rec.JobID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, jobID string) (*ingest.StatusRecord, error) {
	data, err := s.client.HGetAll(ctx, key(jobID))
	if err != nil {
		return nil, fmt.Errorf("reading status for job %s: %w", jobID, err)
	}
	if len(data) == 0 {
		return nil, apperrors.ErrJobNotFound
	}
	rec := &ingest.StatusRecord{
		JobID:     jobID,
		Status:    ingest.Status(data["status"]),
		LastError: data["lastError"],
	}
	rec.Attempt, _ = strconv.Atoi(data["attempt"])
	rec.NextRunAt, _ = strconv.ParseInt(data["nextRunAt"], 10, 64)
	rec.SuccessChunks, _ = strconv.Atoi(data["successChunks"])
	rec.TotalChunks, _ = strconv.Atoi(data["totalChunks"])
	if t, err := time.Parse(time.RFC3339Nano, data["updatedAt"]); err == nil {
		rec.UpdatedAt = t
	}
	return rec, nil
}
