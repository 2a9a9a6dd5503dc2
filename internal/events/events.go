// Package events publishes job lifecycle events for external consumers
// (dashboards, analytics). Publishing is best effort: a broker outage never
// fails or delays a job.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/sehxxnee/botbuilder/internal/ingest"
	"github.com/sehxxnee/botbuilder/pkg/kafka"
)

// JobEvent describes one job lifecycle transition.
type JobEvent struct {
	JobID      string        `json:"job_id"`
	BotID      string        `json:"bot_id"`
	Status     ingest.Status `json:"status"`
	Attempt    int           `json:"attempt"`
	LastError  string        `json:"last_error,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// Publisher emits job lifecycle events.
type Publisher interface {
	JobTransitioned(ctx context.Context, ev JobEvent)
}

// KafkaPublisher publishes events keyed by job id so transitions of one job
// stay ordered within a partition.
type KafkaPublisher struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

var _ Publisher = (*KafkaPublisher)(nil)

func NewKafka(producer *kafka.Producer, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, logger: logger}
}

func (p *KafkaPublisher) JobTransitioned(ctx context.Context, ev JobEvent) {
	if err := p.producer.Publish(ctx, kafka.Event{Key: ev.JobID, Value: ev}); err != nil {
		p.logger.Warn("dropping job event", "job_id", ev.JobID, "status", ev.Status, "error", err)
	}
}

// NopPublisher discards events. Used when Kafka is disabled and in tests.
type NopPublisher struct{}

var _ Publisher = NopPublisher{}

func (NopPublisher) JobTransitioned(context.Context, JobEvent) {}
