package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"myomesh/internal/types"
)

// OutboxStore reads and acknowledges pending session events.
type OutboxStore interface {
	ListPending(ctx context.Context, limit int) ([]types.SessionEvent, error)
	MarkPublished(ctx context.Context, id string, at time.Time) error
}

// EventPublisher forwards a session event to the worker queue.
type EventPublisher interface {
	Publish(ctx context.Context, evt types.SessionEvent) error
}

// OutboxRelay moves session events from the outbox table to the queue.
type OutboxRelay struct {
	store     OutboxStore
	publisher EventPublisher
	limit     int
	jobs      JobMetrics
	logger    *slog.Logger
}

// NewOutboxRelay creates an OutboxRelay publishing at most limit events per run.
func NewOutboxRelay(store OutboxStore, publisher EventPublisher, limit int, jobs JobMetrics, logger *slog.Logger) *OutboxRelay {
	if limit <= 0 {
		limit = 100
	}
	if jobs == nil {
		jobs = noopJobMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OutboxRelay{store: store, publisher: publisher, limit: limit, jobs: jobs, logger: logger}
}

// Run publishes pending events oldest first and marks each one published.
// It stops at the first failure; the remaining rows are picked up next run.
// An event that was published but not marked may be delivered twice.
func (r *OutboxRelay) Run(ctx context.Context, now time.Time) (int, error) {
	events, err := r.store.ListPending(ctx, r.limit)
	if err != nil {
		return 0, fmt.Errorf("listing pending session events: %w", err)
	}

	relayed := 0
	defer func() { r.jobs.RecordJob(ctx, types.MetricEventsRelayed, relayed) }()

	for _, evt := range events {
		if err := r.publisher.Publish(ctx, evt); err != nil {
			return relayed, fmt.Errorf("publishing session event %s: %w", evt.EventID, err)
		}
		if err := r.store.MarkPublished(ctx, evt.EventID, now); err != nil {
			return relayed, fmt.Errorf("marking session event %s published: %w", evt.EventID, err)
		}
		relayed++
	}

	if len(events) > 0 {
		r.logger.InfoContext(ctx, "session events relayed",
			"relayed", relayed,
			"batch_full", len(events) == r.limit,
		)
	}
	return relayed, nil
}
