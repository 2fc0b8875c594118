// Package scheduler implements the scheduled jobs run by the scheduler Lambda:
// the daily schedule digest and the session event outbox relay.
//
// EventBridge rules send a MaintenancePayload naming the task; the cmd/scheduler
// handler routes it to the matching job.
package scheduler

import (
	"context"
	"time"
)

// TaskType identifies which job should handle an EventBridge event.
type TaskType string

const (
	TaskDailyDigest        TaskType = "daily_digest"
	TaskRelaySessionEvents TaskType = "relay_session_events"
)

// MaintenancePayload is the JSON payload sent by EventBridge to the scheduler
// Lambda:
//
//	{
//	  "task": "daily_digest",
//	  "reference_time": "2024-03-10T23:00:00Z"  // optional
//	}
type MaintenancePayload struct {
	Task TaskType `json:"task"`
	// ReferenceTime overrides "now" for manual runs and backfills. If nil,
	// time.Now().UTC() is used.
	ReferenceTime *time.Time `json:"reference_time,omitempty"`
}

// JobMetrics receives per-run counters.
type JobMetrics interface {
	RecordJob(ctx context.Context, metric string, count int)
}

type noopJobMetrics struct{}

func (noopJobMetrics) RecordJob(context.Context, string, int) {}
