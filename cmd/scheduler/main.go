// Package main is the entry point for the scheduler Lambda.
//
// EventBridge rules invoke it with a scheduler.MaintenancePayload naming the
// task. Each run takes a job lock so a duplicated delivery within the same
// window is skipped, records job history, then dispatches to the job.
//
//	daily_digest          cron at DIGEST_SEND_TIME in DIGEST_TIMEZONE
//	relay_session_events  rate(1 minute)
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"

	"myomesh/internal/config"
	"myomesh/internal/db"
	"myomesh/internal/external"
	notifcore "myomesh/internal/notifications/core"
	"myomesh/internal/notifications/digest"
	"myomesh/internal/notifications/email"
	"myomesh/internal/queue"
	"myomesh/internal/scheduler"
)

// lockPolicy is the lock window and TTL of a task.
type lockPolicy struct {
	window time.Duration
	ttl    time.Duration
}

var lockPolicies = map[scheduler.TaskType]lockPolicy{
	scheduler.TaskDailyDigest:        {window: time.Hour, ttl: 15 * time.Minute},
	scheduler.TaskRelaySessionEvents: {window: time.Minute, ttl: time.Minute},
}

// JobRunner runs one scheduled job and returns the number of items handled.
type JobRunner interface {
	Run(ctx context.Context, now time.Time) (int, error)
}

// ServiceRegistry holds the job implementations.
type ServiceRegistry struct {
	Digest JobRunner
	Relay  JobRunner
}

// JobLocker takes exclusive ownership of a task window.
type JobLocker interface {
	Acquire(ctx context.Context, lockID string, workerID string, ttl time.Duration) (bool, error)
}

// JobHistorian records the outcome of each run.
type JobHistorian interface {
	Start(ctx context.Context, jobType string) (int64, error)
	Finish(ctx context.Context, id int64, status string, items int, err error) error
}

// Handler routes EventBridge payloads to the jobs.
type Handler struct {
	Services   ServiceRegistry
	JobLock    JobLocker
	JobHistory JobHistorian
	WorkerID   string
	Logger     *slog.Logger
}

// Handle runs the task named by payload. A held lock is not an error.
func (h *Handler) Handle(ctx context.Context, payload scheduler.MaintenancePayload) (string, error) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := time.Now().UTC()
	if payload.ReferenceTime != nil {
		now = payload.ReferenceTime.UTC()
	}

	task := string(payload.Task)
	logger.InfoContext(ctx, "scheduler invoked",
		"task", task,
		"reference_time", now.Format(time.RFC3339),
		"worker_id", h.WorkerID,
	)

	policy, ok := lockPolicies[payload.Task]
	if !ok {
		return "", fmt.Errorf("unknown task type: %q", payload.Task)
	}

	lockID := fmt.Sprintf("%s:%s", task, now.Truncate(policy.window).Format(time.RFC3339))
	acquired, err := h.JobLock.Acquire(ctx, lockID, h.WorkerID, policy.ttl)
	if err != nil {
		return "", fmt.Errorf("acquiring job lock %s: %w", lockID, err)
	}
	if !acquired {
		logger.InfoContext(ctx, "job lock held by another worker", "lock_id", lockID)
		return fmt.Sprintf("skipped: lock %s held by another worker", lockID), nil
	}

	// History is best effort; a failed Start must not block the run.
	jobID, err := h.JobHistory.Start(ctx, task)
	if err != nil {
		logger.ErrorContext(ctx, "failed to start job history", "task", task, "error", err)
		jobID = 0
	}

	items, execErr := h.dispatch(ctx, payload.Task, now)

	status := "success"
	if execErr != nil {
		status = "failed"
	}
	if jobID != 0 {
		if err := h.JobHistory.Finish(ctx, jobID, status, items, execErr); err != nil {
			logger.ErrorContext(ctx, "failed to finish job history", "job_id", jobID, "error", err)
		}
	}

	if execErr != nil {
		logger.ErrorContext(ctx, "task execution failed",
			"task", task,
			"items_before_error", items,
			"error", execErr,
		)
		return "", fmt.Errorf("task %s failed: %w", task, execErr)
	}

	result := fmt.Sprintf("task %s complete: %d items processed", task, items)
	logger.InfoContext(ctx, result, "task", task, "items", items)
	return result, nil
}

func (h *Handler) dispatch(ctx context.Context, task scheduler.TaskType, now time.Time) (int, error) {
	switch task {
	case scheduler.TaskDailyDigest:
		return h.Services.Digest.Run(ctx, now)
	case scheduler.TaskRelaySessionEvents:
		return h.Services.Relay.Run(ctx, now)
	default:
		return 0, fmt.Errorf("unknown task type: %q", task)
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(config.NewSSMProvider(os.Getenv("AWS_REGION")))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	logger := cfg.NewLogger()
	logger.Info("scheduler initializing (cold start)", "version", cfg.Build.Version)

	loc, err := cfg.Digest.Location()
	if err != nil {
		return fmt.Errorf("loading digest timezone: %w", err)
	}

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()
	store := db.NewStore(pool)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}
	registry, err := external.NewClientRegistry(cfg, logger, external.WithAWSConfig(awsCfg))
	if err != nil {
		return fmt.Errorf("creating email provider registry: %w", err)
	}
	renderer, err := email.NewRenderer(email.RendererConfig{DefaultBusinessName: cfg.Email.DefaultBusinessName})
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}

	var (
		metrics notifcore.NotificationMetrics = notifcore.NoopMetrics{}
		jobs    scheduler.JobMetrics
	)
	if cfg.Observability.EnableMetrics {
		cw := notifcore.NewCloudWatchNotificationMetrics(
			cloudwatch.NewFromConfig(awsCfg), cfg.Observability.MetricNamespace, logger)
		metrics, jobs = cw, cw
	}

	digestJob := scheduler.NewDailyDigestJob(scheduler.DailyDigestJobConfig{
		Organizations: store,
		Builder:       digest.NewGenerator(store, cfg.Email.DefaultBusinessName, logger.With("component", "digest")),
		Renderer:      renderer,
		Sender:        registry.Dispatcher,
		Location:      loc,
		SendTime:      cfg.Digest.SendTime,
		Metrics:       metrics,
		JobMetrics:    jobs,
		Logger:        logger.With("job", string(scheduler.TaskDailyDigest)),
	})

	publisher := queue.NewSessionEventPublisher(sqs.NewFromConfig(awsCfg), cfg.AWS, logger)
	relay := scheduler.NewOutboxRelay(
		db.NewSessionEventRepository(pool),
		publisher,
		cfg.Digest.RelayBatchLimit,
		jobs,
		logger.With("job", string(scheduler.TaskRelaySessionEvents)),
	)

	workerID := uuid.New().String()
	handler := &Handler{
		Services:   ServiceRegistry{Digest: digestJob, Relay: relay},
		JobLock:    db.NewJobLockRepository(pool),
		JobHistory: db.NewJobHistoryRepository(pool),
		WorkerID:   workerID,
		Logger:     logger,
	}

	logger.Info("scheduler initialized",
		"worker_id", workerID,
		"digest_timezone", loc.String(),
		"digest_send_time", cfg.Digest.SendTime,
	)

	lambda.Start(handler.Handle)
	return nil
}
