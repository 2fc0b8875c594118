// Package main is the entry point for the session worker Lambda.
//
// The worker consumes session change events from the session events SQS
// queue and hands each one to the Notifier, which decides who is emailed and
// dispatches through the organization's provider credential. Records whose
// processing fails are returned as batch item failures so only they are
// redelivered; malformed records are acknowledged and logged.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"myomesh/internal/config"
	"myomesh/internal/db"
	"myomesh/internal/external"
	notifcore "myomesh/internal/notifications/core"
	"myomesh/internal/notifications/email"
	"myomesh/internal/types"
)

// EventHandler processes one validated session event.
type EventHandler interface {
	HandleSessionEvent(ctx context.Context, evt types.SessionEvent) error
}

// Handler holds the dependencies of the worker.
type Handler struct {
	notifier EventHandler
	logger   *slog.Logger
}

// Handle processes a batch of SQS records and reports partial failures.
func (h *Handler) Handle(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	response := events.SQSEventResponse{}

	for _, record := range sqsEvent.Records {
		if err := h.processMessage(ctx, record); err != nil {
			h.logger.ErrorContext(ctx, "failed to process session event",
				"message_id", record.MessageId,
				"error", err,
			)
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId},
			)
		}
	}

	return response, nil
}

func (h *Handler) processMessage(ctx context.Context, record events.SQSMessage) error {
	var evt types.SessionEvent
	if err := json.Unmarshal([]byte(record.Body), &evt); err != nil {
		h.logger.ErrorContext(ctx, "discarding malformed session event",
			"message_id", record.MessageId,
			"error", err,
		)
		return nil
	}
	if err := evt.Validate(); err != nil {
		h.logger.ErrorContext(ctx, "discarding invalid session event",
			"message_id", record.MessageId,
			"event_id", evt.EventID,
			"error", err,
		)
		return nil
	}
	return h.notifier.HandleSessionEvent(ctx, evt)
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
	logger.Info("session worker initializing (cold start)", "version", cfg.Build.Version)

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

	var metrics notifcore.NotificationMetrics = notifcore.NoopMetrics{}
	if cfg.Observability.EnableMetrics {
		metrics = notifcore.NewCloudWatchNotificationMetrics(
			cloudwatch.NewFromConfig(awsCfg), cfg.Observability.MetricNamespace, logger)
	}

	handler := &Handler{
		notifier: notifcore.NewNotifier(notifcore.NotifierConfig{
			Store:      store,
			Decider:    notifcore.NewDecider(store, cfg.Email.DefaultBusinessName),
			Renderer:   renderer,
			Dispatcher: registry.Dispatcher,
			Metrics:    metrics,
			Logger:     logger.With("component", "notifier"),
		}),
		logger: logger,
	}

	logger.Info("session worker initialized", "queue", cfg.AWS.SessionEventsQueue)

	// Local mode reads one SQS event from stdin:
	//   echo '{"Records":[{"messageId":"1","body":"{...}"}]}' | go run ./cmd/session-worker
	if cfg.IsLocal() {
		return runLocal(ctx, handler, os.Stdin, logger)
	}

	lambda.Start(handler.Handle)
	return nil
}

func runLocal(ctx context.Context, handler *Handler, in io.Reader, logger *slog.Logger) error {
	payload, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	var sqsEvent events.SQSEvent
	if err := json.Unmarshal(payload, &sqsEvent); err != nil {
		return fmt.Errorf("parsing stdin as SQS event: %w", err)
	}
	response, err := handler.Handle(ctx, sqsEvent)
	if err != nil {
		return err
	}
	logger.Info("local run completed",
		"records", len(sqsEvent.Records),
		"failures", len(response.BatchItemFailures),
	)
	return nil
}
