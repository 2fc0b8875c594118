// Package queue provides the SQS producer that hands session change events
// to the session worker.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"myomesh/internal/config"
	"myomesh/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Message attribute names set on every session event.
const (
	AttrKind           = "kind"
	AttrOrganizationID = "organization_id"
)

// SessionEventPublisher serializes SessionEvents onto the session events queue.
//
// On a FIFO queue (URL ending in ".fifo") events are grouped by session so
// the worker sees each session's transitions in order, and deduplicated by
// event id.
type SessionEventPublisher struct {
	client   SQSSender
	queueURL string
	fifo     bool
	now      func() time.Time
	logger   *slog.Logger
}

// NewSessionEventPublisher creates a publisher for awsCfg.SessionEventsQueue.
func NewSessionEventPublisher(client SQSSender, awsCfg config.AWSConfig, logger *slog.Logger) *SessionEventPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionEventPublisher{
		client:   client,
		queueURL: awsCfg.SessionEventsQueue,
		fifo:     strings.HasSuffix(awsCfg.SessionEventsQueue, ".fifo"),
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// Publish validates evt and sends it. Events without an id get a fresh UUID
// and events without a timestamp are stamped with the current time.
func (p *SessionEventPublisher) Publish(ctx context.Context, evt types.SessionEvent) error {
	if err := evt.Validate(); err != nil {
		return err
	}
	if evt.EventID == "" {
		evt.EventID = uuid.New().String()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = p.now()
	}

	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("queue: failed to marshal SessionEvent: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			AttrKind: {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(evt.Kind)),
			},
			AttrOrganizationID: {
				DataType:    aws.String("String"),
				StringValue: aws.String(evt.OrganizationID),
			},
		},
	}
	if p.fifo {
		group := evt.SessionID
		if group == "" {
			group = evt.OrganizationID
		}
		input.MessageGroupId = aws.String(group)
		input.MessageDeduplicationId = aws.String(evt.EventID)
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return types.NewAppError(types.ErrCodeUpstreamQueue,
			fmt.Sprintf("failed to send session event to %s", p.queueURL), err)
	}

	p.logger.InfoContext(ctx, "session event published",
		"event_id", evt.EventID,
		"organization_id", evt.OrganizationID,
		"session_id", evt.SessionID,
		"kind", string(evt.Kind),
	)
	return nil
}
