package core

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"myomesh/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchNotificationMetrics emits dispatch counts to CloudWatch:
//
//   - EmailsSent: Dims {Kind}
//   - EmailDeliveryFailed: Dims {Kind}
//   - DigestsSent, SessionEventsRelayed: no dimensions (see RecordJob)
//
// Publishing failures are logged and otherwise ignored.
type CloudWatchNotificationMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

var _ NotificationMetrics = (*CloudWatchNotificationMetrics)(nil)

// NewCloudWatchNotificationMetrics creates metrics publishing to namespace,
// or types.MetricNamespace when empty.
func NewCloudWatchNotificationMetrics(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchNotificationMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchNotificationMetrics{client: client, namespace: namespace, logger: logger}
}

// RecordSent emits EmailsSent.
func (m *CloudWatchNotificationMetrics) RecordSent(ctx context.Context, kind types.NotificationKind, count int) {
	m.put(ctx, types.MetricEmailsSent, kind, count)
}

// RecordFailed emits EmailDeliveryFailed.
func (m *CloudWatchNotificationMetrics) RecordFailed(ctx context.Context, kind types.NotificationKind, count int) {
	m.put(ctx, types.MetricEmailDeliveryFailed, kind, count)
}

// RecordJob emits a scheduled-job counter such as types.MetricDigestsSent.
func (m *CloudWatchNotificationMetrics) RecordJob(ctx context.Context, metric string, count int) {
	m.emit(ctx, metric, nil, count)
}

func (m *CloudWatchNotificationMetrics) put(ctx context.Context, name string, kind types.NotificationKind, count int) {
	m.emit(ctx, name, []cwtypes.Dimension{
		{Name: aws.String(types.DimKind), Value: aws.String(string(kind))},
	}, count)
}

func (m *CloudWatchNotificationMetrics) emit(ctx context.Context, name string, dims []cwtypes.Dimension, count int) {
	if count <= 0 {
		return
	}
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(name),
				Value:      aws.Float64(float64(count)),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: dims,
			},
		},
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.ErrorContext(ctx, "failed to record email metric",
			"error", err.Error(),
			"metric", name,
		)
	}
}
