package types

// Telemetry metric names for CloudWatch.
const (
	MetricEmailsSent          = "EmailsSent"
	MetricEmailDeliveryFailed = "EmailDeliveryFailed"
	MetricDigestsSent         = "DigestsSent"
	MetricEventsRelayed       = "SessionEventsRelayed"

	DimKind = "Kind"

	// MetricNamespace is the default namespace; config may override it.
	MetricNamespace = "MyoMesh"
)
