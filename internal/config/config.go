// Package config defines the process configuration for the MyoMesh
// notification services. Configuration is loaded once during Lambda cold start
// and is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
package config

import (
	"time"

	"myomesh/internal/types"
)

// SecretString is an alias for types.SecretString.
type SecretString = types.SecretString

// Config is the top-level configuration struct shared by every entrypoint.
// Sub-components receive only the subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"myomesh-notifications"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	IsTestMode  bool   `envconfig:"IS_TEST_MODE" default:"false"`

	Server        ServerConfig
	Database      DatabaseConfig
	AWS           AWSConfig
	Email         EmailConfig
	Digest        DigestConfig
	Auth          AuthConfig
	Observability ObservabilityConfig

	// Injected via ldflags, not Env.
	Build BuildInfo
}

// IsLocal reports whether the process runs outside AWS.
func (c *Config) IsLocal() bool {
	return c.Environment == localEnv
}

// ServerConfig holds HTTP server configuration for the API entrypoint.
type ServerConfig struct {
	Port               string        `envconfig:"PORT" default:"8080"`
	CorsAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	RequestTimeout     time.Duration `envconfig:"API_REQUEST_TIMEOUT" default:"25s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"5"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// SessionEventsQueue is the SQS queue feeding the session worker. Only the
	// outbox relay publishes to it.
	SessionEventsQueue string `envconfig:"SQS_SESSION_EVENTS" validate:"omitempty,url"`

	// LocalStack support (empty in prod).
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// EmailConfig selects and tunes the outbound email provider.
type EmailConfig struct {
	Provider        string `envconfig:"EMAIL_PROVIDER" default:"postmark" validate:"oneof=postmark ses stub"`
	PostmarkBaseURL string `envconfig:"POSTMARK_BASE_URL" default:"https://api.postmarkapp.com" validate:"url"`
	MessageStream   string `envconfig:"POSTMARK_MESSAGE_STREAM" default:"outbound"`

	// BatchSize is capped by the provider's batch endpoint limit.
	BatchSize   int           `envconfig:"EMAIL_BATCH_SIZE" default:"500" validate:"min=1,max=500"`
	HTTPTimeout time.Duration `envconfig:"EMAIL_HTTP_TIMEOUT" default:"10s"`
	// MaxRetries applies to 429/5xx responses. Zero leaves redelivery to the
	// invoking host.
	MaxRetries int `envconfig:"EMAIL_MAX_RETRIES" default:"0" validate:"min=0,max=5"`

	SESConfigurationSet string `envconfig:"SES_CONFIGURATION_SET"`

	// DefaultBusinessName is shown when an organization has no name.
	DefaultBusinessName string `envconfig:"DEFAULT_BUSINESS_NAME" default:"Your Practice"`
}

// DigestConfig controls the daily schedule digest and the outbox relay.
type DigestConfig struct {
	SendTime        string `envconfig:"DIGEST_SEND_TIME" default:"18:00"`
	Timezone        string `envconfig:"DIGEST_TIMEZONE" default:"America/Toronto" validate:"timezone"`
	RelayBatchLimit int    `envconfig:"OUTBOX_RELAY_LIMIT" default:"100" validate:"min=1,max=1000"`
}

// Location resolves the digest timezone. Validation guarantees the name loads.
func (d DigestConfig) Location() (*time.Location, error) {
	return time.LoadLocation(d.Timezone)
}

// AuthConfig holds bearer token verification settings for the API.
type AuthConfig struct {
	JWTSecret SecretString `envconfig:"JWT_SIGNING_SECRET" validate:"omitempty,min=32"`
	Issuer    string       `envconfig:"JWT_ISSUER" default:"myomesh"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"MyoMesh"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"true"`
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	ErrMissingEnv    ConfigErrorType = "MISSING_ENV"
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	ErrValidation    ConfigErrorType = "VALIDATION_FAILED"
	ErrParsing       ConfigErrorType = "PARSING_FAILED"
)
