package external

import (
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"

	"myomesh/internal/config"
	"myomesh/internal/types"
)

// ClientRegistry holds the process-scoped email plumbing: the token-keyed
// provider cache and the Dispatcher built on it. Entrypoints build it once at
// cold start.
type ClientRegistry struct {
	Provider   types.EmailProvider
	Cache      *ClientCache
	Dispatcher *Dispatcher
}

// RegistryOption injects dependencies that config alone cannot provide.
type RegistryOption func(*registryConfig)

type registryConfig struct {
	awsCfg     *aws.Config
	sesAPI     SESAPI
	httpClient *http.Client
}

// WithAWSConfig provides the AWS config used by the SES provider.
func WithAWSConfig(cfg aws.Config) RegistryOption {
	return func(rc *registryConfig) { rc.awsCfg = &cfg }
}

// WithSESAPI overrides the SES API client.
func WithSESAPI(api SESAPI) RegistryOption {
	return func(rc *registryConfig) { rc.sesAPI = api }
}

// WithHTTPClient overrides the HTTP client used for Postmark.
func WithHTTPClient(c *http.Client) RegistryOption {
	return func(rc *registryConfig) { rc.httpClient = c }
}

// NewClientRegistry selects the provider factory from configuration. Stubs
// are used when IsTestMode is set, APP_ENV is local, or EMAIL_PROVIDER=stub.
func NewClientRegistry(cfg *config.Config, logger *slog.Logger, opts ...RegistryOption) (*ClientRegistry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rc := &registryConfig{}
	for _, opt := range opts {
		opt(rc)
	}

	factory, provider, err := selectFactory(cfg, logger, rc)
	if err != nil {
		return nil, err
	}
	logger.Info("initializing email provider",
		"provider", provider,
		"is_test_mode", cfg.IsTestMode,
		"environment", cfg.Environment,
	)

	cache := NewClientCache(factory)
	return &ClientRegistry{
		Provider:   provider,
		Cache:      cache,
		Dispatcher: NewDispatcher(cache, cfg.Email.BatchSize, logger.With("component", "dispatcher")),
	}, nil
}

func selectFactory(cfg *config.Config, logger *slog.Logger, rc *registryConfig) (ProviderFactory, types.EmailProvider, error) {
	useStubs := cfg.IsTestMode || cfg.IsLocal() || cfg.Email.Provider == string(types.ProviderStub)
	if useStubs {
		stub := NewStubEmailProvider(logger.With("mode", "stub"))
		return func(string) (EmailProvider, error) { return stub, nil }, types.ProviderStub, nil
	}

	switch types.EmailProvider(cfg.Email.Provider) {
	case types.ProviderSES:
		sesCfg := SESClientConfig{
			ConfigSetName: cfg.Email.SESConfigurationSet,
			Logger:        logger.With("client", "ses"),
		}
		var ses *SESClient
		switch {
		case rc.sesAPI != nil:
			ses = NewSESClientWithAPI(rc.sesAPI, sesCfg)
		case rc.awsCfg != nil:
			ses = NewSESClient(*rc.awsCfg, sesCfg)
		default:
			return nil, "", types.NewAppError(types.ErrCodeInternalUnexpected, "SES provider requires an AWS config", nil)
		}
		return func(string) (EmailProvider, error) { return ses, nil }, types.ProviderSES, nil

	default:
		httpClient := rc.httpClient
		if httpClient == nil {
			httpClient = &http.Client{Timeout: cfg.Email.HTTPTimeout}
		}
		policy := NoRetryPolicy()
		policy.MaxRetries = cfg.Email.MaxRetries
		pmLogger := logger.With("client", "postmark")
		return func(token string) (EmailProvider, error) {
			return NewPostmarkClient(httpClient, policy, PostmarkClientConfig{
				ServerToken:   token,
				BaseURL:       cfg.Email.PostmarkBaseURL,
				MessageStream: cfg.Email.MessageStream,
				Logger:        pmLogger,
			}), nil
		}, types.ProviderPostmark, nil
	}
}
