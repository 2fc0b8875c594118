package external

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"myomesh/internal/types"
)

// SESAPI is the subset of the SES v2 client used by SESClient.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
	GetAccount(ctx context.Context, params *sesv2.GetAccountInput, optFns ...func(*sesv2.Options)) (*sesv2.GetAccountOutput, error)
}

// SESClientConfig holds the configuration for creating an SESClient.
type SESClientConfig struct {
	// ConfigSetName is optional.
	ConfigSetName string
	Logger        *slog.Logger
	Clock         types.Clock
}

// SESClient implements EmailProvider using AWS SES v2. Authentication uses the
// Lambda role, so organization tokens are not consulted.
type SESClient struct {
	api           SESAPI
	configSetName string
	logger        *slog.Logger
	clock         types.Clock
}

// NewSESClient creates an SESClient from an AWS config.
func NewSESClient(awsCfg aws.Config, cfg SESClientConfig) *SESClient {
	return NewSESClientWithAPI(sesv2.NewFromConfig(awsCfg), cfg)
}

// NewSESClientWithAPI creates an SESClient over a pre-configured SESAPI.
func NewSESClientWithAPI(api SESAPI, cfg SESClientConfig) *SESClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	return &SESClient{
		api:           api,
		configSetName: cfg.ConfigSetName,
		logger:        logger,
		clock:         clock,
	}
}

func (s *SESClient) Name() string { return string(types.ProviderSES) }

// Send transmits one message with simple content.
//
// Error mapping:
//   - MessageRejected -> ErrCodeEmailBlocked
//   - TooManyRequestsException -> ErrCodeUpstreamRateLimited
//   - SendingPausedException -> ErrCodeUpstreamUnavailable
//   - Other -> ErrCodeUpstreamEmailProvider
func (s *SESClient) Send(ctx context.Context, from types.Sender, msg types.OutboundMessage) (types.Receipt, error) {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from.Address()),
		Destination: &sestypes.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body:    &sestypes.Body{},
			},
		},
	}
	if msg.HTMLBody != "" {
		input.Content.Simple.Body.Html = &sestypes.Content{Data: aws.String(msg.HTMLBody), Charset: aws.String("UTF-8")}
	}
	if msg.TextBody != "" {
		input.Content.Simple.Body.Text = &sestypes.Content{Data: aws.String(msg.TextBody), Charset: aws.String("UTF-8")}
	}
	if s.configSetName != "" {
		input.ConfigurationSetName = aws.String(s.configSetName)
	}
	if msg.Kind != "" {
		input.EmailTags = []sestypes.MessageTag{{Name: aws.String("Kind"), Value: aws.String(string(msg.Kind))}}
	}

	out, err := s.api.SendEmail(ctx, input)
	if err != nil {
		return types.Receipt{}, mapSESError(err)
	}
	return types.Receipt{
		To:          msg.To,
		MessageID:   aws.ToString(out.MessageId),
		SubmittedAt: s.clock.Now(),
	}, nil
}

// SendBatch sends messages one at a time; SES v2 has no multi-recipient bulk
// call for distinct simple content. A rejected recipient becomes a receipt
// with a non-zero ErrorCode; any other failure aborts the batch.
func (s *SESClient) SendBatch(ctx context.Context, from types.Sender, msgs []types.OutboundMessage) ([]types.Receipt, error) {
	receipts := make([]types.Receipt, 0, len(msgs))
	for _, m := range msgs {
		r, err := s.Send(ctx, from, m)
		if err != nil {
			var appErr *types.AppError
			if errors.As(err, &appErr) && appErr.Code == types.ErrCodeEmailBlocked {
				receipts = append(receipts, types.Receipt{
					To:          m.To,
					SubmittedAt: s.clock.Now(),
					ErrorCode:   postmarkInactiveRecipient,
					Message:     appErr.Message,
				})
				continue
			}
			return receipts, err
		}
		receipts = append(receipts, r)
	}
	return receipts, nil
}

// VerifyCredential reports whether the account may currently send.
func (s *SESClient) VerifyCredential(ctx context.Context) (types.CredentialStatus, error) {
	out, err := s.api.GetAccount(ctx, &sesv2.GetAccountInput{})
	if err != nil {
		return types.CredentialStatus{Valid: false, Detail: mapSESError(err).Error()}, nil
	}
	if !out.SendingEnabled {
		return types.CredentialStatus{Valid: false, Detail: "SES sending is disabled for this account"}, nil
	}
	status := types.CredentialStatus{Valid: true, ServerName: "Amazon SES"}
	if out.ProductionAccessEnabled {
		status.Color = "production"
	} else {
		status.Color = "sandbox"
	}
	return status, nil
}

func mapSESError(err error) error {
	var msgRejected *sestypes.MessageRejected
	if errors.As(err, &msgRejected) {
		return types.NewAppError(types.ErrCodeEmailBlocked, fmt.Sprintf("SES rejected message: %v", err), err)
	}
	var tooMany *sestypes.TooManyRequestsException
	if errors.As(err, &tooMany) {
		return types.NewAppError(types.ErrCodeUpstreamRateLimited, fmt.Sprintf("SES rate limit exceeded: %v", err), err)
	}
	var paused *sestypes.SendingPausedException
	if errors.As(err, &paused) {
		return types.NewAppError(types.ErrCodeUpstreamUnavailable, fmt.Sprintf("SES account sending paused: %v", err), err)
	}
	return types.NewAppError(types.ErrCodeUpstreamEmailProvider, fmt.Sprintf("SES error: %v", err), err)
}

var _ EmailProvider = (*SESClient)(nil)
