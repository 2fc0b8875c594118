package external

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"myomesh/internal/notifications/email"
	"myomesh/internal/types"
)

// StubEmailProvider logs messages instead of sending them. It is used when
// IsTestMode is set, APP_ENV=local, or EMAIL_PROVIDER=stub.
type StubEmailProvider struct {
	logger *slog.Logger
	clock  types.Clock
}

// NewStubEmailProvider creates a StubEmailProvider.
func NewStubEmailProvider(logger *slog.Logger) *StubEmailProvider {
	return &StubEmailProvider{logger: logger, clock: types.RealClock{}}
}

func (s *StubEmailProvider) Name() string { return string(types.ProviderStub) }

func (s *StubEmailProvider) Send(ctx context.Context, from types.Sender, msg types.OutboundMessage) (types.Receipt, error) {
	id := "stub-" + uuid.NewString()
	s.logger.InfoContext(ctx, "stub: Send called",
		"from", email.RedactEmail(from.Email),
		"to", email.RedactEmail(msg.To),
		"kind", msg.Kind,
		"subject", msg.Subject,
		"message_id", id,
	)
	return types.Receipt{To: msg.To, MessageID: id, SubmittedAt: s.clock.Now()}, nil
}

func (s *StubEmailProvider) SendBatch(ctx context.Context, from types.Sender, msgs []types.OutboundMessage) ([]types.Receipt, error) {
	receipts := make([]types.Receipt, 0, len(msgs))
	for _, m := range msgs {
		r, _ := s.Send(ctx, from, m)
		receipts = append(receipts, r)
	}
	return receipts, nil
}

func (s *StubEmailProvider) VerifyCredential(ctx context.Context) (types.CredentialStatus, error) {
	s.logger.InfoContext(ctx, "stub: VerifyCredential called")
	return types.CredentialStatus{Valid: true, ServerName: "Stub Server", Color: "blue"}, nil
}

var _ EmailProvider = (*StubEmailProvider)(nil)
