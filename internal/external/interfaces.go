package external

import (
	"context"

	"myomesh/internal/types"
)

// EmailProvider is a provider client bound to one credential.
type EmailProvider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Send transmits one message.
	Send(ctx context.Context, from types.Sender, msg types.OutboundMessage) (types.Receipt, error)

	// SendBatch transmits up to MaxBatch messages in one call. Per-message
	// rejections are reported in the receipts; an error means the call failed.
	SendBatch(ctx context.Context, from types.Sender, msgs []types.OutboundMessage) ([]types.Receipt, error)

	// VerifyCredential checks that the bound credential is usable.
	VerifyCredential(ctx context.Context) (types.CredentialStatus, error)
}

// ProviderFactory builds the EmailProvider for a credential token.
// Construction must be pure so results can be memoized.
type ProviderFactory func(token string) (EmailProvider, error)
