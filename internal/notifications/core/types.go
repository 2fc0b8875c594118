// Package core decides who is notified about a session change and with what
// content, and drives rendering and dispatch for the session triggers and the
// test-send API.
package core

import (
	"context"

	"myomesh/internal/types"
)

// Store is the read-only record accessor used by the decision logic. Each
// lookup reports absence through its bool result; a non-nil error means the
// store itself failed.
type Store interface {
	GetSettings(ctx context.Context, orgID string) (types.EmailSettings, bool, error)
	GetOrganization(ctx context.Context, orgID string) (types.Organization, bool, error)
	GetClient(ctx context.Context, orgID, clientID string) (types.Client, bool, error)
	GetStaffByName(ctx context.Context, orgID, name string) (types.Staff, bool, error)
}

// UserStore resolves authenticated callers.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (types.User, bool, error)
}

// Renderer turns a decided request into a rendered message.
type Renderer interface {
	Render(req types.MessageRequest) (types.OutboundMessage, error)
}

// Dispatcher sends rendered messages with an organization's credential.
type Dispatcher interface {
	Send(ctx context.Context, token types.SecretString, from types.Sender, msg types.OutboundMessage) (types.Receipt, error)
	SendBatch(ctx context.Context, token types.SecretString, from types.Sender, msgs []types.OutboundMessage) ([]types.Receipt, error)
	VerifyCredential(ctx context.Context, token types.SecretString) (types.CredentialStatus, error)
}

// NotificationMetrics records dispatch outcomes per notification kind.
type NotificationMetrics interface {
	RecordSent(ctx context.Context, kind types.NotificationKind, count int)
	RecordFailed(ctx context.Context, kind types.NotificationKind, count int)
}

// NoopMetrics discards all metrics.
type NoopMetrics struct{}

func (NoopMetrics) RecordSent(context.Context, types.NotificationKind, int)   {}
func (NoopMetrics) RecordFailed(context.Context, types.NotificationKind, int) {}

var _ NotificationMetrics = NoopMetrics{}
