package core

import (
	"context"
	"fmt"
	"log/slog"

	"myomesh/internal/notifications/email"
	"myomesh/internal/types"
)

// TestEmailSuccessMessage is returned to the caller after a test send.
const TestEmailSuccessMessage = "Test email sent successfully"

// EmailAdmin serves the owner/admin operations on an organization's email
// configuration: sending a test message and verifying the provider token.
type EmailAdmin struct {
	store      Store
	users      UserStore
	decider    *Decider
	renderer   Renderer
	dispatcher Dispatcher
	metrics    NotificationMetrics
	logger     *slog.Logger
}

// NewEmailAdmin creates an EmailAdmin.
func NewEmailAdmin(store Store, users UserStore, decider *Decider, renderer Renderer, dispatcher Dispatcher, metrics NotificationMetrics, logger *slog.Logger) *EmailAdmin {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailAdmin{
		store:      store,
		users:      users,
		decider:    decider,
		renderer:   renderer,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}
}

// Authorize checks that userID belongs to orgID with an owner or admin role.
func (a *EmailAdmin) Authorize(ctx context.Context, userID, orgID string) error {
	user, ok, err := a.users.GetUser(ctx, userID)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to load user", err)
	}
	if !ok || user.OrganizationID != orgID {
		return types.NewAppError(types.ErrCodePermissionOrgMismatch, "Not authorized", nil)
	}
	if !user.Role.CanManageEmail() {
		return types.NewAppError(types.ErrCodePermissionRole, "Not authorized", nil)
	}
	return nil
}

// settingsWithToken loads settings and requires a provider token.
func (a *EmailAdmin) settingsWithToken(ctx context.Context, orgID string) (types.EmailSettings, error) {
	settings, ok, err := a.store.GetSettings(ctx, orgID)
	if err != nil {
		return types.EmailSettings{}, types.NewAppError(types.ErrCodeInternalDB, "failed to load email settings", err)
	}
	if !ok || settings.ProviderToken.Empty() {
		return types.EmailSettings{}, types.NewAppError(types.ErrCodePreconditionEmailSettings, "Email settings not configured", nil)
	}
	return settings, nil
}

// SendTestEmail sends the configuration test message to recipient on behalf
// of userID. The notifications-enabled flag is not consulted.
func (a *EmailAdmin) SendTestEmail(ctx context.Context, userID, orgID, recipient string) (string, error) {
	if err := a.Authorize(ctx, userID, orgID); err != nil {
		return "", err
	}
	settings, err := a.settingsWithToken(ctx, orgID)
	if err != nil {
		return "", err
	}

	var orgPtr *types.Organization
	org, ok, err := a.store.GetOrganization(ctx, orgID)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalDB, "failed to load organization", err)
	}
	if ok {
		orgPtr = &org
	}

	msg, err := a.renderer.Render(a.decider.BuildTestMessage(orgPtr, recipient))
	if err != nil {
		return "", err
	}
	if _, err := a.dispatcher.Send(ctx, settings.ProviderToken, settings.Sender(), msg); err != nil {
		a.metrics.RecordFailed(ctx, types.KindTest, 1)
		a.logger.ErrorContext(ctx, "test email failed",
			"organization_id", orgID,
			"to", email.RedactEmail(recipient),
			"error", err,
		)
		return "", fmt.Errorf("send test email: %w", err)
	}
	a.metrics.RecordSent(ctx, types.KindTest, 1)
	a.logger.InfoContext(ctx, "test email sent", "organization_id", orgID, "to", email.RedactEmail(recipient))
	return TestEmailSuccessMessage, nil
}

// VerifyCredential checks the organization's provider token.
func (a *EmailAdmin) VerifyCredential(ctx context.Context, userID, orgID string) (types.CredentialStatus, error) {
	if err := a.Authorize(ctx, userID, orgID); err != nil {
		return types.CredentialStatus{}, err
	}
	settings, err := a.settingsWithToken(ctx, orgID)
	if err != nil {
		return types.CredentialStatus{}, err
	}
	return a.dispatcher.VerifyCredential(ctx, settings.ProviderToken)
}
