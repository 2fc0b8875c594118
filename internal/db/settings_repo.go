package db

import (
	"context"

	"myomesh/internal/types"
)

// EmailSettingsRepository reads the per-organization email_settings row.
type EmailSettingsRepository struct {
	db DBTX
}

// NewEmailSettingsRepository creates an EmailSettingsRepository.
func NewEmailSettingsRepository(db DBTX) *EmailSettingsRepository {
	return &EmailSettingsRepository{db: db}
}

// Get returns the organization's settings or not_found_email_settings.
func (r *EmailSettingsRepository) Get(ctx context.Context, orgID string) (*types.EmailSettings, error) {
	var s types.EmailSettings
	var token string
	err := r.db.QueryRow(ctx,
		`SELECT organization_id, notifications_enabled, send_client_confirmations,
		        send_staff_notifications, send_day_summaries,
		        COALESCE(provider_token, ''), COALESCE(from_email, ''), COALESCE(from_name, '')
		 FROM email_settings
		 WHERE organization_id = $1`,
		orgID,
	).Scan(
		&s.OrganizationID,
		&s.NotificationsEnabled,
		&s.SendClientConfirmations,
		&s.SendStaffNotifications,
		&s.SendDaySummaries,
		&token,
		&s.FromEmail,
		&s.FromName,
	)
	if err != nil {
		return nil, scanErr(err, types.ErrCodeNotFoundSettings, "email settings")
	}
	s.ProviderToken = types.SecretString(token)
	return &s, nil
}
