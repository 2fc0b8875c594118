package db

import (
	"context"

	"myomesh/internal/types"
)

// Store is the read-side record accessor used by the notification decision
// logic. Every lookup reports absence explicitly through its bool result;
// only infrastructure failures are returned as errors.
type Store struct {
	orgs     *OrganizationRepository
	settings *EmailSettingsRepository
	clients  *ClientRepository
	users    *UserRepository
	sessions *SessionRepository
}

// NewStore wires the repositories over one connection.
func NewStore(db DBTX) *Store {
	return &Store{
		orgs:     NewOrganizationRepository(db),
		settings: NewEmailSettingsRepository(db),
		clients:  NewClientRepository(db),
		users:    NewUserRepository(db),
		sessions: NewSessionRepository(db),
	}
}

// absent converts a not-found error into (zero, false, nil).
func absent[T any](v *T, err error) (T, bool, error) {
	var zero T
	if err != nil {
		if IsNotFound(err) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return *v, true, nil
}

func (s *Store) GetSettings(ctx context.Context, orgID string) (types.EmailSettings, bool, error) {
	return absent(s.settings.Get(ctx, orgID))
}

func (s *Store) GetOrganization(ctx context.Context, orgID string) (types.Organization, bool, error) {
	return absent(s.orgs.GetByID(ctx, orgID))
}

func (s *Store) GetClient(ctx context.Context, orgID, clientID string) (types.Client, bool, error) {
	return absent(s.clients.GetByID(ctx, orgID, clientID))
}

func (s *Store) GetStaffByName(ctx context.Context, orgID, name string) (types.Staff, bool, error) {
	return absent(s.users.GetStaffByName(ctx, orgID, name))
}

func (s *Store) GetUser(ctx context.Context, userID string) (types.User, bool, error) {
	return absent(s.users.GetByID(ctx, userID))
}

func (s *Store) GetRecentNotes(ctx context.Context, orgID, clientID string, limit int) ([]types.Note, error) {
	return s.clients.ListRecentNotes(ctx, orgID, clientID, limit)
}

func (s *Store) GetSessionsOnDate(ctx context.Context, orgID, date string) ([]types.Session, error) {
	return s.sessions.ListByDate(ctx, orgID, date)
}

func (s *Store) ListOrganizationIDs(ctx context.Context) ([]string, error) {
	return s.orgs.ListIDs(ctx)
}
