package db

import (
	"context"

	"myomesh/internal/types"
)

// UserRepository reads the users table. Staff are users looked up by full name.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a UserRepository.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID returns a user by id regardless of organization, or not_found_user.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*types.User, error) {
	var u types.User
	err := r.db.QueryRow(ctx,
		`SELECT id, COALESCE(organization_id, ''), COALESCE(full_name, ''), COALESCE(email, ''), COALESCE(role, '')
		 FROM users
		 WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.OrganizationID, &u.FullName, &u.Email, &u.Role)
	if err != nil {
		return nil, scanErr(err, types.ErrCodeNotFoundUser, "user")
	}
	return &u, nil
}

// GetStaffByName returns the first user in orgID whose full_name matches
// exactly. Duplicate names are not disambiguated; the oldest record wins.
func (r *UserRepository) GetStaffByName(ctx context.Context, orgID, fullName string) (*types.Staff, error) {
	var s types.Staff
	err := r.db.QueryRow(ctx,
		`SELECT id, organization_id, full_name, COALESCE(email, '')
		 FROM users
		 WHERE organization_id = $1 AND full_name = $2
		 ORDER BY created_at ASC, id ASC
		 LIMIT 1`,
		orgID, fullName,
	).Scan(&s.ID, &s.OrganizationID, &s.FullName, &s.Email)
	if err != nil {
		return nil, scanErr(err, types.ErrCodeNotFoundStaff, "staff")
	}
	return &s, nil
}
