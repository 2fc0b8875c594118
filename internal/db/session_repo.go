package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"myomesh/internal/types"
)

// SessionRepository reads scheduled sessions.
type SessionRepository struct {
	db DBTX
}

// NewSessionRepository creates a SessionRepository.
func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `s.id, s.organization_id, to_char(s.date, 'YYYY-MM-DD'), COALESCE(s.time, ''),
	COALESCE(s.type, ''), COALESCE(s.teacher_name, ''), COALESCE(s.clients, '{}'),
	COALESCE(s.client_names, ''), COALESCE(s.notes, '')`

func scanSession(row pgx.Row) (types.Session, error) {
	var s types.Session
	err := row.Scan(
		&s.ID,
		&s.OrganizationID,
		&s.Date,
		&s.Time,
		&s.Type,
		&s.TeacherName,
		&s.Clients,
		&s.ClientNames,
		&s.Notes,
	)
	return s, err
}

// ListByDate returns the organization's sessions on date (YYYY-MM-DD) ordered
// by time ascending.
func (r *SessionRepository) ListByDate(ctx context.Context, orgID, date string) ([]types.Session, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions s
		 WHERE s.organization_id = $1 AND s.date = $2::date
		 ORDER BY s.time ASC, s.id ASC`,
		orgID, date,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list sessions", err)
	}
	defer rows.Close()

	var sessions []types.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan session", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating sessions", err)
	}
	return sessions, nil
}
