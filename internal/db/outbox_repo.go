package db

import (
	"context"
	"encoding/json"
	"time"

	"myomesh/internal/types"
)

// SessionEventRepository is the transactional outbox of session transitions.
// The scheduling app inserts rows; the relay publishes and marks them.
type SessionEventRepository struct {
	db DBTX
}

// NewSessionEventRepository creates a SessionEventRepository.
func NewSessionEventRepository(db DBTX) *SessionEventRepository {
	return &SessionEventRepository{db: db}
}

// ListPending returns up to limit unpublished events, oldest first.
func (r *SessionEventRepository) ListPending(ctx context.Context, limit int) ([]types.SessionEvent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, organization_id, session_id, kind, before, after, created_at
		 FROM session_events
		 WHERE published_at IS NULL
		 ORDER BY created_at ASC, id ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list pending session events", err)
	}
	defer rows.Close()

	var events []types.SessionEvent
	for rows.Next() {
		var (
			evt           types.SessionEvent
			before, after []byte
		)
		if err := rows.Scan(&evt.EventID, &evt.OrganizationID, &evt.SessionID, &evt.Kind, &before, &after, &evt.OccurredAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan session event", err)
		}
		if evt.Before, err = decodeSnapshot(before); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "corrupt before snapshot", err)
		}
		if evt.After, err = decodeSnapshot(after); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "corrupt after snapshot", err)
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating session events", err)
	}
	return events, nil
}

// MarkPublished stamps an event as relayed.
func (r *SessionEventRepository) MarkPublished(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE session_events SET published_at = $2 WHERE id = $1 AND published_at IS NULL`,
		id, at,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark session event published", err)
	}
	return nil
}

func decodeSnapshot(raw []byte) (*types.Session, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var s types.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
