package db

import (
	"context"

	"myomesh/internal/types"
)

// ClientRepository reads clients and their notes.
type ClientRepository struct {
	db DBTX
}

// NewClientRepository creates a ClientRepository.
func NewClientRepository(db DBTX) *ClientRepository {
	return &ClientRepository{db: db}
}

// GetByID returns a client scoped to orgID, or not_found_client.
// A NULL body_chart means the client has none.
func (r *ClientRepository) GetByID(ctx context.Context, orgID, clientID string) (*types.Client, error) {
	var c types.Client
	err := r.db.QueryRow(ctx,
		`SELECT id, organization_id, COALESCE(name, ''), COALESCE(email, ''),
		        COALESCE(current_concerns, '{}'), body_chart IS NOT NULL
		 FROM clients
		 WHERE organization_id = $1 AND id = $2`,
		orgID, clientID,
	).Scan(&c.ID, &c.OrganizationID, &c.Name, &c.Email, &c.CurrentConcerns, &c.HasBodyChart)
	if err != nil {
		return nil, scanErr(err, types.ErrCodeNotFoundClient, "client")
	}
	return &c, nil
}

// ListRecentNotes returns up to limit notes for the client, newest first.
func (r *ClientRepository) ListRecentNotes(ctx context.Context, orgID, clientID string, limit int) ([]types.Note, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, client_id, COALESCE(content, ''), created_at
		 FROM client_notes
		 WHERE organization_id = $1 AND client_id = $2
		 ORDER BY created_at DESC
		 LIMIT $3`,
		orgID, clientID, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list client notes", err)
	}
	defer rows.Close()

	notes := make([]types.Note, 0, limit)
	for rows.Next() {
		var n types.Note
		if err := rows.Scan(&n.ID, &n.ClientID, &n.Content, &n.CreatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan client note", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating client notes", err)
	}
	return notes, nil
}
