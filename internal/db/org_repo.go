package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"myomesh/internal/types"
)

// OrganizationRepository reads the organizations table.
type OrganizationRepository struct {
	db DBTX
}

// NewOrganizationRepository creates an OrganizationRepository.
func NewOrganizationRepository(db DBTX) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

const orgColumns = `o.id, COALESCE(o.name, ''), o.created_at`

func scanOrg(row pgx.Row) (*types.Organization, error) {
	var org types.Organization
	if err := row.Scan(&org.ID, &org.Name, &org.CreatedAt); err != nil {
		return nil, err
	}
	return &org, nil
}

// GetByID returns the organization or a not_found_organization error.
func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*types.Organization, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+orgColumns+`
		 FROM organizations o
		 WHERE o.id = $1`,
		id,
	)
	org, err := scanOrg(row)
	if err != nil {
		return nil, scanErr(err, types.ErrCodeNotFoundOrg, "organization")
	}
	return org, nil
}

// ListIDs returns every organization id in creation order. The daily digest
// walks this list sequentially.
func (r *OrganizationRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM organizations ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list organizations", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan organization id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating organizations", err)
	}
	return ids, nil
}
