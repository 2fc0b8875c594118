package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStore_LookupMissIsAbsent(t *testing.T) {
	db := new(mockDBTX)
	store := NewStore(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"org_1", "c_gone"}).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	c, ok, err := store.GetClient(ctx, "org_1", "c_gone")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, c.ID)
}

func TestStore_InfrastructureErrorPropagates(t *testing.T) {
	db := new(mockDBTX)
	store := NewStore(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"org_1"}).
		Return(&mockRow{scanErr: errors.New("too many connections")})

	_, ok, err := store.GetSettings(ctx, "org_1")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestStore_LookupHit(t *testing.T) {
	db := new(mockDBTX)
	store := NewStore(db)
	ctx := context.Background()

	row := &mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*string) = "u9"
		*dest[1].(*string) = "org_1"
		*dest[2].(*string) = "Jane Doe"
		*dest[3].(*string) = "j@x.com"
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"org_1", "Jane Doe"}).Return(row)

	staff, ok, err := store.GetStaffByName(ctx, "org_1", "Jane Doe")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "j@x.com", staff.Email)
}
