package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"myomesh/internal/types"
)

func requireAppErrCode(t *testing.T, err error, code types.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T", err)
	assert.Equal(t, code, appErr.Code)
}

// ============================================================
// OrganizationRepository
// ============================================================

func TestOrganizationRepository_GetByID_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewOrganizationRepository(db)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	row := &mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*string) = "org_1"
		*dest[1].(*string) = "Healing Hands"
		*dest[2].(*time.Time) = now
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"org_1"}).Return(row)

	org, err := repo.GetByID(ctx, "org_1")
	require.NoError(t, err)
	assert.Equal(t, "Healing Hands", org.Name)
	assert.Equal(t, now, org.CreatedAt)
	db.AssertExpectations(t)
}

func TestOrganizationRepository_GetByID_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewOrganizationRepository(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"org_missing"}).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := repo.GetByID(ctx, "org_missing")
	requireAppErrCode(t, err, types.ErrCodeNotFoundOrg)
	assert.True(t, IsNotFound(err))
}

func TestOrganizationRepository_GetByID_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewOrganizationRepository(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"org_1"}).
		Return(&mockRow{scanErr: errors.New("connection reset")})

	_, err := repo.GetByID(ctx, "org_1")
	requireAppErrCode(t, err, types.ErrCodeInternalDB)
	assert.False(t, IsNotFound(err))
}

func TestOrganizationRepository_ListIDs(t *testing.T) {
	db := new(mockDBTX)
	repo := NewOrganizationRepository(db)
	ctx := context.Background()

	rows := newMockRows([][]any{{"org_a"}, {"org_b"}})
	db.On("Query", ctx, mock.AnythingOfType("string"), []any(nil)).Return(rows, nil)

	ids, err := repo.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"org_a", "org_b"}, ids)
	assert.True(t, rows.closed)
}

func TestOrganizationRepository_ListIDs_QueryError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewOrganizationRepository(db)
	ctx := context.Background()

	db.On("Query", ctx, mock.AnythingOfType("string"), []any(nil)).Return(nil, errors.New("timeout"))

	_, err := repo.ListIDs(ctx)
	requireAppErrCode(t, err, types.ErrCodeInternalDB)
}

// ============================================================
// EmailSettingsRepository
// ============================================================

func TestEmailSettingsRepository_Get_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewEmailSettingsRepository(db)
	ctx := context.Background()

	row := &mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*string) = "org_1"
		*dest[1].(*bool) = true
		*dest[2].(*bool) = true
		*dest[3].(*bool) = false
		*dest[4].(*bool) = true
		*dest[5].(*string) = "pm-token"
		*dest[6].(*string) = "hello@practice.test"
		*dest[7].(*string) = "Healing Hands"
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"org_1"}).Return(row)

	s, err := repo.Get(ctx, "org_1")
	require.NoError(t, err)
	assert.True(t, s.NotificationsEnabled)
	assert.True(t, s.SendClientConfirmations)
	assert.False(t, s.SendStaffNotifications)
	assert.True(t, s.SendDaySummaries)
	assert.Equal(t, "pm-token", s.ProviderToken.Unmask())
	assert.Equal(t, "Healing Hands <hello@practice.test>", s.Sender().Address())
}

func TestEmailSettingsRepository_Get_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewEmailSettingsRepository(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"org_1"}).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := repo.Get(ctx, "org_1")
	requireAppErrCode(t, err, types.ErrCodeNotFoundSettings)
}

// ============================================================
// ClientRepository
// ============================================================

func TestClientRepository_GetByID(t *testing.T) {
	db := new(mockDBTX)
	repo := NewClientRepository(db)
	ctx := context.Background()

	row := &mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*string) = "c1"
		*dest[1].(*string) = "org_1"
		*dest[2].(*string) = "Alex Client"
		*dest[3].(*string) = "a@x.com"
		*dest[4].(*[]string) = []string{"lower back", "neck"}
		*dest[5].(*bool) = true
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"org_1", "c1"}).Return(row)

	c, err := repo.GetByID(ctx, "org_1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", c.Email)
	assert.Equal(t, []string{"lower back", "neck"}, c.CurrentConcerns)
	assert.True(t, c.HasBodyChart)
}

func TestClientRepository_ListRecentNotes(t *testing.T) {
	db := new(mockDBTX)
	repo := NewClientRepository(db)
	ctx := context.Background()
	t1 := time.Date(2024, 3, 8, 10, 0, 0, 0, time.UTC)
	t0 := t1.Add(-24 * time.Hour)

	rows := newMockRows([][]any{
		{"n2", "c1", "newest", t1},
		{"n1", "c1", "older", t0},
	})
	db.On("Query", ctx, mock.AnythingOfType("string"), []any{"org_1", "c1", 3}).Return(rows, nil)

	notes, err := repo.ListRecentNotes(ctx, "org_1", "c1", 3)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "newest", notes[0].Content)
	assert.Equal(t, t0, notes[1].CreatedAt)
}

func TestClientRepository_ListRecentNotes_IterationError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewClientRepository(db)
	ctx := context.Background()

	rows := newMockRows(nil)
	rows.errVal = errors.New("broken pipe")
	db.On("Query", ctx, mock.AnythingOfType("string"), []any{"org_1", "c1", 3}).Return(rows, nil)

	_, err := repo.ListRecentNotes(ctx, "org_1", "c1", 3)
	requireAppErrCode(t, err, types.ErrCodeInternalDB)
}

// ============================================================
// UserRepository
// ============================================================

func TestUserRepository_GetStaffByName(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserRepository(db)
	ctx := context.Background()

	row := &mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*string) = "u1"
		*dest[1].(*string) = "org_1"
		*dest[2].(*string) = "Jane Doe"
		*dest[3].(*string) = "j@x.com"
		return nil
	}}
	db.On("QueryRow", ctx, mock.MatchedBy(func(sql string) bool {
		return assert.Contains(t, sql, "LIMIT 1")
	}), []any{"org_1", "Jane Doe"}).Return(row)

	s, err := repo.GetStaffByName(ctx, "org_1", "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, "j@x.com", s.Email)
}

func TestUserRepository_GetStaffByName_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserRepository(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"org_1", "Nobody"}).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := repo.GetStaffByName(ctx, "org_1", "Nobody")
	requireAppErrCode(t, err, types.ErrCodeNotFoundStaff)
}

func TestUserRepository_GetByID(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserRepository(db)
	ctx := context.Background()

	row := &mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*string) = "u1"
		*dest[1].(*string) = "org_1"
		*dest[2].(*string) = "Owner Person"
		*dest[3].(*string) = "owner@x.com"
		*dest[4].(*types.UserRole) = types.RoleOwner
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"u1"}).Return(row)

	u, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, types.RoleOwner, u.Role)
	assert.Equal(t, "org_1", u.OrganizationID)
}

// ============================================================
// SessionRepository
// ============================================================

func TestSessionRepository_ListByDate(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	rows := newMockRows([][]any{
		{"s1", "org_1", "2024-03-10", "09:00", "Massage", "Jane Doe", []string{"c1"}, "Alex", ""},
		{"s2", "org_1", "2024-03-10", "14:00", "Assessment", "", []string{}, "", "bring forms"},
	})
	db.On("Query", ctx, mock.MatchedBy(func(sql string) bool {
		return assert.Contains(t, sql, "ORDER BY s.time ASC")
	}), []any{"org_1", "2024-03-10"}).Return(rows, nil)

	sessions, err := repo.ListByDate(ctx, "org_1", "2024-03-10")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "09:00", sessions[0].Time)
	assert.Equal(t, []string{"c1"}, sessions[0].Clients)
	assert.Equal(t, "", sessions[1].TeacherName)
	assert.Equal(t, "bring forms", sessions[1].Notes)
}

func TestSessionRepository_ListByDate_ScanError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	rows := newMockRows([][]any{{"s1"}})
	rows.scanErr = errors.New("type mismatch")
	db.On("Query", ctx, mock.AnythingOfType("string"), []any{"org_1", "2024-03-10"}).Return(rows, nil)

	_, err := repo.ListByDate(ctx, "org_1", "2024-03-10")
	requireAppErrCode(t, err, types.ErrCodeInternalDB)
}

// ============================================================
// SessionEventRepository
// ============================================================

func TestSessionEventRepository_ListPending(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSessionEventRepository(db)
	ctx := context.Background()
	at := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

	rows := newMockRows([][]any{
		{"evt_1", "org_1", "s1", "created", nil, []byte(`{"id":"s1","date":"2024-03-10","time":"14:00"}`), at},
		{"evt_2", "org_1", "s1", "deleted", []byte(`{"id":"s1"}`), []byte("null"), at},
	})
	db.On("Query", ctx, mock.AnythingOfType("string"), []any{50}).Return(rows, nil)

	events, err := repo.ListPending(ctx, 50)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, types.SessionCreated, events[0].Kind)
	assert.Nil(t, events[0].Before)
	require.NotNil(t, events[0].After)
	assert.Equal(t, "14:00", events[0].After.Time)

	assert.Equal(t, types.SessionDeleted, events[1].Kind)
	assert.NotNil(t, events[1].Before)
	assert.Nil(t, events[1].After)
}

func TestSessionEventRepository_ListPending_CorruptSnapshot(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSessionEventRepository(db)
	ctx := context.Background()

	rows := newMockRows([][]any{
		{"evt_1", "org_1", "s1", "created", nil, []byte(`{not json`), time.Now()},
	})
	db.On("Query", ctx, mock.AnythingOfType("string"), []any{10}).Return(rows, nil)

	_, err := repo.ListPending(ctx, 10)
	requireAppErrCode(t, err, types.ErrCodeInternalDB)
}

func TestSessionEventRepository_MarkPublished(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSessionEventRepository(db)
	ctx := context.Background()
	at := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

	db.On("Exec", ctx, mock.AnythingOfType("string"), []any{"evt_1", at}).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	require.NoError(t, repo.MarkPublished(ctx, "evt_1", at))
	db.AssertExpectations(t)
}

func TestSessionEventRepository_MarkPublished_Error(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSessionEventRepository(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("deadlock"))

	err := repo.MarkPublished(ctx, "evt_1", time.Now())
	requireAppErrCode(t, err, types.ErrCodeInternalDB)
}
