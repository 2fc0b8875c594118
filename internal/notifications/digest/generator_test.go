package digest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"myomesh/internal/types"
)

const testOrg = "org-1"

type fakeStore struct {
	settings     *types.EmailSettings
	org          *types.Organization
	sessions     []types.Session
	clients      map[string]types.Client
	staff        map[string]types.Staff
	notes        map[string][]types.Note
	err          error
	noteLimits   []int
	staffLookups []string
}

func (f *fakeStore) GetSettings(_ context.Context, _ string) (types.EmailSettings, bool, error) {
	if f.settings == nil {
		return types.EmailSettings{}, false, nil
	}
	return *f.settings, true, nil
}

func (f *fakeStore) GetOrganization(_ context.Context, _ string) (types.Organization, bool, error) {
	if f.org == nil {
		return types.Organization{}, false, nil
	}
	return *f.org, true, nil
}

func (f *fakeStore) GetClient(_ context.Context, _, id string) (types.Client, bool, error) {
	c, ok := f.clients[id]
	return c, ok, nil
}

func (f *fakeStore) GetStaffByName(_ context.Context, _, name string) (types.Staff, bool, error) {
	f.staffLookups = append(f.staffLookups, name)
	s, ok := f.staff[name]
	return s, ok, nil
}

func (f *fakeStore) GetRecentNotes(_ context.Context, _, clientID string, limit int) ([]types.Note, error) {
	f.noteLimits = append(f.noteLimits, limit)
	if f.err != nil {
		return nil, f.err
	}
	return f.notes[clientID], nil
}

func (f *fakeStore) GetSessionsOnDate(_ context.Context, _, _ string) ([]types.Session, error) {
	return f.sessions, nil
}

func newFakeStore() *fakeStore {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return &fakeStore{
		settings: &types.EmailSettings{
			OrganizationID:       testOrg,
			NotificationsEnabled: true,
			SendDaySummaries:     true,
			ProviderToken:        "pm-token",
			FromEmail:            "front@studio.test",
		},
		org: &types.Organization{ID: testOrg, Name: "Harbor Massage"},
		sessions: []types.Session{
			{ID: "s1", Time: "09:00", TeacherName: "Jane Doe", Clients: []string{"c1"}},
			{ID: "s2", Time: "10:00", Clients: []string{"c2"}},
			{ID: "s3", Time: "11:00", TeacherName: "John Roe", Clients: []string{"c1", "ghost"}},
			{ID: "s4", Time: "13:00", TeacherName: "Jane Doe"},
		},
		clients: map[string]types.Client{
			"c1": {ID: "c1", Name: "Ann", CurrentConcerns: []string{"neck", "shoulder"}, HasBodyChart: true},
			"c2": {ID: "c2", Name: "Bo"},
		},
		staff: map[string]types.Staff{
			"Jane Doe": {FullName: "Jane Doe", Email: "j@x.com"},
			"John Roe": {FullName: "John Roe", Email: "r@x.com"},
		},
		notes: map[string][]types.Note{
			"c1": {
				{ID: "n3", Content: "newest", CreatedAt: at.Add(2 * time.Hour)},
				{ID: "n2", Content: "middle", CreatedAt: at.Add(time.Hour)},
				{ID: "n1", Content: "oldest", CreatedAt: at},
			},
		},
	}
}

func newTestGenerator(store Store) *Generator {
	return NewGenerator(store, "Your Practice", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGroupByStaff_PreservesOrder(t *testing.T) {
	groups := GroupByStaff(newFakeStore().sessions)

	wantKeys := []string{"Jane Doe", types.UnassignedStaff, "John Roe"}
	if got := groups.Keys(); !reflect.DeepEqual(got, wantKeys) {
		t.Fatalf("Keys() = %v, want %v", got, wantKeys)
	}
	jane := groups.Sessions("Jane Doe")
	if len(jane) != 2 || jane[0].ID != "s1" || jane[1].ID != "s4" {
		t.Errorf("Jane Doe sessions = %+v, want s1 then s4", jane)
	}
	if groups.Len() != 3 {
		t.Errorf("Len() = %d, want 3", groups.Len())
	}
	if got := groups.Sessions("Nobody"); got != nil {
		t.Errorf("Sessions(unknown) = %v, want nil", got)
	}
}

func TestGroupByStaff_Empty(t *testing.T) {
	groups := GroupByStaff(nil)
	if groups.Len() != 0 || len(groups.Keys()) != 0 {
		t.Errorf("expected no groups, got %v", groups.Keys())
	}
}

func TestBuildDailyDigest_OneRequestPerResolvableStaff(t *testing.T) {
	store := newFakeStore()
	gen := newTestGenerator(store)

	result, err := gen.BuildDailyDigest(context.Background(), testOrg, "2024-03-11")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("expected a result")
	}
	if result.Settings.ProviderToken != "pm-token" {
		t.Errorf("settings not carried through")
	}

	if len(result.Requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(result.Requests))
	}
	jane, john := result.Requests[0], result.Requests[1]
	if jane.RecipientEmail != "j@x.com" || john.RecipientEmail != "r@x.com" {
		t.Errorf("recipients = %s, %s", jane.RecipientEmail, john.RecipientEmail)
	}
	if jane.Kind != types.KindDailyDigest || jane.DigestDate != "2024-03-11" {
		t.Errorf("unexpected request header %+v", jane)
	}
	if jane.RecipientName != "Jane Doe" || jane.BusinessName != "Harbor Massage" {
		t.Errorf("RecipientName = %q, BusinessName = %q", jane.RecipientName, jane.BusinessName)
	}
	if len(jane.DigestSessions) != 2 || jane.DigestSessions[0].ID != "s1" || jane.DigestSessions[1].ID != "s4" {
		t.Errorf("Jane Doe digest sessions out of order: %+v", jane.DigestSessions)
	}

	wantLookups := []string{"Jane Doe", types.UnassignedStaff, "John Roe"}
	if !reflect.DeepEqual(store.staffLookups, wantLookups) {
		t.Errorf("staff lookups = %v, want %v", store.staffLookups, wantLookups)
	}
}

func TestBuildDailyDigest_ClientHistories(t *testing.T) {
	store := newFakeStore()
	result, err := newTestGenerator(store).BuildDailyDigest(context.Background(), testOrg, "2024-03-11")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	john := result.Requests[1]
	histories := john.DigestSessions[0].ClientHistories
	if len(histories) != 2 {
		t.Fatalf("histories = %d, want 2", len(histories))
	}
	ann := histories[0]
	if ann.Name != "Ann" || !ann.HasBodyChart {
		t.Errorf("Ann history = %+v", ann)
	}
	if !reflect.DeepEqual(ann.CurrentConcerns, []string{"neck", "shoulder"}) {
		t.Errorf("concerns = %v", ann.CurrentConcerns)
	}
	if len(ann.RecentNotes) != 3 || ann.RecentNotes[0].Content != "newest" {
		t.Errorf("notes should be newest first, got %+v", ann.RecentNotes)
	}
	ghost := histories[1]
	if ghost.ClientID != "ghost" || ghost.Name != "" || len(ghost.RecentNotes) != 0 {
		t.Errorf("missing client should yield an empty history, got %+v", ghost)
	}

	// Session without clients carries no histories.
	if got := result.Requests[0].DigestSessions[1].ClientHistories; len(got) != 0 {
		t.Errorf("s4 histories = %+v, want none", got)
	}
	for _, limit := range store.noteLimits {
		if limit != recentNotesLimit {
			t.Errorf("notes requested with limit %d, want %d", limit, recentNotesLimit)
		}
	}
}

func TestBuildDailyDigest_TruncatesExcessNotes(t *testing.T) {
	store := newFakeStore()
	store.notes["c1"] = append(store.notes["c1"], types.Note{ID: "n0", Content: "extra"})

	result, err := newTestGenerator(store).BuildDailyDigest(context.Background(), testOrg, "2024-03-11")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(result.Requests[0].DigestSessions[0].ClientHistories[0].RecentNotes); got != recentNotesLimit {
		t.Errorf("notes = %d, want %d", got, recentNotesLimit)
	}
}

func TestBuildDailyDigest_NothingToSend(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*fakeStore)
	}{
		{"settings absent", func(f *fakeStore) { f.settings = nil }},
		{"notifications disabled", func(f *fakeStore) { f.settings.NotificationsEnabled = false }},
		{"day summaries off", func(f *fakeStore) { f.settings.SendDaySummaries = false }},
		{"no sessions", func(f *fakeStore) { f.sessions = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			tt.mutate(store)
			result, err := newTestGenerator(store).BuildDailyDigest(context.Background(), testOrg, "2024-03-11")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != nil {
				t.Errorf("expected nil result, got %+v", result)
			}
			if len(store.staffLookups) != 0 {
				t.Errorf("expected no staff lookups, got %v", store.staffLookups)
			}
		})
	}
}

func TestBuildDailyDigest_NoResolvableStaff(t *testing.T) {
	store := newFakeStore()
	store.staff = map[string]types.Staff{"Jane Doe": {FullName: "Jane Doe"}}

	result, err := newTestGenerator(store).BuildDailyDigest(context.Background(), testOrg, "2024-03-11")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || len(result.Requests) != 0 {
		t.Errorf("expected an empty result, got %+v", result)
	}
}

func TestBuildDailyDigest_DefaultBusinessName(t *testing.T) {
	store := newFakeStore()
	store.org = nil

	result, err := newTestGenerator(store).BuildDailyDigest(context.Background(), testOrg, "2024-03-11")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result.Requests[0].BusinessName; got != "Your Practice" {
		t.Errorf("BusinessName = %q, want Your Practice", got)
	}
}

func TestBuildDailyDigest_StoreErrorPropagates(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection reset")

	_, err := newTestGenerator(store).BuildDailyDigest(context.Background(), testOrg, "2024-03-11")
	if !errors.Is(err, store.err) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
