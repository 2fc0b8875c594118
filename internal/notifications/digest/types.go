// Package digest builds the daily per-staff schedule digest: tomorrow's
// sessions grouped by assigned practitioner and enriched with each client's
// recent history.
package digest

import (
	"context"

	"myomesh/internal/types"
)

// Store is the read surface the digest needs from the record store.
type Store interface {
	GetSettings(ctx context.Context, orgID string) (types.EmailSettings, bool, error)
	GetOrganization(ctx context.Context, orgID string) (types.Organization, bool, error)
	GetClient(ctx context.Context, orgID, clientID string) (types.Client, bool, error)
	GetStaffByName(ctx context.Context, orgID, name string) (types.Staff, bool, error)
	GetRecentNotes(ctx context.Context, orgID, clientID string, limit int) ([]types.Note, error)
	GetSessionsOnDate(ctx context.Context, orgID, date string) ([]types.Session, error)
}

// StaffGroups is an insertion-ordered multimap from staff name to sessions.
// Keys appear in the order their first session was added, and sessions keep
// their relative order within a group.
type StaffGroups struct {
	keys   []string
	groups map[string][]types.Session
}

// NewStaffGroups creates an empty StaffGroups.
func NewStaffGroups() *StaffGroups {
	return &StaffGroups{groups: make(map[string][]types.Session)}
}

// GroupByStaff groups sessions by Session.StaffKey.
func GroupByStaff(sessions []types.Session) *StaffGroups {
	g := NewStaffGroups()
	for _, s := range sessions {
		g.Add(s)
	}
	return g
}

// Add appends s to the group for its staff key.
func (g *StaffGroups) Add(s types.Session) {
	key := s.StaffKey()
	if _, ok := g.groups[key]; !ok {
		g.keys = append(g.keys, key)
	}
	g.groups[key] = append(g.groups[key], s)
}

// Keys returns the staff names in insertion order.
func (g *StaffGroups) Keys() []string {
	out := make([]string, len(g.keys))
	copy(out, g.keys)
	return out
}

// Sessions returns the sessions grouped under key.
func (g *StaffGroups) Sessions(key string) []types.Session {
	return g.groups[key]
}

// Len returns the number of groups.
func (g *StaffGroups) Len() int {
	return len(g.keys)
}

// Result is the digest output for one organization: the settings to send
// with and one request per resolvable staff member.
type Result struct {
	Settings types.EmailSettings
	Requests []types.MessageRequest
}
