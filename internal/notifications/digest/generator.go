package digest

import (
	"context"
	"fmt"
	"log/slog"

	"myomesh/internal/types"
)

// recentNotesLimit is how many notes are attached per client.
const recentNotesLimit = 3

// Generator builds daily digests from the record store.
type Generator struct {
	store           Store
	defaultBusiness string
	logger          *slog.Logger
}

// NewGenerator creates a Generator. defaultBusiness names organizations
// without a record or name.
func NewGenerator(store Store, defaultBusiness string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{store: store, defaultBusiness: defaultBusiness, logger: logger}
}

// BuildDailyDigest builds the digests for orgID's sessions on date
// (YYYY-MM-DD). It returns nil when the organization has digests turned
// off or has no sessions that day. Groups whose staff name does not resolve
// to a staff member with an email are skipped, including "Unassigned".
func (g *Generator) BuildDailyDigest(ctx context.Context, orgID, date string) (*Result, error) {
	settings, ok, err := g.store.GetSettings(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("digest: get settings: %w", err)
	}
	if !ok || !settings.NotificationsEnabled || !settings.SendDaySummaries {
		return nil, nil
	}

	sessions, err := g.store.GetSessionsOnDate(ctx, orgID, date)
	if err != nil {
		return nil, fmt.Errorf("digest: get sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil, nil
	}

	business := g.defaultBusiness
	org, ok, err := g.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("digest: get organization: %w", err)
	}
	if ok {
		business = org.DisplayName(g.defaultBusiness)
	}

	groups := GroupByStaff(sessions)
	result := &Result{Settings: settings}
	for _, name := range groups.Keys() {
		staff, found, err := g.store.GetStaffByName(ctx, orgID, name)
		if err != nil {
			return nil, fmt.Errorf("digest: get staff %q: %w", name, err)
		}
		if !found || staff.Email == "" {
			g.logger.DebugContext(ctx, "digest group has no addressable staff",
				"organization_id", orgID,
				"staff", name,
				"sessions", len(groups.Sessions(name)),
			)
			continue
		}

		enriched := make([]types.DigestSession, 0, len(groups.Sessions(name)))
		for _, s := range groups.Sessions(name) {
			histories, err := g.histories(ctx, orgID, s.Clients)
			if err != nil {
				return nil, err
			}
			enriched = append(enriched, types.DigestSession{Session: s, ClientHistories: histories})
		}

		result.Requests = append(result.Requests, types.MessageRequest{
			Kind:           types.KindDailyDigest,
			RecipientEmail: staff.Email,
			RecipientName:  name,
			BusinessName:   business,
			DigestDate:     date,
			DigestSessions: enriched,
		})
	}
	return result, nil
}

// histories loads the history of each client in order. Missing client
// records yield an entry without a name.
func (g *Generator) histories(ctx context.Context, orgID string, clientIDs []string) ([]types.ClientHistory, error) {
	if len(clientIDs) == 0 {
		return nil, nil
	}
	out := make([]types.ClientHistory, 0, len(clientIDs))
	for _, id := range clientIDs {
		client, ok, err := g.store.GetClient(ctx, orgID, id)
		if err != nil {
			return nil, fmt.Errorf("digest: get client %s: %w", id, err)
		}
		notes, err := g.store.GetRecentNotes(ctx, orgID, id, recentNotesLimit)
		if err != nil {
			return nil, fmt.Errorf("digest: get notes for client %s: %w", id, err)
		}
		if len(notes) > recentNotesLimit {
			notes = notes[:recentNotesLimit]
		}
		h := types.ClientHistory{ClientID: id, RecentNotes: notes}
		if ok {
			h.Name = client.Name
			h.CurrentConcerns = client.CurrentConcerns
			h.HasBodyChart = client.HasBodyChart
		}
		out = append(out, h)
	}
	return out, nil
}
