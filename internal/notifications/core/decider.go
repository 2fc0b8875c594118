package core

import (
	"context"
	"fmt"

	"myomesh/internal/types"
)

// Decider holds the notification rules for session transitions. It performs
// lookups through Store but never sends anything.
type Decider struct {
	store           Store
	defaultBusiness string
}

// NewDecider creates a Decider. defaultBusiness names organizations that are
// absent or unnamed.
func NewDecider(store Store, defaultBusiness string) *Decider {
	return &Decider{store: store, defaultBusiness: defaultBusiness}
}

// BusinessName returns the display name for org, which may be nil.
func (d *Decider) BusinessName(org *types.Organization) string {
	if org == nil {
		return d.defaultBusiness
	}
	return org.DisplayName(d.defaultBusiness)
}

func enabled(settings *types.EmailSettings) bool {
	return settings != nil && settings.NotificationsEnabled
}

// OnSessionCreated returns confirmations for every client with an email,
// followed by a notification to the assigned staff member.
func (d *Decider) OnSessionCreated(ctx context.Context, session types.Session, settings *types.EmailSettings, org *types.Organization) ([]types.MessageRequest, error) {
	if !enabled(settings) {
		return nil, nil
	}
	biz := d.BusinessName(org)

	var out []types.MessageRequest
	if settings.SendClientConfirmations {
		reqs, err := d.clientRequests(ctx, session, types.KindConfirmation, biz, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, reqs...)
	}
	if settings.SendStaffNotifications && session.TeacherName != "" {
		req, ok, err := d.staffRequest(ctx, session, session.TeacherName, types.KindStaffNotification, biz)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, req)
		}
	}
	return out, nil
}

// OnSessionUpdated returns update messages when the date, time or teacher
// changed. Clients receive the current snapshot and the change list. Staff
// are the current teacher and, when the teacher changed, the previous one;
// only the previous teacher's message is marked as a reassignment.
func (d *Decider) OnSessionUpdated(ctx context.Context, before, after types.Session, settings *types.EmailSettings, org *types.Organization) ([]types.MessageRequest, error) {
	changes := ComputeChangeSet(before, after)
	if !changes.Any() || !enabled(settings) {
		return nil, nil
	}
	biz := d.BusinessName(org)

	var out []types.MessageRequest
	if settings.SendClientConfirmations {
		reqs, err := d.clientRequests(ctx, after, types.KindClientUpdate, biz, changes.Descriptions)
		if err != nil {
			return nil, err
		}
		out = append(out, reqs...)
	}
	if settings.SendStaffNotifications {
		for _, name := range staffToNotify(before, after, changes) {
			req, ok, err := d.staffRequest(ctx, after, name, types.KindStaffUpdate, biz)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			req.Changes = changes.Descriptions
			req.WasReassigned = changes.StaffChanged && name == before.TeacherName
			out = append(out, req)
		}
	}
	return out, nil
}

// staffToNotify is the ordered, de-duplicated set {after} ∪ {before if the
// teacher changed}. Empty names are skipped.
func staffToNotify(before, after types.Session, changes ChangeSet) []string {
	names := make([]string, 0, 2)
	if after.TeacherName != "" {
		names = append(names, after.TeacherName)
	}
	if changes.StaffChanged && before.TeacherName != "" && before.TeacherName != after.TeacherName {
		names = append(names, before.TeacherName)
	}
	return names
}

// OnSessionDeleted returns cancellations for clients with an email and the
// assigned staff member.
func (d *Decider) OnSessionDeleted(ctx context.Context, session types.Session, settings *types.EmailSettings, org *types.Organization) ([]types.MessageRequest, error) {
	if !enabled(settings) {
		return nil, nil
	}
	biz := d.BusinessName(org)

	var out []types.MessageRequest
	if settings.SendClientConfirmations {
		reqs, err := d.clientRequests(ctx, session, types.KindClientCancellation, biz, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, reqs...)
	}
	if settings.SendStaffNotifications && session.TeacherName != "" {
		req, ok, err := d.staffRequest(ctx, session, session.TeacherName, types.KindStaffCancellation, biz)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, req)
		}
	}
	return out, nil
}

// BuildTestMessage returns the configuration test message for recipient.
func (d *Decider) BuildTestMessage(org *types.Organization, recipient string) types.MessageRequest {
	return types.MessageRequest{
		Kind:           types.KindTest,
		RecipientEmail: recipient,
		BusinessName:   d.BusinessName(org),
	}
}

func (d *Decider) clientRequests(ctx context.Context, session types.Session, kind types.NotificationKind, biz string, changes []string) ([]types.MessageRequest, error) {
	var out []types.MessageRequest
	for _, clientID := range session.Clients {
		client, ok, err := d.store.GetClient(ctx, session.OrganizationID, clientID)
		if err != nil {
			return nil, fmt.Errorf("decider: get client %s: %w", clientID, err)
		}
		if !ok || client.Email == "" {
			continue
		}
		out = append(out, types.MessageRequest{
			Kind:           kind,
			RecipientEmail: client.Email,
			RecipientName:  client.Name,
			BusinessName:   biz,
			Session:        session,
			Changes:        changes,
		})
	}
	return out, nil
}

func (d *Decider) staffRequest(ctx context.Context, session types.Session, name string, kind types.NotificationKind, biz string) (types.MessageRequest, bool, error) {
	staff, ok, err := d.store.GetStaffByName(ctx, session.OrganizationID, name)
	if err != nil {
		return types.MessageRequest{}, false, fmt.Errorf("decider: get staff %q: %w", name, err)
	}
	if !ok || staff.Email == "" {
		return types.MessageRequest{}, false, nil
	}
	return types.MessageRequest{
		Kind:           kind,
		RecipientEmail: staff.Email,
		RecipientName:  name,
		BusinessName:   biz,
		Session:        session,
	}, true, nil
}
