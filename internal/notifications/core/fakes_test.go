package core

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"myomesh/internal/types"
)

// memStore is an in-memory Store and UserStore keyed the way the database is.
type memStore struct {
	settings map[string]types.EmailSettings
	orgs     map[string]types.Organization
	clients  map[string]types.Client // key: clientID
	staff    map[string]types.Staff  // key: full name
	users    map[string]types.User

	err          error
	staffLookups []string
}

func newMemStore() *memStore {
	return &memStore{
		settings: map[string]types.EmailSettings{},
		orgs:     map[string]types.Organization{},
		clients:  map[string]types.Client{},
		staff:    map[string]types.Staff{},
		users:    map[string]types.User{},
	}
}

func (m *memStore) GetSettings(_ context.Context, orgID string) (types.EmailSettings, bool, error) {
	if m.err != nil {
		return types.EmailSettings{}, false, m.err
	}
	s, ok := m.settings[orgID]
	return s, ok, nil
}

func (m *memStore) GetOrganization(_ context.Context, orgID string) (types.Organization, bool, error) {
	o, ok := m.orgs[orgID]
	return o, ok, nil
}

func (m *memStore) GetClient(_ context.Context, _ string, clientID string) (types.Client, bool, error) {
	if m.err != nil {
		return types.Client{}, false, m.err
	}
	c, ok := m.clients[clientID]
	return c, ok, nil
}

func (m *memStore) GetStaffByName(_ context.Context, _ string, name string) (types.Staff, bool, error) {
	m.staffLookups = append(m.staffLookups, name)
	s, ok := m.staff[name]
	return s, ok, nil
}

func (m *memStore) GetUser(_ context.Context, userID string) (types.User, bool, error) {
	u, ok := m.users[userID]
	return u, ok, nil
}

// stubRenderer renders the subject as the kind and keeps requests for assertions.
type stubRenderer struct {
	requests []types.MessageRequest
	err      error
}

func (r *stubRenderer) Render(req types.MessageRequest) (types.OutboundMessage, error) {
	if r.err != nil {
		return types.OutboundMessage{}, r.err
	}
	r.requests = append(r.requests, req)
	return types.OutboundMessage{Kind: req.Kind, To: req.RecipientEmail, Subject: string(req.Kind), HTMLBody: "<p>x</p>", TextBody: "x"}, nil
}

// recordingDispatcher captures dispatch calls.
type recordingDispatcher struct {
	batches  [][]types.OutboundMessage
	sent     []types.OutboundMessage
	tokens   []types.SecretString
	from     types.Sender
	err      error
	receipts []types.Receipt // returned from SendBatch when err != nil
	status   types.CredentialStatus
}

func (d *recordingDispatcher) Send(_ context.Context, token types.SecretString, from types.Sender, msg types.OutboundMessage) (types.Receipt, error) {
	d.tokens = append(d.tokens, token)
	d.from = from
	d.sent = append(d.sent, msg)
	if d.err != nil {
		return types.Receipt{}, d.err
	}
	return types.Receipt{To: msg.To, MessageID: "m"}, nil
}

func (d *recordingDispatcher) SendBatch(_ context.Context, token types.SecretString, from types.Sender, msgs []types.OutboundMessage) ([]types.Receipt, error) {
	d.tokens = append(d.tokens, token)
	d.from = from
	d.batches = append(d.batches, msgs)
	if d.err != nil {
		return d.receipts, d.err
	}
	out := make([]types.Receipt, len(msgs))
	for i, m := range msgs {
		out[i] = types.Receipt{To: m.To, MessageID: "m"}
	}
	return out, nil
}

func (d *recordingDispatcher) VerifyCredential(_ context.Context, token types.SecretString) (types.CredentialStatus, error) {
	d.tokens = append(d.tokens, token)
	return d.status, d.err
}

type countingMetrics struct {
	sent   map[types.NotificationKind]int
	failed map[types.NotificationKind]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{sent: map[types.NotificationKind]int{}, failed: map[types.NotificationKind]int{}}
}

func (m *countingMetrics) RecordSent(_ context.Context, kind types.NotificationKind, n int) {
	m.sent[kind] += n
}

func (m *countingMetrics) RecordFailed(_ context.Context, kind types.NotificationKind, n int) {
	m.failed[kind] += n
}

var errStoreDown = errors.New("connection refused")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const testOrg = "org-1"

func enabledSettings() *types.EmailSettings {
	return &types.EmailSettings{
		OrganizationID:          testOrg,
		NotificationsEnabled:    true,
		SendClientConfirmations: true,
		SendStaffNotifications:  true,
		SendDaySummaries:        true,
		ProviderToken:           "pm-token",
		FromEmail:               "front@studio.test",
		FromName:                "Harbor",
	}
}

// scenarioStore holds client c1 (a@x.com), client c2 without email, and
// staff Jane Doe (j@x.com) and John Roe (r@x.com).
func scenarioStore() *memStore {
	m := newMemStore()
	m.clients["c1"] = types.Client{ID: "c1", OrganizationID: testOrg, Name: "Ann", Email: "a@x.com"}
	m.clients["c2"] = types.Client{ID: "c2", OrganizationID: testOrg, Name: "Bo"}
	m.staff["Jane Doe"] = types.Staff{ID: "u1", FullName: "Jane Doe", Email: "j@x.com"}
	m.staff["John Roe"] = types.Staff{ID: "u2", FullName: "John Roe", Email: "r@x.com"}
	m.orgs[testOrg] = types.Organization{ID: testOrg, Name: "Harbor Massage"}
	return m
}

func scenarioSession() types.Session {
	return types.Session{
		ID:             "s1",
		OrganizationID: testOrg,
		Date:           "2024-03-10",
		Time:           "14:00",
		Type:           "Massage",
		TeacherName:    "Jane Doe",
		Clients:        []string{"c1"},
		ClientNames:    "Ann",
	}
}
