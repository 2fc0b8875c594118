package types

import (
	"fmt"
	"time"
)

// UnassignedStaff is the digest group key for sessions without a teacher.
const UnassignedStaff = "Unassigned"

// Organization is the tenant owning clients, staff, sessions and settings.
type Organization struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DisplayName returns the organization name, or fallback when it is unset.
func (o Organization) DisplayName(fallback string) string {
	if o.Name == "" {
		return fallback
	}
	return o.Name
}

// EmailSettings is the per-organization notification configuration.
// A missing settings record is treated the same as NotificationsEnabled=false.
type EmailSettings struct {
	OrganizationID          string       `json:"organization_id" db:"organization_id"`
	NotificationsEnabled    bool         `json:"notifications_enabled" db:"notifications_enabled"`
	SendClientConfirmations bool         `json:"send_client_confirmations" db:"send_client_confirmations"`
	SendStaffNotifications  bool         `json:"send_staff_notifications" db:"send_staff_notifications"`
	SendDaySummaries        bool         `json:"send_day_summaries" db:"send_day_summaries"`
	ProviderToken           SecretString `json:"provider_token" db:"provider_token"`
	FromEmail               string       `json:"from_email" db:"from_email"`
	FromName                string       `json:"from_name,omitempty" db:"from_name"`
}

// Sender returns the From identity configured for the organization.
func (s EmailSettings) Sender() Sender {
	return Sender{Email: s.FromEmail, Name: s.FromName}
}

// Sender is the From identity of outbound mail.
type Sender struct {
	Email string
	Name  string
}

// Address renders the sender as a From header value: "Name <email>" when a
// display name is set, otherwise the bare address.
func (s Sender) Address() string {
	if s.Name == "" {
		return s.Email
	}
	return fmt.Sprintf("%s <%s>", s.Name, s.Email)
}

// Client is a customer of the organization. Clients without an email are
// never addressed.
type Client struct {
	ID              string   `json:"id" db:"id"`
	OrganizationID  string   `json:"organization_id" db:"organization_id"`
	Name            string   `json:"name" db:"name"`
	Email           string   `json:"email,omitempty" db:"email"`
	CurrentConcerns []string `json:"current_concerns,omitempty" db:"current_concerns"`
	HasBodyChart    bool     `json:"has_body_chart" db:"-"`
}

// Staff is a practitioner, looked up by exact FullName.
type Staff struct {
	ID             string `json:"id" db:"id"`
	OrganizationID string `json:"organization_id" db:"organization_id"`
	FullName       string `json:"full_name" db:"full_name"`
	Email          string `json:"email,omitempty" db:"email"`
}

// User is an authenticated application user. Staff records share the same table.
type User struct {
	ID             string   `json:"id" db:"id"`
	OrganizationID string   `json:"organization_id" db:"organization_id"`
	FullName       string   `json:"full_name" db:"full_name"`
	Email          string   `json:"email" db:"email"`
	Role           UserRole `json:"role" db:"role"`
}

// Session is a scheduled appointment. Date is a calendar date (YYYY-MM-DD) and
// Time a time of day (HH:MM, 24h). An empty TeacherName means unassigned.
type Session struct {
	ID             string   `json:"id" db:"id"`
	OrganizationID string   `json:"organization_id" db:"organization_id"`
	Date           string   `json:"date" db:"date"`
	Time           string   `json:"time" db:"time"`
	Type           string   `json:"type" db:"type"`
	TeacherName    string   `json:"teacher_name,omitempty" db:"teacher_name"`
	Clients        []string `json:"clients,omitempty" db:"clients"`
	ClientNames    string   `json:"client_names,omitempty" db:"client_names"`
	Notes          string   `json:"notes,omitempty" db:"notes"`
}

// StaffKey returns the digest grouping key for the session.
func (s Session) StaffKey() string {
	if s.TeacherName == "" {
		return UnassignedStaff
	}
	return s.TeacherName
}

// Note is a clinical note attached to a client.
type Note struct {
	ID        string    `json:"id" db:"id"`
	ClientID  string    `json:"client_id" db:"client_id"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ClientHistory summarizes one client for the daily digest: up to three
// recent notes (newest first), current concerns and body chart presence.
type ClientHistory struct {
	ClientID        string
	Name            string
	RecentNotes     []Note
	CurrentConcerns []string
	HasBodyChart    bool
}

// DigestSession is a session enriched with the history of each of its clients.
type DigestSession struct {
	Session
	ClientHistories []ClientHistory
}

// MessageRequest is a decided notification: who receives it, which kind, and
// the data the renderer needs. It is produced by the decision logic and turned
// into an OutboundMessage by the renderer.
type MessageRequest struct {
	Kind           NotificationKind
	RecipientEmail string
	RecipientName  string
	BusinessName   string

	// Session is the current snapshot (the "after" snapshot for updates).
	Session Session

	// Changes holds human-readable change descriptions for update kinds.
	Changes []string

	// WasReassigned is set only on the staff-update addressed to the previous
	// teacher when the teacher changed.
	WasReassigned bool

	// DigestDate and DigestSessions are populated for KindDailyDigest.
	DigestDate     string
	DigestSessions []DigestSession
}

// OutboundMessage is the rendered unit handed to the dispatch client.
type OutboundMessage struct {
	Kind     NotificationKind
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Receipt is the provider acknowledgement for one message.
type Receipt struct {
	To          string    `json:"to"`
	MessageID   string    `json:"message_id"`
	SubmittedAt time.Time `json:"submitted_at"`
	ErrorCode   int       `json:"error_code"`
	Message     string    `json:"message,omitempty"`
}

// Accepted reports whether the provider accepted the message.
func (r Receipt) Accepted() bool {
	return r.ErrorCode == 0
}

// CredentialStatus is the outcome of verifying a provider credential.
type CredentialStatus struct {
	Valid      bool   `json:"valid"`
	ServerName string `json:"server_name,omitempty"`
	Color      string `json:"color,omitempty"`
	Detail     string `json:"detail,omitempty"`
}
