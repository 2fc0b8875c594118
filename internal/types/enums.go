package types

// UserRole defines authorization levels within an organization.
type UserRole string

const (
	RoleOwner  UserRole = "owner"
	RoleAdmin  UserRole = "admin"
	RoleStaff  UserRole = "staff"
	RoleMember UserRole = "member"
)

// CanManageEmail reports whether the role may send test emails and verify the
// provider credential.
func (r UserRole) CanManageEmail() bool {
	return r == RoleOwner || r == RoleAdmin
}

// NotificationKind identifies which template and subject line a message uses.
type NotificationKind string

const (
	KindConfirmation       NotificationKind = "confirmation"
	KindStaffNotification  NotificationKind = "staff-notification"
	KindClientUpdate       NotificationKind = "client-update"
	KindStaffUpdate        NotificationKind = "staff-update"
	KindClientCancellation NotificationKind = "client-cancellation"
	KindStaffCancellation  NotificationKind = "staff-cancellation"
	KindDailyDigest        NotificationKind = "daily-digest"
	KindTest               NotificationKind = "test"
)

// SessionEventKind is the lifecycle transition carried by a SessionEvent.
type SessionEventKind string

const (
	SessionCreated SessionEventKind = "created"
	SessionUpdated SessionEventKind = "updated"
	SessionDeleted SessionEventKind = "deleted"
)

// EmailProvider selects the outbound delivery backend.
type EmailProvider string

const (
	ProviderPostmark EmailProvider = "postmark"
	ProviderSES      EmailProvider = "ses"
	ProviderStub     EmailProvider = "stub"
)
