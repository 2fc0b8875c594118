package types

import (
	"fmt"
	"time"
)

// SessionEvent is the SQS envelope describing one session transition. It is
// written to the session_events outbox by the scheduling app and relayed to
// the session worker queue. JSON tags use snake_case to match the outbox rows.
type SessionEvent struct {
	EventID        string           `json:"event_id"`
	OrganizationID string           `json:"organization_id"`
	SessionID      string           `json:"session_id"`
	Kind           SessionEventKind `json:"kind"`

	// Before is set for updated and deleted events.
	Before *Session `json:"before,omitempty"`
	// After is set for created and updated events.
	After *Session `json:"after,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// Validate checks that the snapshots required by the event kind are present.
func (e SessionEvent) Validate() error {
	if e.OrganizationID == "" {
		return NewAppError(ErrCodeValidationInvalidEvent, "organization_id is required", nil)
	}
	switch e.Kind {
	case SessionCreated:
		if e.After == nil {
			return NewAppError(ErrCodeValidationInvalidEvent, "created event requires after snapshot", nil)
		}
	case SessionUpdated:
		if e.Before == nil || e.After == nil {
			return NewAppError(ErrCodeValidationInvalidEvent, "updated event requires before and after snapshots", nil)
		}
	case SessionDeleted:
		if e.Before == nil {
			return NewAppError(ErrCodeValidationInvalidEvent, "deleted event requires before snapshot", nil)
		}
	default:
		return NewAppError(ErrCodeValidationInvalidEvent, fmt.Sprintf("unknown event kind %q", e.Kind), nil)
	}
	return nil
}
