package core

import (
	"fmt"

	"myomesh/internal/notifications/email"
	"myomesh/internal/types"
)

// ChangeSet describes how a session moved between two snapshots. Only date,
// time and teacher are tracked; other edits never produce notifications.
type ChangeSet struct {
	DateChanged  bool
	TimeChanged  bool
	StaffChanged bool

	// Descriptions are human readable, in date, time, staff order.
	Descriptions []string
}

// Any reports whether a tracked field changed.
func (c ChangeSet) Any() bool {
	return c.DateChanged || c.TimeChanged || c.StaffChanged
}

// ComputeChangeSet compares before and after on date, time and teacher.
func ComputeChangeSet(before, after types.Session) ChangeSet {
	cs := ChangeSet{
		DateChanged:  before.Date != after.Date,
		TimeChanged:  before.Time != after.Time,
		StaffChanged: before.TeacherName != after.TeacherName,
	}
	if cs.DateChanged {
		cs.Descriptions = append(cs.Descriptions,
			fmt.Sprintf("Date: %s → %s", email.FormatDate(before.Date), email.FormatDate(after.Date)))
	}
	if cs.TimeChanged {
		cs.Descriptions = append(cs.Descriptions,
			fmt.Sprintf("Time: %s → %s", email.FormatTime(before.Time), email.FormatTime(after.Time)))
	}
	if cs.StaffChanged {
		cs.Descriptions = append(cs.Descriptions,
			fmt.Sprintf("Staff: %s → %s", before.StaffKey(), after.StaffKey()))
	}
	return cs
}
