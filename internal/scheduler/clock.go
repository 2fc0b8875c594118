package scheduler

import (
	"fmt"
	"time"
)

// dateLayout is the calendar date format sessions are stored with.
const dateLayout = "2006-01-02"

// TomorrowIn returns the calendar date (YYYY-MM-DD) of the day after now in loc.
func TomorrowIn(now time.Time, loc *time.Location) string {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc).Format(dateLayout)
}

// NextRunAt returns the next occurrence of sendTime ("HH:MM") in loc strictly
// after now, in UTC.
func NextRunAt(now time.Time, sendTime string, loc *time.Location) (time.Time, error) {
	hour, minute, err := parseTimeOfDay(sendTime)
	if err != nil {
		return time.Time{}, err
	}
	return computeNextDayAtTime(now.In(loc), hour, minute, loc).UTC(), nil
}

// computeNextDayAtTime returns the next occurrence of hour:minute in loc
// after now. time.Date normalizes across DST transitions.
func computeNextDayAtTime(now time.Time, hour, minute int, loc *time.Location) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, loc)
	if today.After(now) {
		return today
	}
	return today.AddDate(0, 0, 1)
}

// parseTimeOfDay parses an exact "HH:MM" string.
func parseTimeOfDay(s string) (int, int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, 0, fmt.Errorf("expected format HH:MM, got %q", s)
	}
	var hour, minute int
	n, err := fmt.Sscanf(s, "%d:%d", &hour, &minute)
	if err != nil || n != 2 {
		return 0, 0, fmt.Errorf("expected format HH:MM, got %q", s)
	}
	if hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("hour %d out of range [0,23]", hour)
	}
	if minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("minute %d out of range [0,59]", minute)
	}
	return hour, minute, nil
}
