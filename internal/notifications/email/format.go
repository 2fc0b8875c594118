package email

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout    = "2006-01-02"
	displayLayout = "Monday, January 2, 2006"
)

// FormatDate renders a calendar date ("2024-03-10") as "Sunday, March 10, 2024".
// Unparseable input is returned unchanged.
func FormatDate(date string) string {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return date
	}
	return t.Format(displayLayout)
}

// FormatTime renders a 24h time of day ("14:00") as "2:00 PM". Minutes are
// kept verbatim. Unparseable input is returned unchanged.
func FormatTime(t string) string {
	hours, minutes, ok := strings.Cut(t, ":")
	if !ok {
		return t
	}
	h, err := strconv.Atoi(hours)
	if err != nil || h < 0 || h > 23 {
		return t
	}
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%s %s", h12, minutes, suffix)
}

// truncateRunes shortens s to limit runes, appending "..." when cut.
func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
