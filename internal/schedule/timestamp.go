package schedule

import (
	"strings"
	"time"

	"reminder-cli/pkg/models"
)

// CanonicalLayout is the wire format for one-time triggers. The offset
// is always numeric so the local offset survives, even at UTC.
const CanonicalLayout = "2006-01-02T15:04:05-07:00"

// DisplayLayout is used when showing triggers back to the user.
const DisplayLayout = "2006-01-02 15:04:05"

// ToCanonicalTimestamp combines a calendar date (YYYY-MM-DD) and a wall
// clock time (HH:MM or HH:MM:SS) in loc into a canonical timestamp.
func ToCanonicalTimestamp(date, clock string, loc *time.Location) (string, error) {
	t, err := ParseLocal(date, clock, loc)
	if err != nil {
		return "", err
	}
	return t.Format(CanonicalLayout), nil
}

// ParseLocal is ToCanonicalTimestamp without the final formatting.
func ParseLocal(date, clock string, loc *time.Location) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, models.NewValidationError("invalid date")
	}
	if loc == nil {
		loc = time.Local
	}

	layout := "2006-01-02 15:04"
	if strings.Count(clock, ":") == 2 {
		layout = "2006-01-02 15:04:05"
	}

	t, err := time.ParseInLocation(layout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, models.NewValidationError("invalid date: %s %s", date, clock)
	}
	return t, nil
}

// FormatTrigger renders a canonical timestamp as a local date-time.
// Values that do not parse are returned unchanged.
func FormatTrigger(ts string, loc *time.Location) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DisplayLayout)
}
