package composer

import "reminder-cli/internal/schedule"

// Field names an editable part of a one-time entry.
type Field string

const (
	FieldDate Field = "date"
	FieldTime Field = "time"
)

// OneTimeEntry is a local date/time pair as typed by the user. Nothing
// is validated until submit.
type OneTimeEntry struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Time string `json:"time"`
}

// RecurringEntry pairs an expression with its description. The two are
// always replaced together.
type RecurringEntry struct {
	ID          string `json:"id"`
	Expression  string `json:"expression"`
	Description string `json:"description"`
}

// Draft is the unsaved alarm being composed.
type Draft struct {
	Title     string           `json:"title"`
	OneTime   []OneTimeEntry   `json:"oneTime"`
	Recurring []RecurringEntry `json:"recurring"`
}

func (d Draft) clone() Draft {
	return Draft{
		Title:     d.Title,
		OneTime:   append([]OneTimeEntry(nil), d.OneTime...),
		Recurring: append([]RecurringEntry(nil), d.Recurring...),
	}
}

func newRecurringEntry(id string) RecurringEntry {
	return RecurringEntry{
		ID:          id,
		Expression:  schedule.DefaultRecurringExpression,
		Description: schedule.DescribeRecurringSchedule(schedule.DefaultRecurringExpression),
	}
}

// removeAt drops position i; later entries shift down by one.
func removeAt[T any](s []T, i int) []T {
	if i < 0 || i >= len(s) {
		return s
	}
	out := make([]T, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}
