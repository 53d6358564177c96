package alarmlist

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"text/tabwriter"
	"time"

	"reminder-cli/internal/notify"
	"reminder-cli/internal/schedule"
	"reminder-cli/pkg/models"
)

// API is the part of the backend client the view needs.
type API interface {
	GetAlarms(ctx context.Context) ([]models.Alarm, error)
	DeleteAlarm(ctx context.Context, id string) error
}

// View holds the alarms fetched for one activation of the list.
// It is safe for concurrent use; the composer appends to it through
// Append while deletes may be in flight.
type View struct {
	api      API
	notifier *notify.Notifier
	loc      *time.Location
	logger   *slog.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	alarms []models.Alarm
	closed bool
}

// New creates a view bound to parent. Close ends its lifetime: calls in
// flight are cancelled and results that arrive afterwards are dropped.
func New(parent context.Context, api API, notifier *notify.Notifier, loc *time.Location, logger *slog.Logger) *View {
	if notifier == nil {
		notifier = notify.New(nil, 0)
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(parent)
	return &View{
		api:      api,
		notifier: notifier,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// opContext ties a call to both the caller and the view lifetime.
func (v *View) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(v.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Load fetches the alarms and replaces the collection. There is no
// polling: the result stays until the next Load.
func (v *View) Load(ctx context.Context) error {
	ctx, done := v.opContext(ctx)
	defer done()

	alarms, err := v.api.GetAlarms(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return context.Canceled
	}
	if err != nil {
		v.notifier.Error(err)
		return err
	}
	v.alarms = alarms
	v.logger.Debug("alarms loaded", "count", len(alarms))
	return nil
}

// Alarms returns a copy of the collection.
func (v *View) Alarms() []models.Alarm {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]models.Alarm(nil), v.alarms...)
}

func (v *View) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.alarms)
}

// Append adds a newly created alarm. Ignored once the view is closed.
func (v *View) Append(a models.Alarm) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.alarms = append(v.alarms, a)
}

// Delete removes the alarm at index on the backend and then locally.
// If the backend call fails the collection is left as it was and the
// error is posted to the notifier.
func (v *View) Delete(ctx context.Context, index int) error {
	v.mu.Lock()
	if index < 0 || index >= len(v.alarms) {
		n := len(v.alarms)
		v.mu.Unlock()
		err := models.NewValidationError("no alarm at position %d (have %d)", index, n)
		v.notifier.Error(err)
		return err
	}
	target := v.alarms[index]
	v.mu.Unlock()

	ctx, done := v.opContext(ctx)
	defer done()

	err := v.api.DeleteAlarm(ctx, target.ID)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return context.Canceled
	}
	if err != nil {
		v.notifier.Error(err)
		return err
	}

	// Other alarms may have been appended meanwhile, so filter by id
	// rather than by the original position.
	kept := make([]models.Alarm, 0, len(v.alarms))
	for _, a := range v.alarms {
		if a.ID != target.ID {
			kept = append(kept, a)
		}
	}
	v.alarms = kept
	v.logger.Info("alarm deleted", "id", target.ID)
	v.notifier.Info("Alarm deleted.")
	return nil
}

// Close ends the view. It is safe to call more than once.
func (v *View) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
	v.cancel()
}

// Render writes the collection as a table, one line per trigger.
func (v *View) Render(w io.Writer) error {
	alarms := v.Alarms()
	if len(alarms) == 0 {
		_, err := fmt.Fprintln(w, "No alarms.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tTITLE\tTRIGGER\tSCHEDULE\tNEXT")
	fmt.Fprintln(tw, "-\t--\t-----\t-------\t--------\t----")

	now := v.now()
	for i, a := range alarms {
		for _, row := range Rows(a, v.loc, now) {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i, a.ID, a.Title, row.Kind, row.Schedule, row.Next)
		}
	}
	return tw.Flush()
}

// Row is one displayed trigger of an alarm.
type Row struct {
	Kind     string `json:"kind"`
	Schedule string `json:"schedule"`
	Next     string `json:"next"`
}

// Rows lists the triggers of a, one-time first, in the same order as
// the backend keys them. An alarm without triggers still gets a row.
func Rows(a models.Alarm, loc *time.Location, now time.Time) []Row {
	var rows []Row
	for _, ts := range a.OneTimeTriggers() {
		next := schedule.Placeholder
		if t, err := time.Parse(time.RFC3339, ts); err == nil && t.After(now) {
			next = t.In(loc).Format(schedule.DisplayLayout)
		}
		rows = append(rows, Row{Kind: "once", Schedule: schedule.FormatTrigger(ts, loc), Next: next})
	}

	for _, expr := range a.RecurringTriggers() {
		alarmLoc := loc
		if a.Timezone != "" {
			if l, err := time.LoadLocation(a.Timezone); err == nil {
				alarmLoc = l
			}
		}
		next := schedule.Placeholder
		if t, err := schedule.NextFire(expr, now, alarmLoc); err == nil {
			next = t.In(loc).Format(schedule.DisplayLayout)
		}
		rows = append(rows, Row{
			Kind:     "cron",
			Schedule: schedule.DescribeRecurringSchedule(expr),
			Next:     next,
		})
	}

	if len(rows) == 0 {
		rows = append(rows, Row{Kind: schedule.Placeholder, Schedule: schedule.Placeholder, Next: schedule.Placeholder})
	}
	return rows
}
