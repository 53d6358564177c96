package composer

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"reminder-cli/internal/notify"
	"reminder-cli/internal/schedule"
	"reminder-cli/pkg/models"
)

// Creator sends the composed alarm to the backend.
type Creator interface {
	CreateAlarm(ctx context.Context, payload models.AlarmCreatePayload) (models.Alarm, error)
}

// Sink receives alarms once the backend has created them.
type Sink interface {
	Append(models.Alarm)
}

type Options struct {
	Location *time.Location
	Timezone string // IANA name sent with the alarm
	Notifier *notify.Notifier
	Logger   *slog.Logger
}

// Composer holds the draft of a new alarm and submits it.
//
// Entries can be addressed by position, where positions shift after a
// removal, or by the stable id each entry gets when it is added.
type Composer struct {
	api      Creator
	sink     Sink
	loc      *time.Location
	timezone string
	notifier *notify.Notifier
	logger   *slog.Logger
	newID    func() string

	mu    sync.Mutex
	draft Draft
	// gen counts draft changes so a finished submit can tell whether
	// the draft it sent is still the one on screen.
	gen uint64
}

func New(api Creator, sink Sink, opts Options) *Composer {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Timezone == "" {
		opts.Timezone = opts.Location.String()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.New(nil, 0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Composer{
		api:      api,
		sink:     sink,
		loc:      opts.Location,
		timezone: opts.Timezone,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		newID:    uuid.NewString,
	}
}

// Draft returns a copy of the current draft.
func (c *Composer) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.clone()
}

func (c *Composer) SetTitle(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Title = title
	c.gen++
}

// Reset discards the draft.
func (c *Composer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = Draft{}
	c.gen++
}

// AddOneTimeTrigger appends an empty entry and returns its id.
func (c *Composer) AddOneTimeTrigger() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.newID()
	c.draft.OneTime = append(c.draft.OneTime, OneTimeEntry{ID: id})
	c.gen++
	return id
}

// UpdateOneTimeTrigger sets date or time on the entry at index. Out of
// range indexes and unknown fields are ignored.
func (c *Composer) UpdateOneTimeTrigger(index int, field Field, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.draft.OneTime) {
		return
	}
	setField(&c.draft.OneTime[index], field, value)
	c.gen++
}

// UpdateOneTimeTriggerByID is UpdateOneTimeTrigger addressed by id.
func (c *Composer) UpdateOneTimeTriggerByID(id string, field Field, value string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.oneTimeIndex(id)
	if i < 0 {
		return false
	}
	setField(&c.draft.OneTime[i], field, value)
	c.gen++
	return true
}

func setField(e *OneTimeEntry, field Field, value string) {
	switch field {
	case FieldDate:
		e.Date = value
	case FieldTime:
		e.Time = value
	}
}

func (c *Composer) RemoveOneTimeTrigger(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.draft.OneTime) {
		return
	}
	c.draft.OneTime = removeAt(c.draft.OneTime, index)
	c.gen++
}

func (c *Composer) RemoveOneTimeTriggerByID(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.oneTimeIndex(id)
	if i < 0 {
		return false
	}
	c.draft.OneTime = removeAt(c.draft.OneTime, i)
	c.gen++
	return true
}

// AddRecurringTrigger appends an every-day-at-midnight entry and returns its id.
func (c *Composer) AddRecurringTrigger() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.newID()
	c.draft.Recurring = append(c.draft.Recurring, newRecurringEntry(id))
	c.gen++
	return id
}

// UpdateRecurringTrigger replaces the entry at index. Expression and
// description change in one step; the id is kept.
func (c *Composer) UpdateRecurringTrigger(index int, expression, description string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.draft.Recurring) {
		return
	}
	c.draft.Recurring[index] = RecurringEntry{
		ID:          c.draft.Recurring[index].ID,
		Expression:  expression,
		Description: description,
	}
	c.gen++
}

func (c *Composer) UpdateRecurringTriggerByID(id, expression, description string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.recurringIndex(id)
	if i < 0 {
		return false
	}
	c.draft.Recurring[i] = RecurringEntry{ID: id, Expression: expression, Description: description}
	c.gen++
	return true
}

func (c *Composer) RemoveRecurringTrigger(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.draft.Recurring) {
		return
	}
	c.draft.Recurring = removeAt(c.draft.Recurring, index)
	c.gen++
}

func (c *Composer) RemoveRecurringTriggerByID(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.recurringIndex(id)
	if i < 0 {
		return false
	}
	c.draft.Recurring = removeAt(c.draft.Recurring, i)
	c.gen++
	return true
}

func (c *Composer) oneTimeIndex(id string) int {
	for i, e := range c.draft.OneTime {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (c *Composer) recurringIndex(id string) int {
	for i, e := range c.draft.Recurring {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Submit sends the current draft. On success the created alarm goes to
// the sink and the draft is cleared, unless it was edited while the
// request was in flight; on failure nothing changes. Either way the
// outcome is posted to the notifier. Submits may overlap: each one works
// on its own snapshot of the draft.
func (c *Composer) Submit(ctx context.Context) (models.Alarm, error) {
	c.mu.Lock()
	draft, gen := c.draft.clone(), c.gen
	c.mu.Unlock()

	created, err := Submit(ctx, c.api, draft, c.loc, c.timezone)
	if err != nil {
		c.logger.Debug("alarm submit failed", "error", err)
		c.notifier.Error(err)
		return models.Alarm{}, err
	}

	c.sink.Append(created)
	c.resetIfUnchanged(gen)
	c.logger.Info("alarm created", "id", created.ID, "title", created.Title)
	c.notifier.Info("Alarm created!")
	return created, nil
}

func (c *Composer) resetIfUnchanged(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.draft = Draft{}
	c.gen++
}

// Submit validates draft, converts its entries and creates the alarm.
// Validation stops at the first bad one-time entry and no request is
// made when it fails.
func Submit(ctx context.Context, api Creator, draft Draft, loc *time.Location, timezone string) (models.Alarm, error) {
	for _, e := range draft.OneTime {
		if strings.TrimSpace(e.Date) == "" || strings.TrimSpace(e.Time) == "" {
			return models.Alarm{}, models.NewValidationError("invalid date")
		}
	}
	if strings.TrimSpace(draft.Title) == "" {
		return models.Alarm{}, models.NewValidationError("title can't be blank")
	}

	dates := make([]string, 0, len(draft.OneTime))
	for _, e := range draft.OneTime {
		ts, err := schedule.ToCanonicalTimestamp(e.Date, e.Time, loc)
		if err != nil {
			return models.Alarm{}, err
		}
		dates = append(dates, ts)
	}

	crons := make([]string, 0, len(draft.Recurring))
	for _, e := range draft.Recurring {
		crons = append(crons, e.Expression)
	}

	return api.CreateAlarm(ctx, models.AlarmCreatePayload{
		Message:  draft.Title,
		Dates:    dates,
		Crons:    crons,
		Timezone: timezone,
	})
}
