package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	crondesc "github.com/lnquy/cron"
	"github.com/robfig/cron/v3"

	"reminder-cli/pkg/models"
)

// DefaultRecurringExpression fires every day at midnight.
const DefaultRecurringExpression = "0 0 0 1/1 * ? *"

// Placeholder is what DescribeRecurringSchedule returns for expressions
// it cannot read.
const Placeholder = "-"

// ErrUnsupportedExpression is returned by NextFire for expressions that
// use L, W or # which the evaluator cannot compute locally.
var ErrUnsupportedExpression = errors.New("expression uses L, W or # and cannot be evaluated locally")

var (
	descOnce sync.Once
	desc     *crondesc.ExpressionDescriptor
	descErr  error

	parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
)

func descriptor() (*crondesc.ExpressionDescriptor, error) {
	descOnce.Do(func() {
		// Day-of-week is 1-7 starting on Sunday, as the scheduler expects.
		desc, descErr = crondesc.NewDescriptor(
			crondesc.Use24HourTimeFormat(true),
			crondesc.DayOfWeekStartsAtOne(true),
		)
	})
	return desc, descErr
}

// DescribeRecurringSchedule turns a recurring expression into an English
// sentence. It never fails: unreadable input yields Placeholder.
func DescribeRecurringSchedule(expr string) (out string) {
	defer func() {
		if recover() != nil {
			out = Placeholder
		}
	}()

	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Placeholder
	}
	d, err := descriptor()
	if err != nil {
		return Placeholder
	}
	s, err := d.ToDescription(expr, crondesc.Locale_en)
	if err != nil || s == "" {
		return Placeholder
	}
	return s
}

// ValidateRecurringSchedule accepts six fields (second minute hour
// day-of-month month day-of-week) or seven (plus year).
func ValidateRecurringSchedule(expr string) error {
	fields := strings.Fields(expr)
	if len(fields) != 6 && len(fields) != 7 {
		return models.NewValidationError("invalid cron expression %q: expected 6 or 7 fields, got %d", expr, len(fields))
	}
	if len(fields) == 7 {
		if _, err := parseYears(fields[6]); err != nil {
			return models.NewValidationError("invalid cron expression %q: %v", expr, err)
		}
	}

	if usesExtensions(fields) {
		if DescribeRecurringSchedule(expr) == Placeholder {
			return models.NewValidationError("invalid cron expression %q", expr)
		}
		return nil
	}

	if _, err := parse(fields); err != nil {
		return models.NewValidationError("invalid cron expression %q: %v", expr, err)
	}
	return nil
}

// NextFire returns the first activation strictly after the given time,
// evaluated in loc.
func NextFire(expr string, after time.Time, loc *time.Location) (time.Time, error) {
	fields := strings.Fields(expr)
	if len(fields) != 6 && len(fields) != 7 {
		return time.Time{}, models.NewValidationError("invalid cron expression %q", expr)
	}
	if usesExtensions(fields) {
		return time.Time{}, ErrUnsupportedExpression
	}
	if loc == nil {
		loc = time.Local
	}

	sched, err := parse(fields)
	if err != nil {
		return time.Time{}, models.NewValidationError("invalid cron expression %q: %v", expr, err)
	}

	years := yearSet{any: true}
	if len(fields) == 7 {
		if years, err = parseYears(fields[6]); err != nil {
			return time.Time{}, models.NewValidationError("invalid cron expression %q: %v", expr, err)
		}
	}

	t := after.In(loc)
	for i := 0; i < 512; i++ {
		t = sched.Next(t)
		if t.IsZero() {
			break
		}
		if years.match(t.Year()) {
			return t, nil
		}
		next, ok := years.nextAfter(t.Year())
		if !ok {
			break
		}
		t = time.Date(next, time.January, 1, 0, 0, 0, 0, loc).Add(-time.Second)
	}
	return time.Time{}, fmt.Errorf("expression %q never fires after %s", expr, after.Format(time.RFC3339))
}

func parse(fields []string) (cron.Schedule, error) {
	f := append([]string(nil), fields[:6]...)
	dow, err := shiftDayOfWeek(f[5])
	if err != nil {
		return nil, err
	}
	f[5] = dow
	return parser.Parse(strings.Join(f, " "))
}

func usesExtensions(fields []string) bool {
	for _, f := range fields[3:6] {
		if strings.ContainsAny(strings.ToUpper(f), "LW#") && !isDayName(f) {
			return true
		}
	}
	return false
}

// isDayName catches names such as WED that contain W but are not the
// weekday modifier.
func isDayName(field string) bool {
	for _, part := range strings.FieldsFunc(strings.ToUpper(field), func(r rune) bool {
		return r == ',' || r == '-' || r == '/'
	}) {
		if len(part) != 3 {
			return false
		}
		for _, r := range part {
			if r < 'A' || r > 'Z' {
				return false
			}
		}
	}
	return true
}

// shiftDayOfWeek converts 1-7 (Sunday first) numbering into the 0-6
// numbering the evaluator uses. Step values after '/' are left alone.
func shiftDayOfWeek(field string) (string, error) {
	var b strings.Builder
	afterSlash := false
	for i := 0; i < len(field); {
		c := field[i]
		if c < '0' || c > '9' {
			afterSlash = c == '/'
			b.WriteByte(c)
			i++
			continue
		}
		j := i
		for j < len(field) && field[j] >= '0' && field[j] <= '9' {
			j++
		}
		n, _ := strconv.Atoi(field[i:j])
		if !afterSlash {
			if n < 1 || n > 7 {
				return "", fmt.Errorf("day-of-week %d out of range 1-7", n)
			}
			n--
		}
		b.WriteString(strconv.Itoa(n))
		i = j
	}
	return b.String(), nil
}

type yearSet struct {
	any   bool
	years map[int]bool
	max   int
}

func (y yearSet) match(year int) bool {
	return y.any || y.years[year]
}

func (y yearSet) nextAfter(year int) (int, bool) {
	if y.any {
		return year + 1, true
	}
	for n := year + 1; n <= y.max; n++ {
		if y.years[n] {
			return n, true
		}
	}
	return 0, false
}

const (
	minYear = 1970
	maxYear = 2199
)

func parseYears(field string) (yearSet, error) {
	if field == "*" || field == "?" {
		return yearSet{any: true}, nil
	}
	set := yearSet{years: map[int]bool{}}
	for _, part := range strings.Split(field, ",") {
		step := 1
		if base, s, ok := strings.Cut(part, "/"); ok {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return yearSet{}, fmt.Errorf("bad year step %q", s)
			}
			step = n
			part = base
		}

		lo, hi := minYear, maxYear
		switch {
		case part == "*":
		case strings.Contains(part, "-"):
			a, b, _ := strings.Cut(part, "-")
			var err error
			if lo, err = strconv.Atoi(a); err != nil {
				return yearSet{}, fmt.Errorf("bad year %q", a)
			}
			if hi, err = strconv.Atoi(b); err != nil {
				return yearSet{}, fmt.Errorf("bad year %q", b)
			}
		default:
			n, err := strconv.Atoi(part)
			if err != nil {
				return yearSet{}, fmt.Errorf("bad year %q", part)
			}
			lo = n
			if step == 1 {
				hi = n
			}
		}
		if lo < minYear || hi > maxYear || lo > hi {
			return yearSet{}, fmt.Errorf("year range %d-%d outside %d-%d", lo, hi, minYear, maxYear)
		}
		for n := lo; n <= hi; n += step {
			set.years[n] = true
			if n > set.max {
				set.max = n
			}
		}
	}
	return set, nil
}
