package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"reminder-cli/internal/client"
	"reminder-cli/internal/schedule"
	"reminder-cli/pkg/models"
)

// AlarmSource lists the alarms to export.
type AlarmSource interface {
	GetAlarms(ctx context.Context) ([]models.Alarm, error)
}

// Reauthenticator signs in again when the backend rejects the token.
type Reauthenticator func(ctx context.Context) error

// AlarmCollector exposes the user's alarm inventory on each scrape.
// When Limiter is set, scrapes over the limit are answered from the last
// successful fetch instead of calling the backend.
type AlarmCollector struct {
	Source  AlarmSource
	Relogin Reauthenticator // optional
	Limiter *rate.Limiter   // optional
	Logger  *slog.Logger
	Timeout time.Duration
	Now     func() time.Time
	Mutex   sync.Mutex

	cached []models.Alarm
	warm   bool
}

var (
	upDesc = prometheus.NewDesc(
		"reminder_up", "Was the last scrape successful.", nil, nil,
	)
	scrapeDurationDesc = prometheus.NewDesc(
		"reminder_scrape_duration_seconds", "Time taken to scrape the API.", nil, nil,
	)
	alarmsCountDesc = prometheus.NewDesc(
		"reminder_alarms_total", "Number of alarms.", nil, nil,
	)
	triggersCountDesc = prometheus.NewDesc(
		"reminder_triggers_total", "Number of triggers grouped by kind.", []string{"kind"}, nil,
	)
	alarmTriggersDesc = prometheus.NewDesc(
		"reminder_alarm_triggers", "Triggers per alarm grouped by kind.", []string{"id", "title", "kind"}, nil,
	)
	nextFireDesc = prometheus.NewDesc(
		"reminder_alarm_next_fire_timestamp_seconds", "Unix time of the next activation of the alarm.", []string{"id", "title"}, nil,
	)
)

func (c *AlarmCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- upDesc
	ch <- scrapeDurationDesc
	ch <- alarmsCountDesc
	ch <- triggersCountDesc
	ch <- alarmTriggersDesc
	ch <- nextFireDesc
}

func (c *AlarmCollector) Collect(ch chan<- prometheus.Metric) {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()
	start := time.Now()
	success := 1.0

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if c.Limiter != nil && !c.Limiter.Allow() && c.warm {
		c.collectAlarms(ch, c.cached)
	} else if alarms, err := c.fetchAlarmsWithRetry(ctx); err == nil {
		c.cached, c.warm = alarms, true
		c.collectAlarms(ch, alarms)
	} else {
		success = 0.0
		c.logger().Error("scrape alarms failed", "error", err)
	}

	ch <- prometheus.MustNewConstMetric(upDesc, prometheus.GaugeValue, success)
	ch <- prometheus.MustNewConstMetric(scrapeDurationDesc, prometheus.GaugeValue, time.Since(start).Seconds())
}

func (c *AlarmCollector) collectAlarms(ch chan<- prometheus.Metric, alarms []models.Alarm) {
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}

	var once, cron float64
	for _, a := range alarms {
		dates := a.OneTimeTriggers()
		crons := a.RecurringTriggers()
		once += float64(len(dates))
		cron += float64(len(crons))

		ch <- prometheus.MustNewConstMetric(alarmTriggersDesc, prometheus.GaugeValue, float64(len(dates)), a.ID, a.Title, "once")
		ch <- prometheus.MustNewConstMetric(alarmTriggersDesc, prometheus.GaugeValue, float64(len(crons)), a.ID, a.Title, "cron")

		if next, ok := NextActivation(a, now); ok {
			ch <- prometheus.MustNewConstMetric(nextFireDesc, prometheus.GaugeValue, float64(next.Unix()), a.ID, a.Title)
		}
	}

	ch <- prometheus.MustNewConstMetric(alarmsCountDesc, prometheus.GaugeValue, float64(len(alarms)))
	ch <- prometheus.MustNewConstMetric(triggersCountDesc, prometheus.GaugeValue, once, "once")
	ch <- prometheus.MustNewConstMetric(triggersCountDesc, prometheus.GaugeValue, cron, "cron")
}

// NextActivation returns the earliest trigger of a after now.
func NextActivation(a models.Alarm, now time.Time) (time.Time, bool) {
	loc := time.UTC
	if a.Timezone != "" {
		if l, err := time.LoadLocation(a.Timezone); err == nil {
			loc = l
		}
	}

	var best time.Time
	consider := func(t time.Time) {
		if t.After(now) && (best.IsZero() || t.Before(best)) {
			best = t
		}
	}
	for _, ts := range a.OneTimeTriggers() {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			consider(t)
		}
	}
	for _, expr := range a.RecurringTriggers() {
		if t, err := schedule.NextFire(expr, now, loc); err == nil {
			consider(t)
		}
	}
	return best, !best.IsZero()
}

func (c *AlarmCollector) fetchAlarmsWithRetry(ctx context.Context) ([]models.Alarm, error) {
	res, err := c.Source.GetAlarms(ctx)
	if err == nil {
		return res, nil
	}
	if c.Relogin != nil && client.IsAuthFailure(err) {
		if e := c.Relogin(ctx); e == nil {
			return c.Source.GetAlarms(ctx)
		}
	}
	return nil, err
}

func (c *AlarmCollector) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
