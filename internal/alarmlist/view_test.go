package alarmlist

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"reminder-cli/internal/notify"
	"reminder-cli/pkg/models"
)

type fakeAPI struct {
	mu        sync.Mutex
	alarms    []models.Alarm
	getErr    error
	deleteErr error
	deleted   []string
	gets      int
	// block, when set, holds GetAlarms until the context ends.
	block bool
}

func (f *fakeAPI) GetAlarms(ctx context.Context) ([]models.Alarm, error) {
	f.mu.Lock()
	f.gets++
	block := f.block
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.getErr != nil {
		return nil, f.getErr
	}
	return append([]models.Alarm(nil), f.alarms...), nil
}

func (f *fakeAPI) DeleteAlarm(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

func threeAlarms() []models.Alarm {
	return []models.Alarm{
		{ID: "a", Title: "Take pills", Dates: map[string]string{"r1": "2024-05-01T08:00:00-04:00"}, Timezone: "America/New_York"},
		{ID: "b", Title: "Standup", Crons: map[string]string{"c1": "0 0 9 ? * MON-FRI *"}, Timezone: "America/New_York"},
		{ID: "c", Title: "Water plants", Crons: map[string]string{"c1": "0 0 18 ? * 1 *"}, Timezone: "America/New_York"},
	}
}

func loadedView(t *testing.T, api *fakeAPI, n *notify.Notifier) *View {
	t.Helper()
	v := New(context.Background(), api, n, time.UTC, nil)
	t.Cleanup(v.Close)
	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return v
}

func TestLoad(t *testing.T) {
	api := &fakeAPI{alarms: threeAlarms()}
	v := loadedView(t, api, nil)

	if got := v.Alarms(); !reflect.DeepEqual(got, threeAlarms()) {
		t.Errorf("Alarms() = %+v, want server order", got)
	}
	if api.gets != 1 {
		t.Errorf("GetAlarms called %d times, want 1", api.gets)
	}
}

func TestLoad_FailureNotifies(t *testing.T) {
	n := notify.New(nil, time.Minute)
	api := &fakeAPI{getErr: &models.TransportError{StatusCode: 502, Message: "bad gateway"}}
	v := New(context.Background(), api, n, time.UTC, nil)
	defer v.Close()

	if err := v.Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if notice, ok := n.Current(); !ok || notice.Text != "bad gateway" {
		t.Errorf("notice = (%+v, %v), want backend message", notice, ok)
	}
}

func TestDelete_Success(t *testing.T) {
	api := &fakeAPI{alarms: threeAlarms()}
	v := loadedView(t, api, nil)

	if err := v.Delete(context.Background(), 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if !reflect.DeepEqual(api.deleted, []string{"b"}) {
		t.Errorf("deleted = %v, want [b]", api.deleted)
	}
	got := v.Alarms()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("Alarms() = %+v, want a and c", got)
	}
}

func TestDelete_FailureKeepsCollection(t *testing.T) {
	n := notify.New(nil, time.Minute)
	api := &fakeAPI{
		alarms:    threeAlarms(),
		deleteErr: &models.TransportError{StatusCode: 500, Message: "could not delete alarm"},
	}
	v := loadedView(t, api, n)

	err := v.Delete(context.Background(), 1)
	var tErr *models.TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("error = %v, want *models.TransportError", err)
	}

	if got := v.Alarms(); !reflect.DeepEqual(got, threeAlarms()) {
		t.Errorf("Alarms() = %+v, want the 3 alarms unchanged", got)
	}
	notice, ok := n.Current()
	if !ok || notice.Level != notify.LevelError || notice.Text != "could not delete alarm" {
		t.Errorf("notice = (%+v, %v), want the backend error", notice, ok)
	}
}

func TestDelete_OutOfRange(t *testing.T) {
	api := &fakeAPI{alarms: threeAlarms()}
	v := loadedView(t, api, nil)

	for _, i := range []int{-1, 3} {
		err := v.Delete(context.Background(), i)
		var vErr *models.ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("Delete(%d) error = %v, want ValidationError", i, err)
		}
	}
	if len(api.deleted) != 0 {
		t.Errorf("deleted = %v, want no calls", api.deleted)
	}
}

func TestDelete_KeepsAlarmsAppendedMeanwhile(t *testing.T) {
	api := &fakeAPI{alarms: threeAlarms()}
	v := loadedView(t, api, nil)

	v.Append(models.Alarm{ID: "d", Title: "New"})
	if err := v.Delete(context.Background(), 0); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	var ids []string
	for _, a := range v.Alarms() {
		ids = append(ids, a.ID)
	}
	if want := []string{"b", "c", "d"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}

func TestClose_DropsLateResults(t *testing.T) {
	api := &fakeAPI{alarms: threeAlarms(), block: true}
	v := New(context.Background(), api, nil, time.UTC, nil)

	done := make(chan error, 1)
	go func() { done <- v.Load(context.Background()) }()

	// Wait for the request to be in flight.
	for {
		api.mu.Lock()
		started := api.gets > 0
		api.mu.Unlock()
		if started {
			break
		}
		time.Sleep(time.Millisecond)
	}
	v.Close()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Load error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Load did not return after Close")
	}

	v.Append(models.Alarm{ID: "late"})
	if n := v.Len(); n != 0 {
		t.Errorf("Len() = %d after Close, want 0", n)
	}
}

func TestRender(t *testing.T) {
	api := &fakeAPI{alarms: threeAlarms()}
	v := loadedView(t, api, nil)
	v.now = func() time.Time { return time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC) }

	var buf bytes.Buffer
	if err := v.Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"TITLE",
		"Take pills",
		"2024-05-01 12:00:00", // 08:00 New York shown in UTC
		"once",
		"cron",
		"Standup",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRender_Empty(t *testing.T) {
	v := New(context.Background(), &fakeAPI{}, nil, time.UTC, nil)
	defer v.Close()

	var buf bytes.Buffer
	v.Render(&buf)
	if buf.String() != "No alarms.\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestRows(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	a := models.Alarm{
		ID:       "x",
		Dates:    map[string]string{"r1": "2024-04-01T08:00:00Z", "r2": "2024-06-01T08:00:00Z"},
		Crons:    map[string]string{"c1": "0 0 12 * * ?"},
		Timezone: "UTC",
	}

	rows := Rows(a, time.UTC, now)
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	if rows[0].Next != "-" {
		t.Errorf("past trigger Next = %q, want placeholder", rows[0].Next)
	}
	if rows[1].Next != "2024-06-01 08:00:00" {
		t.Errorf("future trigger Next = %q", rows[1].Next)
	}
	if rows[2].Kind != "cron" || rows[2].Next != "2024-05-01 12:00:00" {
		t.Errorf("cron row = %+v", rows[2])
	}

	if empty := Rows(models.Alarm{ID: "y"}, time.UTC, now); len(empty) != 1 {
		t.Errorf("alarm without triggers: rows = %+v, want one placeholder row", empty)
	}
}
