package models

import "sort"

// Alarm is a single alarm as stored by the backend.
// One-time and recurring triggers come back as objects keyed by the
// scheduler rule id that was created for each of them.
type Alarm struct {
	ID       string            `json:"EventID"`
	UserID   string            `json:"UserID,omitempty"`
	Title    string            `json:"Title"`
	Dates    map[string]string `json:"Dates"`
	Crons    map[string]string `json:"Crons"`
	Timezone string            `json:"Timezone"`
}

// OneTimeTriggers returns the canonical timestamps ordered by rule id.
func (a Alarm) OneTimeTriggers() []string {
	return sortedValues(a.Dates)
}

// RecurringTriggers returns the cron expressions ordered by rule id.
func (a Alarm) RecurringTriggers() []string {
	return sortedValues(a.Crons)
}

func sortedValues(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

// AlarmCreatePayload is the body for POST /alarms
type AlarmCreatePayload struct {
	Message  string   `json:"message"`
	Dates    []string `json:"dates"`
	Crons    []string `json:"crons"`
	Timezone string   `json:"timezone"`
}
