package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"reminder-cli/pkg/models"
)

type staticToken struct {
	token string
	err   error
}

func (s staticToken) IDToken(context.Context) (string, error) {
	return s.token, s.err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestRequestsCarryTokenAndAccept(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "id-token" {
			t.Errorf("Authorization = %q, want %q", got, "id-token")
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q, want application/json", got)
		}
		writeJSON(w, http.StatusOK, []models.Alarm{})
	}))
	defer server.Close()

	c := New(ClientConfig{BaseURL: server.URL}, staticToken{token: "id-token"})
	if _, err := c.GetAlarms(context.Background()); err != nil {
		t.Fatalf("GetAlarms: %v", err)
	}
}

func TestGetAlarms(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/alarms" {
			t.Errorf("request = %s %s, want GET /alarms", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"EventID":"e1","Title":"Take pills","Dates":{"r2":"2024-05-02T08:00:00-04:00","r1":"2024-05-01T08:00:00-04:00"},"Crons":{},"Timezone":"America/New_York"},
			{"EventID":"e2","Title":"Standup","Dates":{},"Crons":{"c1":"0 0 9 ? * MON-FRI *"},"Timezone":"Europe/Warsaw"}
		]`))
	}))
	defer server.Close()

	c := New(ClientConfig{BaseURL: server.URL}, staticToken{token: "t"})
	alarms, err := c.GetAlarms(context.Background())
	if err != nil {
		t.Fatalf("GetAlarms: %v", err)
	}
	if len(alarms) != 2 {
		t.Fatalf("len(alarms) = %d, want 2", len(alarms))
	}
	if alarms[0].ID != "e1" || alarms[0].Title != "Take pills" {
		t.Errorf("alarms[0] = %+v", alarms[0])
	}
	dates := alarms[0].OneTimeTriggers()
	if len(dates) != 2 || dates[0] != "2024-05-01T08:00:00-04:00" {
		t.Errorf("OneTimeTriggers = %v, want ordered by rule id", dates)
	}
	if crons := alarms[1].RecurringTriggers(); len(crons) != 1 || crons[0] != "0 0 9 ? * MON-FRI *" {
		t.Errorf("RecurringTriggers = %v", crons)
	}
}

func TestCreateAlarm_SendsPayloadAndReturnsCreated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/alarms" {
			t.Errorf("request = %s %s, want POST /alarms", r.Method, r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["message"] != "Take pills" || body["timezone"] != "America/New_York" {
			t.Errorf("body = %v", body)
		}
		// Empty trigger lists must be sent as [] and not null.
		if crons, ok := body["crons"].([]any); !ok || len(crons) != 0 {
			t.Errorf("crons = %#v, want []", body["crons"])
		}
		writeJSON(w, http.StatusCreated, models.Alarm{
			ID:       "new-id",
			Title:    "Take pills",
			Dates:    map[string]string{"r1": "2024-05-01T08:00:00-04:00"},
			Crons:    map[string]string{},
			Timezone: "America/New_York",
		})
	}))
	defer server.Close()

	c := New(ClientConfig{BaseURL: server.URL}, staticToken{token: "t"})
	created, err := c.CreateAlarm(context.Background(), models.AlarmCreatePayload{
		Message:  "Take pills",
		Dates:    []string{"2024-05-01T08:00:00-04:00"},
		Timezone: "America/New_York",
	})
	if err != nil {
		t.Fatalf("CreateAlarm: %v", err)
	}
	if created.ID != "new-id" {
		t.Errorf("created.ID = %q, want %q", created.ID, "new-id")
	}
}

func TestDeleteAlarm_PathAndBackendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s, want DELETE", r.Method)
		}
		if r.URL.Path == "/alarms/ok" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusNotFound, models.MessageResponse{Message: "alarm not found"})
	}))
	defer server.Close()

	c := New(ClientConfig{BaseURL: server.URL}, staticToken{token: "t"})
	if err := c.DeleteAlarm(context.Background(), "ok"); err != nil {
		t.Fatalf("DeleteAlarm: %v", err)
	}

	err := c.DeleteAlarm(context.Background(), "missing")
	var tErr *models.TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("error = %v, want *models.TransportError", err)
	}
	if tErr.StatusCode != http.StatusNotFound || tErr.Error() != "alarm not found" {
		t.Errorf("TransportError = (%d, %q), want (404, %q)", tErr.StatusCode, tErr.Error(), "alarm not found")
	}
}

func TestPlainTextErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(ClientConfig{BaseURL: server.URL}, staticToken{token: "t"})
	_, err := c.GetAlarms(context.Background())
	if err == nil || err.Error() != "internal server error" {
		t.Errorf("error = %v, want backend text", err)
	}
}

func TestTokenFailureSendsNothing(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	authErr := &models.AuthError{Op: "session", Message: "not logged in"}
	c := New(ClientConfig{BaseURL: server.URL}, staticToken{err: authErr})

	_, err := c.CreateAlarm(context.Background(), models.AlarmCreatePayload{Message: "x"})
	if !errors.Is(err, authErr) {
		t.Errorf("error = %v, want the token error", err)
	}
	if !IsAuthFailure(err) {
		t.Error("IsAuthFailure = false, want true")
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("server received %d requests, want 0", n)
	}
}

func TestPhoneNumberEndpoints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		switch r.URL.Path {
		case "/update-phone-number":
			if body["phone_number"] != "+48123456789" {
				t.Errorf("phone_number = %q", body["phone_number"])
			}
			writeJSON(w, http.StatusOK, models.MessageResponse{Message: "code sent"})
		case "/verify-phone-number":
			if body["verification_code"] != "4321" {
				writeJSON(w, http.StatusBadRequest, models.MessageResponse{Message: "invalid code"})
				return
			}
			writeJSON(w, http.StatusOK, models.MessageResponse{Message: "phone number verified"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	c := New(ClientConfig{BaseURL: server.URL}, staticToken{token: "t"})
	ctx := context.Background()

	msg, err := c.UpdatePhoneNumber(ctx, "+48123456789")
	if err != nil || msg != "code sent" {
		t.Errorf("UpdatePhoneNumber = (%q, %v), want (code sent, nil)", msg, err)
	}
	if _, err := c.VerifyPhoneNumber(ctx, "0000"); err == nil || err.Error() != "invalid code" {
		t.Errorf("VerifyPhoneNumber(bad) error = %v, want %q", err, "invalid code")
	}
	msg, err = c.VerifyPhoneNumber(ctx, "4321")
	if err != nil || msg != "phone number verified" {
		t.Errorf("VerifyPhoneNumber = (%q, %v)", msg, err)
	}
}
