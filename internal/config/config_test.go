package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"reminder-cli/pkg/models"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func TestLoad_FromEnvironment(t *testing.T) {
	resetViper(t)
	t.Setenv("API_BASE_URL", "https://api.example.com/prod/")
	t.Setenv("COGNITO_USER_POOL_ID", "eu-central-1_AbCdEf")
	t.Setenv("COGNITO_CLIENT_ID", "client-123")

	s := Load()

	if s.APIBaseURL != "https://api.example.com/prod" {
		t.Errorf("APIBaseURL = %q, want trailing slash trimmed", s.APIBaseURL)
	}
	if s.ClientID != "client-123" {
		t.Errorf("ClientID = %q, want %q", s.ClientID, "client-123")
	}
	if s.Region != "eu-central-1" {
		t.Errorf("Region = %q, want region derived from pool id", s.Region)
	}
	if err := s.RequireAPI(); err != nil {
		t.Errorf("RequireAPI() = %v, want nil", err)
	}
	if err := s.RequireIdentity(); err != nil {
		t.Errorf("RequireIdentity() = %v, want nil", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	resetViper(t)

	s := Load()

	if s.NotifyDuration != 2500*time.Millisecond {
		t.Errorf("NotifyDuration = %v, want %v", s.NotifyDuration, 2500*time.Millisecond)
	}
	if s.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want %q", s.LogLevel, "warn")
	}
}

func TestLoad_ExplicitRegionWins(t *testing.T) {
	resetViper(t)
	t.Setenv("COGNITO_USER_POOL_ID", "eu-central-1_AbCdEf")
	t.Setenv("AWS_REGION", "us-east-1")

	if got := Load().Region; got != "us-east-1" {
		t.Errorf("Region = %q, want %q", got, "us-east-1")
	}
}

func TestRequire_ReportsMissing(t *testing.T) {
	resetViper(t)

	s := Load()
	err := s.RequireAPI()
	if err == nil || !strings.Contains(err.Error(), KeyAPIBaseURL) {
		t.Errorf("RequireAPI() = %v, want error naming %s", err, KeyAPIBaseURL)
	}
	err = s.RequireIdentity()
	if err == nil || !strings.Contains(err.Error(), KeyUserPoolID) || !strings.Contains(err.Error(), KeyClientID) {
		t.Errorf("RequireIdentity() = %v, want error naming pool and client", err)
	}
}

func TestSessionPersistence(t *testing.T) {
	resetViper(t)
	path := filepath.Join(t.TempDir(), "reminder.yaml")
	viper.SetConfigFile(path)

	expires := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	in := models.Session{
		Username:     "alice@example.com",
		PoolUsername: "8f0c1b2e-pool",
		IDToken:      "id-token",
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    expires,
	}
	if err := SaveSession(in); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config file mode = %v, want %v", perm, os.FileMode(0o600))
	}

	viper.Reset()
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}

	out := LoadSession()
	if out.Username != in.Username || out.PoolUsername != in.PoolUsername || out.IDToken != in.IDToken || out.RefreshToken != in.RefreshToken {
		t.Errorf("LoadSession = %+v, want %+v", out, in)
	}
	if !out.ExpiresAt.Equal(expires) {
		t.Errorf("ExpiresAt = %v, want %v", out.ExpiresAt, expires)
	}

	if err := ClearSession(); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}
	if s := LoadSession(); !s.Empty() {
		t.Errorf("LoadSession after ClearSession = %+v, want empty", s)
	}
}

func TestSaveSession_TightensExistingFile(t *testing.T) {
	resetViper(t)
	path := filepath.Join(t.TempDir(), "reminder.yaml")
	if err := os.WriteFile(path, []byte("timezone: Europe/Berlin\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}

	if err := SaveSession(models.Session{Username: "alice@example.com", RefreshToken: "refresh-token"}); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config file mode = %v, want %v", perm, os.FileMode(0o600))
	}
	if got := viper.GetString(KeyTimezone); got != "Europe/Berlin" {
		t.Errorf("timezone = %q, want existing settings kept", got)
	}
}
