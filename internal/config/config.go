package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"reminder-cli/pkg/models"
)

// Config keys. Environment variables use the upper-cased key with dots
// replaced by underscores (API_BASE_URL, COGNITO_CLIENT_ID, ...).
const (
	KeyAPIBaseURL     = "api_base_url"
	KeyUserPoolID     = "cognito_user_pool_id"
	KeyClientID       = "cognito_client_id"
	KeyClientSecret   = "cognito_client_secret"
	KeyRegion         = "aws_region"
	KeyTimezone       = "timezone"
	KeyLogLevel       = "log_level"
	KeyNotifyDuration = "notify_duration"

	keySessionUser    = "session.username"
	keySessionPool    = "session.pool_username"
	keySessionID      = "session.id_token"
	keySessionAccess  = "session.access_token"
	keySessionRefresh = "session.refresh_token"
	keySessionExpires = "session.expires_at"
)

const configName = ".reminder-cli"

// fileMode keeps the stored tokens readable by the owner only.
const fileMode os.FileMode = 0o600

// InitConfig reads in config file and ENV variables if set.
// A .env file in the working directory is loaded first so its values
// behave like real environment variables.
func InitConfig(cfgFile string) {
	_ = godotenv.Load()

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".reminder-cli" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(configName)
	}

	viper.SetConfigPermissions(fileMode)
	SetDefaults()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// A missing file is fine: everything can come from the environment.
	_ = viper.ReadInConfig()
}

// SetDefaults registers the optional settings.
func SetDefaults() {
	viper.SetDefault(KeyLogLevel, "warn")
	viper.SetDefault(KeyNotifyDuration, "2500ms")
	viper.SetDefault(KeyTimezone, "")
}

// Settings is the resolved, read-only view of the configuration.
type Settings struct {
	APIBaseURL     string
	UserPoolID     string
	ClientID       string
	ClientSecret   string
	Region         string
	Timezone       string
	LogLevel       string
	NotifyDuration time.Duration
}

// Load resolves Settings from viper. Validation of required keys is left
// to RequireAPI and RequireIdentity since not every command needs both.
func Load() *Settings {
	s := &Settings{
		APIBaseURL:   strings.TrimRight(viper.GetString(KeyAPIBaseURL), "/"),
		UserPoolID:   viper.GetString(KeyUserPoolID),
		ClientID:     viper.GetString(KeyClientID),
		ClientSecret: viper.GetString(KeyClientSecret),
		Region:       viper.GetString(KeyRegion),
		Timezone:     viper.GetString(KeyTimezone),
		LogLevel:     viper.GetString(KeyLogLevel),
	}

	// Pool ids look like "eu-central-1_AbCdEf"; the prefix is the region.
	if s.Region == "" {
		if region, _, ok := strings.Cut(s.UserPoolID, "_"); ok {
			s.Region = region
		}
	}

	s.NotifyDuration = 2500 * time.Millisecond
	if d, err := time.ParseDuration(viper.GetString(KeyNotifyDuration)); err == nil && d > 0 {
		s.NotifyDuration = d
	}
	return s
}

// RequireAPI checks the settings needed to reach the backend.
func (s *Settings) RequireAPI() error {
	if s.APIBaseURL == "" {
		return fmt.Errorf("required settings are not set: %v", []string{KeyAPIBaseURL})
	}
	return nil
}

// RequireIdentity checks the settings needed to reach the identity provider.
func (s *Settings) RequireIdentity() error {
	var missing []string
	if s.UserPoolID == "" {
		missing = append(missing, KeyUserPoolID)
	}
	if s.ClientID == "" {
		missing = append(missing, KeyClientID)
	}
	if s.Region == "" {
		missing = append(missing, KeyRegion)
	}
	if len(missing) > 0 {
		return fmt.Errorf("required settings are not set: %v", missing)
	}
	return nil
}

// LoadSession returns the persisted session, or an empty one.
func LoadSession() models.Session {
	s := models.Session{
		Username:     viper.GetString(keySessionUser),
		PoolUsername: viper.GetString(keySessionPool),
		IDToken:      viper.GetString(keySessionID),
		AccessToken:  viper.GetString(keySessionAccess),
		RefreshToken: viper.GetString(keySessionRefresh),
	}
	if t, err := time.Parse(time.RFC3339, viper.GetString(keySessionExpires)); err == nil {
		s.ExpiresAt = t
	}
	return s
}

// SaveSession updates the config file with the new session
func SaveSession(s models.Session) error {
	viper.Set(keySessionUser, s.Username)
	viper.Set(keySessionPool, s.PoolUsername)
	viper.Set(keySessionID, s.IDToken)
	viper.Set(keySessionAccess, s.AccessToken)
	viper.Set(keySessionRefresh, s.RefreshToken)
	expires := ""
	if !s.ExpiresAt.IsZero() {
		expires = s.ExpiresAt.UTC().Format(time.RFC3339)
	}
	viper.Set(keySessionExpires, expires)

	return writeConfig()
}

// ClearSession removes the session from the config file.
func ClearSession() error {
	return SaveSession(models.Session{})
}

func writeConfig() error {
	viper.SetConfigPermissions(fileMode)
	path := viper.ConfigFileUsed()

	// Ensure the file exists before writing
	if err := viper.WriteConfig(); err != nil {
		// If file doesn't exist, create it
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return viper.SafeWriteConfig()
		}
		// If it exists but failed to write, try writing to default path
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, configName+".yaml")
		if err := viper.WriteConfigAs(path); err != nil {
			return err
		}
	}

	// Files created before the mode was set keep their old permissions.
	if path == "" {
		return nil
	}
	return os.Chmod(path, fileMode)
}

// SessionStore persists the session in the viper config file.
type SessionStore struct{}

func (SessionStore) Load() models.Session        { return LoadSession() }
func (SessionStore) Save(s models.Session) error { return SaveSession(s) }
func (SessionStore) Clear() error                { return ClearSession() }
