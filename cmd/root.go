package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"reminder-cli/internal/auth"
	"reminder-cli/internal/client"
	"reminder-cli/internal/config"
	"reminder-cli/internal/logger"
	"reminder-cli/internal/notify"
	"reminder-cli/internal/schedule"
)

var cfgFile string
var jsonOutput bool

var appLog = slog.Default()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reminder-cli",
	Short: "A CLI for managing scheduled reminders",
	Long: `Create, list and delete reminder alarms with one-time dates and
recurring cron schedules. Alarms are stored by the reminder backend and
delivered by text message.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() {
		config.InitConfig(cfgFile)
		appLog = logger.SetupDefault(os.Stderr, config.Load().LogLevel)
	})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.reminder-cli.yaml)")

	// Add the persistent flag here
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
}

// fail prints the error the same way for every command and exits.
func fail(action string, err error) {
	fmt.Printf("Error %s: %v\n", action, err)
	os.Exit(1)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fail("encoding JSON", err)
	}
}

// getGateway builds the session gateway from the config file. The
// persisted session, if any, is restored.
func getGateway(ctx context.Context) *auth.Gateway {
	settings := config.Load()
	if err := settings.RequireIdentity(); err != nil {
		fail("loading config", err)
	}

	idp, err := auth.NewCognitoClient(ctx, settings.Region)
	if err != nil {
		fail("connecting to identity provider", err)
	}

	return auth.NewGateway(idp, auth.GatewayConfig{
		ClientID:     settings.ClientID,
		ClientSecret: settings.ClientSecret,
	}, config.SessionStore{}, appLog)
}

// getAlarmClient returns an authenticated API client. Commands behind
// it are only reachable with a stored session.
func getAlarmClient(ctx context.Context) (*client.AlarmClient, *auth.Gateway) {
	gw := getGateway(ctx)
	if !gw.LoggedIn() {
		fmt.Println("Error: Not logged in. Please run 'reminder-cli login' first.")
		os.Exit(1)
	}
	return newAlarmClient(gw), gw
}

func newAlarmClient(gw *auth.Gateway) *client.AlarmClient {
	settings := config.Load()
	if err := settings.RequireAPI(); err != nil {
		fail("loading config", err)
	}

	return client.New(client.ClientConfig{
		BaseURL: settings.APIBaseURL,
		Timeout: 30 * time.Second,
		Logger:  appLog,
	}, gw)
}

// userLocation resolves the timezone alarms are composed in.
func userLocation() (*time.Location, string) {
	loc, name, err := schedule.LoadTimezone(config.Load().Timezone)
	if err != nil {
		fail("loading timezone", err)
	}
	return loc, name
}

func newNotifier() *notify.Notifier {
	return notify.New(os.Stdout, config.Load().NotifyDuration)
}
