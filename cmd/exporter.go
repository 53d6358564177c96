package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/kardianos/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"reminder-cli/internal/auth"
	"reminder-cli/internal/client"
	"reminder-cli/internal/metrics"
)

// Variables to hold flag values
var (
	expUser       string
	expPass       string
	expPort       string
	expInterval   time.Duration
	serviceAction string // "install", "uninstall", "start", "stop"
)

// --- SERVICE WRAPPER ---

// program implements the kardianos/service interface
type program struct {
	server *http.Server
	api    *client.AlarmClient
	gw     *auth.Gateway
	logger *slog.Logger
}

func (p *program) Start(s service.Service) error {
	// Start should not block. Do the actual work async.
	go p.run()
	return nil
}

// relogin signs in with the exporter's own credentials, if it has any.
func (p *program) relogin(ctx context.Context) error {
	if expPass == "" {
		return fmt.Errorf("no credentials to sign in again")
	}
	_, err := p.gw.Authenticate(ctx, expUser, expPass)
	return err
}

func (p *program) run() {
	// 1. Initial token check
	p.logger.Info("checking session")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	_, err := p.gw.IDToken(ctx)
	if err != nil && expPass != "" {
		err = p.relogin(ctx)
	}
	cancel()
	if err != nil {
		p.logger.Error("initial sign in failed", "error", err)
		// Exit so the service manager attempts a restart.
		os.Exit(1)
	}
	p.logger.Info("session ready", "username", p.gw.Username())

	// 2. Setup Prometheus
	registry := prometheus.NewRegistry()
	collector := &metrics.AlarmCollector{
		Source:  p.api,
		Relogin: p.relogin,
		Limiter: rate.NewLimiter(rate.Every(expInterval), 1),
		Logger:  p.logger,
	}
	registry.MustRegister(collector)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorLog: slog.NewLogLogger(p.logger.Handler(), slog.LevelError),
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	addr := fmt.Sprintf(":%s", expPort)
	p.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	p.logger.Info("exporter listening", "addr", addr)

	// Blocking call to listen
	if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		p.logger.Error("http server error", "error", err)
	}
}

func (p *program) Stop(s service.Service) error {
	// Stop should not block. Signal the app to stop.
	p.logger.Info("stopping service")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if p.server != nil {
		if err := p.server.Shutdown(ctx); err != nil {
			p.logger.Warn("server forced to shutdown", "error", err)
		}
	}
	return nil
}

// --- COMMAND ---

var exporterCmd = &cobra.Command{
	Use:   "exporter",
	Short: "Start Prometheus Exporter service",
	Long: `Starts a long-running HTTP server that exposes your alarm inventory
as Prometheus metrics. Uses the stored session, or --username and
--password to sign in again when it expires.
Can be installed as a system service.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Define Service Configuration
		svcConfig := &service.Config{
			Name:        "reminder-exporter",
			DisplayName: "Reminder Prometheus Exporter",
			Description: "Exposes reminder alarm metrics to Prometheus",
			// Arguments passed to the binary when run as a service
			Arguments: []string{"exporter", "--port", expPort, "--min-interval", expInterval.String()},
		}
		if cfgFile != "" {
			svcConfig.Arguments = append(svcConfig.Arguments, "--config", cfgFile)
		}
		if expPass != "" {
			svcConfig.Arguments = append(svcConfig.Arguments, "--username", expUser, "--password", expPass)
		}

		// 2. Handle Service Control Actions (Install, Start, Stop, Uninstall)
		if serviceAction != "" {
			prg := &program{logger: appLog}
			s, err := service.New(prg, svcConfig)
			if err != nil {
				fail("creating service", err)
			}
			if err := service.Control(s, serviceAction); err != nil {
				fmt.Printf("Failed to %s service: %v\n", serviceAction, err)
				os.Exit(1)
			}
			fmt.Printf("Service action '%s' completed successfully.\n", serviceAction)
			return
		}

		// 3. Run the Service (Blocking)
		// This happens when the Service Manager starts the binary, OR when run interactively without flags
		ctx := context.Background()
		gw := getGateway(ctx)
		if !gw.LoggedIn() && expPass == "" {
			fmt.Println("Error: Not logged in. Run 'reminder-cli login' or pass --username and --password.")
			os.Exit(1)
		}
		api := newAlarmClient(gw)

		prg := &program{api: api, gw: gw, logger: appLog}
		s, err := service.New(prg, svcConfig)
		if err != nil {
			fail("creating service", err)
		}

		logger, err := s.Logger(nil)
		if err != nil {
			fail("opening service logger", err)
		}
		if err = s.Run(); err != nil {
			logger.Error(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(exporterCmd)
	exporterCmd.Flags().StringVar(&expUser, "username", "", "Username used to sign in again when the session expires")
	exporterCmd.Flags().StringVar(&expPass, "password", "", "Password used to sign in again when the session expires")
	exporterCmd.Flags().StringVar(&expPort, "port", "9100", "Port to listen on")
	exporterCmd.Flags().DurationVar(&expInterval, "min-interval", 15*time.Second, "Minimum time between backend calls; faster scrapes get the last result")

	exporterCmd.Flags().StringVar(&serviceAction, "service", "", "Service action: install, uninstall, start, stop")
}
