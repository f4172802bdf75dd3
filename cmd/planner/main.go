/*
main.go - Application entry point

PURPOSE:
  Command-line entry for the task planner. The default "serve" command runs
  the HTTP API with background replanning; the other commands work on files
  or on the database directly.

COMMANDS:
  serve      HTTP API, metrics and the replan scheduler
  plan       Plan a snapshot file and print the result as JSON
  scenario   Load a demo scenario into the database
  auth       Authorize Google Calendar access and store the token

STARTUP SEQUENCE (serve):
  1. Load configuration from PLANNER_* environment variables
  2. Set up zerolog
  3. Open the SQLite store
  4. Create the handler, metrics and (optionally) the calendar client
  5. Start the replan scheduler and the HTTP server
  6. Shut down gracefully on SIGINT/SIGTERM

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the replan scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close the database connection

EXAMPLES:
  # Run with an in-memory database on another port
  planner serve --db=":memory:" --port=3000

  # Plan a snapshot file
  planner plan --snapshot week.yaml --days

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/warp/task-planner/api"
	"github.com/warp/task-planner/calendar"
	"github.com/warp/task-planner/config"
	"github.com/warp/task-planner/logging"
	"github.com/warp/task-planner/metrics"
	"github.com/warp/task-planner/store/sqlite"
)

var (
	logger zerolog.Logger
	cfg    *config.Config

	servePort int
	serveDB   string
)

var rootCmd = &cobra.Command{
	Use:           "planner",
	Short:         "Deadline-driven task planner",
	Long:          "Plans tasks into free working time before their deadlines, around busy time and daily limits.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the planner API server",
	Long:  "Start the HTTP API, the metrics endpoint and the background replan scheduler",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP server port (overrides PLANNER_HTTP_PORT)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", `SQLite database path, ":memory:" for a throwaway database (overrides PLANNER_DB_PATH)`)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.ParseLevel(logging.Setup(cfg.Environment), cfg.LogLevel)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.HTTPPort = servePort
	}
	if cmd.Flags().Changed("db") {
		cfg.DBPath = serveDB
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	logger.Info().Str("env", cfg.Environment).Str("timezone", loc.String()).Msg("planner starting")

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	handler := api.NewHandler(store, logger)
	handler.Location = loc
	handler.HorizonDays = cfg.HorizonDays
	handler.Metrics = metrics.New()

	if cfg.CalendarEnabled {
		client, err := newCalendarClient(cmd.Context())
		if err != nil {
			return err
		}
		handler.Calendar = client
		logger.Info().Str("calendar_id", cfg.CalendarID).Msg("google calendar sync enabled")
	}

	scheduler := api.NewReplanScheduler(handler, cfg.ReplanInterval)
	scheduler.Start()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(handler, cfg.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down gracefully...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("planner stopped")
	return nil
}

func authConfig() calendar.AuthConfig {
	return calendar.AuthConfig{
		CredentialsFile: cfg.CredentialsFile,
		TokenFile:       cfg.TokenFile,
		Port:            cfg.AuthPort,
	}
}

func newCalendarClient(ctx context.Context) (*calendar.Client, error) {
	srv, err := authConfig().NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("google calendar: %w", err)
	}
	return calendar.NewClient(srv, cfg.CalendarID, logger), nil
}
