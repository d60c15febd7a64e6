// Package cli holds the start-up steps shared by cmd/roora, cmd/roora-worker
// and cmd/roora-admin.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"roora/internal/amqp"
	"roora/internal/config"
	"roora/internal/log"
	"roora/internal/sheets"
	gsheet "roora/internal/sheets/google"
	mem "roora/internal/sheets/memory"
	"roora/internal/storage"
	"roora/internal/telemetry"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig parses and validates the environment, exiting on failure.
// The returned logger follows LOG_FORMAT and LOG_LEVEL and is installed as
// the slog default.
func LoadConfig(component string) (*config.Config, *log.Logger) {
	cfg, err := config.Load()
	if err != nil {
		log.Setup("text", "info", component).Error("Failed to load configuration", log.FieldError, err)
		os.Exit(1)
	}
	logger := log.Setup(cfg.LogFormat, cfg.LogLevel, component)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			log.FieldError, err, log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg, logger
}

// InitSQLite opens the repository, applying pending migrations, or exits.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository",
			log.FieldError, err, log.FieldErrorType, log.ErrorTypeDatabase, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// InitAMQP dials the broker when AMQP_URL is set. It returns nil when AMQP
// is disabled.
func InitAMQP(logger *log.Logger, cfg *config.Config) (*amqp.Client, error) {
	if !cfg.AMQPEnabled() {
		logger.Info("AMQP disabled, no AMQP_URL provided")
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, err
	}
	logger.Info("AMQP client connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, nil
}

// InitExporter returns the Google Sheets exporter when a spreadsheet is
// configured and the in-memory one otherwise.
func InitExporter(ctx context.Context, logger *log.Logger, cfg *config.Config) (sheets.BudgetExporter, error) {
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets disabled, budgets export to memory only")
		return mem.New(), nil
	}
	client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, gsheet.Credentials{
		JSON: cfg.GoogleServiceAccountJSON,
		File: cfg.GoogleServiceAccountFile,

		OAuthClientFile: cfg.GoogleOAuthClientFile,
		OAuthTokenFile:  cfg.GoogleOAuthTokenFile,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets exporter ready", log.FieldSpreadsheet, cfg.GoogleSpreadsheetID)
	return client, nil
}

// InitTelemetry installs the OTLP tracer provider when an endpoint is set.
// Failures disable tracing rather than stopping the process.
func InitTelemetry(ctx context.Context, logger *log.Logger, cfg *config.Config) func(context.Context) error {
	shutdown, err := telemetry.Setup(ctx, cfg.OTELEndpoint, cfg.OTELServiceName)
	if err != nil {
		logger.Warn("Tracing disabled", log.FieldError, err)
	}
	return shutdown
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
