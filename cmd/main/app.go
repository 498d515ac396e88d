package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/CTAG07/bananafilter/pkg/banana"
	"github.com/CTAG07/bananafilter/pkg/filters"
	"github.com/CTAG07/bananafilter/pkg/templating"
	"github.com/CTAG07/bananafilter/pkg/usage"
)

// App wires the filter registry, the usage ledger and the template manager together.
type App struct {
	config   *Config
	logger   *slog.Logger
	registry *filters.Registry
	db       *sql.DB
	recorder *usage.Recorder
	tm       *templating.TemplateManager
}

// NewApp registers the banana provider with registry, opens the usage
// ledger if enabled, and loads the templates from the data directory.
func NewApp(config *Config, logger *slog.Logger, registry *filters.Registry) (*App, error) {
	app := &App{
		config:   config,
		logger:   logger,
		registry: registry,
	}

	banana.Register(registry, logger, *config.Filters)

	if config.Server.RecordUsage {
		if err := app.openUsage(); err != nil {
			return nil, err
		}
		registry.SetObserver(app.recorder)
	}

	tm, err := templating.NewTemplateManager(logger, registry, config.Templates, config.Server.DataDir)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create template manager: %w", err)
	}
	app.tm = tm
	return app, nil
}

func (a *App) openUsage() error {
	path := a.config.Server.UsageDatabasePath
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create usage database dir: %w", err)
	}

	db, err := initDB(path)
	if err != nil {
		return fmt.Errorf("failed to open usage database: %w", err)
	}
	if err = usage.SetupSchema(db); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to setup usage schema: %w", err)
	}
	rec, err := usage.NewRecorder(db, a.logger)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to create usage recorder: %w", err)
	}
	a.db = db
	a.recorder = rec
	return nil
}

// Close detaches the usage ledger from the registry and closes the database.
func (a *App) Close() {
	if a.recorder != nil {
		a.registry.SetObserver(nil)
		a.recorder.Close()
	}
	if a.db != nil {
		a.logger.Debug("Closing database connection.")
		if err := a.db.Close(); err != nil {
			a.logger.Error("Failed to close database", "error", err)
		}
	}
}
