// Package infrastructure provides core service initialization for application startup.
// It assembles the dependencies (logging, persistence, archive, model access) that domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Reflex-Gravity/BarqAdl/internal/config"
	"github.com/Reflex-Gravity/BarqAdl/pkg/database"
	"github.com/Reflex-Gravity/BarqAdl/pkg/lifecycle"
	"github.com/Reflex-Gravity/BarqAdl/pkg/model"
	"github.com/Reflex-Gravity/BarqAdl/pkg/observe"
	"github.com/Reflex-Gravity/BarqAdl/pkg/persistence"
	"github.com/Reflex-Gravity/BarqAdl/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// Database is nil unless the store backend is "database"; Archive is nil
// unless blob storage credentials are configured.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Store     persistence.Store
	Archive   storage.System
	Model     model.Invoker
	Sink      observe.Sink

	sql *persistence.SQL
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := NewLogger(cfg.LogLevel)

	infra := &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Sink:      observe.NewLogger(logger),
	}

	switch cfg.Store.Backend {
	case persistence.BackendDatabase:
		db, err := database.New(&cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("database init failed: %w", err)
		}
		infra.Database = db
		infra.sql = persistence.NewSQL(db.Connection(), db.Driver(), logger)
		infra.Store = infra.sql
	case persistence.BackendMemory:
		infra.Store = persistence.NewMemory()
	default:
		fs, err := persistence.NewFile(cfg.Store.DataDir, logger)
		if err != nil {
			return nil, fmt.Errorf("store init failed: %w", err)
		}
		infra.Store = fs
	}

	if cfg.Storage.Enabled() {
		archive, err := storage.New(&cfg.Storage, logger)
		if err != nil {
			return nil, fmt.Errorf("storage init failed: %w", err)
		}
		infra.Archive = archive
	}

	inv, err := model.New(lc.Context(), &cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("model init failed: %w", err)
	}
	infra.Model = inv

	return infra, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if i.Database != nil {
		if err := i.Database.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("database start failed: %w", err)
		}
	}
	if i.sql != nil {
		if err := i.sql.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("persistence start failed: %w", err)
		}
	}
	if i.Archive != nil {
		if err := i.Archive.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("storage start failed: %w", err)
		}
	}
	return nil
}

// NewLogger returns a text logger on stderr at the named level.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
