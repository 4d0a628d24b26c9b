package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/adamhollisterbot/water-tracker/internal/logging"
	"github.com/adamhollisterbot/water-tracker/internal/rollover"
	"github.com/adamhollisterbot/water-tracker/internal/storage"
	"github.com/adamhollisterbot/water-tracker/internal/tracker"
	"github.com/adamhollisterbot/water-tracker/internal/update"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "water-tracker failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := update.LoadRuntimeConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{Path: cfg.LogPath, Level: cfg.LogLevel})
	if err != nil {
		logger = logging.Nop()
	}
	defer func() { _ = logger.Sync() }()

	store := openStore(cfg.DBPath, logger)
	defer func() { _ = store.Close() }()

	tr := tracker.New(store, logger, cfg.Goal())

	engine := rollover.NewEngine(cfg.RolloverBuffer)
	engine.Start()
	defer engine.Stop()

	var notifier update.DesktopNotifier = update.NoopDesktopNotifier{}
	if cfg.DesktopNotifications {
		notifier = update.ExecDesktopNotifier{}
	}

	program := tea.NewProgram(update.NewModelWithConfig(tr, engine, notifier, cfg))
	if _, err := program.Run(); err != nil {
		return err
	}

	// Let in-flight saves land before the store closes.
	tr.Flush()
	return nil
}

// openStore opens the SQLite settings store, falling back to a memory-only
// session when the database is unavailable.
func openStore(path string, logger *zap.Logger) storage.Store {
	store, err := storage.OpenSQLite(path)
	if err != nil {
		logger.Warn("sqlite unavailable, running memory-only", zap.String("path", path), zap.Error(err))
		return storage.NewMemoryStore()
	}
	return store
}
