// Package app wires configuration, storage, and the macro service together
// for the server and the command line tool.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bcnelson/trigger-macros/internal/config"
	"github.com/bcnelson/trigger-macros/internal/domain"
	"github.com/bcnelson/trigger-macros/internal/fixture"
	"github.com/bcnelson/trigger-macros/internal/resolver"
	"github.com/bcnelson/trigger-macros/internal/service"
	"github.com/bcnelson/trigger-macros/internal/storage"
	"github.com/bcnelson/trigger-macros/internal/storage/sql"
)

// App holds the long-lived components built from configuration.
type App struct {
	Store    storage.Storage
	Resolver *resolver.Resolver
	Service  *service.MacroService
	Logger   *slog.Logger
}

// ResolverOptions translates resolver configuration into resolver options.
func ResolverOptions(cfg *config.ResolverConfig, logger *slog.Logger) ([]resolver.Option, error) {
	mode, err := resolver.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	policy, err := resolver.ParseUnresolvedPolicy(cfg.UnresolvedPolicy)
	if err != nil {
		return nil, err
	}
	return []resolver.Option{
		resolver.WithMode(mode),
		resolver.WithUnresolvedPolicy(policy),
		resolver.WithHistoryPeriod(cfg.HistoryPeriod),
		resolver.WithLogger(logger),
	}, nil
}

// New builds an App over an existing store.
func New(store storage.Storage, cfg *config.Config, logger *slog.Logger) (*App, error) {
	opts, err := ResolverOptions(&cfg.Resolver, logger)
	if err != nil {
		return nil, fmt.Errorf("configuring resolver: %w", err)
	}
	r := resolver.New(store, store, opts...)
	return &App{
		Store:    store,
		Resolver: r,
		Service:  service.NewMacroService(store, r, logger),
		Logger:   logger,
	}, nil
}

// Open connects to the configured database and builds an App.
func Open(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg.Database.Driver == "sqlite3" {
		if dir := sqliteDir(cfg.Database.DSN); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("creating data directory: %w", err)
			}
		}
	}

	store, err := sql.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	a, err := New(store, cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}

// ImportFile loads a fixture file and imports it. A snapshot whose rows
// already exist is reported and skipped.
func (a *App) ImportFile(ctx context.Context, path string) (*domain.ImportSummary, error) {
	state, digest, err := fixture.Load(path)
	if err != nil {
		return nil, err
	}

	summary, err := a.Service.ImportState(ctx, state)
	if errors.Is(err, domain.ErrAlreadyExists) {
		a.Logger.WarnContext(ctx, "fixture already imported", "path", path, "digest", digest)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", path, err)
	}

	a.Logger.InfoContext(ctx, "fixture imported", "path", path, "digest", digest, "batch_id", summary.BatchID)
	return summary, nil
}

// sqliteDir extracts the directory of a file DSN such as file:data/macros.db?_foreign_keys=on.
func sqliteDir(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return ""
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return ""
	}
	return dir
}
