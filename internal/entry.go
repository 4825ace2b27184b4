// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/waystation/internal/apperr"
	"github.com/starford/waystation/internal/index"
	"github.com/starford/waystation/internal/listeners"
	"github.com/starford/waystation/internal/mcpserver"
	"github.com/starford/waystation/internal/notify"
	"github.com/starford/waystation/internal/stationservice"
	"github.com/starford/waystation/internal/storage"
	"github.com/starford/waystation/internal/waystation"
)

// App is a fully wired Waystation application.
type App struct {
	Config     *Config
	Logger     *slog.Logger
	Service    *stationservice.Service
	Store      storage.Provider
	WorkingDir string

	db       *index.DB
	notifier *notify.Notifier
}

// Open wires storage, the notifier and its subscribers, the optional search
// index and the service from the given options.
func Open(ctx context.Context, opts ...Option) (*App, error) {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config
	if err := cfg.Resolve(); err != nil {
		return nil, fmt.Errorf("resolve config: %w", err)
	}

	logger := app.logger
	if logger == nil {
		out := app.logOutput
		if out == nil {
			out = os.Stderr
		}
		logger = newLogger(out, cfg.App.LogLevel)
	}

	logger.Debug("Configuration loaded",
		slog.String("storage_directory", cfg.Storage.Directory),
		slog.Bool("index_enabled", cfg.Index.Enabled),
		slog.String("index_path", cfg.Index.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	workingDir := app.workingDir
	if workingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("working directory: %w", err)
		}
		workingDir = wd
	}

	store, err := storage.NewFS(cfg.Storage.Directory)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	engineOpts := []waystation.Option{
		waystation.WithDefaultDirectory(cfg.Storage.Directory),
		waystation.WithPathResolver(PathResolver(workingDir)),
	}
	if app.newID != nil {
		engineOpts = append(engineOpts, waystation.WithIDGenerator(app.newID))
	}
	engine := waystation.New(engineOpts...)
	docs := storage.NewDocuments(store, engine.Defaults())

	var db *index.DB
	if cfg.Index.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Index.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create index dir: %w", err)
		}
		db, err = index.Open(cfg.Index.Path)
		if err != nil {
			return nil, fmt.Errorf("init index: %w", err)
		}
		if err := index.Sync(db, store, logger); err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
	}

	n := notify.New()
	persister := &listeners.Persister{
		Documents: docs,
		Enrichers: []listeners.Enricher{listeners.FileContext{Engine: engine, Lines: cfg.Context.Lines}},
		Logger:    logger,
	}
	svcOpts := []stationservice.Option{
		stationservice.WithRecentLimit(cfg.Recent.Limit),
		stationservice.WithExportDirectory(cfg.Export.Directory),
		stationservice.WithLogger(logger),
	}
	if db != nil {
		persister.Index = db
		svcOpts = append(svcOpts, stationservice.WithIndex(db))
	}
	persister.Register(n)
	n.Subscribe(listeners.EventLogger(logger))

	return &App{
		Config:     cfg,
		Logger:     logger,
		Service:    stationservice.New(engine, docs, n, svcOpts...),
		Store:      store,
		WorkingDir: workingDir,
		db:         db,
		notifier:   n,
	}, nil
}

// Close stops the notifier and closes the index.
func (a *App) Close() error {
	a.notifier.Close()
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Watch keeps the search index in step with backups changed on disk until
// ctx is cancelled or the process receives SIGINT or SIGTERM.
func (a *App) Watch(ctx context.Context) error {
	if a.db == nil {
		return apperr.ErrIndexDisabled
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return index.Watch(gCtx, a.db, a.Store, a.Logger, func(kind, id string) {
			a.Logger.Info("index changed", slog.String("op", kind), slog.String("waystation_id", id))
		})
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			a.Logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ServeMCP serves the MCP tools on stdin and stdout.
func (a *App) ServeMCP(version string) error {
	return mcpserver.New(a.Service, version).ServeStdio()
}

// PathResolver returns a resolver that turns relative paths naming an
// existing file under dir into absolute paths. Anything else is returned
// unchanged, so free text survives as a mark path.
func PathResolver(dir string) func(string) string {
	return func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		candidate := filepath.Join(dir, p)
		if _, err := os.Stat(candidate); err != nil {
			return p
		}
		return candidate
	}
}

func newLogger(out io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: level,
	}))
}
