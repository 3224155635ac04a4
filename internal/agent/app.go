// Package agent initializes and runs the capture agent: it opens the local
// store, wires the capture engine, and runs the intake API, the retry
// sweeper and the backend reachability watcher until shutdown.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/webtrail/internal/agent/backend"
	"github.com/dmitrijs2005/webtrail/internal/agent/config"
	"github.com/dmitrijs2005/webtrail/internal/agent/engine"
	"github.com/dmitrijs2005/webtrail/internal/agent/httpapi"
	"github.com/dmitrijs2005/webtrail/internal/agent/storage"
	"github.com/dmitrijs2005/webtrail/internal/logging"
)

// Mode reflects whether the collection backend is currently reachable.
type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

type App struct {
	config *config.Config
	logger logging.Logger
	engine *engine.Engine
	server *httpapi.Server
	client backend.Client
	close  func() error

	mu   sync.Mutex
	mode Mode
}

// NewApp builds the application from configuration.
func NewApp(c *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	ctx := context.Background()

	db, adapter, err := storage.Open(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	client := backend.NewHTTPClient(c.BackendURL, c.DeliveryTimeout)
	tabs := httpapi.NewTabRegistry()

	eng := engine.New(adapter, client, tabs, c.MaxQueueAge, logger)
	srv := httpapi.New(eng, tabs, c.ListenAddr, logger)

	return &App{
		config: c,
		logger: logger,
		engine: eng,
		server: srv,
		client: client,
		close:  db.Close,
		mode:   ModeOffline,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) setMode(ctx context.Context, mode Mode) {
	app.mu.Lock()
	changed := app.mode != mode
	app.mode = mode
	app.mu.Unlock()

	if changed {
		app.logger.Info(ctx, "backend reachability changed", "mode", mode)
		if mode == ModeOnline {
			// Flush the queue right away instead of waiting for the
			// next scheduled sweep.
			app.engine.Sweep(ctx)
		}
	}
}

// startOnlineStatusWatcher probes the backend every interval and keeps the
// app's mode current. Going online triggers an immediate sweep.
func (app *App) startOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := app.client.Ping(probeCtx)
			cancel()

			if err != nil {
				app.setMode(ctx, ModeOffline)
			} else {
				app.setMode(ctx, ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting agent",
		"addr", app.config.ListenAddr, "backend", app.config.BackendURL, "db", app.config.DatabasePath)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	// The readiness probe runs alongside the intake server: capture must
	// never wait on a backend that is still coming up.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := backend.WaitReady(ctx, app.client, 10*time.Second); err != nil {
			app.logger.Warn(ctx, "backend not reachable at startup, capturing offline", "error", err)
			return
		}
		app.setMode(ctx, ModeOnline)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.engine.RunSweeper(ctx, app.config.SweepInterval)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startOnlineStatusWatcher(ctx, app.config.OnlineCheckInterval)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, "intake server stopped", "error", err)
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.close(); err != nil {
		app.logger.Error(ctx, "failed to close database", "error", err)
	}
}
