// Package server initializes and runs the gophauth server: it opens the
// database, applies migrations, picks the session backend, and serves HTTP
// until a termination signal arrives.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/web"
)

const sweepInterval = 10 * time.Minute

type App struct {
	config  *config.Config
	logger  logging.Logger
	backend *Backend
	http    *web.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	b, err := OpenBackend(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	srv, err := web.NewServer(c.EndpointAddrHTTP, logger, b.Auth, web.CookieSettings{
		Name:   c.CookieName,
		Secure: c.CookieSecure,
		TTL:    c.SessionTTL,
		Secret: []byte(c.SecretKey),
	})
	if err != nil {
		b.Close()
		return nil, err
	}

	return &App{config: c, logger: logger, backend: b, http: srv}, nil
}

// initSignalHandler cancels on SIGINT, SIGTERM or SIGQUIT. The returned stop
// unregisters the handler and waits for its goroutine to exit; call it after
// ctx is done.
func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) (stop func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()

	return func() {
		signal.Stop(sigs)
		<-done
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.http.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server", "error", err)
		cancelFunc()
	}
}

// sweepSessions purges expired sessions every interval until ctx ends.
func (app *App) sweepSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.backend.Sessions.PurgeExpired(ctx)
			if err != nil {
				app.logger.Warn(ctx, "purge expired sessions", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Debug(ctx, "purged expired sessions", "count", n)
			}
		}
	}
}

// Run blocks until a termination signal arrives or the HTTP server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "session_backend", app.config.SessionBackend)

	stopSignals := app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.sweepSessions(ctx, sweepInterval)
	}()

	wg.Wait()
	cancelFunc()
	stopSignals()

	app.backend.Close()
	app.logger.Info(context.Background(), "App stopped")
}
