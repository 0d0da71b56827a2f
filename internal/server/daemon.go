package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"movup/internal/api"
	"movup/internal/config"
	"movup/internal/logging"
)

// Daemon serves the HTTP API and enforces single-instance execution.
type Daemon struct {
	bind    string
	logger  *slog.Logger
	handler http.Handler

	lockPath string
	lock     *flock.Flock

	listener net.Listener
	server   *http.Server
	running  atomic.Bool
}

// New constructs a daemon around svc. The lock file lives in data_dir.
func New(cfg *config.Config, svc *api.AnalysisService, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || svc == nil {
		return nil, errors.New("daemon requires config and analysis service")
	}
	bind := strings.TrimSpace(cfg.API.Bind)
	if bind == "" {
		return nil, errors.New("api bind address is empty")
	}
	logger = logging.NewComponentLogger(logger, "server")

	h := &handlers{
		svc:       svc,
		logger:    logger,
		lockPath:  cfg.LockPath(),
		imageBase: cfg.Images.BasePath,
	}
	d := &Daemon{
		bind:     bind,
		logger:   logger,
		handler:  h.routes(newAuthenticator(cfg.API.Token, cfg.API.JWTSecret)),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	d.server = &http.Server{
		Handler:           d.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return d, nil
}

// Handler exposes the routed handler, including middleware.
func (d *Daemon) Handler() http.Handler { return d.handler }

// Addr returns the bound listener address once started.
func (d *Daemon) Addr() string {
	if d.listener == nil {
		return ""
	}
	return d.listener.Addr().String()
}

// Start acquires the daemon lock and begins serving. The server shuts down
// when ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another movup daemon instance is already running")
	}

	listener, err := net.Listen("tcp", d.bind)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("api listen: %w", err)
	}
	d.listener = listener
	d.running.Store(true)

	go func() {
		if err := d.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		d.Stop()
	}()

	d.logger.Info("movup daemon started",
		logging.String("address", listener.Addr().String()),
		logging.String("lock", d.lockPath),
	)
	return nil
}

// Stop shuts down the server and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.CompareAndSwap(true, false) {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = d.server.Shutdown(shutdownCtx)
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.logger.Info("movup daemon stopped")
}
