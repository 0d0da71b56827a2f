// Package daemonrun wires configuration, logging, storage, and the HTTP
// daemon into a foreground process that runs until signalled.
package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"movup/internal/api"
	"movup/internal/assembler"
	"movup/internal/config"
	"movup/internal/logging"
	"movup/internal/server"
	"movup/internal/store"
	"movup/internal/worstframe"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Ready, when set, receives the bound address once the listener is up.
	Ready func(addr string)
}

// Run starts the movup daemon and blocks until ctx is cancelled or the
// process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	outputs := []string{"stdout"}
	var logPath string
	if cfg.Paths.LogDir != "" {
		if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
			return fmt.Errorf("ensure log directory: %w", err)
		}
		logPath = filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("movup-%s.log", runID))
		outputs = append(outputs, logPath)
	}

	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update movup.log link: %v\n", err)
	}
	logConfigSnapshot(logger, cfg)

	pidPath := filepath.Join(cfg.Paths.DataDir, "movup.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	st, err := store.Open(signalCtx, cfg)
	if err != nil {
		logger.Error("open report store", logging.Error(err))
		return err
	}
	defer st.Close()

	svc := NewService(cfg, st, logger)
	d, err := server.New(cfg, svc, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	if err := d.Start(signalCtx); err != nil {
		logging.WarnWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.String(logging.FieldErrorHint, "check api.bind and that no other movup daemon holds the lock"),
			logging.String(logging.FieldImpact, "reports cannot be stored or listed"),
			logging.Error(err),
		)
		return err
	}
	defer d.Stop()
	if opts.Ready != nil {
		opts.Ready(d.Addr())
	}

	<-signalCtx.Done()
	logger.Info("movup daemon shutting down")
	return nil
}

// NewService builds the analysis service the daemon and CLI share.
func NewService(cfg *config.Config, st api.RecordStore, logger *slog.Logger) *api.AnalysisService {
	selector := worstframe.New(worstframe.Options{BasePath: cfg.Images.BasePath})
	return api.NewAnalysisService(st, api.ServiceOptions{
		Presenter:   assembler.NewPresenter(selector),
		Logger:      logger,
		Concurrency: cfg.API.ListConcurrency,
	})
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "movup.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("bind", cfg.API.Bind),
		logging.String("storage_driver", cfg.Storage.Driver),
		logging.Bool("api_token_set", strings.TrimSpace(cfg.API.Token) != ""),
		logging.Bool("jwt_secret_set", strings.TrimSpace(cfg.API.JWTSecret) != ""),
		logging.Int("list_concurrency", cfg.API.ListConcurrency),
		logging.String("image_base", cfg.Images.BasePath),
	)
}
