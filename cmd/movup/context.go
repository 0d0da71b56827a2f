package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"movup/internal/api"
	"movup/internal/config"
	"movup/internal/daemonrun"
	"movup/internal/logging"
	"movup/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(c.flagPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

func (c *commandContext) flagPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// session bundles the store and service a one-shot command works against.
type session struct {
	cfg     *config.Config
	store   store.Store
	service *api.AnalysisService
}

func (s *session) Close() error {
	return s.store.Close()
}

// openSession opens the configured store. One-shot commands log to stderr at
// warn level unless debug logging is configured.
func (c *commandContext) openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	logger, err := logging.New(logging.Options{
		Level:       cliLogLevel(cfg.Logging.Level),
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &session{cfg: cfg, store: st, service: daemonrun.NewService(cfg, st, logger)}, nil
}

func cliLogLevel(level string) string {
	if strings.EqualFold(strings.TrimSpace(level), "debug") {
		return "debug"
	}
	return "warn"
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
