package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateImages(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateAPI() error {
	if _, _, err := net.SplitHostPort(c.API.Bind); err != nil {
		return fmt.Errorf("api.bind must be host:port, got %q: %w", c.API.Bind, err)
	}
	if c.API.ListConcurrency < 1 {
		return errors.New("api.list_concurrency must be at least 1")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Paths.DataDir) == "" {
			return errors.New("paths.data_dir must be set when storage.driver is sqlite")
		}
	case DriverPostgres:
		pg := c.Storage.Postgres
		if pg.User == "" {
			return errors.New("storage.postgres.user must be set when storage.driver is postgres")
		}
		if pg.Port < 1 || pg.Port > 65535 {
			return fmt.Errorf("storage.postgres.port must be between 1 and 65535, got %d", pg.Port)
		}
		switch pg.SSLMode {
		case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
		default:
			return fmt.Errorf("storage.postgres.sslmode: unsupported value %q", pg.SSLMode)
		}
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Storage.Driver)
	}
	return nil
}

func (c *Config) validateImages() error {
	u, err := url.Parse(c.Images.BasePath)
	if err != nil {
		return fmt.Errorf("images.base_path: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("images.base_path must be an http(s) URL, got %q", c.Images.BasePath)
	}
	return nil
}

func (c *Config) validateExport() error {
	if _, err := language.Parse(c.Export.Locale); err != nil {
		return fmt.Errorf("export.locale: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}
