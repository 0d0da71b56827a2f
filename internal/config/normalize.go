package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeStorage()
	c.normalizeImages()
	c.normalizeExport()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("MOVUP_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
	c.API.JWTSecret = strings.TrimSpace(c.API.JWTSecret)
	if c.API.JWTSecret == "" {
		if value, ok := os.LookupEnv("MOVUP_JWT_SECRET"); ok {
			c.API.JWTSecret = strings.TrimSpace(value)
		}
	}
	if c.API.ListConcurrency == 0 {
		c.API.ListConcurrency = defaultListConcurrency
	}
}

func (c *Config) normalizeStorage() {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case "", "sqlite3":
		c.Storage.Driver = DriverSQLite
	case "postgresql", "pgx":
		c.Storage.Driver = DriverPostgres
	}
	pg := &c.Storage.Postgres
	pg.Host = strings.TrimSpace(pg.Host)
	if pg.Host == "" {
		pg.Host = defaultPostgresHost
	}
	if pg.Port == 0 {
		pg.Port = defaultPostgresPort
	}
	pg.User = strings.TrimSpace(pg.User)
	pg.DBName = strings.TrimSpace(pg.DBName)
	if pg.DBName == "" {
		pg.DBName = defaultPostgresDB
	}
	pg.SSLMode = strings.ToLower(strings.TrimSpace(pg.SSLMode))
	if pg.SSLMode == "" {
		pg.SSLMode = defaultPostgresSSLMode
	}
	if pg.Password == "" {
		if value, ok := os.LookupEnv("MOVUP_PG_PASSWORD"); ok {
			pg.Password = value
		}
	}
}

func (c *Config) normalizeImages() {
	c.Images.BasePath = strings.TrimRight(strings.TrimSpace(c.Images.BasePath), "/")
	if c.Images.BasePath == "" {
		c.Images.BasePath = defaultImageBasePath
	}
}

func (c *Config) normalizeExport() {
	c.Export.Locale = strings.TrimSpace(c.Export.Locale)
	if c.Export.Locale == "" {
		c.Export.Locale = defaultExportLocale
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
