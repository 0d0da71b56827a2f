package config

const (
	defaultConfigPath      = "~/.config/movup/config.toml"
	projectConfigName      = "movup.toml"
	databaseFileName       = "movup.db"
	lockFileName           = "movupd.lock"
	defaultDataDir         = "~/.local/share/movup"
	defaultLogDir          = "~/.local/share/movup/logs"
	defaultAPIBind         = "127.0.0.1:8080"
	defaultListConcurrency = 4
	defaultStorageDriver   = DriverSQLite
	defaultPostgresHost    = "localhost"
	defaultPostgresPort    = 5432
	defaultPostgresDB      = "movup"
	defaultPostgresSSLMode = "disable"
	defaultImageBasePath   = "http://127.0.0.1:8000"
	defaultExportLocale    = "pt-BR"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		API: API{
			Bind:            defaultAPIBind,
			ListConcurrency: defaultListConcurrency,
		},
		Storage: Storage{
			Driver: defaultStorageDriver,
			Postgres: Postgres{
				Host:    defaultPostgresHost,
				Port:    defaultPostgresPort,
				DBName:  defaultPostgresDB,
				SSLMode: defaultPostgresSSLMode,
			},
		},
		Images: Images{
			BasePath: defaultImageBasePath,
		},
		Export: Export{
			Locale: defaultExportLocale,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
