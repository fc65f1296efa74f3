package app

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrConfig is returned when the runtime configuration is inconsistent.
var ErrConfig = errors.New("app: invalid config")

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Identity sources.
const (
	IdentityPostgres = "postgres"
	IdentityFile     = "file"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	StoreDriver string
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	SQLitePath  string
	DBMigrate   bool

	RedisURL string

	IdentitySource string
	IdentityFile   string
	IdentityWatch  bool

	// SweepInterval schedules the retention sweep. Zero disables it.
	SweepInterval time.Duration

	// If true, /readyz returns 503 unless a database store is reachable.
	ReadinessRequireDB bool

	// If true, TALENTHUB_TOKEN_HMAC_KEY must be set and renewal secrets are
	// stored as keyed digests.
	RequireTokenHMAC bool

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() (Config, error) {
	cfg := Config{
		HTTPAddr:  EnvString("TALENTHUB_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("TALENTHUB_LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(EnvString("TALENTHUB_LOG_FORMAT", "json")),

		ReadHeaderTimeout: EnvDuration("TALENTHUB_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("TALENTHUB_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("TALENTHUB_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("TALENTHUB_HTTP_IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    EnvInt("TALENTHUB_HTTP_MAX_HEADER_BYTES", 1<<20),

		StoreDriver: strings.ToLower(EnvString("TALENTHUB_STORE_DRIVER", "")),
		DatabaseURL: EnvString("TALENTHUB_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("TALENTHUB_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("TALENTHUB_DB_MIN_CONNS", 0),
		SQLitePath:  EnvString("TALENTHUB_SQLITE_PATH", "talenthub.db"),
		DBMigrate:   EnvBool("TALENTHUB_DB_MIGRATE", true),

		RedisURL: EnvString("TALENTHUB_REDIS_URL", ""),

		IdentitySource: strings.ToLower(EnvString("TALENTHUB_IDENTITY_SOURCE", "")),
		IdentityFile:   EnvString("TALENTHUB_IDENTITY_FILE", ""),
		IdentityWatch:  EnvBool("TALENTHUB_IDENTITY_WATCH", true),

		SweepInterval: EnvDuration("TALENTHUB_SWEEP_INTERVAL", time.Hour),

		ReadinessRequireDB: EnvBool("TALENTHUB_READINESS_REQUIRE_DB", false),
		RequireTokenHMAC:   EnvBool("TALENTHUB_REQUIRE_TOKEN_HMAC", false),

		CORSAllowedOrigins:   EnvList("TALENTHUB_CORS_ALLOWED_ORIGINS"),
		CORSAllowCredentials: EnvBool("TALENTHUB_CORS_ALLOW_CREDENTIALS", true),
		CORSMaxAgeSeconds:    EnvInt("TALENTHUB_CORS_MAX_AGE_SECONDS", 600),
	}

	if cfg.StoreDriver == "" {
		cfg.StoreDriver = DriverSQLite
		if cfg.DatabaseURL != "" {
			cfg.StoreDriver = DriverPostgres
		}
	}
	if cfg.IdentitySource == "" {
		cfg.IdentitySource = IdentityFile
		if cfg.StoreDriver == DriverPostgres && cfg.IdentityFile == "" {
			cfg.IdentitySource = IdentityPostgres
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects combinations the runtime cannot serve.
func (c Config) Validate() error {
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("%w: TALENTHUB_LOG_FORMAT must be json or text, got %q", ErrConfig, c.LogFormat)
	}

	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: postgres store requires TALENTHUB_DATABASE_URL", ErrConfig)
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%w: sqlite store requires TALENTHUB_SQLITE_PATH", ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unknown TALENTHUB_STORE_DRIVER %q", ErrConfig, c.StoreDriver)
	}

	switch c.IdentitySource {
	case IdentityPostgres:
		if c.StoreDriver != DriverPostgres {
			return fmt.Errorf("%w: postgres identity source requires the postgres store", ErrConfig)
		}
	case IdentityFile:
		if c.IdentityFile == "" {
			return fmt.Errorf("%w: file identity source requires TALENTHUB_IDENTITY_FILE", ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unknown TALENTHUB_IDENTITY_SOURCE %q", ErrConfig, c.IdentitySource)
	}

	for _, o := range c.CORSAllowedOrigins {
		if o == "*" && c.CORSAllowCredentials {
			return fmt.Errorf("%w: wildcard CORS origin cannot be combined with credentials", ErrConfig)
		}
	}
	return nil
}
