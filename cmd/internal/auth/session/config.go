package session

import (
	"os"
	"strconv"
	"time"

	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/security/token"
)

// Config defines renewal-credential policy.
type Config struct {
	// RenewalTTL is the lifetime of a chain, fixed at login. Rotation never extends it.
	RenewalTTL time.Duration

	// SecretBytes is the number of random bytes in a renewal secret.
	SecretBytes int

	// ReuseGrace is how long after a rotation the retired secret is answered
	// with ErrAlreadyRetired instead of triggering a lockdown. Zero (the
	// default) locks down on every replay.
	ReuseGrace time.Duration

	// Retention is how long past expiry records are kept before Sweep removes them.
	Retention time.Duration
}

// DefaultConfig returns the default policy.
func DefaultConfig() Config {
	return Config{
		RenewalTTL:  7 * 24 * time.Hour,
		SecretBytes: token.DefaultSecretBytes,
		ReuseGrace:  0,
		Retention:   30 * 24 * time.Hour,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Optional:
//   - TALENTHUB_REFRESH_TOKEN_EXPIRE_DAYS
//   - TALENTHUB_REFRESH_TOKEN_BYTES
//   - TALENTHUB_SESSION_REUSE_GRACE (Go duration, opt-in retry window)
//   - TALENTHUB_SESSION_RETENTION (Go duration)
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("TALENTHUB_REFRESH_TOKEN_EXPIRE_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 365 {
			return Config{}, ErrConfig
		}
		cfg.RenewalTTL = time.Duration(n) * 24 * time.Hour
	}

	if v := os.Getenv("TALENTHUB_REFRESH_TOKEN_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < token.MinSecretBytes || n > token.MaxSecretBytes {
			return Config{}, ErrConfig
		}
		cfg.SecretBytes = n
	}

	if v := os.Getenv("TALENTHUB_SESSION_REUSE_GRACE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 || d > 5*time.Minute {
			return Config{}, ErrConfig
		}
		cfg.ReuseGrace = d
	}

	if v := os.Getenv("TALENTHUB_SESSION_RETENTION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.Retention = d
	}

	return cfg, nil
}
