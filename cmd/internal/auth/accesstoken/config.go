package accesstoken

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Algorithm selects the token encoding.
type Algorithm string

const (
	AlgHS256          Algorithm = "HS256"
	AlgPasetoV4Public Algorithm = "V4_PUBLIC"
)

// MinHMACSecretBytes is the shortest accepted HS256 secret.
const MinHMACSecretBytes = 32

// Config defines access-token issuance.
type Config struct {
	Algorithm Algorithm

	// Issuer is set in the "iss" claim and required on verify.
	Issuer string

	// TTL is the lifetime of an access token.
	TTL time.Duration

	// Leeway tolerates clock differences between issuer and verifier.
	Leeway time.Duration

	// HMACSecret signs HS256 tokens.
	HMACSecret string

	// PasetoV4SecretKeyHex is the hex-encoded Ed25519 secret key for V4_PUBLIC.
	PasetoV4SecretKeyHex string
}

// DefaultConfig returns the default access-token settings without key material.
func DefaultConfig() Config {
	return Config{
		Algorithm: AlgHS256,
		Issuer:    "talenthub",
		TTL:       15 * time.Minute,
	}
}

// LoadConfigFromEnv loads access-token configuration.
//
//   - TALENTHUB_TOKEN_ALGORITHM (HS256 | V4_PUBLIC)
//   - TALENTHUB_ACCESS_TOKEN_EXPIRE_MINUTES
//   - TALENTHUB_AUTH_ISSUER
//   - TALENTHUB_AUTH_CLOCK_SKEW (Go duration)
//   - TALENTHUB_SECRET_KEY (HS256)
//   - TALENTHUB_PASETO_V4_SECRET_KEY_HEX (V4_PUBLIC)
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("TALENTHUB_TOKEN_ALGORITHM")); v != "" {
		cfg.Algorithm = Algorithm(strings.ToUpper(v))
	}
	if v := strings.TrimSpace(os.Getenv("TALENTHUB_AUTH_ISSUER")); v != "" {
		cfg.Issuer = v
	}
	if v := strings.TrimSpace(os.Getenv("TALENTHUB_ACCESS_TOKEN_EXPIRE_MINUTES")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, ErrConfig
		}
		cfg.TTL = time.Duration(n) * time.Minute
	}
	if v := strings.TrimSpace(os.Getenv("TALENTHUB_AUTH_CLOCK_SKEW")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.Leeway = d
	}

	cfg.HMACSecret = os.Getenv("TALENTHUB_SECRET_KEY")
	cfg.PasetoV4SecretKeyHex = strings.TrimSpace(os.Getenv("TALENTHUB_PASETO_V4_SECRET_KEY_HEX"))

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.TTL <= 0 || c.Leeway < 0 || strings.TrimSpace(c.Issuer) == "" {
		return ErrConfig
	}
	switch c.Algorithm {
	case AlgHS256:
		if len(c.HMACSecret) < MinHMACSecretBytes {
			return ErrConfig
		}
	case AlgPasetoV4Public:
		if c.PasetoV4SecretKeyHex == "" {
			return ErrConfig
		}
	default:
		return ErrConfig
	}
	return nil
}
