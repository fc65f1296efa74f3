package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"os"
	"strings"
)

const (
	// HMACEnvKey is the env var name for the secret-hashing key.
	// #nosec G101 -- not a credential; it's an environment variable name.
	HMACEnvKey = "TALENTHUB_TOKEN_HMAC_KEY"

	// MinSecretBytes is the smallest accepted secret size (128 bits).
	MinSecretBytes = 16
	// MaxSecretBytes bounds generated secrets.
	MaxSecretBytes = 64
	// DefaultSecretBytes is the size used when callers pass 0.
	DefaultSecretBytes = 32

	// MinHMACKeyBytes is the minimum key size in enforced-HMAC mode.
	MinHMACKeyBytes = 32
)

// NewSecret returns a URL-safe base64 (no padding) encoding of n random bytes.
func NewSecret(n int) (string, error) {
	if n == 0 {
		n = DefaultSecretBytes
	}
	if n < MinSecretBytes || n > MaxSecretBytes {
		return "", ErrSecretSize
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// Hasher hashes renewal secrets for storage and lookup.
// The zero value hashes with plain SHA-256.
type Hasher struct {
	key []byte
}

// NewHasher returns a Hasher using key. A nil or empty key selects SHA-256.
func NewHasher(key []byte) Hasher {
	if len(key) == 0 {
		return Hasher{}
	}
	k := make([]byte, len(key))
	copy(k, key)
	return Hasher{key: k}
}

// HMAC reports whether the hasher is keyed.
func (h Hasher) HMAC() bool { return len(h.key) > 0 }

// Hash returns the storage digest of secret.
func (h Hasher) Hash(secret string) string {
	if len(h.key) == 0 {
		return HashSHA256Hex(secret)
	}
	return HashHMACSHA256Hex(secret, h.key)
}

// HMACKeyFromEnv returns the configured HMAC key bytes (trimmed), enforcing a minimum byte length.
// If the env var is missing/blank -> ErrHMACKeyMissing.
// If too short -> ErrHMACKeyTooShort.
func HMACKeyFromEnv(minBytes int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(HMACEnvKey))
	if raw == "" {
		return nil, ErrHMACKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrHMACKeyTooShort
	}
	return b, nil
}

// HasherFromEnv builds a Hasher from the environment.
// With require=true the key must be present and at least MinHMACKeyBytes long.
func HasherFromEnv(require bool) (Hasher, error) {
	key, err := HMACKeyFromEnv(MinHMACKeyBytes)
	switch {
	case err == nil:
		return NewHasher(key), nil
	case !require && err == ErrHMACKeyMissing:
		return Hasher{}, nil
	default:
		return Hasher{}, err
	}
}
