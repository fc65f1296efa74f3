package app

import (
	"errors"
	"fmt"

	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/security/token"
)

// SecurityHasher builds the renewal-secret hasher and enforces the HMAC policy at startup.
// Without the policy an absent key falls back to plain SHA-256 digests.
func SecurityHasher(cfg Config) (token.Hasher, error) {
	h, err := token.HasherFromEnv(cfg.RequireTokenHMAC)
	switch {
	case err == nil:
	case errors.Is(err, token.ErrHMACKeyMissing):
		return token.Hasher{}, fmt.Errorf("security policy: TALENTHUB_REQUIRE_TOKEN_HMAC=true but %s is missing", token.HMACEnvKey)
	case errors.Is(err, token.ErrHMACKeyTooShort):
		return token.Hasher{}, fmt.Errorf("security policy: %s is too short (min %d bytes)", token.HMACEnvKey, token.MinHMACKeyBytes)
	default:
		return token.Hasher{}, err
	}

	if cfg.RequireTokenHMAC && !h.HMAC() {
		return token.Hasher{}, errors.New("security policy: renewal secret hasher is not in HMAC mode")
	}
	return h, nil
}
