package accesstoken

import "time"

// tokenType is carried in every access token to keep other token kinds out.
const tokenType = "access"

// Claims are the verified contents of an access token.
type Claims struct {
	IdentityID string
	Role       string
	Issuer     string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// Issuer mints and verifies access tokens. Implementations are immutable
// after construction and safe for concurrent use.
type Issuer interface {
	Issue(identityID, role string, now time.Time) (token string, exp time.Time, err error)
	Verify(token string, now time.Time) (Claims, error)
}

// New builds the Issuer selected by cfg.Algorithm.
func New(cfg Config) (Issuer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	switch cfg.Algorithm {
	case AlgHS256:
		return newHS256(cfg)
	case AlgPasetoV4Public:
		return newPasetoV4Public(cfg)
	default:
		return nil, ErrConfig
	}
}

// expiry mirrors the one-second resolution of both token formats.
func expiry(now time.Time, ttl time.Duration) (iat, exp time.Time) {
	iat = now.UTC().Truncate(time.Second)
	return iat, iat.Add(ttl)
}
