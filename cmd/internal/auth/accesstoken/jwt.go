package accesstoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type jwtClaims struct {
	Role string `json:"role"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

type hs256Issuer struct {
	issuer string
	ttl    time.Duration
	leeway time.Duration
	secret []byte
}

func newHS256(cfg Config) (Issuer, error) {
	return &hs256Issuer{
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		leeway: cfg.Leeway,
		secret: []byte(cfg.HMACSecret),
	}, nil
}

func (m *hs256Issuer) Issue(identityID, role string, now time.Time) (string, time.Time, error) {
	if identityID == "" {
		return "", time.Time{}, errors.New("accesstoken: empty identity")
	}
	iat, exp := expiry(now, m.ttl)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		Role: role,
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := tok.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (m *hs256Issuer) Verify(token string, now time.Time) (Claims, error) {
	p := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(m.leeway),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	var c jwtClaims
	_, err := p.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil || c.Type != tokenType || c.Subject == "" {
		return Claims{}, ErrInvalidToken
	}

	return Claims{
		IdentityID: c.Subject,
		Role:       c.Role,
		Issuer:     c.Issuer,
		IssuedAt:   c.IssuedAt.Time,
		ExpiresAt:  c.ExpiresAt.Time,
	}, nil
}
