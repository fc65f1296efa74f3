package accesstoken

import (
	"errors"
	"time"

	paseto "aidanwoods.dev/go-paseto"
)

var errTokenExpired = errors.New("token expired")

type pasetoV4PublicIssuer struct {
	issuer string
	ttl    time.Duration
	leeway time.Duration

	secret paseto.V4AsymmetricSecretKey
	public paseto.V4AsymmetricPublicKey
}

func newPasetoV4Public(cfg Config) (Issuer, error) {
	secret, err := paseto.NewV4AsymmetricSecretKeyFromHex(cfg.PasetoV4SecretKeyHex)
	if err != nil {
		return nil, ErrConfig
	}
	return &pasetoV4PublicIssuer{
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		leeway: cfg.Leeway,
		secret: secret,
		public: secret.Public(),
	}, nil
}

func (m *pasetoV4PublicIssuer) Issue(identityID, role string, now time.Time) (string, time.Time, error) {
	if identityID == "" {
		return "", time.Time{}, errors.New("accesstoken: empty identity")
	}
	iat, exp := expiry(now, m.ttl)

	tok := paseto.NewToken()
	tok.SetIssuer(m.issuer)
	tok.SetSubject(identityID)
	tok.SetIssuedAt(iat)
	tok.SetNotBefore(iat)
	tok.SetExpiration(exp)
	tok.SetString("role", role)
	tok.SetString("type", tokenType)

	return tok.V4Sign(m.secret, nil), exp, nil
}

func (m *pasetoV4PublicIssuer) Verify(token string, now time.Time) (Claims, error) {
	// Fresh parser per call so rules never accumulate.
	p := paseto.NewParserWithoutExpiryCheck()
	p.AddRule(paseto.IssuedBy(m.issuer))
	p.AddRule(m.validAt(now))

	parsed, err := p.ParseV4Public(m.public, token, nil)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	sub, err := parsed.GetSubject()
	if err != nil || sub == "" {
		return Claims{}, ErrInvalidToken
	}
	typ, err := parsed.GetString("type")
	if err != nil || typ != tokenType {
		return Claims{}, ErrInvalidToken
	}
	role, _ := parsed.GetString("role")
	iss, _ := parsed.GetIssuer()
	iat, _ := parsed.GetIssuedAt()
	exp, _ := parsed.GetExpiration()

	return Claims{
		IdentityID: sub,
		Role:       role,
		Issuer:     iss,
		IssuedAt:   iat,
		ExpiresAt:  exp,
	}, nil
}

// validAt applies the same window as the JWT path: valid while
// iat-leeway <= now < exp+leeway.
func (m *pasetoV4PublicIssuer) validAt(now time.Time) paseto.Rule {
	return func(t paseto.Token) error {
		exp, err := t.GetExpiration()
		if err != nil {
			return err
		}
		if !now.Before(exp.Add(m.leeway)) {
			return errTokenExpired
		}
		iat, err := t.GetIssuedAt()
		if err != nil {
			return err
		}
		if now.Add(m.leeway).Before(iat) {
			return errors.New("token used before issued")
		}
		return nil
	}
}
