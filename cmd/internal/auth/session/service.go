package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/identity"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/identity/ids"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/auth/accesstoken"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/auth/audit"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/security/token"
)

// maxSecretLen bounds presented secrets before hashing.
const maxSecretLen = 512

// Service implements login issue, rotation and revocation of renewal credentials.
type Service struct {
	cfg        Config
	store      Store
	tokens     accesstoken.Issuer
	identities identity.Directory
	hasher     token.Hasher
	audit      audit.Sink
	log        *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithAudit sets the sink that receives lockdown events.
func WithAudit(sink audit.Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.audit = sink
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService wires a Service.
func NewService(
	cfg Config,
	store Store,
	tokens accesstoken.Issuer,
	identities identity.Directory,
	hasher token.Hasher,
	opts ...Option,
) (*Service, error) {
	if store == nil || tokens == nil || identities == nil {
		return nil, fmt.Errorf("%w: store, tokens and identities are required", ErrConfig)
	}
	if cfg.RenewalTTL <= 0 || cfg.ReuseGrace < 0 {
		return nil, ErrConfig
	}
	s := &Service{
		cfg:        cfg,
		store:      store,
		tokens:     tokens,
		identities: identities,
		hasher:     hasher,
		audit:      audit.Nop{},
		log:        slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Config returns the active policy.
func (s *Service) Config() Config { return s.cfg }

// Start opens a new chain for ident and returns its first access and renewal credentials.
func (s *Service) Start(ctx context.Context, now time.Time, ident identity.Identity, meta ClientMeta) (Issued, error) {
	now = normalizeNow(now)
	if !ident.Active || ident.ID == "" {
		return Issued{}, ErrIdentityInactive
	}

	chainID, err := ids.NewChainID()
	if err != nil {
		return Issued{}, err
	}
	rec, secret, err := s.newRecord(now, chainID, ident.ID, now.Add(s.cfg.RenewalTTL), meta)
	if err != nil {
		return Issued{}, err
	}

	access, accessExp, err := s.tokens.Issue(ident.ID, ident.Role, now)
	if err != nil {
		return Issued{}, err
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		return Issued{}, err
	}

	return Issued{
		IdentityID:    ident.ID,
		Role:          ident.Role,
		ChainID:       chainID,
		RecordID:      rec.ID,
		AccessToken:   access,
		AccessExp:     accessExp,
		RenewalSecret: secret,
		RenewalExp:    rec.ExpiresAt,
	}, nil
}

func (s *Service) newRecord(now time.Time, chainID, identityID string, expiresAt time.Time, meta ClientMeta) (Record, string, error) {
	secret, err := token.NewSecret(s.cfg.SecretBytes)
	if err != nil {
		return Record{}, "", err
	}
	id, err := ids.NewULID(now)
	if err != nil {
		return Record{}, "", err
	}
	return Record{
		ID:         id,
		ChainID:    chainID,
		IdentityID: identityID,
		SecretHash: s.hasher.Hash(secret),
		IssuedAt:   now,
		ExpiresAt:  expiresAt,
		Status:     StatusActive,
		UserAgent:  truncate(meta.UserAgent, 512),
		IP:         meta.IP,
	}, secret, nil
}

// lookup resolves a presented secret to its record.
func (s *Service) lookup(ctx context.Context, presented string) (Record, error) {
	if presented == "" || len(presented) > maxSecretLen {
		return Record{}, ErrNotFound
	}
	return s.store.GetByHash(ctx, s.hasher.Hash(presented))
}

// normalizeNow drops precision that the stores cannot keep.
func normalizeNow(now time.Time) time.Time {
	if now.IsZero() {
		now = time.Now()
	}
	return now.UTC().Truncate(time.Microsecond)
}

// truncate returns valid UTF-8 of at most n bytes, cut on a rune boundary.
func truncate(s string, n int) string {
	s = strings.ToValidUTF8(s, "")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
