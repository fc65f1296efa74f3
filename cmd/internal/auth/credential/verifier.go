// Package credential checks a login handle and secret against the identity
// directory.
package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/identity"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/auth/audit"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/security/password"
)

// ErrAuthFailed is the only error callers see for a rejected login.
var ErrAuthFailed = errors.New("authentication failed")

// Detailed failure causes. They only reach the debug log; audit events
// carry audit.ReasonInvalidCredentials for all of them.
const (
	causeNotFound    = "not_found"
	causeBadPassword = "bad_password"
	causeBadHash     = "invalid_hash"
	causeInactive    = "inactive"
	causeEmptyInput  = "empty_input"
)

// Verifier authenticates handle/secret pairs.
type Verifier struct {
	dir   identity.Directory
	pw    password.Config
	audit audit.Sink
	log   *slog.Logger
	now   func() time.Time

	dummyHash string
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithAudit sets the audit sink.
func WithAudit(sink audit.Sink) Option {
	return func(v *Verifier) {
		if sink != nil {
			v.audit = sink
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(v *Verifier) {
		if log != nil {
			v.log = log
		}
	}
}

// WithClock overrides the clock used for audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewVerifier creates a Verifier over dir.
func NewVerifier(dir identity.Directory, pw password.Config, opts ...Option) (*Verifier, error) {
	if dir == nil {
		return nil, errors.New("credential: nil directory")
	}
	v := &Verifier{
		dir:   dir,
		pw:    pw,
		audit: audit.Nop{},
		log:   slog.Default(),
		now:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}

	// Dummy hash for timing-resistant checks of unknown handles.
	hash, err := pw.Hash("dummy-password-for-timing-only")
	if err != nil {
		return nil, fmt.Errorf("credential: dummy hash: %w", err)
	}
	v.dummyHash = hash
	return v, nil
}

// Verify returns the identity behind handle if secret matches its stored
// hash and the identity is active. Every rejection is ErrAuthFailed; other
// errors mean the directory could not be consulted.
func (v *Verifier) Verify(ctx context.Context, handle, secret string, src audit.Source) (identity.Identity, error) {
	norm := identity.NormalizeHandle(handle)
	if norm == "" || secret == "" {
		v.fail(ctx, nil, norm, causeEmptyInput, src)
		return identity.Identity{}, ErrAuthFailed
	}

	ident, err := v.dir.LookupHandle(ctx, norm)
	switch {
	case identity.IsNotFound(err), identity.IsInvalidInput(err):
		_, _ = v.pw.Verify(v.dummyHash, secret)
		v.fail(ctx, nil, norm, causeNotFound, src)
		return identity.Identity{}, ErrAuthFailed
	case err != nil:
		return identity.Identity{}, fmt.Errorf("credential: lookup: %w", err)
	}

	ok, err := v.pw.Verify(ident.CredentialHash, secret)
	if err != nil {
		v.log.Warn("auth.login.hash_unusable", "identity_id", ident.ID, "err", err)
		v.fail(ctx, &ident.ID, norm, causeBadHash, src)
		return identity.Identity{}, ErrAuthFailed
	}
	if !ok {
		v.fail(ctx, &ident.ID, norm, causeBadPassword, src)
		return identity.Identity{}, ErrAuthFailed
	}
	if !ident.Active {
		v.fail(ctx, &ident.ID, norm, causeInactive, src)
		return identity.Identity{}, ErrAuthFailed
	}

	if v.pw.NeedsRehash(ident.CredentialHash) {
		v.log.Info("auth.login.rehash_needed", "identity_id", ident.ID, "scheme", string(password.Detect(ident.CredentialHash)))
	}

	v.audit.Record(ctx, audit.Event{
		Action:     audit.ActionLoginSuccess,
		Outcome:    audit.OutcomeSuccess,
		IdentityID: audit.Identity(ident.ID),
		Source:     src,
		Meta:       map[string]any{"handle": norm},
		At:         v.now().UTC(),
	})
	return ident, nil
}

func (v *Verifier) fail(ctx context.Context, identityID *string, handle, cause string, src audit.Source) {
	args := []any{"handle", handle, "cause", cause}
	if identityID != nil {
		args = append(args, "identity_id", *identityID)
	}
	v.log.DebugContext(ctx, "auth.login.rejected", args...)

	v.audit.Record(ctx, audit.Event{
		Action:  audit.ActionLoginFailed,
		Outcome: audit.OutcomeFailure,
		Source:  src,
		Reason:  audit.ReasonInvalidCredentials,
		Meta:    map[string]any{"handle": handle},
		At:      v.now().UTC(),
	})
}
