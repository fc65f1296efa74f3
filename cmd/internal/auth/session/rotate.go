package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/identity"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/auth/audit"
)

// Rotate exchanges a renewal secret for a fresh access token and a successor
// renewal secret. The presented secret is retired in the same transaction
// that stores its successor; a secret can succeed at most once.
//
// Failures:
//   - ErrNotFound: unknown secret.
//   - ErrRevoked: the record was revoked.
//   - ErrExpired: past expiry (an active record is retired on the way out).
//   - ErrAlreadyRetired: rotated within the grace window, or lost a concurrent race.
//   - *ReuseError: a retired secret replayed after the grace window; every
//     active record of the identity has been revoked.
//   - ErrIdentityInactive: the owner no longer exists or was disabled.
func (s *Service) Rotate(ctx context.Context, now time.Time, presented string, meta ClientMeta) (Issued, error) {
	now = normalizeNow(now)

	rec, err := s.lookup(ctx, strings.TrimSpace(presented))
	if err != nil {
		return Issued{}, err
	}

	if rec.Status != StatusActive {
		return Issued{}, s.rejectSpent(ctx, now, rec, meta)
	}
	if !rec.ExpiresAt.After(now) {
		if _, err := s.store.Transition(ctx, now, rec.ID, StatusRetired, ReasonExpiry); err != nil {
			return Issued{}, err
		}
		return Issued{}, ErrExpired
	}

	ident, err := s.identities.LookupID(ctx, rec.IdentityID)
	if err != nil {
		if identity.IsNotFound(err) {
			return Issued{}, ErrIdentityInactive
		}
		return Issued{}, err
	}
	if !ident.Active {
		return Issued{}, ErrIdentityInactive
	}

	next, secret, err := s.newRecord(now, rec.ChainID, rec.IdentityID, rec.ExpiresAt, meta)
	if err != nil {
		return Issued{}, err
	}
	next.ParentID = rec.ID

	// Sign before committing so a signing failure leaves the old record active.
	access, accessExp, err := s.tokens.Issue(ident.ID, ident.Role, now)
	if err != nil {
		return Issued{}, err
	}

	if err := s.store.Rotate(ctx, now, rec.ID, next); err != nil {
		if errors.Is(err, ErrNotActive) {
			return Issued{}, s.classifyLostRace(ctx, rec.ID)
		}
		return Issued{}, err
	}

	return Issued{
		IdentityID:    ident.ID,
		Role:          ident.Role,
		ChainID:       rec.ChainID,
		RecordID:      next.ID,
		AccessToken:   access,
		AccessExp:     accessExp,
		RenewalSecret: secret,
		RenewalExp:    next.ExpiresAt,
	}, nil
}

// rejectSpent classifies a record that is no longer active.
func (s *Service) rejectSpent(ctx context.Context, now time.Time, rec Record, meta ClientMeta) error {
	switch {
	case rec.Status == StatusRevoked:
		return ErrRevoked
	case rec.Reason != ReasonRotation || !rec.ExpiresAt.After(now):
		return ErrExpired
	case s.cfg.ReuseGrace > 0 && now.Sub(rec.StatusChangedAt) < s.cfg.ReuseGrace:
		s.audit.Record(ctx, audit.Event{
			Action:     audit.ActionReplayInGrace,
			Outcome:    audit.OutcomeFailure,
			IdentityID: audit.Identity(rec.IdentityID),
			ChainID:    rec.ChainID,
			Source:     audit.Source{IP: meta.IP, UserAgent: meta.UserAgent},
			Reason:     audit.ReasonReplayInGrace,
			Meta:       map[string]any{"record_id": rec.ID, "retired_for": now.Sub(rec.StatusChangedAt).String()},
			At:         now,
		})
		return ErrAlreadyRetired
	default:
		return s.lockdown(ctx, now, rec, meta)
	}
}

// lockdown revokes every active record of the identity behind a replayed secret.
func (s *Service) lockdown(ctx context.Context, now time.Time, rec Record, meta ClientMeta) error {
	n, err := s.store.RevokeAll(ctx, now, rec.IdentityID, ReasonReuseDetected)
	if err != nil {
		return err
	}

	s.log.Warn("session.reuse.lockdown",
		"identity_id", rec.IdentityID,
		"chain_id", rec.ChainID,
		"record_id", rec.ID,
		"revoked", n,
	)
	s.audit.Record(ctx, audit.Event{
		Action:     audit.ActionReuseDetected,
		Outcome:    audit.OutcomeLockdown,
		IdentityID: audit.Identity(rec.IdentityID),
		ChainID:    rec.ChainID,
		Source:     audit.Source{IP: meta.IP, UserAgent: meta.UserAgent},
		Reason:     string(ReasonReuseDetected),
		Meta:       map[string]any{"record_id": rec.ID, "revoked": n},
		At:         now,
	})

	return &ReuseError{
		IdentityID: rec.IdentityID,
		ChainID:    rec.ChainID,
		RecordID:   rec.ID,
		Revoked:    n,
	}
}

// classifyLostRace re-reads a record whose conditional retire matched no
// row. A concurrent rotation is benign and never triggers a lockdown.
func (s *Service) classifyLostRace(ctx context.Context, id string) error {
	cur, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	switch {
	case cur.Status == StatusRevoked:
		return ErrRevoked
	case cur.Reason == ReasonExpiry:
		return ErrExpired
	default:
		return ErrAlreadyRetired
	}
}
