package session

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Revoke revokes one record by ID. Revoking a record that is already retired
// or revoked succeeds without change. Returns ErrNotFound for unknown IDs.
func (s *Service) Revoke(ctx context.Context, now time.Time, recordID string, reason Reason) error {
	if reason == ReasonNone {
		reason = ReasonLogout
	}
	_, err := s.store.Transition(ctx, normalizeNow(now), recordID, StatusRevoked, reason)
	return err
}

// RevokeSecret revokes the record behind a presented renewal secret (logout)
// and returns it as it was before revocation.
func (s *Service) RevokeSecret(ctx context.Context, now time.Time, presented string) (Record, error) {
	rec, err := s.lookup(ctx, strings.TrimSpace(presented))
	if err != nil {
		return Record{}, err
	}
	if err := s.Revoke(ctx, now, rec.ID, ReasonLogout); err != nil && !errors.Is(err, ErrNotFound) {
		return Record{}, err
	}
	return rec, nil
}

// RevokeAll revokes every active record of identityID across all chains.
func (s *Service) RevokeAll(ctx context.Context, now time.Time, identityID string, reason Reason) (int64, error) {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return 0, ErrNotFound
	}
	if reason == ReasonNone {
		reason = ReasonLogoutAll
	}
	n, err := s.store.RevokeAll(ctx, normalizeNow(now), identityID, reason)
	if err != nil {
		return 0, err
	}
	s.log.Info("session.revoke_all", "identity_id", identityID, "reason", string(reason), "revoked", n)
	return n, nil
}

// Sweep deletes records that expired more than the configured retention ago.
// It runs outside request handling.
func (s *Service) Sweep(ctx context.Context, now time.Time) (int64, error) {
	cutoff := normalizeNow(now).Add(-s.cfg.Retention)
	n, err := s.store.Sweep(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.log.Info("session.sweep", "cutoff", cutoff, "deleted", n)
	return n, nil
}

// Sessions lists the records of identityID, newest first.
func (s *Service) Sessions(ctx context.Context, identityID string) ([]Record, error) {
	return s.store.ListByIdentity(ctx, identityID)
}
