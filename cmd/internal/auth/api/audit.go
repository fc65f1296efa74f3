package authapi

import (
	"context"
	"errors"
	"time"

	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/auth/audit"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/auth/session"
)

func (h *Handler) record(ctx context.Context, ev audit.Event) {
	if ev.At.IsZero() {
		ev.At = h.now().UTC()
	}
	h.audit.Record(ctx, ev)
}

func (h *Handler) auditRateLimited(ctx context.Context, action string, src audit.Source, key string, retryAfter time.Duration) {
	h.record(ctx, audit.Event{
		Action:  action,
		Outcome: audit.OutcomeRateLimited,
		Source:  src,
		Meta: map[string]any{
			"key":           key,
			"retry_after_s": int64(retryAfter / time.Second),
		},
	})
}

// auditFailure records a terminal failure that carries no identity.
func (h *Handler) auditFailure(ctx context.Context, action, reason string, src audit.Source) {
	h.record(ctx, audit.Event{
		Action:  action,
		Outcome: audit.OutcomeFailure,
		Source:  src,
		Reason:  reason,
	})
}

func (h *Handler) auditRefreshSuccess(ctx context.Context, issued session.Issued, src audit.Source) {
	h.record(ctx, audit.Event{
		Action:     audit.ActionRefreshSuccess,
		Outcome:    audit.OutcomeSuccess,
		IdentityID: audit.Identity(issued.IdentityID),
		ChainID:    issued.ChainID,
		Source:     src,
		Meta:       map[string]any{"record_id": issued.RecordID},
	})
}

func (h *Handler) auditRefreshFailed(ctx context.Context, err error, src audit.Source) {
	ev := audit.Event{
		Action:  audit.ActionRefreshFailed,
		Outcome: audit.OutcomeFailure,
		Source:  src,
		Reason:  refreshFailureReason(err),
	}
	var reuse *session.ReuseError
	if errors.As(err, &reuse) {
		ev.IdentityID = audit.Identity(reuse.IdentityID)
		ev.ChainID = reuse.ChainID
	}
	h.record(ctx, ev)
}

func (h *Handler) auditLogout(ctx context.Context, rec session.Record, src audit.Source) {
	h.record(ctx, audit.Event{
		Action:     audit.ActionLogout,
		Outcome:    audit.OutcomeSuccess,
		IdentityID: audit.Identity(rec.IdentityID),
		ChainID:    rec.ChainID,
		Source:     src,
	})
}

func (h *Handler) auditLogoutAll(ctx context.Context, identityID string, revoked int64, src audit.Source) {
	h.record(ctx, audit.Event{
		Action:     audit.ActionLogoutAll,
		Outcome:    audit.OutcomeSuccess,
		IdentityID: audit.Identity(identityID),
		Source:     src,
		Meta:       map[string]any{"revoked": revoked},
	})
}

func refreshFailureReason(err error) string {
	switch {
	case errors.Is(err, session.ErrReuseDetected):
		return "reuse_detected"
	case errors.Is(err, session.ErrAlreadyRetired):
		return "already_retired"
	case errors.Is(err, session.ErrRevoked):
		return "revoked"
	case errors.Is(err, session.ErrExpired):
		return "expired"
	case errors.Is(err, session.ErrIdentityInactive):
		return "identity_inactive"
	case errors.Is(err, session.ErrNotFound):
		return "not_found"
	default:
		return audit.ReasonMissingCredential
	}
}
