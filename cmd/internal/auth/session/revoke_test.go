package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRevoke_Idempotent(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	ctx := context.Background()

	r1 := h.login(t, alice, t0)
	if err := h.svc.Revoke(ctx, t0.Add(time.Minute), r1.RecordID, ReasonAdmin); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := h.svc.Revoke(ctx, t0.Add(2*time.Minute), r1.RecordID, ReasonLogout); err != nil {
		t.Fatalf("second Revoke: %v", err)
	}

	rec, _ := h.store.GetByID(ctx, r1.RecordID)
	if rec.Status != StatusRevoked || rec.Reason != ReasonAdmin {
		t.Fatalf("first revocation should stick: %+v", rec)
	}
	if !rec.StatusChangedAt.Equal(t0.Add(time.Minute)) {
		t.Fatalf("status_changed_at=%v", rec.StatusChangedAt)
	}

	if err := h.svc.Revoke(ctx, t0, "01J00000000000000000000000", ReasonAdmin); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRevokeSecret_Logout(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	ctx := context.Background()

	r1 := h.login(t, alice, t0)
	rec, err := h.svc.RevokeSecret(ctx, t0.Add(time.Minute), r1.RenewalSecret)
	if err != nil {
		t.Fatalf("RevokeSecret: %v", err)
	}
	if rec.IdentityID != "42" || rec.ChainID != r1.ChainID {
		t.Fatalf("unexpected record: %+v", rec)
	}
	// Logging out twice is fine.
	if _, err := h.svc.RevokeSecret(ctx, t0.Add(2*time.Minute), r1.RenewalSecret); err != nil {
		t.Fatalf("second RevokeSecret: %v", err)
	}
	if _, err := h.svc.RevokeSecret(ctx, t0, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, _ := h.store.GetByID(ctx, r1.RecordID)
	if got.Status != StatusRevoked || got.Reason != ReasonLogout {
		t.Fatalf("record=%+v", got)
	}
}

func TestRevokeAll(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	ctx := context.Background()

	a1 := h.login(t, alice, t0)
	a2 := h.login(t, alice, t0)
	b1 := h.login(t, bob, t0)

	n, err := h.svc.RevokeAll(ctx, t0.Add(time.Minute), "42", ReasonNone)
	if err != nil {
		t.Fatalf("RevokeAll: %v", err)
	}
	if n != 2 {
		t.Fatalf("revoked=%d want 2", n)
	}
	for _, s := range []string{a1.RenewalSecret, a2.RenewalSecret} {
		if _, err := h.svc.Rotate(ctx, t0.Add(2*time.Minute), s, meta); !errors.Is(err, ErrRevoked) {
			t.Fatalf("expected ErrRevoked, got %v", err)
		}
	}
	if _, err := h.svc.Rotate(ctx, t0.Add(2*time.Minute), b1.RenewalSecret, meta); err != nil {
		t.Fatalf("other identity: %v", err)
	}

	rec, _ := h.store.GetByID(ctx, a1.RecordID)
	if rec.Reason != ReasonLogoutAll {
		t.Fatalf("reason=%q", rec.Reason)
	}

	n, err = h.svc.RevokeAll(ctx, t0.Add(3*time.Minute), "42", ReasonLogoutAll)
	if err != nil || n != 0 {
		t.Fatalf("second RevokeAll: n=%d err=%v", n, err)
	}

	// A fresh login after revoke-all works.
	fresh := h.login(t, alice, t0.Add(4*time.Minute))
	if _, err := h.svc.Rotate(ctx, t0.Add(5*time.Minute), fresh.RenewalSecret, meta); err != nil {
		t.Fatalf("fresh chain: %v", err)
	}
}

func TestSweep(t *testing.T) {
	t.Parallel()
	h := newHarness(t, func(c *Config) {
		c.RenewalTTL = time.Hour
		c.Retention = 24 * time.Hour
	})
	ctx := context.Background()

	old := h.login(t, alice, t0)
	recent := h.login(t, alice, t0.Add(48*time.Hour))

	n, err := h.svc.Sweep(ctx, t0.Add(72*time.Hour))
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted=%d want 1", n)
	}
	if _, err := h.store.GetByID(ctx, old.RecordID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old record should be gone, got %v", err)
	}
	if _, err := h.store.GetByID(ctx, recent.RecordID); err != nil {
		t.Fatalf("recent record should remain: %v", err)
	}
}

func TestSessions_NewestFirst(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	ctx := context.Background()

	first := h.login(t, alice, t0)
	second := h.login(t, alice, t0.Add(time.Hour))

	recs, err := h.svc.Sessions(ctx, "42")
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(recs) != 2 || recs[0].ID != second.RecordID || recs[1].ID != first.RecordID {
		t.Fatalf("unexpected order: %+v", recs)
	}
}
