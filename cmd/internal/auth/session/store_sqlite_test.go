package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testRecord(id, chain, hash string, issued time.Time) Record {
	return Record{
		ID:         id,
		ChainID:    chain,
		IdentityID: "42",
		SecretHash: hash,
		IssuedAt:   issued,
		ExpiresAt:  issued.Add(time.Hour),
		Status:     StatusActive,
	}
}

func TestSQLiteStore_OneActivePerChain(t *testing.T) {
	t.Parallel()
	store, err := NewSQLiteStore(newTestDB(t))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	ctx := context.Background()

	if err := store.Insert(ctx, testRecord("a", "c1", "h1", t0)); err != nil {
		t.Fatalf("insert a: %v", err)
	}
	if err := store.Insert(ctx, testRecord("b", "c1", "h2", t0)); err == nil {
		t.Fatalf("expected second active record in chain to be rejected")
	}
	if err := store.Insert(ctx, testRecord("c", "c2", "h1", t0)); err == nil {
		t.Fatalf("expected duplicate secret hash to be rejected")
	}
}

func TestSQLiteStore_RotateConditional(t *testing.T) {
	t.Parallel()
	store, err := NewSQLiteStore(newTestDB(t))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	ctx := context.Background()

	if err := store.Insert(ctx, testRecord("a", "c1", "h1", t0)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	next := testRecord("b", "c1", "h2", t0.Add(time.Minute))
	next.ParentID = "a"
	if err := store.Rotate(ctx, t0.Add(time.Minute), "a", next); err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	again := testRecord("c", "c1", "h3", t0.Add(2*time.Minute))
	if err := store.Rotate(ctx, t0.Add(2*time.Minute), "a", again); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
	// The losing insert was rolled back.
	if _, err := store.GetByID(ctx, "c"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected rolled back insert, got %v", err)
	}

	old, err := store.GetByHash(ctx, "h1")
	if err != nil {
		t.Fatalf("GetByHash: %v", err)
	}
	if old.Status != StatusRetired || old.Reason != ReasonRotation || old.ReplacedBy != "b" {
		t.Fatalf("old=%+v", old)
	}
	if !old.StatusChangedAt.Equal(t0.Add(time.Minute)) || !old.IssuedAt.Equal(t0) {
		t.Fatalf("times not preserved: %+v", old)
	}
}

func TestSQLiteStore_Transition(t *testing.T) {
	t.Parallel()
	store, err := NewSQLiteStore(newTestDB(t))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	ctx := context.Background()

	if err := store.Insert(ctx, testRecord("a", "c1", "h1", t0)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	ok, err := store.Transition(ctx, t0, "a", StatusRevoked, ReasonAdmin)
	if err != nil || !ok {
		t.Fatalf("first transition: ok=%v err=%v", ok, err)
	}
	ok, err = store.Transition(ctx, t0, "a", StatusRetired, ReasonExpiry)
	if err != nil || ok {
		t.Fatalf("second transition: ok=%v err=%v", ok, err)
	}
	if _, err := store.Transition(ctx, t0, "missing", StatusRevoked, ReasonAdmin); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNewSQLiteStore_NilDB(t *testing.T) {
	t.Parallel()
	if _, err := NewSQLiteStore(nil); err == nil {
		t.Fatalf("expected error")
	}
}
