package session

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/identity"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/auth/accesstoken"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/auth/audit"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/migrations"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/security/token"
)

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type stubDirectory struct {
	mu sync.Mutex
	m  map[string]identity.Identity
}

func newStubDirectory(idents ...identity.Identity) *stubDirectory {
	d := &stubDirectory{m: map[string]identity.Identity{}}
	for _, i := range idents {
		d.m[i.ID] = i
	}
	return d
}

func (d *stubDirectory) set(i identity.Identity) {
	d.mu.Lock()
	d.m[i.ID] = i
	d.mu.Unlock()
}

func (d *stubDirectory) LookupHandle(_ context.Context, handle string) (identity.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, i := range d.m {
		if strings.EqualFold(i.Handle, handle) {
			return i, nil
		}
	}
	return identity.Identity{}, identity.OpError{Op: "stub", Kind: identity.ErrNotFound}
}

func (d *stubDirectory) LookupID(_ context.Context, id string) (identity.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i, ok := d.m[id]
	if !ok {
		return identity.Identity{}, identity.OpError{Op: "stub", Kind: identity.ErrNotFound}
	}
	return i, nil
}

type failingIssuer struct{ accesstoken.Issuer }

func (failingIssuer) Issue(string, string, time.Time) (string, time.Time, error) {
	return "", time.Time{}, errors.New("signer unavailable")
}

type harness struct {
	db     *sql.DB
	store  *SQLiteStore
	svc    *Service
	dir    *stubDirectory
	tokens accesstoken.Issuer
	audit  *audit.Memory
}

var (
	alice = identity.Identity{ID: "42", Handle: "alice", Role: "admin", Active: true}
	bob   = identity.Identity{ID: "43", Handle: "bob", Role: "candidate", Active: true}
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := migrations.Up(context.Background(), db, migrations.SQLite, nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	return db
}

func newTestTokens(t *testing.T) accesstoken.Issuer {
	t.Helper()
	cfg := accesstoken.DefaultConfig()
	cfg.HMACSecret = strings.Repeat("x", 32)
	iss, err := accesstoken.New(cfg)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	return iss
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()

	db := newTestDB(t)
	store, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	h := &harness{
		db:     db,
		store:  store,
		dir:    newStubDirectory(alice, bob),
		tokens: newTestTokens(t),
		audit:  &audit.Memory{},
	}
	h.svc, err = NewService(cfg, store, h.tokens, h.dir, tokenHasherForTest(), WithAudit(h.audit))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return h
}

func (h *harness) login(t *testing.T, ident identity.Identity, now time.Time) Issued {
	t.Helper()
	iss, err := h.svc.Start(context.Background(), now, ident, ClientMeta{UserAgent: "test/1.0", IP: "198.51.100.7"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return iss
}

func (h *harness) activeInChain(t *testing.T, identityID, chainID string) int {
	t.Helper()
	recs, err := h.store.ListByIdentity(context.Background(), identityID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	n := 0
	for _, r := range recs {
		if r.ChainID == chainID && r.Status == StatusActive {
			n++
		}
	}
	return n
}

func tokenHasherForTest() token.Hasher {
	return token.NewHasher([]byte(strings.Repeat("k", 32)))
}
