package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on PostgreSQL. The pool is owned by the caller.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema places the renewal_credentials table in schema.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("session: invalid schema identifier")
		}
		s.table = pgx.Identifier{schema, "renewal_credentials"}.Sanitize()
		return nil
	}
}

// NewPostgresStore creates a Postgres-backed store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	s := &PostgresStore{
		pool:  pool,
		table: pgx.Identifier{"renewal_credentials"}.Sanitize(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.pool == nil {
		return nil, fmt.Errorf("session: nil pool")
	}
	return s, nil
}

const pgRecordColumns = `
	id, chain_id::text, identity_id, secret_hash,
	parent_id, replaced_by, issued_at, expires_at,
	status, status_reason, status_changed_at, user_agent, ip`

type pgExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *PostgresStore) insert(ctx context.Context, db pgExecer, rec Record) error {
	_, err := db.Exec(ctx, `
		INSERT INTO `+s.table+` (
			id, chain_id, identity_id, secret_hash,
			parent_id, replaced_by, issued_at, expires_at,
			status, status_reason, status_changed_at, user_agent, ip
		) VALUES (
			$1, $2, $3, $4,
			$5, NULL, $6, $7,
			'active', NULL, NULL, $8, $9
		)
	`, rec.ID, rec.ChainID, rec.IdentityID, rec.SecretHash,
		nullIfEmpty(rec.ParentID), rec.IssuedAt, rec.ExpiresAt,
		nullIfEmpty(rec.UserAgent), nullIfEmpty(rec.IP))
	if err != nil {
		return fmt.Errorf("session: insert: %w", err)
	}
	return nil
}

// Insert implements Store.
func (s *PostgresStore) Insert(ctx context.Context, rec Record) error {
	return s.insert(ctx, s.pool, rec)
}

// GetByHash implements Store.
func (s *PostgresStore) GetByHash(ctx context.Context, secretHash string) (Record, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgRecordColumns+` FROM `+s.table+` WHERE secret_hash = $1`, secretHash)
	return scanPGRecord(row)
}

// GetByID implements Store.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (Record, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgRecordColumns+` FROM `+s.table+` WHERE id = $1`, id)
	return scanPGRecord(row)
}

// Rotate implements Store.
func (s *PostgresStore) Rotate(ctx context.Context, now time.Time, oldID string, next Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE `+s.table+`
		SET status = 'retired',
		    status_reason = 'rotation',
		    status_changed_at = $2,
		    replaced_by = $3
		WHERE id = $1 AND status = 'active'
	`, oldID, now, next.ID)
	if err != nil {
		return fmt.Errorf("session: retire: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return ErrNotActive
	}

	if err := s.insert(ctx, tx, next); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Transition implements Store.
func (s *PostgresStore) Transition(ctx context.Context, now time.Time, id string, status Status, reason Reason) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE `+s.table+`
		SET status = $2, status_reason = $3, status_changed_at = $4
		WHERE id = $1 AND status = 'active'
	`, id, string(status), string(reason), now)
	if err != nil {
		return false, fmt.Errorf("session: transition: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+s.table+` WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

// RevokeAll implements Store.
func (s *PostgresStore) RevokeAll(ctx context.Context, now time.Time, identityID string, reason Reason) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE `+s.table+`
		SET status = 'revoked', status_reason = $2, status_changed_at = $3
		WHERE identity_id = $1 AND status = 'active'
	`, identityID, string(reason), now)
	if err != nil {
		return 0, fmt.Errorf("session: revoke all: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListByIdentity implements Store.
func (s *PostgresStore) ListByIdentity(ctx context.Context, identityID string) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+pgRecordColumns+` FROM `+s.table+`
		WHERE identity_id = $1
		ORDER BY issued_at DESC, id DESC
	`, identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanPGRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Sweep implements Store.
func (s *PostgresStore) Sweep(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+s.table+` WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("session: sweep: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanPGRecord(row pgx.Row) (Record, error) {
	var (
		rec                      Record
		parent, replaced, reason *string
		changed                  *time.Time
		userAgent, ip            *string
		status                   string
	)
	err := row.Scan(
		&rec.ID, &rec.ChainID, &rec.IdentityID, &rec.SecretHash,
		&parent, &replaced, &rec.IssuedAt, &rec.ExpiresAt,
		&status, &reason, &changed, &userAgent, &ip,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}

	rec.Status = Status(status)
	rec.ParentID = deref(parent)
	rec.ReplacedBy = deref(replaced)
	rec.Reason = Reason(deref(reason))
	if changed != nil {
		rec.StatusChangedAt = *changed
	}
	rec.UserAgent = deref(userAgent)
	rec.IP = deref(ip)
	return rec, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
