package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore implements Store on SQLite (modernc.org/sqlite). Times are
// stored as unix microseconds. Callers should cap the pool at one connection
// so writers serialize.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open database whose schema is already migrated.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("session: nil db")
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteRecordColumns = `
	id, chain_id, identity_id, secret_hash,
	parent_id, replaced_by, issued_at, expires_at,
	status, status_reason, status_changed_at, user_agent, ip`

type sqliteExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func sqliteInsert(ctx context.Context, db sqliteExecer, rec Record) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO renewal_credentials (
			id, chain_id, identity_id, secret_hash,
			parent_id, replaced_by, issued_at, expires_at,
			status, status_reason, status_changed_at, user_agent, ip
		) VALUES (?, ?, ?, ?, ?, NULL, ?, ?, 'active', NULL, NULL, ?, ?)
	`, rec.ID, rec.ChainID, rec.IdentityID, rec.SecretHash,
		nullIfEmpty(rec.ParentID), rec.IssuedAt.UnixMicro(), rec.ExpiresAt.UnixMicro(),
		nullIfEmpty(rec.UserAgent), nullIfEmpty(rec.IP))
	if err != nil {
		return fmt.Errorf("session: insert: %w", err)
	}
	return nil
}

// Insert implements Store.
func (s *SQLiteStore) Insert(ctx context.Context, rec Record) error {
	return sqliteInsert(ctx, s.db, rec)
}

// GetByHash implements Store.
func (s *SQLiteStore) GetByHash(ctx context.Context, secretHash string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteRecordColumns+` FROM renewal_credentials WHERE secret_hash = ?`, secretHash)
	return scanSQLiteRecord(row)
}

// GetByID implements Store.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteRecordColumns+` FROM renewal_credentials WHERE id = ?`, id)
	return scanSQLiteRecord(row)
}

// Rotate implements Store.
func (s *SQLiteStore) Rotate(ctx context.Context, now time.Time, oldID string, next Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE renewal_credentials
		SET status = 'retired', status_reason = 'rotation', status_changed_at = ?, replaced_by = ?
		WHERE id = ? AND status = 'active'
	`, now.UnixMicro(), next.ID, oldID)
	if err != nil {
		return fmt.Errorf("session: retire: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrNotActive
	}

	if err := sqliteInsert(ctx, tx, next); err != nil {
		return err
	}
	return tx.Commit()
}

// Transition implements Store.
func (s *SQLiteStore) Transition(ctx context.Context, now time.Time, id string, status Status, reason Reason) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE renewal_credentials
		SET status = ?, status_reason = ?, status_changed_at = ?
		WHERE id = ? AND status = 'active'
	`, string(status), string(reason), now.UnixMicro(), id)
	if err != nil {
		return false, fmt.Errorf("session: transition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}

	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM renewal_credentials WHERE id = ?`, id).Scan(&exists); err != nil {
		return false, err
	}
	if exists == 0 {
		return false, ErrNotFound
	}
	return false, nil
}

// RevokeAll implements Store.
func (s *SQLiteStore) RevokeAll(ctx context.Context, now time.Time, identityID string, reason Reason) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE renewal_credentials
		SET status = 'revoked', status_reason = ?, status_changed_at = ?
		WHERE identity_id = ? AND status = 'active'
	`, string(reason), now.UnixMicro(), identityID)
	if err != nil {
		return 0, fmt.Errorf("session: revoke all: %w", err)
	}
	return res.RowsAffected()
}

// ListByIdentity implements Store.
func (s *SQLiteStore) ListByIdentity(ctx context.Context, identityID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqliteRecordColumns+` FROM renewal_credentials
		WHERE identity_id = ?
		ORDER BY issued_at DESC, id DESC
	`, identityID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Sweep implements Store.
func (s *SQLiteStore) Sweep(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM renewal_credentials WHERE expires_at < ?`, cutoff.UnixMicro())
	if err != nil {
		return 0, fmt.Errorf("session: sweep: %w", err)
	}
	return res.RowsAffected()
}

type sqliteScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row sqliteScanner) (Record, error) {
	var (
		rec                              Record
		parent, replaced, reason, ua, ip sql.NullString
		issued, expires                  int64
		changed                          sql.NullInt64
		status                           string
	)
	err := row.Scan(
		&rec.ID, &rec.ChainID, &rec.IdentityID, &rec.SecretHash,
		&parent, &replaced, &issued, &expires,
		&status, &reason, &changed, &ua, &ip,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}

	rec.IssuedAt = time.UnixMicro(issued).UTC()
	rec.ExpiresAt = time.UnixMicro(expires).UTC()
	rec.Status = Status(status)
	rec.Reason = Reason(reason.String)
	rec.ParentID = parent.String
	rec.ReplacedBy = replaced.String
	if changed.Valid {
		rec.StatusChangedAt = time.UnixMicro(changed.Int64).UTC()
	}
	rec.UserAgent = ua.String
	rec.IP = ip.String
	return rec, nil
}
