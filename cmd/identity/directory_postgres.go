package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDirectory reads identities from PostgreSQL.
// The pool is owned by the caller.
type PostgresDirectory struct {
	pool  *pgxpool.Pool
	table string
}

// PostgresOption configures the directory.
type PostgresOption func(*PostgresDirectory) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema reads identities from schema.identities instead of public.identities.
func WithSchema(schema string) PostgresOption {
	return func(d *PostgresDirectory) error {
		schema = strings.TrimSpace(schema)
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		d.table = pgx.Identifier{schema, "identities"}.Sanitize()
		return nil
	}
}

// NewPostgresDirectory constructs a PostgresDirectory.
func NewPostgresDirectory(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresDirectory, error) {
	d := &PostgresDirectory{
		pool:  pool,
		table: pgx.Identifier{"identities"}.Sanitize(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	if d.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return d, nil
}

// LookupHandle implements Directory.
func (d *PostgresDirectory) LookupHandle(ctx context.Context, handle string) (Identity, error) {
	const op = "identity.LookupHandle"

	norm := NormalizeHandle(handle)
	if norm == "" {
		return Identity{}, invalid(op, "empty handle")
	}
	if len(norm) > maxHandleLen {
		return Identity{}, notFound(op)
	}

	q := `SELECT id, handle, credential_hash, role, active FROM ` + d.table + ` WHERE handle_norm = $1`
	return d.queryOne(ctx, op, q, norm)
}

// LookupID implements Directory.
func (d *PostgresDirectory) LookupID(ctx context.Context, id string) (Identity, error) {
	const op = "identity.LookupID"

	id = strings.TrimSpace(id)
	if id == "" {
		return Identity{}, invalid(op, "empty id")
	}

	q := `SELECT id, handle, credential_hash, role, active FROM ` + d.table + ` WHERE id = $1`
	return d.queryOne(ctx, op, q, id)
}

func (d *PostgresDirectory) queryOne(ctx context.Context, op, q string, arg string) (Identity, error) {
	var ident Identity
	err := d.pool.QueryRow(ctx, q, arg).Scan(
		&ident.ID,
		&ident.Handle,
		&ident.CredentialHash,
		&ident.Role,
		&ident.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Identity{}, notFound(op)
		}
		return Identity{}, fmt.Errorf("%s: %w", op, err)
	}
	return ident, nil
}
