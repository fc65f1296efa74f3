package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/auth/session"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/migrations"
)

// NewDBPool builds a pgxpool with sane defaults and validates connectivity.
func NewDBPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if cfg.DBMaxConns > 0 {
		pcfg.MaxConns = cfg.DBMaxConns
	}
	if cfg.DBMinConns >= 0 {
		pcfg.MinConns = cfg.DBMinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	if err := PingDB(ctx, pool, 3*time.Second); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// PingDB checks if we can acquire a connection within timeout.
func PingDB(parent context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	conn.Release()
	return nil
}

// MigratePostgres applies the embedded schema through a database/sql view of pool.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	return migrations.Up(ctx, db, migrations.Postgres, log)
}

// OpenSQLite opens the embedded store at path, optionally migrating it.
// The handle is limited to one connection after migration so writers serialize.
func OpenSQLite(ctx context.Context, path string, migrate bool, log *slog.Logger) (*sql.DB, error) {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")

	db, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if migrate {
		if err := migrations.Up(ctx, db, migrations.SQLite, log); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// NewRedisClient parses a redis:// URL and checks connectivity.
func NewRedisClient(ctx context.Context, rawURL string) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := redis.NewClient(opts)

	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return client, nil
}

// Handles are the database handles behind a session store. Exactly one is set.
type Handles struct {
	Pool   *pgxpool.Pool
	SQLite *sql.DB
}

// Close releases whichever handle is open.
func (h Handles) Close() {
	if h.Pool != nil {
		h.Pool.Close()
	}
	if h.SQLite != nil {
		_ = h.SQLite.Close()
	}
}

// OpenStore opens the renewal-record store selected by cfg.StoreDriver,
// migrating it first when cfg.DBMigrate is set.
func OpenStore(ctx context.Context, cfg Config, log *slog.Logger) (session.Store, Handles, error) {
	if cfg.StoreDriver == DriverPostgres {
		pool, err := NewDBPool(ctx, cfg)
		if err != nil {
			return nil, Handles{}, fmt.Errorf("postgres: %w", err)
		}
		h := Handles{Pool: pool}
		if cfg.DBMigrate {
			if err := MigratePostgres(ctx, pool, log); err != nil {
				h.Close()
				return nil, Handles{}, err
			}
		}
		store, err := session.NewPostgresStore(pool)
		if err != nil {
			h.Close()
			return nil, Handles{}, err
		}
		log.Info("db.enabled.postgres_store")
		return store, h, nil
	}

	db, err := OpenSQLite(ctx, cfg.SQLitePath, cfg.DBMigrate, log)
	if err != nil {
		return nil, Handles{}, err
	}
	h := Handles{SQLite: db}
	store, err := session.NewSQLiteStore(db)
	if err != nil {
		h.Close()
		return nil, Handles{}, err
	}
	log.Info("db.enabled.sqlite_store", "path", cfg.SQLitePath)
	return store, h, nil
}
