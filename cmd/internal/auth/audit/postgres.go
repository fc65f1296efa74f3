package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSink inserts events into the audit_log table.
type PostgresSink struct {
	pool    *pgxpool.Pool
	log     *slog.Logger
	timeout time.Duration
}

// NewPostgresSink returns a sink writing through pool. The pool is owned by the caller.
func NewPostgresSink(pool *pgxpool.Pool, log *slog.Logger) *PostgresSink {
	if log == nil {
		log = slog.Default()
	}
	return &PostgresSink{pool: pool, log: log, timeout: 2 * time.Second}
}

// Record implements Sink. Insert failures are logged and swallowed.
func (s *PostgresSink) Record(ctx context.Context, ev Event) {
	if s == nil || s.pool == nil {
		return
	}
	action := strings.TrimSpace(ev.Action)
	if action == "" {
		return
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	var metaVal *string
	if len(ev.Meta) > 0 {
		if b, err := json.Marshal(ev.Meta); err == nil {
			m := string(b)
			metaVal = &m
		}
	}

	// The request may already be finished; keep values but not cancellation.
	insCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	_, err := s.pool.Exec(insCtx, `
		INSERT INTO audit_log (
			identity_id, chain_id, action, outcome, reason, created_at, ip, user_agent, meta
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)
	`, ev.IdentityID, nilIfEmpty(ev.ChainID), action, string(ev.Outcome), nilIfEmpty(ev.Reason),
		at, nilIfEmpty(ev.Source.IP), nilIfEmpty(ev.Source.UserAgent), metaVal)
	if err != nil {
		s.log.Error("audit.insert.fail", "err", err, "action", action)
	}
}

func nilIfEmpty(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}
