// Package app wires the talenthub server runtime: config, logging, storage,
// the session service, and the HTTP surface.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/identity"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/auth/accesstoken"
	authapi "github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/auth/api"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/auth/audit"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/auth/credential"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/auth/ratelimit"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/auth/session"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/metrics"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/security/password"
)

// App is the talenthub server runtime. It owns the database handles and the
// HTTP handler tree.
type App struct {
	cfg Config
	log Logger

	pool   *pgxpool.Pool
	sqlite *sql.DB
	redis  redis.UniversalClient

	files    *identity.FileDirectory
	sessions *session.Service
	metrics  *metrics.Metrics

	handler http.Handler
	now     func() time.Time
}

// New constructs a fully wired App instance from config and logger.
// Token, session, password, and cookie settings are read from the environment
// by their owning packages.
func New(ctx context.Context, cfg Config, log Logger) (_ *App, err error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat, nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log, metrics: metrics.New(nil), now: time.Now}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	hasher, err := SecurityHasher(cfg)
	if err != nil {
		return nil, err
	}
	if !hasher.HMAC() {
		log.Warn("security.token_hmac.disabled", "hint", "set TALENTHUB_TOKEN_HMAC_KEY")
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	dir, err := a.openDirectory()
	if err != nil {
		return nil, err
	}

	sinks := []audit.Sink{audit.LogSink{Log: log}, a.metrics}
	if a.pool != nil {
		sinks = append(sinks, audit.NewPostgresSink(a.pool, log))
	}
	sink := audit.Multi(sinks...)

	tcfg, err := accesstoken.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("access token config: %w", err)
	}
	tokens, err := accesstoken.New(tcfg)
	if err != nil {
		return nil, err
	}

	scfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	a.sessions, err = session.NewService(scfg, store, tokens, dir, hasher,
		session.WithAudit(sink),
		session.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	pw, err := password.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("password config: %w", err)
	}
	verifier, err := credential.NewVerifier(dir, pw,
		credential.WithAudit(sink),
		credential.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	limiter, err := a.openLimiter(ctx)
	if err != nil {
		return nil, err
	}

	acfg, err := authapi.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("auth http config: %w", err)
	}
	auth, err := authapi.NewHandler(log, acfg, verifier, a.sessions, tokens,
		authapi.WithLimiter(limiter),
		authapi.WithAudit(sink),
		authapi.WithMetrics(a.metrics),
	)
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()
	r.Use(routeMetrics(a.metrics))
	a.registerHTTP(r)
	auth.Register(r)

	a.handler = WithRequestLogging(WithSecurityHeaders(WithCORS(r, cfg, log)), log)

	log.Info("app.ready",
		"store", cfg.StoreDriver,
		"identity_source", cfg.IdentitySource,
		"token_alg", string(tcfg.Algorithm),
		"limiter", limiterKind(a.redis),
		"reuse_grace", scfg.ReuseGrace,
	)
	return a, nil
}

// Handler returns the root HTTP handler with middleware applied.
func (a *App) Handler() http.Handler { return a.handler }

// Sessions exposes the session service for administrative callers.
func (a *App) Sessions() *session.Service { return a.sessions }

func (a *App) openStore(ctx context.Context) (session.Store, error) {
	store, h, err := OpenStore(ctx, a.cfg, a.log)
	if err != nil {
		return nil, err
	}
	a.pool, a.sqlite = h.Pool, h.SQLite
	return store, nil
}

func (a *App) openDirectory() (identity.Directory, error) {
	if a.cfg.IdentitySource == IdentityPostgres {
		return identity.NewPostgresDirectory(a.pool)
	}
	files, err := identity.LoadFileDirectory(a.cfg.IdentityFile)
	if err != nil {
		return nil, err
	}
	a.files = files
	return files, nil
}

func (a *App) openLimiter(ctx context.Context) (ratelimit.Limiter, error) {
	if a.cfg.RedisURL == "" {
		a.log.Warn("ratelimit.memory", "hint", "limits are per process; set TALENTHUB_REDIS_URL for shared limits")
		return ratelimit.NewMemoryLimiter(nil), nil
	}
	client, err := NewRedisClient(ctx, a.cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	a.redis = client
	return ratelimit.NewRedisLimiter(client, ratelimit.DefaultPrefix), nil
}

func limiterKind(r redis.UniversalClient) string {
	if r != nil {
		return "redis"
	}
	return "memory"
}

// Run starts the HTTP server and background jobs, and blocks until context
// cancellation or a fatal server error.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.files != nil && a.cfg.IdentityWatch {
		if err := a.files.Watch(ctx, a.log); err != nil {
			a.log.Warn("identity.watch.disabled", "err", err)
		}
	}
	if a.cfg.SweepInterval > 0 {
		go a.sweepLoop(ctx, a.cfg.SweepInterval)
	}

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "base_url", runtimeBaseURL(a.cfg.HTTPAddr))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.log.Info("server.stopped")
	return nil
}

// SweepOnce deletes renewal records past the retention horizon.
func (a *App) SweepOnce(ctx context.Context) (int64, error) {
	n, err := a.sessions.Sweep(ctx, a.now())
	if err != nil {
		return 0, err
	}
	a.metrics.AddSwept(n)
	return n, nil
}

func (a *App) sweepLoop(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := a.SweepOnce(ctx)
			if err != nil {
				a.log.Error("session.sweep.fail", "err", err)
				continue
			}
			a.log.Info("session.sweep.ok", "deleted", n)
		}
	}
}

// Close releases database and cache handles. It is safe to call more than once.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("redis.close.fail", "err", err)
		}
		a.redis = nil
	}
	if a.sqlite != nil {
		if err := a.sqlite.Close(); err != nil {
			a.log.Warn("sqlite.close.fail", "err", err)
		}
		a.sqlite = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
}

// runtimeBaseURL turns a listen address into a URL a local client can dial.
func runtimeBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + strings.TrimPrefix(addr, "http://")
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
