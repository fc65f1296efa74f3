package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

func (a *App) registerHTTP(r *mux.Router) {
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet, http.MethodHead)

	r.HandleFunc("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if err := a.ready(req.Context()); err != nil {
			a.log.Info("readyz.not_ready", "err", err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	}).Methods(http.MethodGet, http.MethodHead)

	r.Handle("/metrics", a.metrics.Handler()).Methods(http.MethodGet)
}

var errNoDatabase = errors.New("postgres not configured")

func (a *App) ready(ctx context.Context) error {
	if a.cfg.ReadinessRequireDB && a.pool == nil {
		return errNoDatabase
	}
	if a.pool != nil {
		if err := PingDB(ctx, a.pool, 2*time.Second); err != nil {
			return err
		}
	}
	if a.sqlite != nil {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := a.sqlite.PingContext(pctx); err != nil {
			return err
		}
	}
	if a.redis != nil {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := a.redis.Ping(pctx).Err(); err != nil {
			return err
		}
	}
	return nil
}
