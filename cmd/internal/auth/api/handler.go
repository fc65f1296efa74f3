// Package authapi exposes login, refresh and logout over HTTP.
package authapi

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/identity"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/auth/accesstoken"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/auth/audit"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/auth/credential"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/auth/ratelimit"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/auth/session"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/metrics"
)

// Verifier authenticates a login handle and secret.
type Verifier interface {
	Verify(ctx context.Context, handle, secret string, src audit.Source) (identity.Identity, error)
}

// Handler wires HTTP auth endpoints to the credential verifier and the
// session service.
type Handler struct {
	log *slog.Logger
	cfg Config

	verifier Verifier
	sessions *session.Service
	tokens   accesstoken.Issuer

	limiter ratelimit.Limiter
	audit   audit.Sink
	metrics *metrics.Metrics
	now     func() time.Time
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithLimiter enables throttling.
func WithLimiter(l ratelimit.Limiter) HandlerOption {
	return func(h *Handler) { h.limiter = l }
}

// WithAudit sets the sink for refresh, logout and throttling events.
func WithAudit(sink audit.Sink) HandlerOption {
	return func(h *Handler) {
		if sink != nil {
			h.audit = sink
		}
	}
}

// WithMetrics sets the metrics used for limiter outages.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, verifier Verifier, sessions *session.Service, tokens accesstoken.Issuer, opts ...HandlerOption) (*Handler, error) {
	if verifier == nil || sessions == nil || tokens == nil {
		return nil, errors.New("auth: verifier, sessions and tokens are required")
	}
	if log == nil {
		log = slog.Default()
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		verifier: verifier,
		sessions: sessions,
		tokens:   tokens,
		audit:    audit.Nop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.cfg.MaxBodyBytes <= 0 {
		h.cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}
	return h, nil
}

// Register wires auth routes onto r. Routes are registered on r itself
// rather than a subrouter so a method mismatch answers 405, not 404.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/auth/login", h.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh", h.handleRefresh).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", h.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout_all", h.handleLogoutAll).Methods(http.MethodPost)
	r.HandleFunc("/auth/whoami", h.handleWhoami).Methods(http.MethodGet)
}

// ---- handlers ----

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeLogin(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	ctx := r.Context()
	now := h.now().UTC()
	src := h.source(r)
	handle := identity.NormalizeHandle(req.Username)

	// Throttle before touching the directory.
	for _, k := range []struct {
		key  string
		rule ratelimit.Rule
	}{
		{ratelimit.Key("login", "ip", src.IP), h.cfg.Login},
		{ratelimit.Key("login", "handle", handle), h.cfg.LoginHandle},
	} {
		if retryAfter, limited := h.throttle(ctx, k.key, k.rule); limited {
			h.auditRateLimited(ctx, audit.ActionLoginRateLimited, src, k.key, retryAfter)
			writeRateLimited(w, retryAfter)
			return
		}
	}

	ident, err := h.verifier.Verify(ctx, handle, req.Password, src)
	if err != nil {
		if errors.Is(err, credential.ErrAuthFailed) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
			return
		}
		h.log.Error("auth.login.verify.fail", "err", err)
		h.auditFailure(ctx, audit.ActionLoginFailed, audit.ReasonInternalError, src)
		writeServerError(w)
		return
	}

	issued, err := h.sessions.Start(ctx, now, ident, session.ClientMeta{UserAgent: src.UserAgent, IP: src.IP})
	if err != nil {
		if errors.Is(err, session.ErrIdentityInactive) {
			h.auditFailure(ctx, audit.ActionLoginFailed, audit.ReasonInvalidCredentials, src)
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
			return
		}
		h.log.Error("auth.login.issue.fail", "err", err)
		h.auditFailure(ctx, audit.ActionLoginFailed, audit.ReasonInternalError, src)
		writeServerError(w)
		return
	}

	h.respondIssued(w, issued, now)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := h.now().UTC()
	src := h.source(r)

	key := ratelimit.Key("refresh", "ip", src.IP)
	if retryAfter, limited := h.throttle(ctx, key, h.cfg.Refresh); limited {
		h.auditRateLimited(ctx, audit.ActionRefreshRateLimited, src, key, retryAfter)
		writeRateLimited(w, retryAfter)
		return
	}

	// The renewal secret is only accepted from its cookie; bodies are ignored.
	secret, ok := h.renewalSecretFromCookie(r)
	if !ok {
		h.auditRefreshFailed(ctx, nil, src)
		h.writeReauth(w)
		return
	}
	if !h.csrfValid(r) {
		h.auditFailure(ctx, audit.ActionRefreshFailed, audit.ReasonCSRFInvalid, src)
		writeError(w, http.StatusForbidden, "csrf_invalid", "missing or invalid csrf token")
		return
	}

	issued, err := h.sessions.Rotate(ctx, now, secret, session.ClientMeta{UserAgent: src.UserAgent, IP: src.IP})
	if err != nil {
		if session.RequiresReauth(err) {
			h.log.Info("auth.refresh.rejected", "reason", refreshFailureReason(err))
			h.auditRefreshFailed(ctx, err, src)
			h.writeReauth(w)
			return
		}
		h.log.Error("auth.refresh.fail", "err", err)
		h.auditFailure(ctx, audit.ActionRefreshFailed, audit.ReasonInternalError, src)
		writeServerError(w)
		return
	}

	h.auditRefreshSuccess(ctx, issued, src)
	h.respondIssued(w, issued, now)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := h.now().UTC()
	src := h.source(r)

	secret, ok := h.renewalSecretFromCookie(r)
	if !ok {
		h.auditFailure(ctx, audit.ActionLogout, audit.ReasonMissingCredential, src)
		h.clearSessionCookies(w)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if !h.csrfValid(r) {
		h.auditFailure(ctx, audit.ActionLogout, audit.ReasonCSRFInvalid, src)
		writeError(w, http.StatusForbidden, "csrf_invalid", "missing or invalid csrf token")
		return
	}

	rec, err := h.sessions.RevokeSecret(ctx, now, secret)
	switch {
	case err == nil:
		h.auditLogout(ctx, rec, src)
	case errors.Is(err, session.ErrNotFound):
		h.auditFailure(ctx, audit.ActionLogout, refreshFailureReason(err), src)
	default:
		h.log.Error("auth.logout.fail", "err", err)
		h.auditFailure(ctx, audit.ActionLogout, audit.ReasonInternalError, src)
		writeServerError(w)
		return
	}

	h.clearSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	n, err := h.sessions.RevokeAll(ctx, h.now().UTC(), claims.IdentityID, session.ReasonLogoutAll)
	if err != nil {
		h.log.Error("auth.logout_all.fail", "err", err)
		h.auditFailure(ctx, audit.ActionLogoutAll, audit.ReasonInternalError, h.source(r))
		writeServerError(w)
		return
	}

	h.auditLogoutAll(ctx, claims.IdentityID, n, h.source(r))
	h.clearSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleWhoami(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.requireAuth(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, whoamiResponse{
		IdentityID: claims.IdentityID,
		Role:       claims.Role,
		Issuer:     claims.Issuer,
		IssuedAt:   claims.IssuedAt,
		ExpiresAt:  claims.ExpiresAt,
	})
}

// ---- helpers ----

func (h *Handler) respondIssued(w http.ResponseWriter, issued session.Issued, now time.Time) {
	if _, err := h.setSessionCookies(w, issued.RenewalSecret, issued.RenewalExp, now); err != nil {
		h.log.Error("auth.cookie.fail", "err", err)
		writeServerError(w)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: issued.AccessToken,
		TokenType:   "bearer",
		ExpiresAt:   issued.AccessExp,
	})
}

func (h *Handler) writeReauth(w http.ResponseWriter) {
	h.clearSessionCookies(w)
	writeError(w, http.StatusUnauthorized, "reauthenticate", "session ended, log in again")
}

func (h *Handler) requireAuth(w http.ResponseWriter, r *http.Request) (accesstoken.Claims, bool) {
	token := bearerToken(r)
	if token == "" {
		w.Header().Set("WWW-Authenticate", `Bearer realm="talenthub"`)
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return accesstoken.Claims{}, false
	}
	claims, err := h.tokens.Verify(token, h.now().UTC())
	if err != nil {
		w.Header().Set("WWW-Authenticate", `Bearer realm="talenthub", error="invalid_token"`)
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
		return accesstoken.Claims{}, false
	}
	return claims, true
}

// decodeLogin accepts a JSON body or an OAuth2 password-grant style form.
func (h *Handler) decodeLogin(w http.ResponseWriter, r *http.Request) (loginRequest, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mt {
	case "application/x-www-form-urlencoded":
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
		if err := r.ParseForm(); err != nil {
			return loginRequest{}, err
		}
		return loginRequest{
			Username: r.PostForm.Get("username"),
			Password: r.PostForm.Get("password"),
		}, nil
	default:
		var req loginRequest
		err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req)
		return req, err
	}
}

func (h *Handler) source(r *http.Request) audit.Source {
	src := audit.Source{UserAgent: strings.TrimSpace(r.UserAgent())}
	if ip := clientIP(r, h.cfg.TrustProxy); ip != nil {
		src.IP = ip.String()
	}
	return src
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// clientIP resolves the caller. Forwarding headers are only honored behind a
// trusted proxy.
func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		host = strings.TrimSpace(r.RemoteAddr)
	}
	return net.ParseIP(host)
}

func parseForwardedIP(raw string) net.IP {
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
