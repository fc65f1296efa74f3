package authapi

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/auth/ratelimit"
)

// ErrConfig is returned for invalid boundary configuration.
var ErrConfig = errors.New("invalid auth api config")

// Config controls the HTTP boundary: cookies, CSRF, throttling and proxy trust.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	// Login is keyed by client IP, LoginHandle by normalized handle,
	// Refresh by client IP.
	Login       ratelimit.Rule
	LoginHandle ratelimit.Rule
	Refresh     ratelimit.Rule

	RefreshCookieName string
	CSRFCookieName    string
	CSRFHeaderName    string
	CSRFEnabled       bool
	CookiePath        string
	CookieDomain      string
	CookieSecure      bool
	CookieSameSite    http.SameSite
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:      1 << 16,
		Login:             ratelimit.Rule{Limit: 5, Window: time.Minute},
		LoginHandle:       ratelimit.Rule{Limit: 10, Window: 15 * time.Minute},
		Refresh:           ratelimit.Rule{Limit: 30, Window: time.Minute},
		RefreshCookieName: "refresh_token",
		CSRFCookieName:    "csrf_token",
		CSRFHeaderName:    "X-CSRF-Token",
		CSRFEnabled:       true,
		CookiePath:        "/auth",
		CookieSecure:      true,
		CookieSameSite:    http.SameSiteLaxMode,
	}
}

// LoadConfigFromEnv loads boundary configuration.
//
// Optional:
//   - TALENTHUB_TRUST_PROXY
//   - TALENTHUB_AUTH_MAX_BODY_BYTES
//   - TALENTHUB_RATE_LIMIT_LOGIN, TALENTHUB_RATE_LIMIT_LOGIN_HANDLE,
//     TALENTHUB_RATE_LIMIT_REFRESH ("5/minute", "off")
//   - TALENTHUB_AUTH_REFRESH_COOKIE_NAME, TALENTHUB_AUTH_CSRF_COOKIE_NAME,
//     TALENTHUB_AUTH_CSRF_HEADER, TALENTHUB_AUTH_CSRF_ENABLED
//   - TALENTHUB_AUTH_COOKIE_PATH, TALENTHUB_AUTH_COOKIE_DOMAIN,
//     TALENTHUB_AUTH_COOKIE_SECURE, TALENTHUB_AUTH_COOKIE_SAMESITE
//
// SameSite=None forces Secure, and the CSRF cookie must not share the
// refresh cookie's name.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.TrustProxy = envBool("TALENTHUB_TRUST_PROXY", cfg.TrustProxy)
	cfg.MaxBodyBytes = envInt64("TALENTHUB_AUTH_MAX_BODY_BYTES", cfg.MaxBodyBytes)

	rules := []struct {
		key string
		dst *ratelimit.Rule
	}{
		{"TALENTHUB_RATE_LIMIT_LOGIN", &cfg.Login},
		{"TALENTHUB_RATE_LIMIT_LOGIN_HANDLE", &cfg.LoginHandle},
		{"TALENTHUB_RATE_LIMIT_REFRESH", &cfg.Refresh},
	}
	for _, r := range rules {
		v, ok := os.LookupEnv(r.key)
		if !ok {
			continue
		}
		rule, err := ratelimit.ParseRule(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrConfig, r.key, err)
		}
		*r.dst = rule
	}

	cfg.RefreshCookieName = envString("TALENTHUB_AUTH_REFRESH_COOKIE_NAME", cfg.RefreshCookieName)
	cfg.CSRFCookieName = envString("TALENTHUB_AUTH_CSRF_COOKIE_NAME", cfg.CSRFCookieName)
	cfg.CSRFHeaderName = envString("TALENTHUB_AUTH_CSRF_HEADER", cfg.CSRFHeaderName)
	cfg.CSRFEnabled = envBool("TALENTHUB_AUTH_CSRF_ENABLED", cfg.CSRFEnabled)
	cfg.CookiePath = envString("TALENTHUB_AUTH_COOKIE_PATH", cfg.CookiePath)
	cfg.CookieDomain = envString("TALENTHUB_AUTH_COOKIE_DOMAIN", cfg.CookieDomain)
	cfg.CookieSecure = envBool("TALENTHUB_AUTH_COOKIE_SECURE", cfg.CookieSecure)
	cfg.CookieSameSite = parseSameSite(envString("TALENTHUB_AUTH_COOKIE_SAMESITE", "lax"))

	// Guardrails.
	if cfg.CookieSameSite == http.SameSiteNoneMode {
		cfg.CookieSecure = true
	}
	if cfg.CSRFCookieName == cfg.RefreshCookieName {
		cfg.CSRFCookieName = cfg.RefreshCookieName + "_csrf"
	}
	if !strings.HasPrefix(cfg.CookiePath, "/") {
		return Config{}, fmt.Errorf("%w: cookie path must start with /", ErrConfig)
	}

	return cfg, nil
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "default":
		return http.SameSiteDefaultMode
	default:
		return http.SameSiteLaxMode
	}
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
