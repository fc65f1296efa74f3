package authapi

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/auth/ratelimit"
)

func TestLoadConfigFromEnv_CookieGuardrails(t *testing.T) {
	t.Setenv("TALENTHUB_AUTH_REFRESH_COOKIE_NAME", "th_token")
	t.Setenv("TALENTHUB_AUTH_CSRF_COOKIE_NAME", "th_token")
	t.Setenv("TALENTHUB_AUTH_COOKIE_SAMESITE", "none")
	t.Setenv("TALENTHUB_AUTH_COOKIE_SECURE", "false")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.CSRFCookieName == cfg.RefreshCookieName {
		t.Fatalf("csrf cookie name must differ from refresh cookie name")
	}
	if cfg.CookieSameSite != http.SameSiteNoneMode {
		t.Fatalf("expected SameSite=None, got %v", cfg.CookieSameSite)
	}
	if !cfg.CookieSecure {
		t.Fatalf("SameSite=None requires Secure=true")
	}
}

func TestLoadConfigFromEnv_RateRules(t *testing.T) {
	t.Setenv("TALENTHUB_RATE_LIMIT_LOGIN", "3/minute")
	t.Setenv("TALENTHUB_RATE_LIMIT_REFRESH", "off")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.Login != (ratelimit.Rule{Limit: 3, Window: time.Minute}) {
		t.Fatalf("login rule=%v", cfg.Login)
	}
	if cfg.Refresh.Enabled() {
		t.Fatalf("refresh rule should be disabled")
	}

	t.Setenv("TALENTHUB_RATE_LIMIT_LOGIN", "lots")
	if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestParseSameSite(t *testing.T) {
	tests := []struct {
		in   string
		want http.SameSite
	}{
		{in: "strict", want: http.SameSiteStrictMode},
		{in: "lax", want: http.SameSiteLaxMode},
		{in: "none", want: http.SameSiteNoneMode},
		{in: "default", want: http.SameSiteDefaultMode},
		{in: "unknown", want: http.SameSiteLaxMode},
	}

	for _, tc := range tests {
		got := parseSameSite(tc.in)
		if got != tc.want {
			t.Fatalf("parseSameSite(%q)=%v, want %v", tc.in, got, tc.want)
		}
	}
}
