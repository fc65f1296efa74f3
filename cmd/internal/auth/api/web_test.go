package authapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSetSessionCookies(t *testing.T) {
	h := &Handler{cfg: DefaultConfig()}

	rr := httptest.NewRecorder()
	now := time.Now().UTC()
	csrf, err := h.setSessionCookies(rr, "renewal-secret-123", now.Add(30*time.Minute), now)
	if err != nil {
		t.Fatalf("setSessionCookies: %v", err)
	}
	if csrf == "" {
		t.Fatalf("expected csrf token")
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}
	if cookies[0].MaxAge != 1800 {
		t.Fatalf("max-age=%d", cookies[0].MaxAge)
	}
}

func TestSetSessionCookies_CSRFDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CSRFEnabled = false
	h := &Handler{cfg: cfg}

	rr := httptest.NewRecorder()
	now := time.Now()
	if _, err := h.setSessionCookies(rr, "s", now.Add(time.Hour), now); err != nil {
		t.Fatalf("setSessionCookies: %v", err)
	}
	if n := len(rr.Result().Cookies()); n != 1 {
		t.Fatalf("expected only the refresh cookie, got %d", n)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	if !h.csrfValid(req) {
		t.Fatalf("disabled csrf should always pass")
	}
}

func TestCSRFDoubleSubmitValidation(t *testing.T) {
	h := &Handler{cfg: DefaultConfig()}

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "csrf-abc"})
	req.Header.Set("X-CSRF-Token", "csrf-abc")
	if !h.csrfValid(req) {
		t.Fatalf("expected csrf validation success")
	}

	req.Header.Set("X-CSRF-Token", "csrf-def")
	if h.csrfValid(req) {
		t.Fatalf("expected csrf validation failure on mismatch")
	}

	req.Header.Del("X-CSRF-Token")
	if h.csrfValid(req) {
		t.Fatalf("expected csrf validation failure on missing header")
	}
}

func TestRenewalSecretFromCookie(t *testing.T) {
	h := &Handler{cfg: DefaultConfig()}

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	if _, ok := h.renewalSecretFromCookie(req); ok {
		t.Fatalf("expected no cookie")
	}

	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "tok-123"})
	token, ok := h.renewalSecretFromCookie(req)
	if !ok || token != "tok-123" {
		t.Fatalf("unexpected cookie token: %q ok=%v", token, ok)
	}
}
