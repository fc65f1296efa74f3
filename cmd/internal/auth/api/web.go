package authapi

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

// setSessionCookies stores the renewal secret in an HttpOnly cookie and a
// fresh CSRF value in a readable cookie, both living until exp.
func (h *Handler) setSessionCookies(w http.ResponseWriter, secret string, exp, now time.Time) (string, error) {
	csrf, err := newOpaqueWebToken(32)
	if err != nil {
		return "", err
	}
	maxAge := int(exp.Sub(now) / time.Second)
	if maxAge <= 0 {
		maxAge = -1
	}
	h.setCookie(w, h.cfg.RefreshCookieName, secret, exp, maxAge, true)
	if h.cfg.CSRFEnabled {
		h.setCookie(w, h.cfg.CSRFCookieName, csrf, exp, maxAge, false)
	}
	return csrf, nil
}

func (h *Handler) clearSessionCookies(w http.ResponseWriter) {
	h.setCookie(w, h.cfg.RefreshCookieName, "", time.Unix(0, 0).UTC(), -1, true)
	if h.cfg.CSRFEnabled {
		h.setCookie(w, h.cfg.CSRFCookieName, "", time.Unix(0, 0).UTC(), -1, false)
	}
}

// renewalSecretFromCookie is the only place a renewal secret is read from.
func (h *Handler) renewalSecretFromCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie(h.cfg.RefreshCookieName)
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(c.Value)
	return v, v != ""
}

// csrfValid checks the double-submit header against the CSRF cookie.
func (h *Handler) csrfValid(r *http.Request) bool {
	if !h.cfg.CSRFEnabled {
		return true
	}
	c, err := r.Cookie(h.cfg.CSRFCookieName)
	if err != nil {
		return false
	}
	return secureStringEqual(strings.TrimSpace(c.Value), strings.TrimSpace(r.Header.Get(h.cfg.CSRFHeaderName)))
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, exp time.Time, maxAge int, httpOnly bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     h.cfg.CookiePath,
		Domain:   h.cfg.CookieDomain,
		Expires:  exp,
		MaxAge:   maxAge,
		HttpOnly: httpOnly,
		Secure:   h.cfg.CookieSecure,
		SameSite: h.cfg.CookieSameSite,
	})
}

func newOpaqueWebToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func secureStringEqual(a, b string) bool {
	if a == "" || len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
