package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/metrics"
)

func TestRequestLogMeta(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status     int
		wantLevel  slog.Level
		wantResult string
		wantClass  string
	}{
		{status: 200, wantLevel: slog.LevelInfo, wantResult: "success", wantClass: "2xx"},
		{status: 302, wantLevel: slog.LevelInfo, wantResult: "redirect", wantClass: "3xx"},
		{status: 404, wantLevel: slog.LevelWarn, wantResult: "client_error", wantClass: "4xx"},
		{status: 503, wantLevel: slog.LevelError, wantResult: "server_error", wantClass: "5xx"},
	}

	for _, tc := range cases {
		level, result := requestLogMeta(tc.status)
		if level != tc.wantLevel || result != tc.wantResult {
			t.Fatalf("status=%d level=%v result=%q; want level=%v result=%q", tc.status, level, result, tc.wantLevel, tc.wantResult)
		}
		if got := statusClass(tc.status); got != tc.wantClass {
			t.Fatalf("statusClass(%d)=%q want=%q", tc.status, got, tc.wantClass)
		}
	}
}

func TestWithCORS(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cases := []struct {
		name       string
		cfg        Config
		method     string
		origin     string
		preflight  bool
		wantStatus int
		wantOrigin string
		wantCreds  string
		wantNext   bool
	}{
		{
			name:       "preflight allowed",
			cfg:        Config{CORSAllowedOrigins: []string{"https://app.example.com"}, CORSAllowCredentials: true, CORSMaxAgeSeconds: 600},
			method:     http.MethodOptions,
			origin:     "https://app.example.com",
			preflight:  true,
			wantStatus: http.StatusNoContent,
			wantOrigin: "https://app.example.com",
			wantCreds:  "true",
		},
		{
			name:       "disallowed origin",
			cfg:        Config{CORSAllowedOrigins: []string{"https://app.example.com"}},
			method:     http.MethodGet,
			origin:     "https://evil.example.com",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "wildcard port",
			cfg:        Config{CORSAllowedOrigins: []string{"http://127.0.0.1:*"}},
			method:     http.MethodGet,
			origin:     "http://127.0.0.1:55123",
			wantStatus: http.StatusTeapot,
			wantOrigin: "http://127.0.0.1:55123",
			wantNext:   true,
		},
		{
			name:       "same origin request without Origin header",
			cfg:        Config{CORSAllowedOrigins: []string{"https://app.example.com"}},
			method:     http.MethodPost,
			wantStatus: http.StatusTeapot,
			wantNext:   true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			called := false
			h := WithCORS(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				called = true
				w.WriteHeader(http.StatusTeapot)
			}), tc.cfg, log)

			req := httptest.NewRequest(tc.method, "/auth/refresh", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if tc.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
				req.Header.Set("Access-Control-Request-Headers", "Content-Type, X-CSRF-Token")
			}

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("status=%d want=%d", rr.Code, tc.wantStatus)
			}
			if called != tc.wantNext {
				t.Fatalf("next called=%v want=%v", called, tc.wantNext)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Fatalf("allow-origin=%q want=%q", got, tc.wantOrigin)
			}
			if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != tc.wantCreds {
				t.Fatalf("allow-credentials=%q want=%q", got, tc.wantCreds)
			}
			if tc.preflight {
				if got := rr.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, X-CSRF-Token" {
					t.Fatalf("allow-headers=%q", got)
				}
				if got := rr.Header().Get("Access-Control-Max-Age"); got != "600" {
					t.Fatalf("max-age=%q", got)
				}
			}
		})
	}
}

func TestWithSecurityHeaders(t *testing.T) {
	h := WithSecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("missing nosniff: %q", got)
	}
	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("missing frame options: %q", got)
	}
	if got := rr.Header().Get("Referrer-Policy"); got != "no-referrer" {
		t.Fatalf("missing referrer policy: %q", got)
	}
}

func TestOriginAllowed(t *testing.T) {
	t.Parallel()

	allowed := []string{"https://app.example.com", "http://localhost:*"}
	cases := []struct {
		origin string
		want   bool
	}{
		{origin: "https://app.example.com", want: true},
		{origin: "HTTPS://APP.EXAMPLE.COM", want: true},
		{origin: "https://app.example.com:8443", want: false},
		{origin: "http://localhost:3000", want: true},
		{origin: "http://localhost", want: false},
		{origin: "https://localhost:3000", want: false},
		{origin: "http://localhost.evil.com:3000", want: false},
		{origin: "null", want: false},
	}
	for _, tc := range cases {
		if got := originAllowed(allowed, tc.origin); got != tc.want {
			t.Fatalf("originAllowed(%q)=%v want=%v", tc.origin, got, tc.want)
		}
	}
}

func TestWithCORS_EmptyListPassesThrough(t *testing.T) {
	t.Parallel()

	h := WithCORS(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://anywhere.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow-origin: %q", got)
	}
}

func TestWithRequestLogging_LevelByStatus(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	h := WithRequestLogging(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("down"))
	}), log)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if rec["level"] != "ERROR" || rec["status"] != float64(503) || rec["result"] != "server_error" || rec["bytes"] != float64(4) {
		t.Fatalf("unexpected log record: %v", rec)
	}
}

func TestRouteMetrics_UsesPathTemplate(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())
	r := mux.NewRouter()
	r.Use(routeMetrics(m))
	r.HandleFunc("/sessions/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sessions/"+id, nil))
	}

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/sessions/{id}", "204")); got != 2 {
		t.Fatalf("requests for template = %v, want 2", got)
	}
}
