package session

import (
	"errors"
	"os"
	"testing"
	"time"
)

var sessionEnvKeys = []string{
	"TALENTHUB_REFRESH_TOKEN_EXPIRE_DAYS",
	"TALENTHUB_REFRESH_TOKEN_BYTES",
	"TALENTHUB_SESSION_REUSE_GRACE",
	"TALENTHUB_SESSION_RETENTION",
}

func clearSessionEnv(t *testing.T) {
	t.Helper()
	for _, k := range sessionEnvKeys {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
}

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	clearSessionEnv(t)

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("cfg=%+v want defaults", cfg)
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	clearSessionEnv(t)
	t.Setenv("TALENTHUB_REFRESH_TOKEN_EXPIRE_DAYS", "14")
	t.Setenv("TALENTHUB_REFRESH_TOKEN_BYTES", "48")
	t.Setenv("TALENTHUB_SESSION_REUSE_GRACE", "15s")
	t.Setenv("TALENTHUB_SESSION_RETENTION", "72h")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.RenewalTTL != 14*24*time.Hour || cfg.SecretBytes != 48 || cfg.ReuseGrace != 15*time.Second || cfg.Retention != 72*time.Hour {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestLoadConfigFromEnv_Invalid(t *testing.T) {
	cases := map[string]string{
		"TALENTHUB_REFRESH_TOKEN_EXPIRE_DAYS": "0",
		"TALENTHUB_REFRESH_TOKEN_BYTES":       "8",
		"TALENTHUB_SESSION_REUSE_GRACE":       "1h",
		"TALENTHUB_SESSION_RETENTION":         "soon",
	}
	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			clearSessionEnv(t)
			t.Setenv(k, v)
			if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
				t.Fatalf("expected ErrConfig, got %v", err)
			}
		})
	}
}

func TestNewService_RejectsMissingCollaborators(t *testing.T) {
	t.Parallel()
	if _, err := NewService(DefaultConfig(), nil, nil, nil, tokenHasherForTest()); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}
