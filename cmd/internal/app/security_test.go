package app

import (
	"strings"
	"testing"
)

func TestSecurityHasher(t *testing.T) {
	cases := []struct {
		name     string
		key      string
		require  bool
		wantHMAC bool
		wantErr  string
	}{
		{name: "optional and absent", key: "", require: false, wantHMAC: false},
		{name: "optional and present", key: strings.Repeat("k", 32), require: false, wantHMAC: true},
		{name: "required and present", key: strings.Repeat("k", 48), require: true, wantHMAC: true},
		{name: "required and absent", key: "", require: true, wantErr: "missing"},
		{name: "too short", key: "short", require: true, wantErr: "too short"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("TALENTHUB_TOKEN_HMAC_KEY", tc.key)

			h, err := SecurityHasher(Config{RequireTokenHMAC: tc.require})
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h.HMAC() != tc.wantHMAC {
				t.Fatalf("HMAC()=%v want=%v", h.HMAC(), tc.wantHMAC)
			}
		})
	}
}
