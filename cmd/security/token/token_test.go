package token

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestNewSecret_SizeAndEncoding(t *testing.T) {
	t.Parallel()

	s, err := NewSecret(0)
	if err != nil {
		t.Fatalf("NewSecret: %v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(raw) != DefaultSecretBytes {
		t.Fatalf("len=%d want %d", len(raw), DefaultSecretBytes)
	}

	s2, _ := NewSecret(0)
	if s == s2 {
		t.Fatalf("two secrets should differ")
	}
}

func TestNewSecret_RejectsWeakSizes(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 8, 15, 65, 128} {
		if _, err := NewSecret(n); !errors.Is(err, ErrSecretSize) {
			t.Fatalf("n=%d: expected ErrSecretSize, got %v", n, err)
		}
	}
}

func TestHasher_Modes(t *testing.T) {
	t.Parallel()

	plain := Hasher{}
	if plain.HMAC() {
		t.Fatalf("zero hasher should not be keyed")
	}
	if got, want := plain.Hash("abc"), HashSHA256Hex("abc"); got != want {
		t.Fatalf("sha mode mismatch")
	}

	keyed := NewHasher([]byte(strings.Repeat("k", 32)))
	if !keyed.HMAC() {
		t.Fatalf("expected keyed hasher")
	}
	h := keyed.Hash("abc")
	if len(h) != 64 {
		t.Fatalf("len=%d want 64", len(h))
	}
	if h == plain.Hash("abc") {
		t.Fatalf("hmac and sha digests should differ")
	}
	if h != keyed.Hash("abc") {
		t.Fatalf("hash must be deterministic")
	}
}

func TestHasherFromEnv(t *testing.T) {
	t.Setenv(HMACEnvKey, "")
	h, err := HasherFromEnv(false)
	if err != nil || h.HMAC() {
		t.Fatalf("optional mode without key: h=%v err=%v", h.HMAC(), err)
	}
	if _, err := HasherFromEnv(true); !errors.Is(err, ErrHMACKeyMissing) {
		t.Fatalf("expected ErrHMACKeyMissing, got %v", err)
	}

	t.Setenv(HMACEnvKey, "short")
	if _, err := HasherFromEnv(false); !errors.Is(err, ErrHMACKeyTooShort) {
		t.Fatalf("expected ErrHMACKeyTooShort, got %v", err)
	}

	t.Setenv(HMACEnvKey, strings.Repeat("x", 40))
	h, err = HasherFromEnv(true)
	if err != nil || !h.HMAC() {
		t.Fatalf("required mode with key: h=%v err=%v", h.HMAC(), err)
	}
}
