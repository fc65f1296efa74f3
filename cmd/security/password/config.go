package password

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy bounds accepted passwords when hashing new ones.
type Policy struct {
	MinLength      int
	MaxLength      int
	RejectVeryWeak bool
}

// Config is the single configuration surface for this package.
type Config struct {
	Params Argon2idParams
	Policy Policy
}

// DefaultConfig returns interactive-login defaults.
func DefaultConfig() Config {
	threads := runtime.NumCPU()
	if threads < 1 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024,
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4].
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength:      8,
			MaxLength:      256,
			RejectVeryWeak: true,
		},
	}
}

// FromEnv loads config from environment variables.
//
// Env surface:
//   - TALENTHUB_PASSWORD_MIN_LEN
//   - TALENTHUB_PASSWORD_MAX_LEN
//   - TALENTHUB_PASSWORD_REJECT_VERY_WEAK
//   - TALENTHUB_ARGON2_MEMORY_KIB
//   - TALENTHUB_ARGON2_ITERATIONS
//   - TALENTHUB_ARGON2_PARALLELISM
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	ints := []struct {
		key      string
		min, max int
		dst      func(int)
	}{
		{"TALENTHUB_PASSWORD_MIN_LEN", 1, 1024, func(n int) { cfg.Policy.MinLength = n }},
		{"TALENTHUB_PASSWORD_MAX_LEN", 1, 4096, func(n int) { cfg.Policy.MaxLength = n }},
		{"TALENTHUB_ARGON2_MEMORY_KIB", 8 * 1024, 1024 * 1024, func(n int) { cfg.Params.MemoryKiB = uint32(n) }}, // #nosec G115 -- range checked.
		{"TALENTHUB_ARGON2_ITERATIONS", 1, 20, func(n int) { cfg.Params.Iterations = uint32(n) }},                // #nosec G115 -- range checked.
		{"TALENTHUB_ARGON2_PARALLELISM", 1, math.MaxUint8, func(n int) { cfg.Params.Parallelism = uint8(n) }},    // #nosec G115 -- range checked.
	}
	for _, it := range ints {
		v, ok := os.LookupEnv(it.key)
		if !ok {
			continue
		}
		n, err := atoiRange(v, it.min, it.max)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", it.key, err)
		}
		it.dst(n)
	}

	if v, ok := os.LookupEnv("TALENTHUB_PASSWORD_REJECT_VERY_WEAK"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("TALENTHUB_PASSWORD_REJECT_VERY_WEAK: invalid boolean")
		}
		cfg.Policy.RejectVeryWeak = b
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}
	return cfg, nil
}

func atoiRange(s string, minVal, maxVal int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}
	if n < minVal || n > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return n, nil
}
