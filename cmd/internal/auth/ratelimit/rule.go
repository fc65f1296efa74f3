package ratelimit

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Rule allows Limit hits per Window. A zero Rule is disabled.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Enabled reports whether the rule limits anything.
func (r Rule) Enabled() bool { return r.Limit > 0 && r.Window > 0 }

func (r Rule) String() string {
	if !r.Enabled() {
		return "off"
	}
	return fmt.Sprintf("%d/%s", r.Limit, r.Window)
}

var units = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
}

// ParseRule parses "<count>/<unit>" where unit is second, minute, hour or day
// (plural accepted) or a Go duration such as "30s". "off" and "" disable.
func ParseRule(s string) (Rule, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "off" {
		return Rule{}, nil
	}

	countStr, unitStr, ok := strings.Cut(s, "/")
	if !ok {
		return Rule{}, fmt.Errorf("%w: %q", ErrInvalidRule, s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(countStr))
	if err != nil || n <= 0 {
		return Rule{}, fmt.Errorf("%w: %q", ErrInvalidRule, s)
	}

	unitStr = strings.TrimSpace(unitStr)
	if w, ok := units[strings.TrimSuffix(unitStr, "s")]; ok {
		return Rule{Limit: n, Window: w}, nil
	}
	w, err := time.ParseDuration(unitStr)
	if err != nil || w < time.Second {
		return Rule{}, fmt.Errorf("%w: %q", ErrInvalidRule, s)
	}
	return Rule{Limit: n, Window: w}, nil
}
