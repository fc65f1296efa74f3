package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrLimited is returned when a key has exhausted its budget.
	ErrLimited = errors.New("rate limited")

	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("rate limiter unavailable")

	// ErrInvalidRule is returned by ParseRule.
	ErrInvalidRule = errors.New("invalid rate limit rule")
)

// LimitedError reports a rejected attempt and when the window reopens.
type LimitedError struct {
	Key        string
	RetryAfter time.Duration
}

func (e *LimitedError) Error() string {
	return fmt.Sprintf("%s: %s (retry after %s)", ErrLimited, e.Key, e.RetryAfter)
}

func (e *LimitedError) Unwrap() error { return ErrLimited }

// RetryAfter extracts the retry delay from err, or zero.
func RetryAfter(err error) time.Duration {
	var le *LimitedError
	if errors.As(err, &le) {
		return le.RetryAfter
	}
	return 0
}
