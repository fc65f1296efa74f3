package authapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/auth/ratelimit"
)

// throttle counts one attempt against key. It reports the retry delay when
// the budget is exhausted. Limiter outages are logged and the request is
// let through.
func (h *Handler) throttle(ctx context.Context, key string, rule ratelimit.Rule) (time.Duration, bool) {
	if h.limiter == nil || !rule.Enabled() {
		return 0, false
	}
	err := h.limiter.Allow(ctx, key, rule)
	switch {
	case err == nil:
		return 0, false
	case errors.Is(err, ratelimit.ErrLimited):
		return ratelimit.RetryAfter(err), true
	default:
		h.log.Warn("auth.ratelimit.unavailable", "err", err)
		h.metrics.LimiterError()
		return 0, false
	}
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(retryAfter/time.Second), 10))
	}
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
}
