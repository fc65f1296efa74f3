// Package ratelimit throttles login and refresh attempts with fixed-window
// counters.
//
// RedisLimiter keeps counters in Redis (INCR plus EXPIRE on the first hit of
// a window) so that every instance shares the same budget. MemoryLimiter is
// the single-process fallback used when no Redis is configured.
//
// Rules use the "<count>/<unit>" syntax, for example "5/minute".
package ratelimit
