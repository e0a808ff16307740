package batch

import "time"

// rateLimiter counts attempts in a fixed window that restarts once it has
// fully elapsed. Not safe for concurrent use; the window holds its lock.
type rateLimiter struct {
	max     int
	span    time.Duration
	started time.Time
	count   int
	dropped int
}

func newRateLimiter(max int, span time.Duration) *rateLimiter {
	return &rateLimiter{max: max, span: span}
}

// allow records an attempt at now. The second result is true on the first
// rejection of a window so callers can warn once.
func (r *rateLimiter) allow(now time.Time) (bool, bool) {
	if r.started.IsZero() || now.Sub(r.started) >= r.span {
		r.started = now
		r.count = 0
		r.dropped = 0
	}
	if r.count >= r.max {
		r.dropped++
		return false, r.dropped == 1
	}
	r.count++
	return true, false
}
