package progress

import (
	"sync"
	"time"
)

// limiter allows one action per interval and is safe for concurrent use
type limiter struct {
	mu          sync.Mutex
	interval    time.Duration
	lastAllowed time.Time
	now         func() time.Time
}

func newLimiter(interval time.Duration, now func() time.Time) *limiter {
	if now == nil {
		now = time.Now
	}
	return &limiter{interval: interval, now: now}
}

// allow reports whether an action may run now and records it if so
func (l *limiter) allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.now()
	if l.lastAllowed.IsZero() || t.Sub(l.lastAllowed) >= l.interval {
		l.lastAllowed = t
		return true
	}
	return false
}

// mark records an action that bypassed allow
func (l *limiter) mark() {
	l.mu.Lock()
	l.lastAllowed = l.now()
	l.mu.Unlock()
}
