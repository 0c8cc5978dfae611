package http

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginLimiter is a token bucket per client key, holding perMinute
// refills and burst capacity. Idle buckets are dropped lazily.
type LoginLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idle      time.Duration
	buckets   map[string]*loginBucket
	lastSweep time.Time
	now       func() time.Time
}

type loginBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewLoginLimiter returns a limiter; perMinute <= 0 disables throttling.
func NewLoginLimiter(perMinute, burst int) *LoginLimiter {
	l := &LoginLimiter{
		burst:   burst,
		idle:    10 * time.Minute,
		buckets: make(map[string]*loginBucket),
		now:     time.Now,
	}
	if perMinute > 0 {
		l.limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	if l.burst <= 0 {
		l.burst = 1
	}
	return l
}

func loginKey(clientIP, username string) string {
	return clientIP + "|" + strings.ToLower(strings.TrimSpace(username))
}

// Allow consumes one attempt for key.
func (l *LoginLimiter) Allow(key string) bool {
	if l.limit == 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > time.Minute {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > l.idle {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &loginBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}
