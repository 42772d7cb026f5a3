package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// IPLimiter is a per-client token bucket guarding the operational HTTP API.
// It is unrelated to Window: this one protects our own endpoints, not the
// provider's quota.
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
}

type visitor struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// NewIPLimiter creates a per-IP limiter allowing rps requests per second with
// the given burst. A background sweep drops visitors idle for 5 minutes.
func NewIPLimiter(rps float64, burst int) *IPLimiter {
	l := &IPLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
	go l.sweep()
	return l
}

// Allow reports whether a request from ip may proceed, creating a bucket for
// first-time visitors.
func (l *IPLimiter) Allow(ip string) bool {
	l.mu.Lock()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{bucket: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	l.mu.Unlock()

	return v.bucket.Allow()
}

func (l *IPLimiter) sweep() {
	for {
		time.Sleep(3 * time.Minute)

		l.mu.Lock()
		for ip, v := range l.visitors {
			if time.Since(v.lastSeen) >= 5*time.Minute {
				delete(l.visitors, ip)
			}
		}
		l.mu.Unlock()
	}
}
