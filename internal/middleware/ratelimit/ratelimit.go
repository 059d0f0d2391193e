// Package ratelimit caps mutating requests per client IP. A client's
// counter only resets after a full minute of silence, so a script that
// keeps hammering stays blocked until it backs off.
package ratelimit

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Counters idle this long are evicted by the sweep.
const idleEviction = 10 * time.Minute

// Config holds the limiter knobs.
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
	}
}

// Limiter counts requests per client over one-minute windows.
type Limiter struct {
	mu       sync.Mutex
	counters map[string]*counter
	rejected int64

	perMinute  int
	sweepEvery time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// counter is one client's window: requests seen and the time of the
// most recent one.
type counter struct {
	seen int
	last time.Time
}

func NewLimiter(cfg Config) *Limiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = DefaultConfig().RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultConfig().CleanupInterval
	}

	l := &Limiter{
		counters:   make(map[string]*counter),
		perMinute:  cfg.RequestsPerMinute,
		sweepEvery: cfg.CleanupInterval,
		stop:       make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Allow reports whether another request from clientIP fits its window.
func (l *Limiter) Allow(clientIP string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	c := l.counters[clientIP]
	switch {
	case c == nil:
		l.counters[clientIP] = &counter{seen: 1, last: now}
		return true
	case now.Sub(c.last) > time.Minute:
		c.seen, c.last = 1, now
		return true
	}

	c.seen++
	c.last = now
	if c.seen > l.perMinute {
		atomic.AddInt64(&l.rejected, 1)
		return false
	}
	return true
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(l.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.dropIdle()
		case <-l.stop:
			return
		}
	}
}

// dropIdle evicts counters whose client went quiet.
func (l *Limiter) dropIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-idleEviction)
	for ip, c := range l.counters {
		if c.last.Before(cutoff) {
			delete(l.counters, ip)
		}
	}
}

// ActiveClients returns the number of currently tracked clients.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counters)
}

// Stop halts the sweep goroutine.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Metrics is a snapshot of limiter activity.
type Metrics struct {
	TotalHits   int64 // requests rejected
	ClientCount int64
}

func (l *Limiter) GetMetrics() Metrics {
	l.mu.Lock()
	clients := int64(len(l.counters))
	l.mu.Unlock()

	return Metrics{
		TotalHits:   atomic.LoadInt64(&l.rejected),
		ClientCount: clients,
	}
}

// Middleware rejects over-limit requests with 429 before they reach
// next. onLimit, when set, writes the rejection response instead.
func (l *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.Allow(extractIP(r)) {
				next.ServeHTTP(w, r)
				return
			}
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			w.Header().Set("Retry-After", "60")
			http.Error(w, "rate limit exceeded, try again later", http.StatusTooManyRequests)
		})
	}
}
