package httpx

import (
	"context"
	"sync"
	"time"
)

// rateDecision is the outcome of one rate-limit check.
type rateDecision struct {
	allowed   bool
	count     int64
	windowEnd time.Time
}

// RateLimiter counts hits per key inside a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (rateDecision, error)
}

// memoryRateLimiter is the in-process fallback used when no Redis address
// is configured. Windows are fixed, keyed by key and window start.
type memoryRateLimiter struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
}

type memoryWindow struct {
	count int64
	end   time.Time
}

func newMemoryRateLimiter() *memoryRateLimiter {
	return &memoryRateLimiter{windows: make(map[string]*memoryWindow)}
}

func (l *memoryRateLimiter) Allow(_ context.Context, key string, limit int64, window time.Duration) (rateDecision, error) {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.After(w.end) {
		w = &memoryWindow{end: now.Add(window)}
		l.windows[key] = w
	}
	w.count++

	// Opportunistic sweep of expired windows.
	if len(l.windows) > 4096 {
		for k, win := range l.windows {
			if now.After(win.end) {
				delete(l.windows, k)
			}
		}
	}

	return rateDecision{allowed: w.count <= limit, count: w.count, windowEnd: w.end}, nil
}
