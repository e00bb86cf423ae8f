package handlers

import (
	"strings"
	"sync"
	"time"
)

type rateLimiter interface {
	Allow(key string) bool
}

// fixedWindowLimiter counts requests per client in fixed windows. Stale
// windows are swept periodically so the map does not grow with one entry per
// client forever.
type fixedWindowLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	windows map[string]*clientWindow
	allows  int
}

type clientWindow struct {
	start time.Time
	hits  int
}

// sweepInterval is the number of Allow calls between stale-window sweeps.
const sweepInterval = 256

func newFixedWindowLimiter(limit int, window time.Duration, clock func() time.Time) rateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &fixedWindowLimiter{
		limit:   limit,
		window:  window,
		clock:   clock,
		windows: make(map[string]*clientWindow),
	}
}

func (l *fixedWindowLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	if key = strings.TrimSpace(key); key == "" {
		key = "anonymous"
	}
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.allows++
	if l.allows%sweepInterval == 0 {
		l.sweepLocked(now)
	}

	w := l.windows[key]
	if w == nil || now.Sub(w.start) >= l.window {
		l.windows[key] = &clientWindow{start: now, hits: 1}
		return true
	}
	if w.hits >= l.limit {
		return false
	}
	w.hits++
	return true
}

func (l *fixedWindowLimiter) sweepLocked(now time.Time) {
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.window {
			delete(l.windows, key)
		}
	}
}
