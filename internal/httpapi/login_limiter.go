package httpapi

import (
	"sync"
	"time"
)

// loginLimiter is a fixed-window counter keyed by client ip and by email,
// so neither one address hammering many accounts nor many addresses
// hammering one account gets unlimited tries.
type loginLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	windows map[string]*loginWindow
}

type loginWindow struct {
	start time.Time
	count int
}

func newLoginLimiter() *loginLimiter {
	return &loginLimiter{
		window:  5 * time.Minute,
		max:     10,
		windows: make(map[string]*loginWindow),
	}
}

func (l *loginLimiter) Allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[key]
	if w == nil || now.Sub(w.start) >= l.window {
		l.windows[key] = &loginWindow{start: now, count: 1}
		l.sweep(now)
		return true
	}

	if w.count >= l.max {
		return false
	}
	w.count++
	return true
}

// sweep drops expired windows so the map does not grow unbounded with
// every address that ever attempted a login.
func (l *loginLimiter) sweep(now time.Time) {
	if len(l.windows) < 1024 {
		return
	}
	for k, w := range l.windows {
		if now.Sub(w.start) >= l.window {
			delete(l.windows, k)
		}
	}
}
