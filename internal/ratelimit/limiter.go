package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultLimit is the number of messages admitted per window.
	DefaultLimit = 20

	// DefaultWindow is the trailing interval the limit applies to.
	DefaultWindow = 60 * time.Second
)

// Limiter is a per-key sliding window rate gate. Keys are independent: the
// map lock is only held to look up a key's window, and each window
// serializes its own prune/append sequence. Windows that empty out are
// evicted by a periodic sweep, so callers with short-lived keys (client IPs)
// do not grow the map without bound.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	windows   map[string]*slidingWindow
	lastSweep time.Time
}

type slidingWindow struct {
	mu    sync.Mutex
	stamp []time.Time
	// evicted is set by sweep under mu; a holder must fetch a fresh window.
	evicted bool
}

type Option func(*Limiter)

// WithLimit overrides the number of admissions per window. Values below 1 are ignored.
func WithLimit(limit int) Option {
	return func(l *Limiter) {
		if limit > 0 {
			l.limit = limit
		}
	}
}

// WithWindow overrides the trailing window length. Non-positive values are ignored.
func WithWindow(window time.Duration) Option {
	return func(l *Limiter) {
		if window > 0 {
			l.window = window
		}
	}
}

// WithClock replaces the time source, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

func New(opts ...Option) *Limiter {
	l := &Limiter{
		limit:   DefaultLimit,
		window:  DefaultWindow,
		now:     time.Now,
		windows: make(map[string]*slidingWindow),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lastSweep = l.now()
	return l
}

func (l *Limiter) Limit() int { return l.limit }

func (l *Limiter) Window() time.Duration { return l.window }

// Allow reports whether key may act now. A denied call records nothing, so
// capacity returns as soon as the oldest admitted timestamp leaves the window.
func (l *Limiter) Allow(key string) bool {
	w := l.lockWindow(key)
	defer w.mu.Unlock()

	now := l.now()
	w.prune(now.Add(-l.window))

	if len(w.stamp) >= l.limit {
		return false
	}
	w.stamp = append(w.stamp, now)
	return true
}

// Remaining returns how many admissions key has left in the current window.
func (l *Limiter) Remaining(key string) int {
	w := l.lockWindow(key)
	defer w.mu.Unlock()

	w.prune(l.now().Add(-l.window))
	if n := l.limit - len(w.stamp); n > 0 {
		return n
	}
	return 0
}

// Len returns the number of keys currently tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// lockWindow returns key's window with its lock held.
func (l *Limiter) lockWindow(key string) *slidingWindow {
	for {
		w := l.windowFor(key)
		w.mu.Lock()
		if !w.evicted {
			return w
		}
		w.mu.Unlock()
	}
}

func (l *Limiter) windowFor(key string) *slidingWindow {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now := l.now(); now.Sub(l.lastSweep) >= l.window {
		l.sweep(now.Add(-l.window))
		l.lastSweep = now
	}

	w, ok := l.windows[key]
	if !ok {
		w = &slidingWindow{}
		l.windows[key] = w
	}
	return w
}

// sweep evicts windows with no timestamps after cutoff. Caller holds l.mu.
func (l *Limiter) sweep(cutoff time.Time) {
	for key, w := range l.windows {
		w.mu.Lock()
		w.prune(cutoff)
		if len(w.stamp) == 0 {
			w.evicted = true
			delete(l.windows, key)
		}
		w.mu.Unlock()
	}
}

// prune drops timestamps at or before cutoff. Timestamps are appended in
// order, so the survivors are always a suffix.
func (w *slidingWindow) prune(cutoff time.Time) {
	i := 0
	for i < len(w.stamp) && !w.stamp[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return
	}
	w.stamp = append(w.stamp[:0], w.stamp[i:]...)
}
