// Package gate owns the client-side dispatch ceiling: at most N submissions
// per wall-clock window, counted per agent instance. Suppressed candidates
// resolve locally and never reach the server.
package gate

import (
	"sync"
	"time"
)

const (
	DefaultCeiling = 20
	DefaultWindow  = time.Minute
)

// Gate is a fixed-window counter. The window and counter belong to this
// instance alone; two agents watching the same page each get their own
// allowance.
type Gate struct {
	mu          sync.Mutex
	ceiling     int
	window      time.Duration
	now         func() time.Time
	windowStart time.Time
	count       int
}

type Option func(*Gate)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

func New(ceiling int, window time.Duration, opts ...Option) *Gate {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	if window <= 0 {
		window = DefaultWindow
	}
	g := &Gate{
		ceiling: ceiling,
		window:  window,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.windowStart = g.now()
	return g
}

// Admit reports whether one more submission fits in the current window and
// counts it when it does.
func (g *Gate) Admit() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if now.Sub(g.windowStart) >= g.window {
		g.windowStart = now
		g.count = 0
	}
	if g.count >= g.ceiling {
		return false
	}
	g.count++
	return true
}

// Count returns the submissions admitted in the current window.
func (g *Gate) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.now().Sub(g.windowStart) >= g.window {
		return 0
	}
	return g.count
}
