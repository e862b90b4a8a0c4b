package engine

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// SyncGate suppresses poll-driven state replacement for a short window after
// a local edit, so an in-flight optimistic change is not clobbered by a stale
// server snapshot.
type SyncGate struct {
	clk clock.Clock

	mu    sync.Mutex
	until time.Time
}

// NewSyncGate creates a gate on the given clock.
func NewSyncGate(clk clock.Clock) *SyncGate {
	return &SyncGate{clk: clk}
}

// Arm closes the gate for the given window. Arming again re-arms from now;
// windows do not accumulate.
func (g *SyncGate) Arm(window time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.until = g.clk.Now().Add(window)
}

// Locked reports whether the gate is currently closed.
func (g *SyncGate) Locked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.clk.Now().Before(g.until)
}
