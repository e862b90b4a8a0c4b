package engine

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

func TestSyncGate(t *testing.T) {
	clk := clock.NewMock()
	gate := NewSyncGate(clk)

	assert.False(t, gate.Locked(), "fresh gate is open")

	gate.Arm(3 * time.Second)
	assert.True(t, gate.Locked())

	clk.Add(2 * time.Second)
	assert.True(t, gate.Locked())

	clk.Add(1 * time.Second)
	assert.False(t, gate.Locked(), "gate opens when the window passes")
}

func TestSyncGate_ReArmsFromNow(t *testing.T) {
	clk := clock.NewMock()
	gate := NewSyncGate(clk)

	gate.Arm(3 * time.Second)
	clk.Add(2 * time.Second)

	// Arming again restarts the window instead of extending it.
	gate.Arm(3 * time.Second)
	clk.Add(2 * time.Second)
	assert.True(t, gate.Locked())

	clk.Add(1 * time.Second)
	assert.False(t, gate.Locked())
}
