package dispatch

import "sync/atomic"

const (
	stateIdle int32 = iota
	stateRunning
)

// Gate is the dispatch loop's reentrancy guard: a two-state machine
// (Idle/Running) with an atomic check-and-set. A tick that arrives while the
// previous tick still runs is dropped, never queued.
type Gate struct {
	state atomic.Int32
}

// TryAcquire moves the gate from Idle to Running. It returns false when a
// tick is already running.
func (g *Gate) TryAcquire() bool {
	return g.state.CompareAndSwap(stateIdle, stateRunning)
}

// Release returns the gate to Idle
func (g *Gate) Release() {
	g.state.Store(stateIdle)
}

// Running reports whether a tick currently holds the gate
func (g *Gate) Running() bool {
	return g.state.Load() == stateRunning
}
