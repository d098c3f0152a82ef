// Package engine implements the WorkerLoop and per-instance atomic state
// machine shared by every codec façade: exactly one
// worker goroutine per Engine, driving an injected backend.Backend and
// delivering results back to the caller thread through a Delivery.
package engine

import "sync/atomic"

// State is the engine's W3C state machine: unconfigured → configured,
// either of which can transition to the absorbing closed state.
type State int32

const (
	StateUnconfigured State = iota
	StateConfigured
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConfigured:
		return "configured"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// atomicState is a thin atomic.Int32 wrapper typed as State for readability
// at call sites.
type atomicState struct {
	v atomic.Int32
}

func (a *atomicState) Load() State           { return State(a.v.Load()) }
func (a *atomicState) Store(s State)         { a.v.Store(int32(s)) }
func (a *atomicState) CompareAndSwap(old, new State) bool {
	return a.v.CompareAndSwap(int32(old), int32(new))
}

// FlushResult is the outcome delivered to a flush() future: success, or a
// rejection reason (Aborted on reset/close, or a backend-reported error).
type FlushResult struct {
	Success bool
	Reason  error
}
