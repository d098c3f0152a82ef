package engine

import "sync/atomic"

// CallerDispatcher schedules a closure onto the caller thread.
// Implementations must guarantee FIFO delivery: a closure dispatched before
// another must run before it. A synchronous dispatcher (func(fn){ fn() })
// is sufficient for tests; codecenginectl wires a buffered-channel
// goroutine that drains in enqueue order.
type CallerDispatcher func(fn func())

// Delivery marshals the five event kinds from the worker
// goroutine to the caller thread via an injected CallerDispatcher. Output
// is generic per instance kind (*media.VideoFrame, *media.AudioSamples or
// *media.EncodedChunk); the other four event kinds take a plain closure so
// one Delivery type serves every façade.
type Delivery[Out any] struct {
	dispatch CallerDispatcher
	outputCB func(Out)
	released atomic.Bool
}

// NewDelivery builds a Delivery that invokes outputCB (never nil) for every
// posted output, using dispatch to marshal onto the caller thread.
func NewDelivery[Out any](dispatch CallerDispatcher, outputCB func(Out)) *Delivery[Out] {
	return &Delivery[Out]{dispatch: dispatch, outputCB: outputCB}
}

// PostOutput delivers one output value to the caller thread.
func (d *Delivery[Out]) PostOutput(v Out) {
	if d.released.Load() {
		return
	}
	d.dispatch(func() {
		if !d.released.Load() {
			d.outputCB(v)
		}
	})
}

// Post delivers an arbitrary closure (error/flush-complete/dequeue/
// tracks-ready events) to the caller thread.
func (d *Delivery[Out]) Post(fn func()) {
	if d.released.Load() {
		return
	}
	d.dispatch(func() {
		if !d.released.Load() {
			fn()
		}
	})
}

// Release is the idempotent lifecycle teardown: after Release,
// PostOutput/Post become no-ops so the worker can drop any in-flight
// payload instead of blocking on a dead caller.
func (d *Delivery[Out]) Release() {
	d.released.Store(true)
}
