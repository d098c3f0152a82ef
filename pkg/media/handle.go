// Package media defines the refcounted value types that flow through the
// codec engine: encoded chunks, raw video frames, audio sample buffers and
// their associated configuration and descriptor types.
package media

import (
	"sync/atomic"

	"github.com/streamforge/codecengine/internal/codecerr"
)

// Handle is the refcounting embedded in every media value type. It is not
// copyable by convention: copy the containing struct only via Clone, never
// by value assignment, since the refcount pointer is shared across clones.
//
// An outer handle is exclusive to its current owner until Clone is called.
// Close marks the handle detached and drops the inner refcount; accessors on
// a detached handle must fail with codecerr.InvalidState.
type Handle struct {
	refs     *atomic.Int32
	detached atomic.Bool
}

// NewHandle creates a fresh handle with an inner refcount of one.
func NewHandle() Handle {
	refs := new(atomic.Int32)
	refs.Store(1)
	return Handle{refs: refs}
}

// Detached reports whether Close has already been called on this handle.
func (h *Handle) Detached() bool {
	return h.detached.Load()
}

// CheckOpen returns codecerr.InvalidState if the handle has been detached,
// nil otherwise. Call this at the top of every accessor.
func (h *Handle) CheckOpen() error {
	if h.detached.Load() {
		return codecerr.New(codecerr.InvalidState, "media value is closed")
	}
	return nil
}

// Clone returns a new outer handle sharing the same inner refcount,
// incrementing it. Cloning a detached handle fails with InvalidState.
func (h *Handle) Clone() (Handle, error) {
	if h.detached.Load() {
		return Handle{}, codecerr.New(codecerr.InvalidState, "cannot clone a closed media value")
	}
	h.refs.Add(1)
	return Handle{refs: h.refs}, nil
}

// Close marks this outer handle detached and drops the inner refcount. It is
// idempotent: closing an already-detached handle is a no-op and returns
// false for "last reference released".
func (h *Handle) Close() (lastRef bool) {
	if h.detached.Swap(true) {
		return false
	}
	return h.refs.Add(-1) == 0
}

// RefCount reports the current shared inner refcount, for tests and pool
// bookkeeping.
func (h *Handle) RefCount() int32 {
	return h.refs.Load()
}
