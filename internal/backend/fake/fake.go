// Package fake provides an in-memory backend.Backend implementation with no
// ffmpeg dependency, used to exercise internal/engine and pkg/webcodec
// against a deterministic, synchronous codec stand-in — grounded on the
// habit of testing job logic against stubs rather than a
// real subprocess (internal/daemon/daemon_test.go).
package fake

import (
	"context"
	"sync"

	"github.com/streamforge/codecengine/internal/backend"
)

// Transform converts one admitted input into zero or one outputs. Returning
// a nil Output (with ok=false) models a backend that buffers input without
// producing output yet (StatusAgain on the following ReceiveOutput).
type Transform func(input any) (out backend.Output, ok bool, err error)

// Backend is a single-threaded in-memory stand-in. It is not safe for
// concurrent use by multiple goroutines, matching the real contract that
// only the instance's worker ever touches a backend handle.
type Backend struct {
	mu        sync.Mutex
	transform Transform
	pending   []backend.Output
	draining  bool
	closed    bool

	OpenErr  error // if set, Open fails with this error
	SendErr  error // if set, every SendInput fails with this error
	RecvErr  error // if set, every ReceiveOutput fails with this error
	OpenFunc func(config any) error // optional, overrides OpenErr
}

// New returns a fake backend that applies transform to every admitted
// input.
func New(transform Transform) *Backend {
	return &Backend{transform: transform}
}

func (b *Backend) Open(_ context.Context, config any) error {
	if b.OpenFunc != nil {
		return b.OpenFunc(config)
	}
	return b.OpenErr
}

func (b *Backend) SendInput(_ context.Context, input any) (backend.Status, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.SendErr != nil {
		return backend.StatusOK, b.SendErr
	}
	out, ok, err := b.transform(input)
	if err != nil {
		return backend.StatusOK, err
	}
	if ok {
		b.pending = append(b.pending, out)
	}
	return backend.StatusOK, nil
}

func (b *Backend) ReceiveOutput(_ context.Context) (backend.Output, backend.Status, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.RecvErr != nil {
		return backend.Output{}, backend.StatusOK, b.RecvErr
	}
	if len(b.pending) == 0 {
		if b.draining {
			return backend.Output{}, backend.StatusEOF, nil
		}
		return backend.Output{}, backend.StatusAgain, nil
	}
	out := b.pending[0]
	b.pending = b.pending[1:]
	return out, backend.StatusOK, nil
}

func (b *Backend) Drain(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draining = true
	return nil
}

func (b *Backend) FlushBuffers(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = nil
	b.draining = false
	return nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.pending = nil
	return nil
}

// Closed reports whether Close has been called, for test assertions.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
