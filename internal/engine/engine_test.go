package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/streamforge/codecengine/internal/backend"
	"github.com/streamforge/codecengine/internal/backend/fake"
	"github.com/streamforge/codecengine/internal/codecerr"
	"github.com/streamforge/codecengine/internal/engine"
	"github.com/streamforge/codecengine/pkg/media"
)

// syncDispatcher runs the posted closure immediately on the calling
// goroutine — sufficient for deterministic tests, since a synchronous
// in-process dispatcher suffices when nothing else is competing for the
// callback thread.
func syncDispatcher(fn func()) { fn() }

// echoTransform turns every admitted chunk straight into a frame carrying
// the same timestamp, modeling a decoder that emits one frame per chunk.
func echoTransform(input any) (backend.Output, bool, error) {
	chunk := input.(*media.EncodedChunk)
	frame := media.NewVideoFrame(media.PixelI420, media.Size{Width: 64, Height: 64}, chunk.Timestamp, nil)
	return backend.Output{Value: frame}, true, nil
}

func newDecoderEngine(t *testing.T, outputs *[]int64) *engine.Engine[*media.EncodedChunk, *media.VideoFrame] {
	t.Helper()
	be := fake.New(echoTransform)
	e := engine.New[*media.EncodedChunk, *media.VideoFrame](engine.Config[*media.VideoFrame]{
		Kind:       engine.Kind{IsDecoder: true},
		Backend:    be,
		Dispatcher: syncDispatcher,
		OutputCB: func(f *media.VideoFrame) {
			*outputs = append(*outputs, f.Timestamp)
		},
	})
	t.Cleanup(func() { e.Close() })
	return e
}

func TestConfigureDecodeThreeFlush(t *testing.T) {
	var outputs []int64
	e := newDecoderEngine(t, &outputs)

	require.NoError(t, e.Configure(media.DecoderConfig{Codec: "avc1.42E01E"}))

	require.NoError(t, e.Admit(media.NewEncodedChunk(media.ChunkKey, 0, 33333, nil), true, nil))
	require.NoError(t, e.Admit(media.NewEncodedChunk(media.ChunkDelta, 33333, 33333, nil), false, nil))
	require.NoError(t, e.Admit(media.NewEncodedChunk(media.ChunkDelta, 66667, 33333, nil), false, nil))

	ch, err := e.Flush()
	require.NoError(t, err)

	select {
	case result := <-ch:
		assert.True(t, result.Success)
	case <-time.After(time.Second):
		t.Fatal("flush did not resolve")
	}

	assert.Equal(t, []int64{0, 33333, 66667}, outputs)
}

func TestDecodeBeforeConfigureFailsSynchronously(t *testing.T) {
	var outputs []int64
	e := newDecoderEngine(t, &outputs)

	err := e.Admit(media.NewEncodedChunk(media.ChunkKey, 0, 0, nil), true, nil)
	require.Error(t, err)
	assert.True(t, codecerr.Is(err, codecerr.InvalidState))
	assert.Empty(t, outputs)
}

func TestNonKeyFirstChunkRejected(t *testing.T) {
	var outputs []int64
	e := newDecoderEngine(t, &outputs)
	require.NoError(t, e.Configure(media.DecoderConfig{Codec: "avc1.42E01E"}))

	err := e.Admit(media.NewEncodedChunk(media.ChunkDelta, 0, 0, nil), false, nil)
	require.Error(t, err)
	assert.True(t, codecerr.Is(err, codecerr.DataError))
	assert.Equal(t, int32(0), e.QueueSize())
}

func TestKeyChunkRequiredClearsAfterFirstKeyChunk(t *testing.T) {
	var outputs []int64
	e := newDecoderEngine(t, &outputs)
	require.NoError(t, e.Configure(media.DecoderConfig{Codec: "avc1.42E01E"}))

	require.NoError(t, e.Admit(media.NewEncodedChunk(media.ChunkKey, 0, 0, nil), true, nil))
	// A second, third, and fourth delta chunk must all be accepted — only
	// the very first chunk after configure/reset is required to be a key
	// chunk.
	require.NoError(t, e.Admit(media.NewEncodedChunk(media.ChunkDelta, 33333, 0, nil), false, nil))
	require.NoError(t, e.Admit(media.NewEncodedChunk(media.ChunkDelta, 66667, 0, nil), false, nil))
	require.NoError(t, e.Admit(media.NewEncodedChunk(media.ChunkDelta, 100000, 0, nil), false, nil))
}

func TestResetCancelsFlush(t *testing.T) {
	var outputs []int64
	e := newDecoderEngine(t, &outputs)
	require.NoError(t, e.Configure(media.DecoderConfig{Codec: "avc1.42E01E"}))

	for i := 0; i < 5; i++ {
		require.NoError(t, e.Admit(media.NewEncodedChunk(media.ChunkKey, int64(i), 0, nil), i == 0, nil))
	}

	ch, err := e.Flush()
	require.NoError(t, err)
	require.NoError(t, e.Reset())

	select {
	case result := <-ch:
		assert.False(t, result.Success)
		assert.True(t, codecerr.Is(result.Reason, codecerr.Aborted))
	case <-time.After(time.Second):
		t.Fatal("flush did not reject after reset")
	}

	assert.Equal(t, int32(0), e.QueueSize())

	// Reset returns the engine to unconfigured; once reconfigured, the
	// first admitted chunk must again be a key chunk.
	require.NoError(t, e.Configure(media.DecoderConfig{Codec: "avc1.42E01E"}))
	err = e.Admit(media.NewEncodedChunk(media.ChunkDelta, 0, 0, nil), false, nil)
	require.Error(t, err)
	assert.True(t, codecerr.Is(err, codecerr.DataError))
}

func TestCloseIsTerminalAndIdempotent(t *testing.T) {
	var outputs []int64
	e := newDecoderEngine(t, &outputs)
	require.NoError(t, e.Configure(media.DecoderConfig{Codec: "avc1.42E01E"}))

	require.NoError(t, e.Close())
	require.NoError(t, e.Close()) // second close is a no-op

	assert.Equal(t, engine.StateClosed, e.State())

	assert.Error(t, e.Configure(media.DecoderConfig{}))
	assert.Error(t, e.Admit(media.NewEncodedChunk(media.ChunkKey, 0, 0, nil), true, nil))
	assert.Error(t, e.Reset())
	_, err := e.Flush()
	assert.Error(t, err)
}

func TestEncoderOrientationLock(t *testing.T) {
	var outputs []int64
	be := fake.New(func(input any) (backend.Output, bool, error) {
		frame := input.(*media.VideoFrame)
		chunk := media.NewEncodedChunk(media.ChunkKey, frame.Timestamp, 0, nil)
		return backend.Output{Value: chunk}, true, nil
	})

	var emitted []int64
	e := engine.New[*media.VideoFrame, *media.EncodedChunk](engine.Config[*media.EncodedChunk]{
		Kind:       engine.Kind{IsDecoder: false, TracksOrientation: true},
		Backend:    be,
		Dispatcher: syncDispatcher,
		OutputCB: func(c *media.EncodedChunk) {
			emitted = append(emitted, c.Timestamp)
		},
	})
	defer e.Close()

	require.NoError(t, e.Configure(media.EncoderConfig{Codec: "avc1.42E01E"}))

	first := media.NewVideoFrame(media.PixelI420, media.Size{Width: 4, Height: 4}, 0, nil)
	first.Orientation = media.Orientation{Rotation: media.Rotate90}
	require.NoError(t, e.Admit(first, false, &first.Orientation))

	second := media.NewVideoFrame(media.PixelI420, media.Size{Width: 4, Height: 4}, 1, nil)
	second.Orientation = media.Orientation{Rotation: media.Rotate0}
	err := e.Admit(second, false, &second.Orientation)
	require.Error(t, err)
	assert.True(t, codecerr.Is(err, codecerr.DataError))

	require.Eventually(t, func() bool {
		return len(emitted) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, []int64{0}, emitted)
	_ = outputs
}

func TestClose_NoGoroutineLeak(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var outputs []int64
	be := fake.New(echoTransform)
	e := engine.New[*media.EncodedChunk, *media.VideoFrame](engine.Config[*media.VideoFrame]{
		Kind:       engine.Kind{IsDecoder: true},
		Backend:    be,
		Dispatcher: syncDispatcher,
		OutputCB: func(f *media.VideoFrame) {
			outputs = append(outputs, f.Timestamp)
		},
	})
	require.NoError(t, e.Configure(media.DecoderConfig{Codec: "avc1.42E01E"}))
	require.NoError(t, e.Admit(media.NewEncodedChunk(media.ChunkKey, 0, 33333, nil), true, nil))
	require.NoError(t, e.Close())
}

func TestQueueSizeNeverNegative(t *testing.T) {
	var outputs []int64
	e := newDecoderEngine(t, &outputs)
	require.NoError(t, e.Configure(media.DecoderConfig{Codec: "avc1.42E01E"}))

	for i := 0; i < 10; i++ {
		require.NoError(t, e.Admit(media.NewEncodedChunk(media.ChunkKey, int64(i), 0, nil), i == 0, nil))
	}

	require.Eventually(t, func() bool {
		return e.QueueSize() == 0
	}, time.Second, time.Millisecond)
}

// deferredDispatcher records every posted closure instead of running it,
// standing in for a caller thread that hasn't taken its next turn yet —
// the window scheduleDequeue's CAS is meant to coalesce bursts within.
type deferredDispatcher struct {
	mu     sync.Mutex
	posted []func()
}

func (d *deferredDispatcher) dispatch(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.posted = append(d.posted, fn)
}

func (d *deferredDispatcher) drainOne() {
	d.mu.Lock()
	fn := d.posted[0]
	d.posted = d.posted[1:]
	d.mu.Unlock()
	fn()
}

func (d *deferredDispatcher) pendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.posted)
}

// saturatingBackend rejects its first SendInput with StatusWouldBlock, then
// behaves like echoTransform for every call after — modeling a backend
// that is transiently full rather than broken, the scenario handleWork's
// requeue path is meant to survive without tearing the engine down.
type saturatingBackend struct {
	mu        sync.Mutex
	blockOnce bool
	pending   []backend.Output
}

func (b *saturatingBackend) Open(context.Context, any) error { return nil }

func (b *saturatingBackend) SendInput(_ context.Context, input any) (backend.Status, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.blockOnce {
		b.blockOnce = false
		return backend.StatusWouldBlock, nil
	}
	chunk := input.(*media.EncodedChunk)
	b.pending = append(b.pending, backend.Output{
		Value: media.NewVideoFrame(media.PixelI420, media.Size{Width: 4, Height: 4}, chunk.Timestamp, nil),
	})
	return backend.StatusOK, nil
}

func (b *saturatingBackend) ReceiveOutput(context.Context) (backend.Output, backend.Status, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return backend.Output{}, backend.StatusAgain, nil
	}
	out := b.pending[0]
	b.pending = b.pending[1:]
	return out, backend.StatusOK, nil
}

func (b *saturatingBackend) Drain(context.Context) error        { return nil }
func (b *saturatingBackend) FlushBuffers(context.Context) error { return nil }
func (b *saturatingBackend) Close() error                       { return nil }

func TestSaturatedInputIsRequeuedNotDropped(t *testing.T) {
	be := &saturatingBackend{blockOnce: true}

	var mu sync.Mutex
	var outputs []int64
	e := engine.New[*media.EncodedChunk, *media.VideoFrame](engine.Config[*media.VideoFrame]{
		Kind:       engine.Kind{IsDecoder: true},
		Backend:    be,
		Dispatcher: syncDispatcher,
		OutputCB: func(f *media.VideoFrame) {
			mu.Lock()
			outputs = append(outputs, f.Timestamp)
			mu.Unlock()
		},
	})
	t.Cleanup(func() { e.Close() })

	require.NoError(t, e.Configure(media.DecoderConfig{Codec: "avc1.42E01E"}))
	require.NoError(t, e.Admit(media.NewEncodedChunk(media.ChunkKey, 42, 0, nil), true, nil))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(outputs) == 1
	}, time.Second, time.Millisecond, "a would-block input should be requeued and retried, not dropped")

	mu.Lock()
	assert.Equal(t, []int64{42}, outputs)
	mu.Unlock()
	assert.Equal(t, engine.StateConfigured, e.State(), "a transient would-block must not close the engine")
	assert.False(t, e.Saturated(), "saturated flag should clear once the retried send succeeds")
}

func TestDequeueEventsCoalesceAcrossABurst(t *testing.T) {
	disp := &deferredDispatcher{}

	var dequeueSizes []int32
	var mu sync.Mutex
	be := fake.New(echoTransform)
	e := engine.New[*media.EncodedChunk, *media.VideoFrame](engine.Config[*media.VideoFrame]{
		Kind:       engine.Kind{IsDecoder: true},
		Backend:    be,
		Dispatcher: disp.dispatch,
		OutputCB:   func(*media.VideoFrame) {},
		DequeueCB: func(size int32) {
			mu.Lock()
			dequeueSizes = append(dequeueSizes, size)
			mu.Unlock()
		},
	})
	t.Cleanup(func() { e.Close() })

	require.NoError(t, e.Configure(media.DecoderConfig{Codec: "avc1.42E01E"}))

	const burst = 10
	for i := 0; i < burst; i++ {
		require.NoError(t, e.Admit(media.NewEncodedChunk(media.ChunkKey, int64(i), 0, nil), i == 0, nil))
	}

	// Every admitted chunk in the burst posts its own output closure and
	// makes a scheduleDequeue call before the caller thread (disp) has
	// drained even one posted closure — the dequeue calls must collapse
	// into a single pending event rather than one per output, leaving
	// burst output closures plus one dequeue event.
	require.Eventually(t, func() bool { return e.QueueSize() == 0 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return disp.pendingCount() >= burst+1 }, time.Second, time.Millisecond)
	assert.Equal(t, burst+1, disp.pendingCount(), "a burst of outputs should coalesce into one pending dequeue event")

	for disp.pendingCount() > 0 {
		disp.drainOne()
	}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(dequeueSizes) == 1
	}, time.Second, time.Millisecond)

	// Once the coalesced event fires, scheduling re-arms: the next
	// admitted chunk posts its output and a fresh dequeue event rather
	// than the event being silently dropped.
	require.NoError(t, e.Admit(media.NewEncodedChunk(media.ChunkDelta, burst, 0, nil), false, nil))
	require.Eventually(t, func() bool { return disp.pendingCount() == 2 }, time.Second, time.Millisecond)
}
