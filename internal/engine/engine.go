package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/streamforge/codecengine/internal/backend"
	"github.com/streamforge/codecengine/internal/codecerr"
	"github.com/streamforge/codecengine/internal/queue"
	"github.com/streamforge/codecengine/pkg/media"
)

// closer is implemented by every refcounted media value type; Engine uses
// it to release dropped Work payloads on Reset/Close without depending on
// a concrete type.
type closer interface {
	Close()
}

// Kind distinguishes a decoder instance (keyChunkRequired gating applies)
// from an encoder instance (activeOrientation gating applies). Orientation
// tracking is video-only — callers pass TracksOrientation=false for audio
// encoders.
type Kind struct {
	IsDecoder          bool
	TracksOrientation  bool
}

// Engine is the generic WorkerLoop + atomic state machine shared by every
// codec façade. In is the admitted work item type (*media.EncodedChunk for
// decoders, *media.VideoFrame/*media.AudioSamples for encoders); Out is the
// opposite.
type Engine[In any, Out any] struct {
	kind     Kind
	backend  backend.Backend
	queue    *queue.Queue
	delivery *Delivery[Out]
	log      *slog.Logger
	id       string

	state                 atomicState
	queueSize             atomic.Int32
	keyChunkRequired       atomic.Bool
	dequeueEventScheduled  atomic.Bool
	codecSaturated         atomic.Bool
	errorEmitted           atomic.Bool

	orientationMu sync.Mutex
	orientation   *media.Orientation

	flushMu        sync.Mutex
	pendingFlushes map[string]chan FlushResult

	errorCB   func(*codecerr.Error)
	dequeueCB func(newSize int32)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config bundles the construction-time collaborators an Engine needs — all
// injected, never package-level singletons.
type Config[Out any] struct {
	Kind       Kind
	Backend    backend.Backend
	Dispatcher CallerDispatcher
	OutputCB   func(Out)
	ErrorCB    func(*codecerr.Error)
	DequeueCB  func(newSize int32)
	Logger     *slog.Logger
}

// New constructs an Engine in the unconfigured state and starts its worker
// goroutine.
func New[In any, Out any](cfg Config[Out]) *Engine[In, Out] {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine[In, Out]{
		kind:           cfg.Kind,
		backend:        cfg.Backend,
		queue:          queue.New(),
		delivery:       NewDelivery(cfg.Dispatcher, cfg.OutputCB),
		log:            logger,
		id:             ulid.Make().String(),
		pendingFlushes: make(map[string]chan FlushResult),
		errorCB:        cfg.ErrorCB,
		dequeueCB:      cfg.DequeueCB,
		ctx:            ctx,
		cancel:         cancel,
	}
	e.wg.Add(1)
	go e.run()
	return e
}

// State returns the current state, a pure atomic observation.
func (e *Engine[In, Out]) State() State { return e.state.Load() }

// QueueSize returns the current admitted-but-not-yet-delivered work count.
func (e *Engine[In, Out]) QueueSize() int32 { return e.queueSize.Load() }

// Saturated reports whether the worker last observed the backend reject an
// input with StatusWouldBlock and has not yet seen a receive_output drain
// it since. A decoder façade can poll this alongside QueueSize to tell a
// growing backlog from one the backend is actively refusing.
func (e *Engine[In, Out]) Saturated() bool { return e.codecSaturated.Load() }

// Configure transitions unconfigured/configured → configured and enqueues a
// Configure message. Fails synchronously with InvalidState if already
// closed.
func (e *Engine[In, Out]) Configure(config any) error {
	if e.state.Load() == StateClosed {
		return codecerr.New(codecerr.InvalidState, "configure called after close")
	}
	e.state.Store(StateConfigured)
	if e.kind.IsDecoder {
		e.keyChunkRequired.Store(true)
	}
	e.queue.Enqueue(queue.Configure{Config: config})
	return nil
}

// Admit validates and enqueues one work item (decode/encode).
// isKey is meaningful for decoders only; orientation is meaningful for
// orientation-tracking encoders only (nil otherwise).
func (e *Engine[In, Out]) Admit(input In, isKey bool, orientation *media.Orientation) error {
	if e.state.Load() != StateConfigured {
		return codecerr.New(codecerr.InvalidState, "decode/encode called while not configured")
	}

	if e.kind.IsDecoder {
		if e.keyChunkRequired.Load() && !isKey {
			return codecerr.New(codecerr.DataError, "first chunk after configure/reset must be a key chunk")
		}
		if isKey {
			e.keyChunkRequired.Store(false)
		}
	}

	if e.kind.TracksOrientation && orientation != nil {
		e.orientationMu.Lock()
		if e.orientation == nil {
			e.orientation = orientation
		} else if *e.orientation != *orientation {
			e.orientationMu.Unlock()
			return codecerr.New(codecerr.DataError, "frame orientation does not match the active orientation")
		}
		e.orientationMu.Unlock()
	}

	e.queueSize.Add(1)
	e.queue.Enqueue(queue.Work{Input: input})
	return nil
}

// Flush requests a drain and returns a channel that receives exactly one
// FlushResult — the future representing a pending flush. A nil channel with a non-nil
// error means the future would reject synchronously (state != configured).
func (e *Engine[In, Out]) Flush() (<-chan FlushResult, error) {
	if e.state.Load() != StateConfigured {
		return nil, codecerr.New(codecerr.InvalidState, "flush called while not configured")
	}
	if e.kind.IsDecoder {
		e.keyChunkRequired.Store(true)
	}

	flushID := uuid.NewString()
	ch := make(chan FlushResult, 1)
	e.flushMu.Lock()
	e.pendingFlushes[flushID] = ch
	e.flushMu.Unlock()

	e.queue.Enqueue(queue.Flush{FlushID: flushID})
	return ch, nil
}

// Reset discards queued and in-flight worker-side state: an atomic
// cancellation barrier. Fails only if already closed.
func (e *Engine[In, Out]) Reset() error {
	if e.state.Load() == StateClosed {
		return codecerr.New(codecerr.InvalidState, "reset called after close")
	}
	e.state.Store(StateUnconfigured)
	e.drainAndRejectFlushes()
	e.queue.Enqueue(queue.Reset{})
	e.queueSize.Store(0)
	return nil
}

// Close is idempotent: flips state to closed, drains the queue, rejects
// pending flushes, releases the delivery channel and shuts down the
// worker with a bounded wait so a stuck backend can't wedge Close forever.
func (e *Engine[In, Out]) Close() error {
	if !e.state.CompareAndSwap(StateConfigured, StateClosed) &&
		!e.state.CompareAndSwap(StateUnconfigured, StateClosed) {
		return nil // already closed
	}

	e.drainAndRejectFlushes()
	e.queue.Enqueue(queue.Close{})
	e.queueSize.Store(0)
	e.queue.Shutdown()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		e.log.Warn("worker did not exit within bounded close wait", "engine_id", e.id)
		e.cancel()
	}

	e.delivery.Release()
	return nil
}

// drainAndRejectFlushes releases refcounts on every queued Work payload and
// rejects every pending flush future with Aborted.
func (e *Engine[In, Out]) drainAndRejectFlushes() {
	for _, payload := range e.queue.DrainPending() {
		if c, ok := payload.(closer); ok {
			c.Close()
		}
	}

	e.flushMu.Lock()
	pending := e.pendingFlushes
	e.pendingFlushes = make(map[string]chan FlushResult)
	e.flushMu.Unlock()

	for _, ch := range pending {
		select {
		case ch <- FlushResult{Success: false, Reason: codecerr.New(codecerr.Aborted, "flush aborted by reset/close")}:
		default:
		}
		close(ch)
	}
}

// SetOrientation is exposed for tests that need to pre-seed the locked
// orientation without going through Admit.
func (e *Engine[In, Out]) SetOrientation(o media.Orientation) {
	e.orientationMu.Lock()
	defer e.orientationMu.Unlock()
	e.orientation = &o
}
