package engine

import (
	"time"

	"github.com/streamforge/codecengine/internal/backend"
	"github.com/streamforge/codecengine/internal/codecerr"
	"github.com/streamforge/codecengine/internal/queue"
)

// dequeuePollInterval mirrors the 100ms poll in the reference worker loop:
// short enough to notice shutdown promptly, long enough not to spin.
const dequeuePollInterval = 100 * time.Millisecond

// run is the WorkerLoop's main loop. Exactly one goroutine per
// Engine ever calls into e.backend; no locking is needed around it.
func (e *Engine[In, Out]) run() {
	defer e.wg.Done()

	var shouldExit bool
	for !shouldExit {
		msg, ok := e.queue.DequeueFor(dequeuePollInterval)
		if !ok {
			if e.queue.IsClosed() && e.queue.Len() == 0 {
				return
			}
			continue
		}

		switch m := msg.(type) {
		case queue.Configure:
			e.handleConfigure(m.Config)
		case queue.Work:
			e.handleWork(m.Input)
		case queue.Flush:
			e.handleFlush(m.FlushID)
		case queue.Reset:
			e.handleReset()
		case queue.Close:
			e.handleClose()
			shouldExit = true
		}
	}
}

func (e *Engine[In, Out]) handleConfigure(cfg any) {
	if err := e.backend.Open(e.ctx, cfg); err != nil {
		e.closeWithError(codecerr.NotSupported, "backend rejected configuration", err)
	}
}

// handleWork offers one admitted input to the backend. A backend reporting
// StatusWouldBlock is not a fatal condition: codecSaturated is set so the
// façade can observe backpressure on the next admission, one output is
// drained if already buffered to give the retry a chance to succeed, and
// the input is requeued at the front of the work queue rather than
// discarded — the next DequeueFor picks it straight back up. queueSize is
// only decremented once an input is actually accepted, so a requeued input
// still counts as outstanding work.
func (e *Engine[In, Out]) handleWork(input any) {
	status, err := e.backend.SendInput(e.ctx, input)
	if err != nil {
		e.closeWithError(codecerr.EncodingError, "backend send_input failed", err)
		return
	}
	if status == backend.StatusWouldBlock {
		e.codecSaturated.Store(true)
		if out, recvStatus, recvErr := e.backend.ReceiveOutput(e.ctx); recvErr == nil && recvStatus == backend.StatusOK {
			e.emitOutput(out)
		}
		e.queue.Requeue(queue.Work{Input: input})
		return
	}

	// Decrement queueSize once per admitted item, before emitting its
	// output, matching handleWork(decode)'s queue-size accounting.
	e.queueSize.Add(-1)

	for {
		out, status, err := e.backend.ReceiveOutput(e.ctx)
		if err != nil {
			e.closeWithError(codecerr.EncodingError, "backend receive_output failed", err)
			return
		}
		if status == backend.StatusAgain || status == backend.StatusEOF {
			e.codecSaturated.Store(false)
			break
		}
		e.emitOutput(out)
	}
}

func (e *Engine[In, Out]) handleFlush(flushID string) {
	if err := e.backend.Drain(e.ctx); err != nil {
		e.completeFlush(flushID, FlushResult{Success: false, Reason: err})
		return
	}

	for {
		out, status, err := e.backend.ReceiveOutput(e.ctx)
		if err != nil {
			e.completeFlush(flushID, FlushResult{Success: false, Reason: err})
			return
		}
		if status == backend.StatusEOF || status == backend.StatusAgain {
			break
		}
		e.emitOutput(out)
	}

	e.completeFlush(flushID, FlushResult{Success: true})
}

func (e *Engine[In, Out]) handleReset() {
	if err := e.backend.FlushBuffers(e.ctx); err != nil {
		e.log.Warn("backend flush_buffers failed during reset", "engine_id", e.id, "error", err)
	}
	e.codecSaturated.Store(false)
}

func (e *Engine[In, Out]) handleClose() {
	if err := e.backend.Close(); err != nil {
		e.log.Warn("backend close failed", "engine_id", e.id, "error", err)
	}
}

// emitOutput delivers one output value and schedules a coalesced dequeue
// event.
func (e *Engine[In, Out]) emitOutput(out backend.Output) {
	if v, ok := out.Value.(Out); ok {
		e.delivery.PostOutput(v)
	}
	e.scheduleDequeue()
}

// scheduleDequeue posts at most one Dequeue event per burst: the CAS
// coalesces bursty dequeues into a single caller-thread turn.
func (e *Engine[In, Out]) scheduleDequeue() {
	if !e.dequeueEventScheduled.CompareAndSwap(false, true) {
		return
	}
	size := e.queueSize.Load()
	e.delivery.Post(func() {
		if e.dequeueCB != nil {
			e.dequeueCB(size)
		}
		e.dequeueEventScheduled.Store(false)
	})
}

func (e *Engine[In, Out]) completeFlush(flushID string, result FlushResult) {
	e.flushMu.Lock()
	ch, ok := e.pendingFlushes[flushID]
	if ok {
		delete(e.pendingFlushes, flushID)
	}
	e.flushMu.Unlock()

	if !ok {
		return
	}
	e.delivery.Post(func() {
		select {
		case ch <- result:
		default:
		}
		close(ch)
	})
}

// closeWithError runs the "close with error" path: emits
// the error callback exactly once, atomically closes the instance, rejects
// pending flushes, and releases the backend.
func (e *Engine[In, Out]) closeWithError(kind codecerr.Kind, message string, cause error) {
	e.state.Store(StateClosed)

	if e.errorEmitted.CompareAndSwap(false, true) {
		err := codecerr.Wrap(kind, message, cause)
		e.delivery.Post(func() {
			if e.errorCB != nil {
				e.errorCB(err)
			}
		})
	}

	e.drainAndRejectFlushes()
	e.queueSize.Store(0)
	if err := e.backend.Close(); err != nil {
		e.log.Warn("backend close failed after codec error", "engine_id", e.id, "error", err)
	}
	e.queue.Shutdown()
}
