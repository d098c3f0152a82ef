// Package queue implements the control-message queue shared by every codec
// façade: a thread-safe FIFO of tagged Messages with timed dequeue and
// shutdown, mirroring original_source/src/shared/control_message_queue.h
// one-for-one but expressed with a Go mutex and notification channel
// instead of std::condvar.
package queue

import (
	"sync"
	"time"
)

// Queue is a single-producer/single-consumer FIFO of Messages. It does not
// enforce ordering beyond FIFO; all "blocked on configure" / saturation
// semantics live in the worker, not here.
type Queue struct {
	mu       sync.Mutex
	items    []Message
	shutdown bool
	notify   chan struct{}
}

// New returns an empty, open queue.
func New() *Queue {
	return &Queue{notify: make(chan struct{})}
}

// signalLocked wakes every blocked Dequeue/DequeueFor call. Must be called
// with mu held.
func (q *Queue) signalLocked() {
	close(q.notify)
	q.notify = make(chan struct{})
}

// Enqueue appends msg to the tail of the queue. It is non-blocking and
// returns false if the queue has already been shut down.
func (q *Queue) Enqueue(msg Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.shutdown {
		return false
	}
	q.items = append(q.items, msg)
	q.signalLocked()
	return true
}

// Requeue pushes msg back onto the front of the queue, ahead of anything
// already waiting. Used by the worker to retry a work item that a
// saturated backend rejected, without losing its place relative to other
// already-admitted work.
func (q *Queue) Requeue(msg Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.shutdown {
		return false
	}
	q.items = append([]Message{msg}, q.items...)
	q.signalLocked()
	return true
}

// Dequeue blocks until a message is available or the queue is shut down and
// drained, in which case ok is false.
func (q *Queue) Dequeue() (msg Message, ok bool) {
	for {
		q.mu.Lock()
		if m, ok := q.popLocked(); ok {
			q.mu.Unlock()
			return m, true
		}
		if q.shutdown {
			q.mu.Unlock()
			return nil, false
		}
		wake := q.notify
		q.mu.Unlock()
		<-wake
	}
}

// DequeueFor blocks until a message is available, timeout elapses, or the
// queue is shut down and drained. Timeout expiry returns ok=false so the
// worker can observe a shouldExit flag between dequeues, matching the
// periodic check in the reference worker loop.
func (q *Queue) DequeueFor(timeout time.Duration) (msg Message, ok bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		q.mu.Lock()
		if m, ok := q.popLocked(); ok {
			q.mu.Unlock()
			return m, true
		}
		if q.shutdown {
			q.mu.Unlock()
			return nil, false
		}
		wake := q.notify
		q.mu.Unlock()

		select {
		case <-wake:
			continue
		case <-deadline.C:
			return nil, false
		}
	}
}

func (q *Queue) popLocked() (Message, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	msg := q.items[0]
	q.items = q.items[1:]
	return msg, true
}

// DrainPending removes and returns every Work payload currently queued, in
// order, so the caller (façade Reset/Close) can drop their refcounts.
// Non-Work messages are discarded silently — Configure/Flush carry no
// refcounted resource that Reset needs to release.
func (q *Queue) DrainPending() []any {
	q.mu.Lock()
	defer q.mu.Unlock()

	var dropped []any
	for _, msg := range q.items {
		if w, ok := msg.(Work); ok {
			dropped = append(dropped, w.Input)
		}
	}
	q.items = nil
	return dropped
}

// Shutdown wakes all blocked waiters and causes subsequent Enqueue calls to
// fail. Already-queued messages remain dequeueable until drained.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.shutdown = true
	q.signalLocked()
}

// Len reports the number of messages currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// IsClosed reports whether Shutdown has been called.
func (q *Queue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.shutdown
}
