package queue

// Message is the tagged-union control message the façade enqueues and the
// worker dispatches by type-switch — a Go sum type mirroring the tagged
// union in the original control queue.
type Message interface {
	isControlMessage()
}

// Configure carries a deep-copied configuration value (DecoderConfig or
// EncoderConfig, held as any since the queue is shared across all four
// façade kinds).
type Configure struct {
	Config any
}

func (Configure) isControlMessage() {}

// Work carries one input value (an *media.EncodedChunk for decoders, an
// *media.VideoFrame/*media.AudioSamples for encoders), held as any for the
// same reason as Configure.
type Work struct {
	Input any
}

func (Work) isControlMessage() {}

// Flush requests a drain: the worker must emit all buffered outputs, then
// notify completion under FlushID.
type Flush struct {
	FlushID string
}

func (Flush) isControlMessage() {}

// Reset asks the worker to discard its queued state and quiesce the
// backend via flush_buffers.
type Reset struct{}

func (Reset) isControlMessage() {}

// Close asks the worker to release the backend and exit its loop.
type Close struct{}

func (Close) isControlMessage() {}
