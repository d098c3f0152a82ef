// Package backend defines the CodecBackend adapter capability the
// WorkerLoop depends on: an opaque per-instance codec handle
// offering send/receive/flush/drain/close, decoupled from any concrete
// codec library so internal/engine can be tested against an in-memory fake
// (internal/backend/fake) as well as the real FFmpeg-subprocess adapter
// (internal/backend/ffmpegproc).
package backend

import "context"

// Status classifies the outcome of SendInput/ReceiveOutput into the three
// abstract classes a backend's result can fall into: retry-needed,
// stream-complete, or fatal.
type Status int

const (
	// StatusOK: the call completed and produced a usable value.
	StatusOK Status = iota
	// StatusAgain: the backend needs more input (send) or has no output
	// ready yet (receive); not an error.
	StatusAgain
	// StatusEOF: the stream is complete during drain; no further outputs
	// will be produced.
	StatusEOF
	// StatusWouldBlock: SendInput could not accept more input right now;
	// the worker should set codecSaturated and retry the same input after
	// a ReceiveOutput drains buffers.
	StatusWouldBlock
)

// Output is one decoded/encoded value the backend produced, tagged with
// whether it is a key/random-access unit (meaningful for encoder output;
// decoders hand back whatever media.VideoFrame/media.AudioSamples the
// caller asked for).
type Output struct {
	Value     any // *media.VideoFrame, *media.AudioSamples, or *media.EncodedChunk
	IsKey     bool
	// DecoderConfig carries encoder-generated extradata (codec string,
	// coded dimensions) that must accompany the first output chunk after a
	// (re)configure, per handleWork(encode).
	DecoderConfig []byte
}

// Backend is the abstract capability a WorkerLoop drives. Input is
// *media.EncodedChunk for decoders or *media.VideoFrame/*media.AudioSamples
// for encoders; Output is the opposite. Exactly one goroutine — the
// instance's worker — calls these methods; no internal locking is
// required or provided.
type Backend interface {
	// Open configures the backend for the given decoder/encoder config
	// (media.DecoderConfig or media.EncoderConfig) and returns an error if
	// the configuration cannot be supported.
	Open(ctx context.Context, config any) error

	// SendInput offers one input value to the backend. StatusWouldBlock
	// means the caller must retry the same input later.
	SendInput(ctx context.Context, input any) (Status, error)

	// ReceiveOutput retrieves the next produced output, if any.
	// StatusAgain means no output is ready; StatusEOF means the backend has
	// no more output to give (only expected after Drain).
	ReceiveOutput(ctx context.Context) (Output, Status, error)

	// Drain puts the backend into drain mode: no more input will be sent
	// until the next Open. Callers should then loop ReceiveOutput to EOF.
	Drain(ctx context.Context) error

	// FlushBuffers discards any buffered backend-side state without
	// requiring a drain loop first, used by handleReset.
	FlushBuffers(ctx context.Context) error

	// Close releases the backend handle. Idempotent.
	Close() error
}
