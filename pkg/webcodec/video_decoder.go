// Package webcodec is the caller-facing surface: VideoDecoder,
// VideoEncoder, AudioDecoder, AudioEncoder and ImageDecoder, each a thin
// façade over internal/engine.Engine that validates inputs, owns the W3C
// state machine accessors, and forwards outputs to caller-supplied
// handlers.
package webcodec

import (
	"github.com/streamforge/codecengine/internal/backend"
	"github.com/streamforge/codecengine/internal/codecerr"
	"github.com/streamforge/codecengine/internal/engine"
	"github.com/streamforge/codecengine/internal/registry"
	"github.com/streamforge/codecengine/pkg/media"
)

// VideoDecoderInit is the constructor argument bundle for NewVideoDecoder:
// {outputCallback, errorCallback, dequeueCallback}.
type VideoDecoderInit struct {
	Output  func(*media.VideoFrame)
	Error   func(*codecerr.Error)
	Dequeue func(newSize int32)
}

// VideoDecoder is the façade for configure/decode/flush/reset/close on a
// single decoder instance.
type VideoDecoder struct {
	eng *engine.Engine[*media.EncodedChunk, *media.VideoFrame]
}

// NewVideoDecoder constructs a decoder bound to back and dispatched through
// dispatcher. The engine starts in the unconfigured state.
func NewVideoDecoder(init VideoDecoderInit, back backend.Backend, dispatcher engine.CallerDispatcher) *VideoDecoder {
	return &VideoDecoder{
		eng: engine.New[*media.EncodedChunk, *media.VideoFrame](engine.Config[*media.VideoFrame]{
			Kind:       engine.Kind{IsDecoder: true},
			Backend:    back,
			Dispatcher: dispatcher,
			OutputCB:   init.Output,
			ErrorCB:    init.Error,
			DequeueCB:  init.Dequeue,
		}),
	}
}

// Configure deep-copies cfg and transitions the instance to configured.
func (d *VideoDecoder) Configure(cfg media.DecoderConfig) error {
	if cfg.Codec == "" {
		return codecerr.New(codecerr.TypeMismatch, "decoder config missing codec string")
	}
	return d.eng.Configure(cfg.Clone())
}

// Decode admits one encoded chunk. The chunk's inner refcount is taken, not
// a deep copy; the caller should not reuse chunk's data after this call
// unless it cloned it first.
func (d *VideoDecoder) Decode(chunk *media.EncodedChunk) error {
	if chunk == nil {
		return codecerr.New(codecerr.TypeMismatch, "decode called with a nil chunk")
	}
	return d.eng.Admit(chunk, chunk.IsKey(), nil)
}

// Flush returns a channel that receives exactly one FlushResult once every
// output admitted before this call has been delivered.
func (d *VideoDecoder) Flush() (<-chan engine.FlushResult, error) { return d.eng.Flush() }

// Reset discards queued and in-flight decode state.
func (d *VideoDecoder) Reset() error { return d.eng.Reset() }

// Close is idempotent.
func (d *VideoDecoder) Close() error { return d.eng.Close() }

// State is a pure observation of the current W3C state.
func (d *VideoDecoder) State() engine.State { return d.eng.State() }

// DecodeQueueSize is a pure observation of the current admitted-work count.
func (d *VideoDecoder) DecodeQueueSize() int32 { return d.eng.QueueSize() }

// Saturated reports whether the backend is currently refusing input,
// readable alongside DecodeQueueSize before deciding whether to keep
// admitting more decode work.
func (d *VideoDecoder) Saturated() bool { return d.eng.Saturated() }

// IsVideoDecoderConfigSupported is the static isConfigSupported(config)
// capability, backed by the registry.Parse/IsSupported
// CodecRegistry collaborator.
func IsVideoDecoderConfigSupported(cfg media.DecoderConfig) (supported bool, normalized media.DecoderConfig) {
	descriptor, ok := registry.Parse(cfg.Codec)
	if !ok || !registry.IsSupported(descriptor) {
		return false, cfg
	}
	normalized = cfg
	normalized.Codec = string(descriptor.Kind)
	return true, normalized
}
