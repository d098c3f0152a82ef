package webcodec

import (
	"github.com/streamforge/codecengine/internal/backend"
	"github.com/streamforge/codecengine/internal/codecerr"
	"github.com/streamforge/codecengine/internal/engine"
	"github.com/streamforge/codecengine/internal/registry"
	"github.com/streamforge/codecengine/pkg/media"
)

// VideoEncoderInit is the constructor argument bundle for NewVideoEncoder.
type VideoEncoderInit struct {
	Output  func(*media.EncodedChunk)
	Error   func(*codecerr.Error)
	Dequeue func(newSize int32)
}

// VideoEncoder is the façade for configure/encode/flush/reset/close on a
// single encoder instance. Unlike the decoder, it locks an active
// orientation on the first admitted frame.
type VideoEncoder struct {
	eng *engine.Engine[*media.VideoFrame, *media.EncodedChunk]
}

// NewVideoEncoder constructs an encoder bound to back and dispatched
// through dispatcher.
func NewVideoEncoder(init VideoEncoderInit, back backend.Backend, dispatcher engine.CallerDispatcher) *VideoEncoder {
	return &VideoEncoder{
		eng: engine.New[*media.VideoFrame, *media.EncodedChunk](engine.Config[*media.EncodedChunk]{
			Kind:       engine.Kind{IsDecoder: false, TracksOrientation: true},
			Backend:    back,
			Dispatcher: dispatcher,
			OutputCB:   init.Output,
			ErrorCB:    init.Error,
			DequeueCB:  init.Dequeue,
		}),
	}
}

// Configure deep-copies cfg and transitions the instance to configured.
func (e *VideoEncoder) Configure(cfg media.EncoderConfig) error {
	if cfg.Codec == "" {
		return codecerr.New(codecerr.TypeMismatch, "encoder config missing codec string")
	}
	return e.eng.Configure(cfg.Clone())
}

// Encode admits one raw frame. If an orientation has already been locked by
// a prior frame, a mismatching orientation is rejected with DataError.
func (e *VideoEncoder) Encode(frame *media.VideoFrame) error {
	if frame == nil {
		return codecerr.New(codecerr.TypeMismatch, "encode called with a nil frame")
	}
	return e.eng.Admit(frame, false, &frame.Orientation)
}

// Flush returns a channel that receives exactly one FlushResult once every
// output admitted before this call has been delivered.
func (e *VideoEncoder) Flush() (<-chan engine.FlushResult, error) { return e.eng.Flush() }

// Reset discards queued and in-flight encode state.
func (e *VideoEncoder) Reset() error { return e.eng.Reset() }

// Close is idempotent.
func (e *VideoEncoder) Close() error { return e.eng.Close() }

// State is a pure observation of the current W3C state.
func (e *VideoEncoder) State() engine.State { return e.eng.State() }

// EncodeQueueSize is a pure observation of the current admitted-work count.
func (e *VideoEncoder) EncodeQueueSize() int32 { return e.eng.QueueSize() }

// IsVideoEncoderConfigSupported is the static isConfigSupported(config)
// capability.
func IsVideoEncoderConfigSupported(cfg media.EncoderConfig) (supported bool, normalized media.EncoderConfig) {
	descriptor, ok := registry.Parse(cfg.Codec)
	if !ok || !registry.IsSupported(descriptor) {
		return false, cfg
	}
	normalized = cfg
	normalized.Codec = string(descriptor.Kind)
	return true, normalized
}
