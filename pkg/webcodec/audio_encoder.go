package webcodec

import (
	"github.com/streamforge/codecengine/internal/backend"
	"github.com/streamforge/codecengine/internal/codecerr"
	"github.com/streamforge/codecengine/internal/engine"
	"github.com/streamforge/codecengine/internal/registry"
	"github.com/streamforge/codecengine/pkg/media"
)

// AudioEncoderInit is the constructor argument bundle for NewAudioEncoder.
type AudioEncoderInit struct {
	Output  func(*media.EncodedChunk)
	Error   func(*codecerr.Error)
	Dequeue func(newSize int32)
}

// AudioEncoder is the façade for configure/encode/flush/reset/close on a
// single audio encoder instance. Unlike VideoEncoder it does not track an
// active orientation — orientation is a video-only concept.
type AudioEncoder struct {
	eng *engine.Engine[*media.AudioSamples, *media.EncodedChunk]
}

// NewAudioEncoder constructs an encoder bound to back and dispatched
// through dispatcher.
func NewAudioEncoder(init AudioEncoderInit, back backend.Backend, dispatcher engine.CallerDispatcher) *AudioEncoder {
	return &AudioEncoder{
		eng: engine.New[*media.AudioSamples, *media.EncodedChunk](engine.Config[*media.EncodedChunk]{
			Kind:       engine.Kind{IsDecoder: false, TracksOrientation: false},
			Backend:    back,
			Dispatcher: dispatcher,
			OutputCB:   init.Output,
			ErrorCB:    init.Error,
			DequeueCB:  init.Dequeue,
		}),
	}
}

// Configure deep-copies cfg and transitions the instance to configured.
func (e *AudioEncoder) Configure(cfg media.EncoderConfig) error {
	if cfg.Codec == "" {
		return codecerr.New(codecerr.TypeMismatch, "encoder config missing codec string")
	}
	return e.eng.Configure(cfg.Clone())
}

// Encode admits one raw audio buffer.
func (e *AudioEncoder) Encode(samples *media.AudioSamples) error {
	if samples == nil {
		return codecerr.New(codecerr.TypeMismatch, "encode called with nil samples")
	}
	return e.eng.Admit(samples, false, nil)
}

// Flush returns a channel that receives exactly one FlushResult once every
// output admitted before this call has been delivered.
func (e *AudioEncoder) Flush() (<-chan engine.FlushResult, error) { return e.eng.Flush() }

// Reset discards queued and in-flight encode state.
func (e *AudioEncoder) Reset() error { return e.eng.Reset() }

// Close is idempotent.
func (e *AudioEncoder) Close() error { return e.eng.Close() }

// State is a pure observation of the current W3C state.
func (e *AudioEncoder) State() engine.State { return e.eng.State() }

// EncodeQueueSize is a pure observation of the current admitted-work count.
func (e *AudioEncoder) EncodeQueueSize() int32 { return e.eng.QueueSize() }

// IsAudioEncoderConfigSupported is the static isConfigSupported(config)
// capability.
func IsAudioEncoderConfigSupported(cfg media.EncoderConfig) (supported bool, normalized media.EncoderConfig) {
	descriptor, ok := registry.Parse(cfg.Codec)
	if !ok || !registry.IsSupported(descriptor) {
		return false, cfg
	}
	normalized = cfg
	normalized.Codec = string(descriptor.Kind)
	return true, normalized
}
