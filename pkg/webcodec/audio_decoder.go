package webcodec

import (
	"github.com/streamforge/codecengine/internal/backend"
	"github.com/streamforge/codecengine/internal/codecerr"
	"github.com/streamforge/codecengine/internal/engine"
	"github.com/streamforge/codecengine/internal/registry"
	"github.com/streamforge/codecengine/pkg/media"
)

// AudioDecoderInit is the constructor argument bundle for NewAudioDecoder.
type AudioDecoderInit struct {
	Output  func(*media.AudioSamples)
	Error   func(*codecerr.Error)
	Dequeue func(newSize int32)
}

// AudioDecoder is the façade for configure/decode/flush/reset/close on a
// single audio decoder instance.
type AudioDecoder struct {
	eng *engine.Engine[*media.EncodedChunk, *media.AudioSamples]
}

// NewAudioDecoder constructs a decoder bound to back and dispatched
// through dispatcher.
func NewAudioDecoder(init AudioDecoderInit, back backend.Backend, dispatcher engine.CallerDispatcher) *AudioDecoder {
	return &AudioDecoder{
		eng: engine.New[*media.EncodedChunk, *media.AudioSamples](engine.Config[*media.AudioSamples]{
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
func (d *AudioDecoder) Configure(cfg media.DecoderConfig) error {
	if cfg.Codec == "" {
		return codecerr.New(codecerr.TypeMismatch, "decoder config missing codec string")
	}
	return d.eng.Configure(cfg.Clone())
}

// Decode admits one encoded chunk.
func (d *AudioDecoder) Decode(chunk *media.EncodedChunk) error {
	if chunk == nil {
		return codecerr.New(codecerr.TypeMismatch, "decode called with a nil chunk")
	}
	return d.eng.Admit(chunk, chunk.IsKey(), nil)
}

// Flush returns a channel that receives exactly one FlushResult once every
// output admitted before this call has been delivered.
func (d *AudioDecoder) Flush() (<-chan engine.FlushResult, error) { return d.eng.Flush() }

// Reset discards queued and in-flight decode state.
func (d *AudioDecoder) Reset() error { return d.eng.Reset() }

// Close is idempotent.
func (d *AudioDecoder) Close() error { return d.eng.Close() }

// State is a pure observation of the current W3C state.
func (d *AudioDecoder) State() engine.State { return d.eng.State() }

// DecodeQueueSize is a pure observation of the current admitted-work count.
func (d *AudioDecoder) DecodeQueueSize() int32 { return d.eng.QueueSize() }

// Saturated reports whether the backend is currently refusing input,
// readable alongside DecodeQueueSize before deciding whether to keep
// admitting more decode work.
func (d *AudioDecoder) Saturated() bool { return d.eng.Saturated() }

// IsAudioDecoderConfigSupported is the static isConfigSupported(config)
// capability.
func IsAudioDecoderConfigSupported(cfg media.DecoderConfig) (supported bool, normalized media.DecoderConfig) {
	descriptor, ok := registry.Parse(cfg.Codec)
	if !ok || !registry.IsSupported(descriptor) {
		return false, cfg
	}
	normalized = cfg
	normalized.Codec = string(descriptor.Kind)
	return true, normalized
}
