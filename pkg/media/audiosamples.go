package media

import "github.com/streamforge/codecengine/internal/codecerr"

// SampleFormat enumerates the recognized raw audio sample layouts. Each may
// be planar (one buffer per channel) or interleaved (one buffer, samples
// interleaved across channels); Planar distinguishes the two.
type SampleFormat string

const (
	SampleU8  SampleFormat = "u8"
	SampleS16 SampleFormat = "s16"
	SampleS32 SampleFormat = "s32"
	SampleF32 SampleFormat = "f32"
)

// AudioSamples is one decoded audio buffer. Content is reference-counted;
// the outer handle is exclusive to its owner until explicitly cloned.
type AudioSamples struct {
	handle Handle

	Format      SampleFormat
	Planar      bool
	SampleRate  int
	Channels    int
	Frames      int // samples per channel
	Timestamp   int64 // microseconds
	Buffers     [][]byte // one entry per channel if Planar, else one entry
}

// NewAudioSamples builds a buffer taking ownership of data (not copied).
func NewAudioSamples(format SampleFormat, planar bool, sampleRate, channels, frames int, timestamp int64, buffers [][]byte) *AudioSamples {
	return &AudioSamples{
		handle:     NewHandle(),
		Format:     format,
		Planar:     planar,
		SampleRate: sampleRate,
		Channels:   channels,
		Frames:     frames,
		Timestamp:  timestamp,
		Buffers:    buffers,
	}
}

// AllocationSize reports the total byte size across all channel buffers.
func (a *AudioSamples) AllocationSize() (int, error) {
	if err := a.handle.CheckOpen(); err != nil {
		return 0, err
	}
	total := 0
	for _, b := range a.Buffers {
		total += len(b)
	}
	return total, nil
}

// CopyTo copies every channel buffer's bytes, in order, into dest.
func (a *AudioSamples) CopyTo(dest []byte) error {
	if err := a.handle.CheckOpen(); err != nil {
		return err
	}
	size, _ := a.AllocationSize()
	if len(dest) < size {
		return codecerr.New(codecerr.TypeMismatch, "destination buffer too small")
	}
	off := 0
	for _, b := range a.Buffers {
		off += copy(dest[off:], b)
	}
	return nil
}

// Clone returns an independent handle sharing the same inner refcount.
func (a *AudioSamples) Clone() (*AudioSamples, error) {
	h, err := a.handle.Clone()
	if err != nil {
		return nil, err
	}
	clone := *a
	clone.handle = h
	return &clone, nil
}

// Close detaches this handle. Idempotent.
func (a *AudioSamples) Close() { a.handle.Close() }

// Detached reports whether Close has been called on this handle.
func (a *AudioSamples) Detached() bool { return a.handle.Detached() }

// Transfer clones a into a new buffer and closes a atomically.
func (a *AudioSamples) Transfer() (*AudioSamples, error) {
	clone, err := a.Clone()
	if err != nil {
		return nil, err
	}
	a.Close()
	return clone, nil
}
