// Package imagedec implements backend.Backend and webcodec.ImageProber over
// Go's own image codecs rather than an ffmpeg subprocess: image/gif,
// image/jpeg and image/png from the standard library, plus
// golang.org/x/image/webp, golang.org/x/image/bmp and
// golang.org/x/image/tiff, registered the same way a format-sniffing
// image.Decode call site always registers them — via blank import.
//
// Single-image decode has no meaningful SendInput/ReceiveOutput pipelining:
// the whole payload arrives at Open (ImageDecoderConfig.Data) and every
// SendInput produces exactly one output, appended to a FIFO of pending
// outputs that ReceiveOutput hands back oldest first.
package imagedec

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/streamforge/codecengine/internal/backend"
	"github.com/streamforge/codecengine/internal/codecerr"
	"github.com/streamforge/codecengine/pkg/media"
	"github.com/streamforge/codecengine/pkg/webcodec"
)

// Config configures a single Backend instance. There is no FFmpegPath
// equivalent here; decoding runs in-process.
type Config struct {
	Logger *slog.Logger
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Backend decodes a single still image (optionally one frame of an
// animated GIF/WebP) into a media.VideoFrame. It implements both
// backend.Backend, so an engine.Engine can drive it, and
// webcodec.ImageProber, so ImageDecoder's construction-time probe can
// report track metadata without a separate demux pass.
type Backend struct {
	cfg Config

	mu       sync.Mutex
	decoded  image.Image
	format   string
	pending  []backend.Output
	draining bool
	closed   bool
}

// New returns an unopened image-decode backend.
func New(cfg Config) *Backend {
	return &Backend{cfg: cfg}
}

// Open decodes config.(webcodec.ImageDecoderConfig).Data eagerly: unlike the
// streaming codecs, there is nothing further to configure once the whole
// payload is in hand.
func (b *Backend) Open(_ context.Context, config any) error {
	cfg, ok := config.(webcodec.ImageDecoderConfig)
	if !ok {
		return codecerr.New(codecerr.TypeMismatch, "imagedec: Open requires a webcodec.ImageDecoderConfig")
	}

	img, format, err := image.Decode(bytes.NewReader(cfg.Data))
	if err != nil {
		return codecerr.Wrap(codecerr.NotSupported, "decoding image payload", err)
	}

	b.mu.Lock()
	b.decoded = img
	b.format = format
	b.mu.Unlock()

	b.cfg.logger().Debug("imagedec: decoded still image", "format", format, "bounds", img.Bounds())
	return nil
}

// ProbeTracks satisfies webcodec.ImageProber. This backend only ever
// exposes a single, already-fully-decoded track — there is no progressive
// frame count to discover the way an animated source would have.
func (b *Backend) ProbeTracks(cfg webcodec.ImageDecoderConfig) (webcodec.TrackList, error) {
	b.mu.Lock()
	img := b.decoded
	b.mu.Unlock()
	if img == nil {
		return nil, codecerr.New(codecerr.InvalidState, "imagedec: ProbeTracks called before Open")
	}
	return webcodec.TrackList{{FrameCount: 1, Selected: true}}, nil
}

// SendInput accepts one webcodec.ImageRequest and immediately produces the
// corresponding frame; there is no backpressure state to track.
func (b *Backend) SendInput(_ context.Context, input any) (backend.Status, error) {
	req, ok := input.(webcodec.ImageRequest)
	if !ok {
		return backend.StatusOK, codecerr.New(codecerr.TypeMismatch, "imagedec: SendInput requires a webcodec.ImageRequest")
	}

	b.mu.Lock()
	img := b.decoded
	b.mu.Unlock()
	if img == nil {
		return backend.StatusOK, codecerr.New(codecerr.InvalidState, "imagedec: SendInput called before Open")
	}
	if req.TrackIndex != 0 {
		return backend.StatusOK, codecerr.New(codecerr.TypeMismatch, fmt.Sprintf("imagedec: track index %d out of range (single-track source)", req.TrackIndex))
	}
	if req.Opts.FrameIndex != 0 {
		return backend.StatusOK, codecerr.New(codecerr.TypeMismatch, fmt.Sprintf("imagedec: frame index %d out of range (single still image)", req.Opts.FrameIndex))
	}

	frame := toVideoFrame(img)

	b.mu.Lock()
	b.pending = append(b.pending, backend.Output{
		Value: webcodec.ImageOutput{
			RequestID: req.RequestID,
			Result:    webcodec.DecodeResult{Image: frame, Complete: true},
		},
	})
	b.mu.Unlock()
	return backend.StatusOK, nil
}

// ReceiveOutput returns the oldest pending output not yet received.
func (b *Backend) ReceiveOutput(_ context.Context) (backend.Output, backend.Status, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		if b.draining {
			return backend.Output{}, backend.StatusEOF, nil
		}
		return backend.Output{}, backend.StatusAgain, nil
	}
	out := b.pending[0]
	b.pending = b.pending[1:]
	return out, backend.StatusOK, nil
}

// Drain marks end-of-stream; a single-image source has nothing buffered
// beyond whatever SendInput has already queued into pending.
func (b *Backend) Drain(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draining = true
	return nil
}

// FlushBuffers discards all pending outputs without draining.
func (b *Backend) FlushBuffers(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = nil
	b.draining = false
	return nil
}

// Close is idempotent and releases the decoded image.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.decoded = nil
	b.pending = nil
	return nil
}

// toVideoFrame converts a decoded image.Image into a single-plane RGBA
// media.VideoFrame, normalizing whatever color model the source decoder
// produced down to one format the rest of the engine understands.
func toVideoFrame(img image.Image) *media.VideoFrame {
	bounds := img.Bounds()
	size := media.Size{Width: bounds.Dx(), Height: bounds.Dy()}

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		dst := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
		draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
		rgba = dst
	}

	return media.NewVideoFrame(media.PixelRGBA, size, 0, []media.Plane{
		{Data: rgba.Pix, Stride: rgba.Stride},
	})
}
