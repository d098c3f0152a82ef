package ffmpegproc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/streamforge/codecengine/internal/backend"
	"github.com/streamforge/codecengine/internal/codecerr"
	"github.com/streamforge/codecengine/internal/registry"
	"github.com/streamforge/codecengine/pkg/ffmpeg"
	"github.com/streamforge/codecengine/pkg/media"
)

// audioFrameSamples is the nominal samples-per-frame of each compressed
// audio codec this adapter drives, mirroring the frame durations the
// a TSDemuxer computes per codec family (1024/1152/1536/960) for
// pts bookkeeping. Here it sizes the fixed-length PCM read for one decoded
// frame's worth of output, since ffmpeg's raw PCM stdout carries no framing
// of its own.
var audioFrameSamples = map[media.CodecKind]int{
	media.KindAAC:  1024,
	media.KindMP3:  1152,
	media.KindAC3:  1536,
	media.KindEAC3: 1536,
	media.KindOpus: 960,
}

// Decoder implements backend.Backend for the compressed-in/raw-out
// direction: admitted EncodedChunks are muxed to MPEG-TS and piped to
// ffmpeg's stdin; ffmpeg's stdout yields raw planar video frames or
// interleaved PCM audio, read back in fixed-size units.
type Decoder struct {
	cfg Config

	mu   sync.Mutex
	kind media.CodecKind

	proc *process
	mux  *tsMuxer

	outputs    chan backend.Output
	readerDone chan struct{}
	readerErr  error

	// stop is closed by teardownLocked to break readLoop out of a blocked
	// outputs send — distinct from readerDone, which readLoop closes itself
	// on exit and so can never unblock the very select it guards.
	stop chan struct{}

	pixFmt       media.PixelFormat
	size         media.Size
	sampleRate   int
	channels     int
	frameSamples int

	// pendingTimestamps carries each admitted chunk's timestamp through to
	// its corresponding raw output, on the simplifying assumption (made
	// throughout this adapter) that ffmpeg emits exactly one raw unit per
	// admitted compressed unit, in send order.
	pendingTimestamps []int64
}

// NewDecoder returns a Decoder bound to cfg. Open must be called before use.
func NewDecoder(cfg Config) *Decoder {
	return &Decoder{cfg: cfg}
}

func (d *Decoder) Open(_ context.Context, config any) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.teardownLocked()

	dcfg, ok := config.(media.DecoderConfig)
	if !ok {
		return codecerr.New(codecerr.TypeMismatch, "ffmpegproc decoder requires a media.DecoderConfig")
	}
	descr, ok := registry.Parse(dcfg.Codec)
	if !ok || !registry.IsSupported(descr) {
		return codecerr.New(codecerr.NotSupported, fmt.Sprintf("codec %q is not supported by the ffmpeg backend", dcfg.Codec))
	}
	d.kind = descr.Kind

	builder := ffmpeg.NewCommandBuilder(d.cfg.binary()).
		HideBanner().
		InputArgs("-f", "mpegts").
		Input("pipe:0")

	if isVideoKind(d.kind) {
		if d.kind != media.KindH264 && d.kind != media.KindH265 {
			return codecerr.New(codecerr.NotSupported, fmt.Sprintf("video codec %q has no MPEG-TS demux path", d.kind))
		}
		if dcfg.CodedWidth <= 0 || dcfg.CodedHeight <= 0 {
			return codecerr.New(codecerr.TypeMismatch, "decoder config is missing codedWidth/codedHeight")
		}
		pf, err := pixFmt(media.PixelI420)
		if err != nil {
			return codecerr.Wrap(codecerr.NotSupported, "selecting decode output pixel format", err)
		}
		d.pixFmt = media.PixelI420
		d.size = media.Size{Width: dcfg.CodedWidth, Height: dcfg.CodedHeight}
		builder.OutputArgs("-f", "rawvideo", "-pix_fmt", pf, "-s", fmt.Sprintf("%dx%d", dcfg.CodedWidth, dcfg.CodedHeight))
	} else {
		d.sampleRate = dcfg.SampleRate
		if d.sampleRate <= 0 {
			d.sampleRate = 48000
		}
		d.channels = dcfg.NumberOfChannels
		if d.channels <= 0 {
			d.channels = 2
		}
		d.frameSamples = audioFrameSamples[d.kind]
		if d.frameSamples == 0 {
			d.frameSamples = 1024
		}
		pcmName, _, err := pcmFmt(media.SampleS16)
		if err != nil {
			return codecerr.Wrap(codecerr.NotSupported, "selecting decode output sample format", err)
		}
		builder.OutputArgs("-f", pcmName, "-ar", itoa(d.sampleRate), "-ac", itoa(d.channels))
	}
	builder.Output("pipe:1")

	proc, err := startProcess(builder.Build())
	if err != nil {
		return codecerr.Wrap(codecerr.NotSupported, "starting ffmpeg decode process", err)
	}

	d.proc = proc
	d.mux = newTSMuxer(proc.stdin, d.kind, dcfg.Description, d.sampleRate, d.channels, d.cfg.logger())
	d.outputs = make(chan backend.Output, 256)
	d.readerDone = make(chan struct{})
	d.stop = make(chan struct{})
	d.readerErr = nil
	d.pendingTimestamps = nil

	// readLoop runs detached from d's fields (a subsequent Open/teardown may
	// replace them concurrently); it only ever touches the session-local
	// values captured here.
	go d.readLoop(d.proc, d.outputs, d.readerDone, d.stop, d.kind, d.pixFmt, d.size, d.sampleRate, d.channels, d.frameSamples)
	return nil
}

func (d *Decoder) readLoop(proc *process, outputs chan backend.Output, done, stop chan struct{}, kind media.CodecKind, pixFmt media.PixelFormat, size media.Size, sampleRate, channels, frameSamples int) {
	defer func() {
		close(outputs)
		close(done)
	}()

	for {
		ts := d.nextTimestamp()

		var out backend.Output
		var err error
		if isVideoKind(kind) {
			var frame *media.VideoFrame
			frame, err = readRawFrame(proc.stdout, pixFmt, size, ts)
			if err == nil {
				out = backend.Output{Value: frame}
			}
		} else {
			var samples *media.AudioSamples
			samples, err = readPCM(proc.stdout, media.SampleS16, sampleRate, channels, frameSamples, ts)
			if err == nil {
				out = backend.Output{Value: samples}
			}
		}

		if err != nil {
			if !isBenignEOF(err) {
				d.mu.Lock()
				if d.readerDone == done {
					d.readerErr = fmt.Errorf("reading ffmpeg decode output: %w", err)
				}
				d.mu.Unlock()
			}
			return
		}

		select {
		case outputs <- out:
		case <-stop:
			return
		}
	}
}

func isBenignEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.ErrClosedPipe)
}

func (d *Decoder) nextTimestamp() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pendingTimestamps) == 0 {
		return 0
	}
	ts := d.pendingTimestamps[0]
	d.pendingTimestamps = d.pendingTimestamps[1:]
	return ts
}

func (d *Decoder) SendInput(_ context.Context, input any) (backend.Status, error) {
	chunk, ok := input.(*media.EncodedChunk)
	if !ok {
		return backend.StatusOK, codecerr.New(codecerr.TypeMismatch, "ffmpegproc decoder expects *media.EncodedChunk input")
	}

	d.mu.Lock()
	mux := d.mux
	d.pendingTimestamps = append(d.pendingTimestamps, chunk.Timestamp)
	d.mu.Unlock()

	if mux == nil {
		return backend.StatusOK, codecerr.New(codecerr.InvalidState, "ffmpegproc decoder sent input before being opened")
	}

	pts := microsTo90k(chunk.Timestamp)
	if err := mux.WriteChunk(pts, pts, chunk); err != nil {
		return backend.StatusOK, codecerr.Wrap(codecerr.EncodingError, "writing chunk to ffmpeg stdin", err)
	}
	return backend.StatusOK, nil
}

func (d *Decoder) ReceiveOutput(_ context.Context) (backend.Output, backend.Status, error) {
	d.mu.Lock()
	outputs := d.outputs
	d.mu.Unlock()
	if outputs == nil {
		return backend.Output{}, backend.StatusAgain, nil
	}

	select {
	case out, ok := <-outputs:
		if !ok {
			d.mu.Lock()
			err := d.readerErr
			d.mu.Unlock()
			return backend.Output{}, backend.StatusEOF, err
		}
		return out, backend.StatusOK, nil
	default:
		return backend.Output{}, backend.StatusAgain, nil
	}
}

func (d *Decoder) Drain(ctx context.Context) error {
	d.mu.Lock()
	proc := d.proc
	done := d.readerDone
	d.mu.Unlock()
	if proc == nil {
		return nil
	}

	if err := proc.stdin.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		d.cfg.logger().Debug("closing decoder stdin", "error", err)
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Decoder) FlushBuffers(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.teardownLocked()
	return nil
}

func (d *Decoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.teardownLocked()
	return nil
}

// Stats returns the underlying ffmpeg subprocess's resource usage, if a
// process is currently running and monitoring attached successfully.
func (d *Decoder) Stats() (ProcessStats, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.proc == nil || d.proc.monitor == nil {
		return ProcessStats{}, false
	}
	return d.proc.monitor.Stats(), true
}

func (d *Decoder) teardownLocked() {
	if d.proc != nil {
		_ = d.proc.close()
	}
	if d.stop != nil {
		close(d.stop)
	}
	d.proc = nil
	d.mux = nil
	d.outputs = nil
	d.readerDone = nil
	d.stop = nil
	d.pendingTimestamps = nil
}

func microsTo90k(us int64) int64 {
	return us * 9 / 100
}

func itoa(n int) string {
	return fmt.Sprintf("%d", n)
}
