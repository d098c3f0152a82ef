package ffmpegproc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"

	"github.com/streamforge/codecengine/internal/backend"
	"github.com/streamforge/codecengine/internal/codecerr"
	"github.com/streamforge/codecengine/internal/registry"
	"github.com/streamforge/codecengine/pkg/ffmpeg"
	"github.com/streamforge/codecengine/pkg/media"
)

// Encoder implements backend.Backend for the raw-in/compressed-out
// direction: admitted planar video frames or interleaved PCM audio are
// written to ffmpeg's stdin; its MPEG-TS stdout is demuxed back into
// EncodedChunks.
type Encoder struct {
	cfg Config

	mu    sync.Mutex
	kind  media.CodecKind
	econf media.EncoderConfig

	proc  *process
	demux *tsDemuxer

	chunks     chan *media.EncodedChunk
	readerDone chan struct{}

	started    bool
	sentConfig bool
}

// NewEncoder returns an Encoder bound to cfg. Open must be called before use.
func NewEncoder(cfg Config) *Encoder {
	return &Encoder{cfg: cfg}
}

func (e *Encoder) Open(_ context.Context, config any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.teardownLocked()

	econf, ok := config.(media.EncoderConfig)
	if !ok {
		return codecerr.New(codecerr.TypeMismatch, "ffmpegproc encoder requires a media.EncoderConfig")
	}
	descr, ok := registry.Parse(econf.Codec)
	if !ok || !registry.IsSupported(descr) {
		return codecerr.New(codecerr.NotSupported, fmt.Sprintf("codec %q is not supported by the ffmpeg backend", econf.Codec))
	}
	if isVideoKind(descr.Kind) && descr.Kind != media.KindH264 && descr.Kind != media.KindH265 {
		return codecerr.New(codecerr.NotSupported, fmt.Sprintf("video codec %q has no MPEG-TS mux path", descr.Kind))
	}

	e.kind = descr.Kind
	e.econf = econf
	e.sentConfig = false

	if isVideoKind(e.kind) {
		// Pixel format and coded size aren't known until the first admitted
		// VideoFrame arrives, so the subprocess starts lazily in SendInput.
		return nil
	}
	return e.startLocked(nil)
}

// startLocked builds and starts the ffmpeg subprocess. frame is nil for
// audio, whose input format is already fixed by EncoderConfig; for video it
// supplies the pixel format/size the process must be started with.
func (e *Encoder) startLocked(frame *media.VideoFrame) error {
	builder := ffmpeg.NewCommandBuilder(e.cfg.binary()).HideBanner()
	hw, _ := registry.ParseHWAccel(e.cfg.HWAccel)

	if isVideoKind(e.kind) {
		pf, err := pixFmt(frame.Format)
		if err != nil {
			return codecerr.Wrap(codecerr.NotSupported, "unsupported input pixel format", err)
		}
		builder.InputArgs("-f", "rawvideo", "-pix_fmt", pf, "-s", fmt.Sprintf("%dx%d", frame.CodedSize.Width, frame.CodedSize.Height))
		if e.econf.Framerate > 0 {
			builder.InputArgs("-r", strconv.FormatFloat(e.econf.Framerate, 'f', -1, 64))
		}
		builder.Input("pipe:0")
		builder.HWAccel(hw.String())

		builder.VideoCodec(registry.GetVideoEncoder(registry.Video(e.kind), hw))
		if e.econf.Bitrate > 0 {
			builder.VideoBitrate(strconv.FormatInt(e.econf.Bitrate, 10))
		}
		builder.OutputArgs("-f", "mpegts")
	} else {
		pcmName, _, err := pcmFmt(media.SampleS16)
		if err != nil {
			return codecerr.Wrap(codecerr.NotSupported, "unsupported input sample format", err)
		}
		sampleRate := e.econf.SampleRate
		if sampleRate <= 0 {
			sampleRate = 48000
		}
		channels := e.econf.NumberOfChannels
		if channels <= 0 {
			channels = 2
		}
		builder.InputArgs("-f", pcmName, "-ar", itoa(sampleRate), "-ac", itoa(channels))
		builder.Input("pipe:0")

		builder.AudioCodec(registry.GetAudioEncoder(registry.Audio(e.kind)))
		if e.econf.Bitrate > 0 {
			builder.AudioBitrate(strconv.FormatInt(e.econf.Bitrate, 10))
		}
		builder.OutputArgs("-f", "mpegts")
	}
	builder.Output("pipe:1")

	proc, err := startProcess(builder.Build())
	if err != nil {
		return codecerr.Wrap(codecerr.NotSupported, "starting ffmpeg encode process", err)
	}

	e.proc = proc
	e.chunks = make(chan *media.EncodedChunk, 256)
	e.readerDone = make(chan struct{})
	e.demux = newTSDemuxer(proc.stdout, e.kind, e.chunks, e.cfg.logger())
	e.started = true

	go watchDemuxer(e.demux, e.chunks, e.readerDone)
	return nil
}

// watchDemuxer closes chunks once the demuxer's run loop finishes, so
// ReceiveOutput can report StatusEOF, and signals done for Drain to wait on.
// It is handed the session-local channels rather than reading e's fields so
// a concurrent teardown/Open cannot race it.
func watchDemuxer(demux *tsDemuxer, chunks chan *media.EncodedChunk, done chan struct{}) {
	<-demux.done
	close(chunks)
	close(done)
}

func (e *Encoder) SendInput(ctx context.Context, input any) (backend.Status, error) {
	e.mu.Lock()
	kind := e.kind
	started := e.started
	e.mu.Unlock()

	if isVideoKind(kind) {
		frame, ok := input.(*media.VideoFrame)
		if !ok {
			return backend.StatusOK, codecerr.New(codecerr.TypeMismatch, "ffmpegproc encoder expects *media.VideoFrame input")
		}
		if !started {
			e.mu.Lock()
			if !e.started {
				if err := e.startLocked(frame); err != nil {
					e.mu.Unlock()
					return backend.StatusOK, err
				}
			}
			e.mu.Unlock()
		}
		e.mu.Lock()
		proc := e.proc
		e.mu.Unlock()
		if proc == nil {
			return backend.StatusOK, codecerr.New(codecerr.InvalidState, "ffmpegproc encoder sent input before being opened")
		}
		if err := writeRawFrame(proc.stdin, frame); err != nil {
			return backend.StatusOK, codecerr.Wrap(codecerr.EncodingError, "writing frame to ffmpeg stdin", err)
		}
		return backend.StatusOK, nil
	}

	samples, ok := input.(*media.AudioSamples)
	if !ok {
		return backend.StatusOK, codecerr.New(codecerr.TypeMismatch, "ffmpegproc encoder expects *media.AudioSamples input")
	}
	e.mu.Lock()
	proc := e.proc
	e.mu.Unlock()
	if proc == nil {
		return backend.StatusOK, codecerr.New(codecerr.InvalidState, "ffmpegproc encoder sent input before being opened")
	}
	if err := writePCM(proc.stdin, samples); err != nil {
		return backend.StatusOK, codecerr.Wrap(codecerr.EncodingError, "writing samples to ffmpeg stdin", err)
	}
	return backend.StatusOK, nil
}

func (e *Encoder) ReceiveOutput(_ context.Context) (backend.Output, backend.Status, error) {
	e.mu.Lock()
	chunks := e.chunks
	e.mu.Unlock()
	if chunks == nil {
		return backend.Output{}, backend.StatusAgain, nil
	}

	select {
	case chunk, ok := <-chunks:
		if !ok {
			return backend.Output{}, backend.StatusEOF, nil
		}
		out := backend.Output{Value: chunk, IsKey: chunk.IsKey()}
		e.mu.Lock()
		if !e.sentConfig {
			out.DecoderConfig = e.decoderConfigLocked()
			e.sentConfig = true
		}
		e.mu.Unlock()
		return out, backend.StatusOK, nil
	default:
		return backend.Output{}, backend.StatusAgain, nil
	}
}

// decoderConfigLocked synthesizes the extradata that must accompany the
// first output chunk. Video access units carry their own in-band parameter
// sets (SPS/PPS/VPS) via mediacommon's Annex-B marshal, so no sidecar
// extradata is needed; AAC gets a constructed AudioSpecificConfig.
func (e *Encoder) decoderConfigLocked() []byte {
	if e.kind != media.KindAAC {
		return nil
	}
	sampleRate := e.econf.SampleRate
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	channels := e.econf.NumberOfChannels
	if channels <= 0 {
		channels = 2
	}
	cfg := mpeg4audio.AudioSpecificConfig{
		Type:         mpeg4audio.ObjectTypeAACLC,
		SampleRate:   sampleRate,
		ChannelCount: channels,
	}
	b, err := cfg.Marshal()
	if err != nil {
		return nil
	}
	return b
}

func (e *Encoder) Drain(ctx context.Context) error {
	e.mu.Lock()
	proc := e.proc
	done := e.readerDone
	e.mu.Unlock()
	if proc == nil {
		return nil
	}

	if err := proc.stdin.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		e.cfg.logger().Debug("closing encoder stdin", "error", err)
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Encoder) FlushBuffers(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.teardownLocked()
	return nil
}

func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.teardownLocked()
	return nil
}

// Stats returns the underlying ffmpeg subprocess's resource usage, if a
// process is currently running and monitoring attached successfully.
func (e *Encoder) Stats() (ProcessStats, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.proc == nil || e.proc.monitor == nil {
		return ProcessStats{}, false
	}
	return e.proc.monitor.Stats(), true
}

func (e *Encoder) teardownLocked() {
	if e.demux != nil {
		e.demux.close()
	}
	if e.proc != nil {
		_ = e.proc.close()
	}
	e.proc = nil
	e.demux = nil
	e.chunks = nil
	e.readerDone = nil
	e.started = false
	e.sentConfig = false
}
