package ffmpegproc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h265"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/mpegts"

	"github.com/streamforge/codecengine/pkg/media"
)

// tsDemuxer reads ffmpeg's MPEG-TS encode output from a pipe and turns each
// demuxed access unit into an EncodedChunk delivered on out. Adapted from
// a TSDemuxer, narrowed to the single track kind this adapter
// instance was opened for.
type tsDemuxer struct {
	kind media.CodecKind
	log  *slog.Logger
	out  chan<- *media.EncodedChunk

	reader *mpegts.Reader

	ctx    context.Context
	cancel context.CancelFunc

	readyOnce sync.Once
	ready     chan struct{}
	readyErr  error

	// done closes once run returns, whether from a clean EOF, a read
	// error, or an external close — distinct from ctx, which only ever
	// signals an external stop request.
	done chan struct{}
}

func newTSDemuxer(r io.Reader, kind media.CodecKind, out chan<- *media.EncodedChunk, log *slog.Logger) *tsDemuxer {
	ctx, cancel := context.WithCancel(context.Background())
	d := &tsDemuxer{kind: kind, log: log, out: out, ctx: ctx, cancel: cancel, ready: make(chan struct{}), done: make(chan struct{})}
	d.reader = &mpegts.Reader{R: r}
	go d.run()
	return d
}

func (d *tsDemuxer) run() {
	defer close(d.done)

	if err := d.reader.Initialize(); err != nil {
		d.readyOnce.Do(func() {
			d.readyErr = fmt.Errorf("initializing mpegts reader: %w", err)
			close(d.ready)
		})
		return
	}

	for _, track := range d.reader.Tracks() {
		d.setupTrack(track)
	}
	d.readyOnce.Do(func() { close(d.ready) })

	d.reader.OnDecodeError(func(err error) {
		d.log.Debug("mpegts decode error", slog.String("error", err.Error()))
	})

	for {
		select {
		case <-d.ctx.Done():
			return
		default:
			if err := d.reader.Read(); err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
					d.log.Debug("mpegts demuxer read error", slog.String("error", err.Error()))
				}
				return
			}
		}
	}
}

func (d *tsDemuxer) setupTrack(track *mpegts.Track) {
	switch track.Codec.(type) {
	case *mpegts.CodecH264:
		if d.kind == media.KindH264 {
			d.reader.OnDataH264(track, func(pts, dts int64, au [][]byte) error {
				return d.emitVideo(au, h264.IsRandomAccess(au))
			})
		}
	case *mpegts.CodecH265:
		if d.kind == media.KindH265 {
			d.reader.OnDataH265(track, func(pts, dts int64, au [][]byte) error {
				return d.emitVideo(au, h265.IsRandomAccess(au))
			})
		}
	case *mpegts.CodecMPEG4Audio:
		if d.kind == media.KindAAC {
			d.reader.OnDataMPEG4Audio(track, func(pts int64, aus [][]byte) error {
				return d.emitAudioAUs(aus)
			})
		}
	case *mpegts.CodecAC3:
		if d.kind == media.KindAC3 {
			d.reader.OnDataAC3(track, func(pts int64, frame []byte) error {
				return d.emitAudio(frame)
			})
		}
	case *mpegts.CodecEAC3:
		if d.kind == media.KindEAC3 {
			d.reader.OnDataEAC3(track, func(pts int64, frame []byte) error {
				return d.emitAudio(frame)
			})
		}
	case *mpegts.CodecMPEG1Audio:
		if d.kind == media.KindMP3 {
			d.reader.OnDataMPEG1Audio(track, func(pts int64, frames [][]byte) error {
				return d.emitAudioAUs(frames)
			})
		}
	case *mpegts.CodecOpus:
		if d.kind == media.KindOpus {
			d.reader.OnDataOpus(track, func(pts int64, packets [][]byte) error {
				return d.emitAudioAUs(packets)
			})
		}
	}
}

func (d *tsDemuxer) emitVideo(au [][]byte, isKey bool) error {
	annexB, err := h264.AnnexB(au).Marshal()
	if err != nil || len(annexB) == 0 {
		return nil
	}
	return d.emitChunk(annexB, isKey)
}

func (d *tsDemuxer) emitAudioAUs(aus [][]byte) error {
	for _, au := range aus {
		if err := d.emitAudio(au); err != nil {
			return err
		}
	}
	return nil
}

// emitAudio emits one already-framed audio access unit. Audio packets carry
// no dependency chain, so every one is independently decodable.
func (d *tsDemuxer) emitAudio(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return d.emitChunk(append([]byte(nil), data...), true)
}

func (d *tsDemuxer) emitChunk(data []byte, isKey bool) error {
	typ := media.ChunkDelta
	if isKey {
		typ = media.ChunkKey
	}
	chunk := media.NewEncodedChunk(typ, 0, 0, data)
	select {
	case d.out <- chunk:
	case <-d.ctx.Done():
	}
	return nil
}

// waitReady blocks until PAT/PMT have been parsed (or the stream ended
// before any were seen).
func (d *tsDemuxer) waitReady(ctx context.Context) error {
	select {
	case <-d.ready:
		return d.readyErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *tsDemuxer) close() { d.cancel() }
