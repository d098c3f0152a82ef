package ffmpegproc

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/mpegts"

	"github.com/streamforge/codecengine/pkg/media"
)

const (
	tsVideoPID = 0x0100
	tsAudioPID = 0x0101
)

// tsMuxer wraps mediacommon's mpegts.Writer to feed either encoded video
// access units or encoded audio frames into an ffmpeg subprocess's stdin
// over a single-track MPEG-TS elementary stream. Adapted from the
// TSMuxer, which multiplexed both a video and an audio track onto one
// program; each ffmpegproc instance only ever drives one codec, so this
// carries exactly one track.
type tsMuxer struct {
	w     io.Writer
	log   *slog.Logger
	kind  media.CodecKind
	descr []byte // avcC/hvcC extradata, or AAC AudioSpecificConfig

	sampleRate int
	channels   int

	mu          sync.Mutex
	muxer       *mpegts.Writer
	track       *mpegts.Track
	initialized bool
	sentExtra   bool
}

func newTSMuxer(w io.Writer, kind media.CodecKind, descr []byte, sampleRate, channels int, log *slog.Logger) *tsMuxer {
	return &tsMuxer{w: w, kind: kind, descr: descr, sampleRate: sampleRate, channels: channels, log: log}
}

func (m *tsMuxer) initialize() error {
	if m.initialized {
		return nil
	}
	codec, pid := m.buildCodec()
	m.track = &mpegts.Track{PID: pid, Codec: codec}
	m.muxer = &mpegts.Writer{W: m.w, Tracks: []*mpegts.Track{m.track}}
	if err := m.muxer.Initialize(); err != nil {
		return fmt.Errorf("initializing mpegts writer: %w", err)
	}
	if _, err := m.muxer.WriteTables(); err != nil {
		return fmt.Errorf("writing PAT/PMT tables: %w", err)
	}
	m.initialized = true
	return nil
}

// buildCodec selects the mediacommon codec/PID pair for kind, mirroring the
// createVideoCodec/createAudioCodec dispatch it generalizes from.
func (m *tsMuxer) buildCodec() (mpegts.Codec, uint16) {
	switch m.kind {
	case media.KindH265:
		return &mpegts.CodecH265{}, tsVideoPID
	case media.KindAC3:
		return &mpegts.CodecAC3{SampleRate: m.sampleRateOr(48000), ChannelCount: m.channelsOr(2)}, tsAudioPID
	case media.KindEAC3:
		return &mpegts.CodecEAC3{SampleRate: m.sampleRateOr(48000), ChannelCount: m.channelsOr(6)}, tsAudioPID
	case media.KindMP3:
		return &mpegts.CodecMPEG1Audio{}, tsAudioPID
	case media.KindOpus:
		return &mpegts.CodecOpus{ChannelCount: m.channelsOr(2)}, tsAudioPID
	case media.KindAAC:
		cfg := mpeg4audio.AudioSpecificConfig{
			Type:         mpeg4audio.ObjectTypeAACLC,
			SampleRate:   m.sampleRateOr(48000),
			ChannelCount: m.channelsOr(2),
		}
		if len(m.descr) > 0 {
			_ = cfg.Unmarshal(m.descr)
		}
		return &mpegts.CodecMPEG4Audio{Config: cfg}, tsAudioPID
	default: // media.KindH264
		return &mpegts.CodecH264{}, tsVideoPID
	}
}

func (m *tsMuxer) sampleRateOr(d int) int {
	if m.sampleRate > 0 {
		return m.sampleRate
	}
	return d
}

func (m *tsMuxer) channelsOr(d int) int {
	if m.channels > 0 {
		return m.channels
	}
	return d
}

// WriteChunk writes one EncodedChunk with the given 90kHz pts/dts.
func (m *tsMuxer) WriteChunk(pts, dts int64, chunk *media.EncodedChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.initialize(); err != nil {
		return err
	}
	if isVideoKind(m.kind) {
		return m.writeVideo(pts, dts, chunk)
	}
	return m.writeAudio(pts, chunk.Bytes())
}

func (m *tsMuxer) writeVideo(pts, dts int64, chunk *media.EncodedChunk) error {
	au := toAccessUnit(chunk.Bytes())
	if chunk.IsKey() && !m.sentExtra && len(m.descr) > 0 {
		au = append(toAccessUnit(m.descr), au...)
		m.sentExtra = true
	}
	if len(au) == 0 {
		return nil
	}
	if m.kind == media.KindH265 {
		return m.muxer.WriteH265(m.track, pts, dts, au)
	}
	return m.muxer.WriteH264(m.track, pts, dts, au)
}

func (m *tsMuxer) writeAudio(pts int64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	switch m.kind {
	case media.KindAC3:
		return m.muxer.WriteAC3(m.track, pts, data)
	case media.KindEAC3:
		return m.muxer.WriteEAC3(m.track, pts, data)
	case media.KindMP3:
		return m.muxer.WriteMPEG1Audio(m.track, pts, [][]byte{data})
	case media.KindOpus:
		return m.muxer.WriteOpus(m.track, pts, [][]byte{data})
	default:
		return m.muxer.WriteMPEG4Audio(m.track, pts, [][]byte{data})
	}
}

// toAccessUnit splits Annex-B data into NAL units, or wraps raw AVCC/HEVC
// payload as a single-element access unit if no start codes are present.
func toAccessUnit(data []byte) [][]byte {
	if len(data) == 0 {
		return nil
	}
	if len(data) >= 4 && data[0] == 0 && data[1] == 0 && (data[2] == 1 || (data[2] == 0 && data[3] == 1)) {
		var au h264.AnnexB
		if err := au.Unmarshal(data); err == nil {
			return au
		}
	}
	return [][]byte{data}
}
