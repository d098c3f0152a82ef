// Package ffmpegproc implements the real backend.Backend adapter: one
// ffmpeg subprocess per codec instance, driven over stdin/stdout pipes.
//
// Whichever side of the pipe carries compressed data — ffmpeg's stdin for a
// decoder, its stdout for an encoder — is muxed/demuxed as single-track
// MPEG-TS (adapted from a ts_muxer/ts_demuxer pair via mediacommon),
// covering both video (H.264/H.265) and the audio codecs mediacommon's
// mpegts package already frames (AAC, AC-3, E-AC-3, MP3, Opus). The raw
// side crosses the boundary directly: planar video frames in ffmpeg's
// rawvideo layout, PCM audio interleaved at a fixed sample format.
package ffmpegproc

import (
	"log/slog"

	"github.com/streamforge/codecengine/pkg/media"
)

// Config parameterizes one ffmpeg subprocess adapter instance. Either
// Decoder or Encoder is set, never both.
type Config struct {
	FFmpegPath string
	HWAccel    string // "", "vaapi", "cuda", "qsv" — passed through to -hwaccel
	Descriptor media.CodecDescriptor
	Logger     *slog.Logger
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c Config) binary() string {
	if c.FFmpegPath != "" {
		return c.FFmpegPath
	}
	return "ffmpeg"
}

func isVideoKind(kind media.CodecKind) bool {
	switch kind {
	case media.KindH264, media.KindH265, media.KindVP8, media.KindVP9, media.KindAV1:
		return true
	default:
		return false
	}
}
