// Package probe reports what this host's ffmpeg installation can actually
// do: binary version, available encoders/decoders filtered to the codec
// families the control engine cares about, and detected hardware
// accelerators. Adapted from the CapabilityDetector
// (internal/daemon/capabilities.go), dropping its GPU-fleet
// session-accounting (proto.GPUInfo/GPUClass, MaxEncodeSessions) since this
// engine drives one ffmpeg subprocess per codec instance rather than
// negotiating capacity with a coordinator.
package probe

import (
	"context"
	"strings"

	"github.com/streamforge/codecengine/pkg/ffmpeg"
)

// Capabilities is what a host can encode/decode through the ffmpeg backend.
type Capabilities struct {
	FFmpegVersion string
	FFmpegPath    string
	FFprobePath   string
	VideoEncoders []string
	VideoDecoders []string
	AudioEncoders []string
	AudioDecoders []string
	HWAccels      []ffmpeg.HWAccelInfo
	// Codecs carries the fuller per-codec metadata (lossy/lossless,
	// intra-only) that the Encoders/Decoders name lists above don't, for
	// codec families this engine drives.
	Codecs []ffmpeg.Codec
}

// Detector runs capability detection against the ffmpeg binary that
// ffmpeg.BinaryDetector finds: CODECENGINE_FFMPEG_BINARY, then ./ffmpeg,
// then PATH.
type Detector struct {
	binary *ffmpeg.BinaryDetector
}

// NewDetector returns a Detector using the default binary cache TTL.
func NewDetector() *Detector {
	return &Detector{binary: ffmpeg.NewBinaryDetector()}
}

// Detect probes the host and returns its codec/hardware capabilities.
func (d *Detector) Detect(ctx context.Context) (*Capabilities, error) {
	info, err := d.binary.Detect(ctx)
	if err != nil {
		return nil, err
	}

	return &Capabilities{
		FFmpegVersion: info.Version,
		FFmpegPath:    info.FFmpegPath,
		FFprobePath:   info.FFprobePath,
		VideoEncoders: filterByPattern(info.Encoders, videoPatterns),
		VideoDecoders: filterByPattern(info.Decoders, videoPatterns),
		AudioEncoders: filterByPattern(info.Encoders, audioPatterns),
		AudioDecoders: filterByPattern(info.Decoders, audioPatterns),
		HWAccels:      info.HWAccels,
		Codecs:        filterCodecsByPattern(info.Codecs, append(append([]string{}, videoPatterns...), audioPatterns...)),
	}, nil
}

var videoPatterns = []string{
	"libx264", "libx265", "h264", "hevc", "av1",
	"nvenc", "vaapi", "qsv", "videotoolbox", "amf",
	"mpeg", "vp8", "vp9", "libvpx", "libaom",
	"prores", "dnxhd", "mjpeg", "gif",
}

var audioPatterns = []string{
	"aac", "mp3", "opus", "vorbis", "flac", "ac3", "eac3",
	"libfdk", "libmp3lame", "libopus", "libvorbis",
	"pcm", "alac", "dts", "truehd",
}

func filterByPattern(names []string, patterns []string) []string {
	var result []string
	for _, name := range names {
		lower := strings.ToLower(name)
		for _, p := range patterns {
			if strings.Contains(lower, p) {
				result = append(result, name)
				break
			}
		}
	}
	return result
}

func filterCodecsByPattern(codecs []ffmpeg.Codec, patterns []string) []ffmpeg.Codec {
	var result []ffmpeg.Codec
	for _, c := range codecs {
		lower := strings.ToLower(c.Name)
		for _, p := range patterns {
			if strings.Contains(lower, p) {
				result = append(result, c)
				break
			}
		}
	}
	return result
}
