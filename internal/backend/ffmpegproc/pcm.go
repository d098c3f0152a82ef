package ffmpegproc

import (
	"fmt"
	"io"

	"github.com/streamforge/codecengine/pkg/media"
)

// pcmFmt maps a media.SampleFormat to ffmpeg's interleaved -f name; this
// backend always negotiates interleaved PCM across the pipe boundary and
// lets media.AudioSamples.Planar describe the caller-facing shape.
func pcmFmt(f media.SampleFormat) (string, int, error) {
	switch f {
	case media.SampleU8:
		return "u8", 1, nil
	case media.SampleS16:
		return "s16le", 2, nil
	case media.SampleS32:
		return "s32le", 4, nil
	case media.SampleF32:
		return "f32le", 4, nil
	default:
		return "", 0, fmt.Errorf("unsupported sample format %q", f)
	}
}

// pcmFrameBytes returns interleaved byte count for one buffer of frames
// samples per channel.
func pcmFrameBytes(bytesPerSample, channels, frames int) int {
	return bytesPerSample * channels * frames
}

func writePCM(w io.Writer, samples *media.AudioSamples) error {
	for _, b := range samples.Buffers {
		if _, err := w.Write(b); err != nil {
			return fmt.Errorf("writing pcm buffer: %w", err)
		}
	}
	return nil
}

// readPCM reads one fixed-size interleaved PCM buffer of framesPerChunk
// samples per channel from r.
func readPCM(r io.Reader, format media.SampleFormat, sampleRate, channels, framesPerChunk int, timestamp int64) (*media.AudioSamples, error) {
	_, bytesPerSample, err := pcmFmt(format)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, pcmFrameBytes(bytesPerSample, channels, framesPerChunk))
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return media.NewAudioSamples(format, false, sampleRate, channels, framesPerChunk, timestamp, [][]byte{buf}), nil
}
