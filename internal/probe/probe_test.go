package probe

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamforge/codecengine/pkg/ffmpeg"
)

func TestFilterByPattern(t *testing.T) {
	names := []string{"libx264", "libmp3lame", "mjpeg", "libopus", "flac"}
	assert.ElementsMatch(t, []string{"libx264", "mjpeg"}, filterByPattern(names, videoPatterns))
	assert.ElementsMatch(t, []string{"libmp3lame", "libopus", "flac"}, filterByPattern(names, audioPatterns))
}

func TestFilterByPattern_NoMatches(t *testing.T) {
	assert.Empty(t, filterByPattern([]string{"subrip", "ass"}, videoPatterns))
}

func TestFilterCodecsByPattern(t *testing.T) {
	codecs := []ffmpeg.Codec{
		{Name: "h264", Type: "video", CanDecode: true, CanEncode: true},
		{Name: "aac", Type: "audio", CanDecode: true, CanEncode: true},
		{Name: "subrip", Type: "subtitle"},
	}
	result := filterCodecsByPattern(codecs, append(append([]string{}, videoPatterns...), audioPatterns...))
	assert.Len(t, result, 2)
}

func TestDetector_Detect(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}

	d := NewDetector()
	caps, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, caps.FFmpegVersion)
	assert.NotEmpty(t, caps.VideoEncoders)
}
