package imagedec_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamforge/codecengine/internal/backend"
	"github.com/streamforge/codecengine/internal/backend/imagedec"
	"github.com/streamforge/codecengine/pkg/media"
	"github.com/streamforge/codecengine/pkg/webcodec"
)

func encodedPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestBackend_OpenDecodesImageAndReportsSingleTrack(t *testing.T) {
	back := imagedec.New(imagedec.Config{})
	cfg := webcodec.ImageDecoderConfig{Type: "image/png", Data: encodedPNG(t, 4, 3)}

	require.NoError(t, back.Open(context.Background(), cfg))

	tracks, err := back.ProbeTracks(cfg)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, 1, tracks[0].FrameCount)
	assert.True(t, tracks[0].Selected)
}

func TestBackend_SendInputProducesRGBAFrame(t *testing.T) {
	back := imagedec.New(imagedec.Config{})
	cfg := webcodec.ImageDecoderConfig{Type: "image/png", Data: encodedPNG(t, 4, 3)}
	require.NoError(t, back.Open(context.Background(), cfg))

	status, err := back.SendInput(context.Background(), webcodec.ImageRequest{RequestID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, backend.StatusOK, status)

	out, status, err := back.ReceiveOutput(context.Background())
	require.NoError(t, err)
	assert.Equal(t, backend.StatusOK, status)

	result, ok := out.Value.(webcodec.ImageOutput)
	require.True(t, ok)
	assert.Equal(t, "r1", result.RequestID)
	assert.True(t, result.Result.Complete)
	require.NotNil(t, result.Result.Image)
	assert.Equal(t, media.PixelRGBA, result.Result.Image.Format)
	assert.Equal(t, media.Size{Width: 4, Height: 3}, result.Result.Image.CodedSize)
	require.Len(t, result.Result.Image.Planes, 1)
	assert.Equal(t, 4*4, result.Result.Image.Planes[0].Stride)
}

func TestBackend_SendInputRejectsFrameIndexBeyondZero(t *testing.T) {
	back := imagedec.New(imagedec.Config{})
	cfg := webcodec.ImageDecoderConfig{Type: "image/png", Data: encodedPNG(t, 2, 2)}
	require.NoError(t, back.Open(context.Background(), cfg))

	_, err := back.SendInput(context.Background(), webcodec.ImageRequest{RequestID: "r1", Opts: webcodec.DecodeOptions{FrameIndex: 1}})
	assert.Error(t, err)
}

func TestBackend_SendInputRejectsNonZeroTrackIndex(t *testing.T) {
	back := imagedec.New(imagedec.Config{})
	cfg := webcodec.ImageDecoderConfig{Type: "image/png", Data: encodedPNG(t, 2, 2)}
	require.NoError(t, back.Open(context.Background(), cfg))

	_, err := back.SendInput(context.Background(), webcodec.ImageRequest{RequestID: "r1", TrackIndex: 1})
	assert.Error(t, err)
}

func TestBackend_ReceiveOutputAgainWhenEmpty(t *testing.T) {
	back := imagedec.New(imagedec.Config{})
	_, status, err := back.ReceiveOutput(context.Background())
	require.NoError(t, err)
	assert.Equal(t, backend.StatusAgain, status)
}

func TestImageDecoderEndToEndOverRealBackend(t *testing.T) {
	back := imagedec.New(imagedec.Config{})
	cfg := webcodec.ImageDecoderConfig{Type: "image/png", Data: encodedPNG(t, 8, 6)}

	dec, err := webcodec.NewImageDecoder(webcodec.ImageDecoderInit{}, cfg, back, func(fn func()) { fn() })
	require.NoError(t, err)
	defer dec.Close()

	require.Len(t, dec.Tracks(), 1)

	ch, err := dec.Decode(webcodec.DecodeOptions{})
	require.NoError(t, err)
	result := <-ch
	require.NotNil(t, result.Image)
	assert.Equal(t, media.Size{Width: 8, Height: 6}, result.Image.CodedSize)
	assert.True(t, dec.Completed(time.Second))
}
