package media_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamforge/codecengine/internal/codecerr"
	"github.com/streamforge/codecengine/pkg/media"
)

func TestEncodedChunkCloneIsIndependent(t *testing.T) {
	chunk := media.NewEncodedChunk(media.ChunkKey, 0, 33333, []byte{1, 2, 3})

	clone, err := chunk.Clone()
	require.NoError(t, err)

	chunk.Close()

	assert.True(t, chunk.Detached())
	assert.False(t, clone.Detached())

	n, err := clone.ByteLength()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestEncodedChunkCloseIsIdempotent(t *testing.T) {
	chunk := media.NewEncodedChunk(media.ChunkDelta, 0, 0, nil)
	chunk.Close()
	chunk.Close() // must not panic

	_, err := chunk.ByteLength()
	require.Error(t, err)
	assert.True(t, codecerr.Is(err, codecerr.InvalidState))
}

func TestEncodedChunkCloneOfClosedFails(t *testing.T) {
	chunk := media.NewEncodedChunk(media.ChunkKey, 0, 0, []byte{1})
	chunk.Close()

	_, err := chunk.Clone()
	require.Error(t, err)
	assert.True(t, codecerr.Is(err, codecerr.InvalidState))
}

func TestEncodedChunkTransferDetachesSource(t *testing.T) {
	chunk := media.NewEncodedChunk(media.ChunkKey, 0, 0, []byte{9, 9})

	transferred, err := chunk.Transfer()
	require.NoError(t, err)

	assert.True(t, chunk.Detached())
	assert.False(t, transferred.Detached())
}

func TestVideoFrameCopyToRejectsShortBuffer(t *testing.T) {
	frame := media.NewVideoFrame(media.PixelI420, media.Size{Width: 2, Height: 2}, 0, []media.Plane{
		{Data: make([]byte, 4), Stride: 2},
		{Data: make([]byte, 1), Stride: 1},
		{Data: make([]byte, 1), Stride: 1},
	})

	err := frame.CopyTo(make([]byte, 1))
	require.Error(t, err)
	assert.True(t, codecerr.Is(err, codecerr.TypeMismatch))

	size, err := frame.AllocationSize()
	require.NoError(t, err)
	assert.Equal(t, 6, size)
}

func TestAudioSamplesCloneSharesRefcountThenCloses(t *testing.T) {
	samples := media.NewAudioSamples(media.SampleS16, false, 48000, 2, 1024, 0, [][]byte{make([]byte, 4096)})

	clone, err := samples.Clone()
	require.NoError(t, err)

	samples.Close()
	assert.True(t, samples.Detached())
	assert.False(t, clone.Detached())

	size, err := clone.AllocationSize()
	require.NoError(t, err)
	assert.Equal(t, 4096, size)
}
