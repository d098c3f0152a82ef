package pool_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/streamforge/codecengine/internal/pool"
)

func TestFramePoolReusesReleasedBuffer(t *testing.T) {
	p := pool.NewFramePool(2)

	buf := p.Acquire(1920, 1080, 4096)
	assert.Len(t, buf, 4096)
	p.Release(1920, 1080, buf)

	reused := p.Acquire(1920, 1080, 2048)
	assert.Len(t, reused, 2048)

	stats := p.Stats()
	assert.Equal(t, uint64(2), stats.Acquires)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Releases)
}

func TestFramePoolDropsBeyondBucketCap(t *testing.T) {
	p := pool.NewFramePool(1)

	a := p.Acquire(640, 480, 100)
	b := p.Acquire(640, 480, 100)
	p.Release(640, 480, a)
	p.Release(640, 480, b) // bucket already holds one, this one is dropped

	assert.Equal(t, uint64(2), p.Stats().Releases)
}

func TestFramePoolHighWaterCountsConcurrentMisses(t *testing.T) {
	p := pool.NewFramePool(1)

	a := p.Acquire(640, 480, 100)
	b := p.Acquire(640, 480, 100) // bucket still empty, second miss outstanding alongside a

	stats := p.Stats()
	assert.Equal(t, uint64(2), stats.HighWater)

	p.Release(640, 480, a)
	p.Release(640, 480, b)
	assert.Equal(t, uint64(2), p.Stats().HighWater)
}

func TestPacketPoolAcquireRelease(t *testing.T) {
	p := pool.NewPacketPool(4)

	buf := p.Acquire(256)
	assert.Len(t, buf, 256)
	p.Release(buf)

	reused := p.Acquire(128)
	assert.Len(t, reused, 128)

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Misses)
}
