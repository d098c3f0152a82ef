package media

import "github.com/streamforge/codecengine/internal/codecerr"

// ChunkType distinguishes a chunk decodable independently (key) from one
// that depends on prior decoder state (delta).
type ChunkType string

const (
	ChunkKey   ChunkType = "key"
	ChunkDelta ChunkType = "delta"
)

// EncodedChunk is one network-level unit of encoded media: one compressed
// video access unit, or one audio packet's worth of samples. It is
// immutable and transferable; data is accessed through CopyTo rather than
// exposed directly so a detached chunk cannot be read.
type EncodedChunk struct {
	handle Handle

	Type      ChunkType
	Timestamp int64 // microseconds
	Duration  int64 // microseconds, 0 if unknown
	data      []byte
}

// NewEncodedChunk builds a chunk taking ownership of data (not copied).
func NewEncodedChunk(typ ChunkType, timestamp, duration int64, data []byte) *EncodedChunk {
	return &EncodedChunk{
		handle:    NewHandle(),
		Type:      typ,
		Timestamp: timestamp,
		Duration:  duration,
		data:      data,
	}
}

// IsKey reports whether this chunk is independently decodable.
func (c *EncodedChunk) IsKey() bool { return c.Type == ChunkKey }

// ByteLength returns the chunk payload size, or an InvalidState error if the
// chunk has been closed.
func (c *EncodedChunk) ByteLength() (int, error) {
	if err := c.handle.CheckOpen(); err != nil {
		return 0, err
	}
	return len(c.data), nil
}

// CopyTo copies the chunk's bytes into dest, which must be at least
// ByteLength() in size.
func (c *EncodedChunk) CopyTo(dest []byte) error {
	if err := c.handle.CheckOpen(); err != nil {
		return err
	}
	if len(dest) < len(c.data) {
		return codecerr.New(codecerr.TypeMismatch, "destination buffer too small")
	}
	copy(dest, c.data)
	return nil
}

// Bytes returns the underlying payload without copying. Intended for
// internal backend adapters only; callers of the public façade should use
// CopyTo.
func (c *EncodedChunk) Bytes() []byte { return c.data }

// Clone returns an independent handle sharing the same inner refcount.
func (c *EncodedChunk) Clone() (*EncodedChunk, error) {
	h, err := c.handle.Clone()
	if err != nil {
		return nil, err
	}
	return &EncodedChunk{handle: h, Type: c.Type, Timestamp: c.Timestamp, Duration: c.Duration, data: c.data}, nil
}

// Close detaches this handle. Idempotent.
func (c *EncodedChunk) Close() {
	c.handle.Close()
}

// Detached reports whether Close has been called on this handle.
func (c *EncodedChunk) Detached() bool { return c.handle.Detached() }

// Transfer clones c into a new chunk and closes c atomically, i.e. "clone
// then close the source."
func (c *EncodedChunk) Transfer() (*EncodedChunk, error) {
	clone, err := c.Clone()
	if err != nil {
		return nil, err
	}
	c.Close()
	return clone, nil
}
