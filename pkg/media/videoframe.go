package media

import "github.com/streamforge/codecengine/internal/codecerr"

// PixelFormat enumerates the recognized raw video pixel layouts.
type PixelFormat string

const (
	PixelI420 PixelFormat = "I420"
	PixelI422 PixelFormat = "I422"
	PixelI444 PixelFormat = "I444"
	PixelNV12 PixelFormat = "NV12"
	PixelNV21 PixelFormat = "NV21"
	PixelRGBA PixelFormat = "RGBA"
	PixelBGRA PixelFormat = "BGRA"
	PixelRGBX PixelFormat = "RGBX"
	PixelBGRX PixelFormat = "BGRX"
)

// Size is a width/height pair.
type Size struct {
	Width, Height int
}

// Rect is a rectangular region within a coded picture.
type Rect struct {
	X, Y, Width, Height int
}

// Rotation is one of the four axis-aligned rotations a decoder/encoder can report.
type Rotation int

const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

// Orientation bundles the rotation/flip pair an encoder locks onto after
// its first admitted frame.
type Orientation struct {
	Rotation Rotation
	Flip     bool
}

// Plane is one contiguous row-major image plane.
type Plane struct {
	Data   []byte
	Stride int
}

// VideoFrame is one decoded picture. Content is
// reference-counted; the outer handle is exclusive to its owner until
// explicitly cloned.
type VideoFrame struct {
	handle Handle

	Format      PixelFormat
	CodedSize   Size
	VisibleRect Rect
	DisplaySize Size
	Orientation Orientation
	Timestamp   int64 // microseconds
	Duration    int64 // microseconds, 0 if unknown
	ColorSpace  VideoColorSpace
	Planes      []Plane
}

// NewVideoFrame builds a frame taking ownership of planes (not copied).
func NewVideoFrame(format PixelFormat, coded Size, timestamp int64, planes []Plane) *VideoFrame {
	return &VideoFrame{
		handle:      NewHandle(),
		Format:      format,
		CodedSize:   coded,
		VisibleRect: Rect{0, 0, coded.Width, coded.Height},
		DisplaySize: coded,
		Timestamp:   timestamp,
		Planes:      planes,
	}
}

// AllocationSize reports the total byte size across all planes.
func (f *VideoFrame) AllocationSize() (int, error) {
	if err := f.handle.CheckOpen(); err != nil {
		return 0, err
	}
	total := 0
	for _, p := range f.Planes {
		total += len(p.Data)
	}
	return total, nil
}

// CopyTo copies every plane's bytes, in order, into dest.
func (f *VideoFrame) CopyTo(dest []byte) error {
	if err := f.handle.CheckOpen(); err != nil {
		return err
	}
	size, _ := f.AllocationSize()
	if len(dest) < size {
		return codecerr.New(codecerr.TypeMismatch, "destination buffer too small")
	}
	off := 0
	for _, p := range f.Planes {
		off += copy(dest[off:], p.Data)
	}
	return nil
}

// Clone returns an independent handle sharing the same inner refcount.
func (f *VideoFrame) Clone() (*VideoFrame, error) {
	h, err := f.handle.Clone()
	if err != nil {
		return nil, err
	}
	clone := *f
	clone.handle = h
	return &clone, nil
}

// Close detaches this handle. Idempotent.
func (f *VideoFrame) Close() { f.handle.Close() }

// Detached reports whether Close has been called on this handle.
func (f *VideoFrame) Detached() bool { return f.handle.Detached() }

// Transfer clones f into a new frame and closes f atomically.
func (f *VideoFrame) Transfer() (*VideoFrame, error) {
	clone, err := f.Clone()
	if err != nil {
		return nil, err
	}
	f.Close()
	return clone, nil
}
