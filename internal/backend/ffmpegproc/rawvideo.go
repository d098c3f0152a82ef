package ffmpegproc

import (
	"fmt"
	"io"

	"github.com/streamforge/codecengine/pkg/media"
)

// pixFmt maps a media.PixelFormat to ffmpeg's -pix_fmt name.
func pixFmt(f media.PixelFormat) (string, error) {
	switch f {
	case media.PixelI420:
		return "yuv420p", nil
	case media.PixelI422:
		return "yuv422p", nil
	case media.PixelI444:
		return "yuv444p", nil
	case media.PixelNV12:
		return "nv12", nil
	case media.PixelNV21:
		return "nv21", nil
	case media.PixelRGBA:
		return "rgba", nil
	case media.PixelBGRA:
		return "bgra", nil
	case media.PixelRGBX:
		return "rgb0", nil
	case media.PixelBGRX:
		return "bgr0", nil
	default:
		return "", fmt.Errorf("unsupported pixel format %q", f)
	}
}

// frameLayout describes the packed, unpadded plane layout ffmpeg's rawvideo
// muxer/demuxer uses for one coded frame of a given format and size.
type frameLayout struct {
	planeSizes []int
	strides    []int
	total      int
}

func layoutFor(f media.PixelFormat, width, height int) (frameLayout, error) {
	switch f {
	case media.PixelI420:
		y := width * height
		c := (width / 2) * (height / 2)
		return frameLayout{planeSizes: []int{y, c, c}, strides: []int{width, width / 2, width / 2}, total: y + 2*c}, nil
	case media.PixelI422:
		y := width * height
		c := (width / 2) * height
		return frameLayout{planeSizes: []int{y, c, c}, strides: []int{width, width / 2, width / 2}, total: y + 2*c}, nil
	case media.PixelI444:
		p := width * height
		return frameLayout{planeSizes: []int{p, p, p}, strides: []int{width, width, width}, total: 3 * p}, nil
	case media.PixelNV12, media.PixelNV21:
		y := width * height
		uv := (width / 2) * (height / 2) * 2
		return frameLayout{planeSizes: []int{y, uv}, strides: []int{width, width}, total: y + uv}, nil
	case media.PixelRGBA, media.PixelBGRA, media.PixelRGBX, media.PixelBGRX:
		p := width * height * 4
		return frameLayout{planeSizes: []int{p}, strides: []int{width * 4}, total: p}, nil
	default:
		return frameLayout{}, fmt.Errorf("unsupported pixel format %q", f)
	}
}

// writeRawFrame serializes frame's planes into ffmpeg's expected packed
// layout and writes them to w (ffmpeg's stdin).
func writeRawFrame(w io.Writer, frame *media.VideoFrame) error {
	for _, p := range frame.Planes {
		if _, err := w.Write(p.Data); err != nil {
			return fmt.Errorf("writing raw video plane: %w", err)
		}
	}
	return nil
}

// readRawFrame reads exactly one packed frame of format/size from r (ffmpeg's
// stdout) and wraps it as a VideoFrame with the given timestamp.
func readRawFrame(r io.Reader, format media.PixelFormat, size media.Size, timestamp int64) (*media.VideoFrame, error) {
	layout, err := layoutFor(format, size.Width, size.Height)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, layout.total)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	planes := make([]media.Plane, len(layout.planeSizes))
	off := 0
	for i, sz := range layout.planeSizes {
		planes[i] = media.Plane{Data: buf[off : off+sz], Stride: layout.strides[i]}
		off += sz
	}
	return media.NewVideoFrame(format, size, timestamp, planes), nil
}
