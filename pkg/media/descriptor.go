package media

// CodecKind enumerates the coarse codec family a CodecDescriptor names.
type CodecKind string

const (
	KindH264  CodecKind = "h264"
	KindH265  CodecKind = "h265"
	KindVP8   CodecKind = "vp8"
	KindVP9   CodecKind = "vp9"
	KindAV1   CodecKind = "av1"
	KindAAC   CodecKind = "aac"
	KindOpus  CodecKind = "opus"
	KindMP3   CodecKind = "mp3"
	KindAC3   CodecKind = "ac3"
	KindEAC3  CodecKind = "eac3"
	KindFLAC  CodecKind = "flac"
	KindVorbis CodecKind = "vorbis"
	KindPCM   CodecKind = "pcm"
)

// CodecDescriptor is the parsed shape of a codec string, e.g.
// "avc1.42E01E" or "opus". Parsing itself is the external CodecRegistry
// collaborator (internal/registry); this type is the pure value it
// produces.
type CodecDescriptor struct {
	Kind     CodecKind
	Profile  string
	Level    string
	BitDepth int
}

// VideoColorSpace is a pure value describing a frame's colour
// interpretation. Zero values mean "unspecified".
type VideoColorSpace struct {
	Primaries string // bt709, bt470bg, smpte170m, bt2020
	Transfer  string // bt709, smpte170m, iec61966-2-1, pq, hlg
	Matrix    string // rgb, bt709, smpte170m, bt2020-ncl
	FullRange bool
}

// ToJSON renders the color space as a plain map, matching the web API's
// toJSON() convention.
func (c VideoColorSpace) ToJSON() map[string]any {
	return map[string]any{
		"primaries": c.Primaries,
		"transfer":  c.Transfer,
		"matrix":    c.Matrix,
		"fullRange": c.FullRange,
	}
}

// BitrateMode is an encoder's rate-control strategy.
type BitrateMode string

const (
	BitrateConstant  BitrateMode = "constant"
	BitrateVariable  BitrateMode = "variable"
	BitrateQuantizer BitrateMode = "quantizer"
)

// LatencyMode trades encoder buffering for responsiveness.
type LatencyMode string

const (
	LatencyQuality  LatencyMode = "quality"
	LatencyRealtime LatencyMode = "realtime"
)

// HardwareAcceleration is the caller's preference for backend execution.
type HardwareAcceleration string

const (
	HWNoPreference    HardwareAcceleration = "no-preference"
	HWPreferHardware  HardwareAcceleration = "prefer-hardware"
	HWPreferSoftware  HardwareAcceleration = "prefer-software"
)

// DecoderConfig is the caller-supplied, deep-copied configuration passed to
// configure() on a decoder.
type DecoderConfig struct {
	Codec            string
	CodedWidth       int
	CodedHeight      int
	DisplayAspectWidth  int
	DisplayAspectHeight int
	SampleRate       int
	NumberOfChannels int
	Description      []byte // extradata: avcC/hvcC box or AudioSpecificConfig
	HardwareAcceleration HardwareAcceleration
}

// Clone deep-copies a DecoderConfig so callers can't mutate a stored config
// through an aliased slice/pointer field.
func (c DecoderConfig) Clone() DecoderConfig {
	clone := c
	if c.Description != nil {
		clone.Description = append([]byte(nil), c.Description...)
	}
	return clone
}

// EncoderConfig is the caller-supplied, deep-copied configuration passed to
// configure() on an encoder.
type EncoderConfig struct {
	Codec            string
	Width, Height    int
	SampleRate       int
	NumberOfChannels int
	BitrateMode      BitrateMode
	LatencyMode      LatencyMode
	Bitrate          int64
	Framerate        float64
	HardwareAcceleration HardwareAcceleration
}

// Clone deep-copies an EncoderConfig.
func (c EncoderConfig) Clone() EncoderConfig {
	return c
}
