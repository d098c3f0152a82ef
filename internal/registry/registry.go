// Package registry implements the CodecRegistry capability the control
// engine depends on (parse(codecString) → CodecDescriptor?,
// isSupported(descriptor) → bool). It is adapted from a unified
// codec registry (internal/codec/codec.go), keeping its alias-index and
// normalization machinery and layering a CodecDescriptor parser on top that
// understands the webcodecs-string profile/level suffix conventions
// (avc1.42E01E, hev1.1.6.L93.B0, mp4a.40.2, ...).
package registry

import "strings"

// Video represents a video codec family.
type Video string

const (
	VideoH264 Video = "h264"
	VideoH265 Video = "h265"
	VideoVP8  Video = "vp8"
	VideoVP9  Video = "vp9"
	VideoAV1  Video = "av1"

	VideoMPEG1  Video = "mpeg1"
	VideoMPEG2  Video = "mpeg2"
	VideoMPEG4  Video = "mpeg4"
	VideoVC1    Video = "vc1"
	VideoProRes Video = "prores"
	VideoDNxHD  Video = "dnxhd"
	VideoTheora Video = "theora"
)

// Audio represents an audio codec family.
type Audio string

const (
	AudioAAC    Audio = "aac"
	AudioMP3    Audio = "mp3"
	AudioAC3    Audio = "ac3"
	AudioEAC3   Audio = "eac3"
	AudioOpus   Audio = "opus"
	AudioVorbis Audio = "vorbis"
	AudioFLAC   Audio = "flac"
	AudioDTS    Audio = "dts"
	AudioTrueHD Audio = "truehd"
	AudioPCM    Audio = "pcm"
)

// Container represents a media container format the backend adapter can
// mux into or demux from.
type Container string

const (
	ContainerAuto   Container = "auto"
	ContainerFMP4   Container = "fmp4"
	ContainerMPEGTS Container = "mpegts"
)

// HWAccel represents a caller's hardware acceleration request, mapped from
// media.HardwareAcceleration into an ffmpeg-specific value during backend
// configuration.
type HWAccel string

const (
	HWAccelAuto  HWAccel = "auto"
	HWAccelNone  HWAccel = "none"
	HWAccelCUDA  HWAccel = "cuda"
	HWAccelQSV   HWAccel = "qsv"
	HWAccelVAAPI HWAccel = "vaapi"
	HWAccelVT    HWAccel = "videotoolbox"
)

func (v Video) String() string     { return string(v) }
func (a Audio) String() string     { return string(a) }
func (c Container) String() string { return string(c) }
func (h HWAccel) String() string   { return string(h) }

// videoInfo is metadata about one video codec family.
type videoInfo struct {
	Name             Video
	Aliases          []string
	Encoders         map[HWAccel]string
	FMP4Only         bool
	Demuxable        bool
	MPEGTSStreamType uint8
}

// audioInfo is metadata about one audio codec family.
type audioInfo struct {
	Name             Audio
	Aliases          []string
	Encoder          string
	FMP4Only         bool
	Demuxable        bool
	MPEGTSStreamType uint8
}

// MPEG-TS stream type constants.
const (
	StreamTypeH264 uint8 = 0x1B
	StreamTypeH265 uint8 = 0x24
	StreamTypeAAC  uint8 = 0x0F
	StreamTypeAC3  uint8 = 0x81
	StreamTypeEAC3 uint8 = 0x87
	StreamTypeMP3  uint8 = 0x03
)

var videoRegistry = map[Video]*videoInfo{
	VideoH264: {
		Name: VideoH264,
		Aliases: []string{
			"h264", "avc", "avc1", "avc3", "h.264",
			"libx264", "h264_nvenc", "h264_qsv", "h264_vaapi",
			"h264_videotoolbox", "h264_amf", "h264_mf", "h264_omx", "h264_v4l2m2m",
		},
		Encoders: map[HWAccel]string{
			HWAccelNone:  "libx264",
			HWAccelAuto:  "libx264",
			HWAccelCUDA:  "h264_nvenc",
			HWAccelQSV:   "h264_qsv",
			HWAccelVAAPI: "h264_vaapi",
			HWAccelVT:    "h264_videotoolbox",
		},
		Demuxable:        true,
		MPEGTSStreamType: StreamTypeH264,
	},
	VideoH265: {
		Name: VideoH265,
		Aliases: []string{
			"h265", "hevc", "hev1", "hvc1", "h.265",
			"libx265", "hevc_nvenc", "hevc_qsv", "hevc_vaapi",
			"hevc_videotoolbox", "hevc_amf", "hevc_mf", "hevc_v4l2m2m",
		},
		Encoders: map[HWAccel]string{
			HWAccelNone:  "libx265",
			HWAccelAuto:  "libx265",
			HWAccelCUDA:  "hevc_nvenc",
			HWAccelQSV:   "hevc_qsv",
			HWAccelVAAPI: "hevc_vaapi",
			HWAccelVT:    "hevc_videotoolbox",
		},
		Demuxable:        true,
		MPEGTSStreamType: StreamTypeH265,
	},
	VideoVP8: {
		Name:     VideoVP8,
		Aliases:  []string{"vp8", "libvpx"},
		Encoders: map[HWAccel]string{HWAccelNone: "libvpx", HWAccelAuto: "libvpx"},
		FMP4Only: true,
	},
	VideoVP9: {
		Name:    VideoVP9,
		Aliases: []string{"vp9", "vp09", "libvpx-vp9", "vp9_qsv", "vp9_vaapi"},
		Encoders: map[HWAccel]string{
			HWAccelNone:  "libvpx-vp9",
			HWAccelAuto:  "libvpx-vp9",
			HWAccelQSV:   "vp9_qsv",
			HWAccelVAAPI: "vp9_vaapi",
		},
		FMP4Only: true,
	},
	VideoAV1: {
		Name: VideoAV1,
		Aliases: []string{
			"av1", "av01",
			"libaom-av1", "libsvtav1", "librav1e",
			"av1_nvenc", "av1_qsv", "av1_vaapi", "av1_amf",
		},
		Encoders: map[HWAccel]string{
			HWAccelNone:  "libaom-av1",
			HWAccelAuto:  "libaom-av1",
			HWAccelCUDA:  "av1_nvenc",
			HWAccelQSV:   "av1_qsv",
			HWAccelVAAPI: "av1_vaapi",
		},
		FMP4Only: true,
	},
	VideoMPEG1: {
		Name:             VideoMPEG1,
		Aliases:          []string{"mpeg1", "mpeg1video"},
		Encoders:         map[HWAccel]string{HWAccelNone: "mpeg1video"},
		Demuxable:        true,
		MPEGTSStreamType: 0x01,
	},
	VideoMPEG2: {
		Name:             VideoMPEG2,
		Aliases:          []string{"mpeg2", "mpeg2video"},
		Encoders:         map[HWAccel]string{HWAccelNone: "mpeg2video"},
		Demuxable:        true,
		MPEGTSStreamType: 0x02,
	},
	VideoMPEG4: {
		Name:             VideoMPEG4,
		Aliases:          []string{"mpeg4"},
		Encoders:         map[HWAccel]string{HWAccelNone: "mpeg4"},
		Demuxable:        true,
		MPEGTSStreamType: 0x10,
	},
	VideoVC1: {
		Name:    VideoVC1,
		Aliases: []string{"vc1", "wmv3"},
	},
	VideoProRes: {
		Name:     VideoProRes,
		Aliases:  []string{"prores", "prores_ks"},
		Encoders: map[HWAccel]string{HWAccelNone: "prores_ks"},
		FMP4Only: true,
	},
	VideoDNxHD: {
		Name:     VideoDNxHD,
		Aliases:  []string{"dnxhd", "dnxhr"},
		Encoders: map[HWAccel]string{HWAccelNone: "dnxhd"},
		FMP4Only: true,
	},
	VideoTheora: {
		Name:     VideoTheora,
		Aliases:  []string{"theora", "libtheora"},
		Encoders: map[HWAccel]string{HWAccelNone: "libtheora"},
		FMP4Only: true,
	},
}

var audioRegistry = map[Audio]*audioInfo{
	AudioAAC: {
		Name:             AudioAAC,
		Aliases:          []string{"aac", "mp4a", "libfdk_aac", "aac_at"},
		Encoder:          "aac",
		Demuxable:        true,
		MPEGTSStreamType: StreamTypeAAC,
	},
	AudioMP3: {
		Name:             AudioMP3,
		Aliases:          []string{"mp3", "mp3float", "libmp3lame"},
		Encoder:          "libmp3lame",
		Demuxable:        true,
		MPEGTSStreamType: StreamTypeMP3,
	},
	AudioAC3: {
		Name:             AudioAC3,
		Aliases:          []string{"ac3", "ac-3", "a52", "ac3_fixed"},
		Encoder:          "ac3",
		Demuxable:        true,
		MPEGTSStreamType: StreamTypeAC3,
	},
	AudioEAC3: {
		Name:             AudioEAC3,
		Aliases:          []string{"eac3", "ec-3"},
		Encoder:          "eac3",
		MPEGTSStreamType: StreamTypeEAC3,
	},
	AudioOpus: {
		Name:      AudioOpus,
		Aliases:   []string{"opus", "libopus"},
		Encoder:   "libopus",
		FMP4Only:  true,
		Demuxable: true,
	},
	AudioVorbis: {
		Name:    AudioVorbis,
		Aliases: []string{"vorbis", "libvorbis"},
		Encoder: "libvorbis",
		FMP4Only: true,
	},
	AudioFLAC: {
		Name:     AudioFLAC,
		Aliases:  []string{"flac", "libflac"},
		Encoder:  "flac",
		FMP4Only: true,
	},
	AudioDTS: {
		Name:             AudioDTS,
		Aliases:          []string{"dts", "dca"},
		Encoder:          "dca",
		MPEGTSStreamType: 0x82,
	},
	AudioTrueHD: {
		Name:     AudioTrueHD,
		Aliases:  []string{"truehd", "mlp"},
		Encoder:  "truehd",
		FMP4Only: true,
	},
	AudioPCM: {
		Name:     AudioPCM,
		Aliases:  []string{"pcm", "pcm_s16le", "pcm_s24le", "pcm_s32le"},
		Encoder:  "pcm_s16le",
		FMP4Only: true,
	},
}

var videoAliasIndex map[string]Video
var audioAliasIndex map[string]Audio

func init() {
	videoAliasIndex = make(map[string]Video)
	for codec, info := range videoRegistry {
		for _, alias := range info.Aliases {
			videoAliasIndex[strings.ToLower(alias)] = codec
		}
	}

	audioAliasIndex = make(map[string]Audio)
	for codec, info := range audioRegistry {
		for _, alias := range info.Aliases {
			audioAliasIndex[strings.ToLower(alias)] = codec
		}
	}
}

// ParseVideo parses a codec name, alias, or encoder name to a Video family.
func ParseVideo(s string) (Video, bool) {
	if s == "" {
		return "", false
	}
	codec, ok := videoAliasIndex[strings.ToLower(strings.TrimSpace(s))]
	return codec, ok
}

// ParseAudio parses a codec name, alias, or encoder name to an Audio family.
func ParseAudio(s string) (Audio, bool) {
	if s == "" {
		return "", false
	}
	codec, ok := audioAliasIndex[strings.ToLower(strings.TrimSpace(s))]
	return codec, ok
}

// Normalize converts any codec string (encoder name, alias) to its
// canonical form. Returns the input unchanged if not recognized.
func Normalize(name string) string {
	if name == "" {
		return name
	}
	lower := strings.ToLower(name)
	if codec, ok := videoAliasIndex[lower]; ok {
		return string(codec)
	}
	if codec, ok := audioAliasIndex[lower]; ok {
		return string(codec)
	}
	return name
}

// GetVideoEncoder returns the FFmpeg encoder name for a video codec with the
// given hardware acceleration, falling back to software if unsupported.
func GetVideoEncoder(v Video, hwaccel HWAccel) string {
	info, ok := videoRegistry[v]
	if !ok {
		return string(v)
	}
	if info.Encoders == nil {
		return ""
	}
	if encoder, ok := info.Encoders[hwaccel]; ok {
		return encoder
	}
	if encoder, ok := info.Encoders[HWAccelNone]; ok {
		return encoder
	}
	return string(v)
}

// GetAudioEncoder returns the FFmpeg encoder name for an audio codec.
func GetAudioEncoder(a Audio) string {
	info, ok := audioRegistry[a]
	if !ok {
		return string(a)
	}
	return info.Encoder
}

// IsFMP4Only reports whether v cannot be carried in MPEG-TS.
func (v Video) IsFMP4Only() bool {
	if info, ok := videoRegistry[v]; ok {
		return info.FMP4Only
	}
	return false
}

// IsFMP4Only reports whether a cannot be carried in MPEG-TS.
func (a Audio) IsFMP4Only() bool {
	if info, ok := audioRegistry[a]; ok {
		return info.FMP4Only
	}
	return false
}

// IsDemuxable reports whether v can be demuxed from MPEG-TS by mediacommon.
func (v Video) IsDemuxable() bool {
	if info, ok := videoRegistry[v]; ok {
		return info.Demuxable
	}
	return true
}

// IsDemuxable reports whether a can be demuxed from MPEG-TS by mediacommon.
func (a Audio) IsDemuxable() bool {
	if info, ok := audioRegistry[a]; ok {
		return info.Demuxable
	}
	return false
}

// MPEGTSStreamType returns the MPEG-TS stream type id for v, 0 if unsupported.
func (v Video) MPEGTSStreamType() uint8 {
	if info, ok := videoRegistry[v]; ok {
		return info.MPEGTSStreamType
	}
	return 0
}

// MPEGTSStreamType returns the MPEG-TS stream type id for a, 0 if unsupported.
func (a Audio) MPEGTSStreamType() uint8 {
	if info, ok := audioRegistry[a]; ok {
		return info.MPEGTSStreamType
	}
	return 0
}

// Match reports whether two codec strings represent the same codec, after
// alias/encoder-name normalization.
func Match(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(Normalize(a), Normalize(b))
}

// SupportedEncodingVideoCodecs lists video codecs supported as encode
// targets by the backend adapter.
func SupportedEncodingVideoCodecs() []Video {
	return []Video{VideoH264, VideoH265, VideoVP9, VideoAV1}
}

// SupportedEncodingAudioCodecs lists audio codecs supported as encode
// targets by the backend adapter.
func SupportedEncodingAudioCodecs() []Audio {
	return []Audio{AudioAAC, AudioMP3, AudioAC3, AudioEAC3, AudioOpus}
}

// ParseHWAccel parses a hardware acceleration string.
func ParseHWAccel(s string) (HWAccel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto":
		return HWAccelAuto, true
	case "none":
		return HWAccelNone, true
	case "cuda":
		return HWAccelCUDA, true
	case "qsv":
		return HWAccelQSV, true
	case "vaapi":
		return HWAccelVAAPI, true
	case "videotoolbox":
		return HWAccelVT, true
	default:
		return "", false
	}
}
