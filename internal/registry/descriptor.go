package registry

import (
	"strconv"
	"strings"

	"github.com/streamforge/codecengine/pkg/media"
)

// Parse is the CodecRegistry capability's parse(codecString) → CodecDescriptor?
// resolving codec strings to descriptors. It recognizes the webcodecs-string conventions — dotted
// profile/level/constraint suffixes such as "avc1.42E01E", "hev1.1.6.L93.B0",
// "vp09.00.10.08", "av01.0.04M.08", "mp4a.40.2" — as well as bare codec
// names like "opus", "mp3", "ac-3", "ec-3", "flac", "vorbis". It returns
// ok=false for strings this registry cannot resolve to a known family.
func Parse(codecString string) (media.CodecDescriptor, bool) {
	if codecString == "" {
		return media.CodecDescriptor{}, false
	}
	parts := strings.Split(codecString, ".")
	prefix := strings.ToLower(parts[0])

	switch prefix {
	case "avc1", "avc3":
		return parseAVC(parts)
	case "hev1", "hvc1":
		return parseHEVC(parts)
	case "vp8":
		return media.CodecDescriptor{Kind: media.KindVP8}, true
	case "vp09", "vp9":
		return parseVP9(parts)
	case "av01", "av1":
		return parseAV1(parts)
	case "mp4a":
		return parseMP4A(parts)
	case "opus":
		return media.CodecDescriptor{Kind: media.KindOpus}, true
	case "mp3":
		return media.CodecDescriptor{Kind: media.KindMP3}, true
	case "ac-3":
		return media.CodecDescriptor{Kind: media.KindAC3}, true
	case "ec-3":
		return media.CodecDescriptor{Kind: media.KindEAC3}, true
	case "flac":
		return media.CodecDescriptor{Kind: media.KindFLAC}, true
	case "vorbis":
		return media.CodecDescriptor{Kind: media.KindVorbis}, true
	}

	// Fall back to the alias registry for plain names like "h264"/"hevc".
	if v, ok := ParseVideo(codecString); ok {
		return media.CodecDescriptor{Kind: media.CodecKind(v)}, true
	}
	if a, ok := ParseAudio(codecString); ok {
		return media.CodecDescriptor{Kind: media.CodecKind(a)}, true
	}
	return media.CodecDescriptor{}, false
}

// IsSupported reports whether d names a family this engine can configure a
// backend for, i.e. one of the encode-target codecs the ffmpegproc adapter
// knows how to drive.
func IsSupported(d media.CodecDescriptor) bool {
	switch d.Kind {
	case media.KindH264, media.KindH265, media.KindVP9, media.KindAV1,
		media.KindAAC, media.KindMP3, media.KindAC3, media.KindEAC3, media.KindOpus:
		return true
	default:
		return false
	}
}

// parseAVC decodes "avc1.PPCCLL" — two hex profile-idc bytes, one
// constraint byte, one level-idc byte.
func parseAVC(parts []string) (media.CodecDescriptor, bool) {
	d := media.CodecDescriptor{Kind: media.KindH264}
	if len(parts) < 2 || len(parts[1]) < 6 {
		return d, true
	}
	hex := parts[1]
	profileIDC, err := strconv.ParseInt(hex[0:2], 16, 32)
	if err != nil {
		return d, true
	}
	levelIDC, err := strconv.ParseInt(hex[4:6], 16, 32)
	if err == nil {
		d.Level = formatAVCLevel(int(levelIDC))
	}
	d.Profile = avcProfileName(int(profileIDC))
	d.BitDepth = 8
	return d, true
}

func avcProfileName(profileIDC int) string {
	switch profileIDC {
	case 0x42:
		return "baseline"
	case 0x4D:
		return "main"
	case 0x64:
		return "high"
	case 0x6E:
		return "high-10"
	default:
		return ""
	}
}

func formatAVCLevel(levelIDC int) string {
	// Level values are encoded as idc*10, e.g. 0x1E=30 → "3", 0x33=51 → "5.1".
	major := levelIDC / 10
	minor := levelIDC % 10
	if minor == 0 {
		return strconv.Itoa(major)
	}
	return strconv.Itoa(major) + "." + strconv.Itoa(minor)
}

// parseHEVC decodes "hev1.<profile-space+idc>.<compat-flags>.L<level>.<constraints>".
func parseHEVC(parts []string) (media.CodecDescriptor, bool) {
	d := media.CodecDescriptor{Kind: media.KindH265, BitDepth: 8}
	for _, p := range parts[1:] {
		if strings.HasPrefix(p, "L") {
			d.Level = formatAVCLevel(parseIntOr(p[1:], 0))
		} else if d.Profile == "" && p != "" {
			d.Profile = p
		}
	}
	return d, true
}

// parseVP9 decodes "vp09.PP.LL.DD[...]": profile, level, bit depth.
func parseVP9(parts []string) (media.CodecDescriptor, bool) {
	d := media.CodecDescriptor{Kind: media.KindVP9}
	if len(parts) > 1 {
		d.Profile = parts[1]
	}
	if len(parts) > 2 {
		d.Level = formatAVCLevel(parseIntOr(parts[2], 0))
	}
	if len(parts) > 3 {
		d.BitDepth = parseIntOr(parts[3], 8)
	} else {
		d.BitDepth = 8
	}
	return d, true
}

// parseAV1 decodes "av01.P.LLT.DD[...]": profile, level+tier, bit depth.
func parseAV1(parts []string) (media.CodecDescriptor, bool) {
	d := media.CodecDescriptor{Kind: media.KindAV1, BitDepth: 8}
	if len(parts) > 1 {
		d.Profile = parts[1]
	}
	if len(parts) > 2 && len(parts[2]) >= 2 {
		d.Level = formatAVCLevel(parseIntOr(parts[2][:2], 0))
	}
	if len(parts) > 3 {
		d.BitDepth = parseIntOr(parts[3], 8)
	}
	return d, true
}

// parseMP4A decodes "mp4a.40.2" (AAC-LC) and siblings; the object-type
// suffix after "40." selects the AAC profile.
func parseMP4A(parts []string) (media.CodecDescriptor, bool) {
	d := media.CodecDescriptor{Kind: media.KindAAC}
	if len(parts) > 2 {
		switch parts[2] {
		case "2":
			d.Profile = "LC"
		case "5":
			d.Profile = "HE"
		case "29":
			d.Profile = "HEv2"
		default:
			d.Profile = parts[2]
		}
	}
	return d, true
}

func parseIntOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
