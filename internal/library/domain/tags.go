package domain

import (
	"regexp"
	"strings"
)

var (
	reResolution = regexp.MustCompile(`(?i)(?:^|[^[:alnum:]])(2160p|1080p|720p|480p|4K)(?:[^[:alnum:]]|$)`)
	reCodec      = regexp.MustCompile(`(?i)(?:^|[^[:alnum:]])(x264|x265|h\.?264|h\.?265|AVC|HEVC)(?:[^[:alnum:]]|$)`)
	reAudio      = regexp.MustCompile(`(?i)(?:^|[^[:alnum:]])(E?AC3|DTS|AAC|FLAC|TrueHD|Opus)(?:[^[:alnum:]]|$)`)

	// reReleaseNoise matches release tokens that carry digits or would
	// otherwise be mistaken for an episode number.
	reReleaseNoise = regexp.MustCompile(`(?i)(?:^|[^[:alnum:]])(` +
		`2160p|1080p|720p|480p|4K|` +
		`x264|x265|h\.?264|h\.?265|hi10p?|10bit|8bit|` +
		`E?AC3|DTS|AAC|FLAC|TrueHD|Opus|[257]\.[01]|` +
		`19[0-9]{2}|20[0-9]{2}` +
		`)(?:[^[:alnum:]]|$)`)
)

var canonicalTags = map[string]string{
	"4k":     "4K",
	"x264":   "x264",
	"x265":   "x265",
	"h264":   "H264",
	"h.264":  "H264",
	"h265":   "H265",
	"h.265":  "H265",
	"avc":    "AVC",
	"hevc":   "HEVC",
	"ac3":    "AC3",
	"eac3":   "EAC3",
	"dts":    "DTS",
	"aac":    "AAC",
	"flac":   "FLAC",
	"truehd": "TrueHD",
	"opus":   "Opus",
}

// ExtractTags finds resolution, codec and audio hints in a file path. The
// first occurrence of each kind wins.
func ExtractTags(path string) TechnicalTags {
	return TechnicalTags{
		Resolution: firstTag(reResolution, path),
		Codec:      firstTag(reCodec, path),
		Audio:      firstTag(reAudio, path),
	}
}

func firstTag(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	lower := strings.ToLower(m[1])
	if canonical, ok := canonicalTags[lower]; ok {
		return canonical
	}
	return lower
}

// stripReleaseNoise blanks release tokens so that their digits are not read
// as episode numbers. Matches that share a separator are handled by looping.
func stripReleaseNoise(s string) string {
	for {
		out := reReleaseNoise.ReplaceAllString(s, " ")
		if out == s {
			return out
		}
		s = out
	}
}
