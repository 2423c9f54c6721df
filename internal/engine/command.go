package engine

import (
	"strings"

	"reel/internal/media"
)

// BuildArgs assembles the engine argument list for one conversion. The
// sequence is fixed: input reference, quality tuning, codec selection,
// overwrite flag, output reference. The engine applies options positionally,
// so callers must not reorder the result.
func BuildArgs(inputPath, outputPath string, target media.Format, quality media.Quality) []string {
	args := []string{"-i", inputPath}
	args = append(args, qualityFlags(quality)...)
	args = append(args, codecFlags(target)...)
	return append(args, "-y", outputPath)
}

func qualityFlags(quality media.Quality) []string {
	switch quality {
	case media.QualityHigh:
		return []string{"-crf", "18", "-preset", "slow"}
	case media.QualityLow:
		return []string{"-crf", "28", "-preset", "fast"}
	default:
		return []string{"-crf", "23", "-preset", "medium"}
	}
}

// codecFlags maps a target container to its codec pairing. Containers
// without a dedicated pairing use the H.264/AAC default; no supported format
// is ever rejected.
func codecFlags(target media.Format) []string {
	switch target {
	case media.FormatWebM:
		return []string{"-c:v", "libvpx-vp9", "-c:a", "libopus"}
	case media.FormatAVI:
		return []string{"-c:v", "libx264", "-c:a", "libmp3lame"}
	case media.FormatMOV:
		return []string{"-c:v", "libx264", "-c:a", "aac", "-movflags", "+faststart"}
	default:
		return []string{"-c:v", "libx264", "-c:a", "aac"}
	}
}

// CodecSummary describes the codec pairing for a target format in display
// terms, derived from the flags the engine actually passes.
func CodecSummary(target media.Format) string {
	flags := codecFlags(target)
	var video, audio string
	for i := 0; i+1 < len(flags); i += 2 {
		switch flags[i] {
		case "-c:v":
			video = codecName(flags[i+1])
		case "-c:a":
			audio = codecName(flags[i+1])
		}
	}
	if video == "" || audio == "" {
		return ""
	}
	return video + " / " + audio
}

// QualitySummary describes the encoder tuning behind a quality preset,
// derived from the flags the engine actually passes.
func QualitySummary(quality media.Quality) string {
	flags := qualityFlags(quality)
	parts := make([]string, 0, len(flags)/2)
	for i := 0; i+1 < len(flags); i += 2 {
		parts = append(parts, strings.TrimPrefix(flags[i], "-")+" "+flags[i+1])
	}
	return strings.Join(parts, ", ")
}

func codecName(lib string) string {
	switch lib {
	case "libx264":
		return "H.264"
	case "libvpx-vp9":
		return "VP9"
	case "aac":
		return "AAC"
	case "libopus":
		return "Opus"
	case "libmp3lame":
		return "MP3"
	default:
		return lib
	}
}
