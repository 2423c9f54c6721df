package media

import (
	"fmt"
	"sort"
	"strings"
)

// Format is a target container format for a conversion job.
type Format string

const (
	FormatMP4  Format = "mp4"
	FormatAVI  Format = "avi"
	FormatMOV  Format = "mov"
	FormatWMV  Format = "wmv"
	FormatWebM Format = "webm"
	FormatMKV  Format = "mkv"
	FormatFLV  Format = "flv"
	FormatM4V  Format = "m4v"
)

var allFormats = []Format{
	FormatMP4,
	FormatAVI,
	FormatMOV,
	FormatWMV,
	FormatWebM,
	FormatMKV,
	FormatFLV,
	FormatM4V,
}

var formatSet = func() map[Format]struct{} {
	set := make(map[Format]struct{}, len(allFormats))
	for _, format := range allFormats {
		set[format] = struct{}{}
	}
	return set
}()

// Formats returns the supported target formats in display order.
func Formats() []Format {
	cp := make([]Format, len(allFormats))
	copy(cp, allFormats)
	return cp
}

// ParseFormat converts a string into a known Format.
func ParseFormat(value string) (Format, bool) {
	normalized := Format(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := formatSet[normalized]
	return normalized, ok
}

// Extension returns the filename extension for the format, without the dot.
func (f Format) Extension() string {
	return string(f)
}

// String implements fmt.Stringer.
func (f Format) String() string {
	return string(f)
}

// FormatNames returns the supported format names, sorted for error messages.
func FormatNames() []string {
	names := make([]string, 0, len(allFormats))
	for _, format := range allFormats {
		names = append(names, string(format))
	}
	sort.Strings(names)
	return names
}

// ErrUnknownFormat builds a stable error for an unrecognized format value.
func ErrUnknownFormat(value string) error {
	return fmt.Errorf("unknown target format %q (supported: %s)", value, strings.Join(FormatNames(), ", "))
}
