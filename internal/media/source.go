package media

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SourceHint extracts the lowercase extension of a filename without the
// dot. The hint is informational only; it is never validated against the
// actual content.
func SourceHint(filename string) string {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	return strings.ToLower(strings.TrimSpace(ext))
}

// DeriveTitle produces a display title from a caller-supplied filename by
// stripping the extension, collapsing separator runs into spaces, and
// title-casing the remainder.
func DeriveTitle(filename string) string {
	if filename == "" {
		return "Untitled"
	}
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return "Untitled"
	}
	return cases.Title(language.Und).String(title)
}

// OutputName builds the result filename for a source converted to the
// target format, preserving the source stem.
func OutputName(sourceName string, target Format) string {
	base := filepath.Base(sourceName)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = "converted"
	}
	return stem + "." + target.Extension()
}
