// Package textutil holds small string helpers shared across reel packages.
package textutil

import "strings"

// fileNameReplacer maps filesystem-unsafe characters to safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName scrubs a source file name so it is safe to store and to
// join into filesystem paths. Separators, colons, and asterisks become
// dashes; the other unsafe characters are dropped; surrounding whitespace is
// trimmed. An empty or all-unsafe name comes back empty.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}
