package logbook

import (
	"strings"
	"unicode"
)

// SafeFileName synthesizes a storage key for a downloaded attachment.
//
// The name embeds the receipt timestamp (colons removed) so concurrent
// events cannot collide, then drops every character that is not
// alphanumeric, '.', '_', or '-'. The filter is idempotent.
func SafeFileName(baseName, timestamp, ext string) string {
	return sanitizeFileName(baseName + "_" + strings.ReplaceAll(timestamp, ":", "") + ext)
}

func sanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}

	return b.String()
}
