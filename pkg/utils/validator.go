package utils

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	unsafeName   = regexp.MustCompile(`[^\p{L}\p{N}._\- ()]+`)
)

// maxFilenameLen bounds stored upload names
const maxFilenameLen = 128

// SanitizeString removes control characters and trims surrounding space
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}

// SanitizeFilename reduces a client-supplied upload name to a safe base
// name. The extension is preserved; an empty result becomes fallback.
func SanitizeFilename(name, fallback string) string {
	name = strings.ReplaceAll(SanitizeString(name), "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == "/" {
		return fallback
	}

	name = strings.TrimSpace(unsafeName.ReplaceAllString(name, "_"))
	if name == "" || strings.Trim(name, "._") == "" {
		return fallback
	}

	if len(name) > maxFilenameLen {
		ext := filepath.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		name = name[:maxFilenameLen-len(ext)] + ext
	}
	return name
}
