package filestore

import (
	"path"
	"path/filepath"
	"strings"

	"voicepdf/internal/apperrors"
)

const maxDisplayNameLen = 255

// SanitizeDisplayName strips a submitted filename to a safe basename: no
// directory separators, no traversal sequences, no NUL bytes, bounded length.
// A name with nothing usable left is rejected rather than invented.
func SanitizeDisplayName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", &apperrors.ValidationError{Message: "filename must not be empty"}
	}

	// Take the basename under both separator conventions; uploads may come
	// from any client OS.
	trimmed = path.Base(filepath.ToSlash(trimmed))
	trimmed = strings.NewReplacer("..", "_", "/", "_", "\\", "_", "\x00", "_").Replace(trimmed)
	trimmed = strings.TrimSpace(trimmed)

	if trimmed == "" || trimmed == "." || strings.Trim(trimmed, "_.") == "" {
		return "", &apperrors.ValidationError{Message: "filename contains no usable characters"}
	}

	if len(trimmed) > maxDisplayNameLen {
		ext := path.Ext(trimmed)
		keep := maxDisplayNameLen - len(ext)
		if keep < 1 {
			keep = 1
		}
		trimmed = trimmed[:keep] + ext
	}
	return trimmed, nil
}
