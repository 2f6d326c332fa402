// Package validation checks names and paths taken from song data before
// they are used on the filesystem or inside an archive.
package validation

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode"
)

// MaxNameLength leaves room for the ".sng" extension within the usual
// 255-byte file name limit.
const MaxNameLength = 250

// Common validation errors.
var (
	ErrPathTraversal    = errors.New("path traversal detected")
	ErrInvalidName      = errors.New("invalid name")
	ErrNameTooLong      = errors.New("name too long")
	ErrInvalidCharacter = errors.New("invalid character in name")
	ErrEmptyName        = errors.New("name cannot be empty")
)

// ValidateName checks that name can be used as a single path component:
// a category directory or a song title file name.
func ValidateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrNameTooLong, len(name), MaxNameLength)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%w: reserved name", ErrInvalidName)
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("%w: path separator not allowed", ErrInvalidCharacter)
	}
	for _, r := range name {
		if r == 0 || unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}
	return nil
}

// ArchivePath cleans a slash-separated archive member name and rejects
// names that are absolute or climb out of the archive root.
func ArchivePath(name string) (string, error) {
	if name == "" {
		return "", ErrEmptyName
	}
	if strings.Contains(name, "\x00") {
		return "", fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}
	clean := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if path.IsAbs(clean) {
		return "", fmt.Errorf("%w: absolute path not allowed", ErrPathTraversal)
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrPathTraversal
	}
	if clean == "." {
		return "", ErrEmptyName
	}
	return clean, nil
}
