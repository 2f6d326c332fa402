// Package base provides detection helpers shared by the format handlers.
package base

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/FocuswithJustin/songbook/core/errors"
	"github.com/FocuswithJustin/songbook/internal/formats"
)

// DetectConfig contains configuration for format detection.
type DetectConfig struct {
	// Extensions is a list of valid file extensions (e.g., ".sng", ".json")
	Extensions []string
	// ContentMarkers must all be present in the data for a content match
	ContentMarkers []string
	// FormatName is the name to return in DetectResult
	FormatName string
	// CustomValidator is an optional content check run after the markers
	CustomValidator func(data []byte) (bool, string)
}

// Detect checks data first (markers, then the custom validator) and falls
// back to the extension of path.
func Detect(path string, data []byte, config DetectConfig) *formats.DetectResult {
	if len(config.ContentMarkers) > 0 && len(data) > 0 {
		allMarkersFound := true
		for _, marker := range config.ContentMarkers {
			if !bytes.Contains(data, []byte(marker)) {
				allMarkersFound = false
				break
			}
		}
		if allMarkersFound {
			return &formats.DetectResult{
				Detected: true,
				Format:   config.FormatName,
				Reason:   fmt.Sprintf("%s markers detected", config.FormatName),
			}
		}
	}

	if config.CustomValidator != nil && len(data) > 0 {
		if ok, reason := config.CustomValidator(data); ok {
			return &formats.DetectResult{
				Detected: true,
				Format:   config.FormatName,
				Reason:   reason,
			}
		}
	}

	if HasExtension(path, config.Extensions) {
		return &formats.DetectResult{
			Detected: true,
			Format:   config.FormatName,
			Reason:   fmt.Sprintf("%s file extension detected", config.FormatName),
		}
	}

	return &formats.DetectResult{
		Detected: false,
		Reason:   fmt.Sprintf("not a %s file", config.FormatName),
	}
}

// HasExtension reports whether path ends in one of exts, ignoring case.
func HasExtension(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// FirstContentLine returns the first non-blank line of data with a UTF-8
// BOM removed, or "" when there is none.
func FirstContentLine(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	for _, line := range bytes.Split(data, []byte("\n")) {
		if s := strings.TrimSpace(string(line)); s != "" {
			return s
		}
	}
	return ""
}

// UnsupportedOperationError returns a standard error for unsupported operations.
func UnsupportedOperationError(operation, format string) error {
	return errors.NewUnsupported(operation, fmt.Sprintf("%s format does not support %s", format, operation))
}
