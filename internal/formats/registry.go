// Package formats holds the registry of song format handlers. Handlers live
// in subpackages and register themselves from init, so importing a handler
// package for its side effect makes the format available.
package formats

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/FocuswithJustin/songbook/core/errors"
	"github.com/FocuswithJustin/songbook/core/song"
)

// Handler converts between one file format and *song.Song.
type Handler interface {
	// ID is the short name used on the command line, e.g. "sng".
	ID() string

	// Extensions lists the lowercase file extensions, with leading dot.
	Extensions() []string

	// Detect reports whether data at path looks like this format.
	Detect(path string, data []byte) *DetectResult

	// Decode builds a song from data.
	Decode(data []byte, opts DecodeOptions) (*song.Song, error)

	// Encode renders s. Import-only formats return an *errors.UnsupportedError.
	Encode(s *song.Song) ([]byte, error)
}

// DecodeOptions carries values a format may not store itself.
type DecodeOptions struct {
	// Category is used when the source has no category of its own.
	Category string
}

// DetectResult is the outcome of a Detect call.
type DetectResult struct {
	Detected bool   `json:"detected"`
	Format   string `json:"format,omitempty"`
	Reason   string `json:"reason"`
}

var (
	mu       sync.RWMutex
	registry = make(map[string]Handler)
)

// Register adds h, replacing any handler with the same ID.
func Register(h Handler) {
	mu.Lock()
	defer mu.Unlock()
	registry[h.ID()] = h
}

// Get returns the handler registered under id.
func Get(id string) (Handler, error) {
	mu.RLock()
	defer mu.RUnlock()
	h, ok := registry[strings.ToLower(id)]
	if !ok {
		return nil, errors.NewNotFound("format", id)
	}
	return h, nil
}

// List returns all handlers ordered by ID.
func List() []Handler {
	mu.RLock()
	defer mu.RUnlock()
	result := make([]Handler, 0, len(registry))
	for _, h := range registry {
		result = append(result, h)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}

// ForPath returns the handler whose extensions include the extension of path.
func ForPath(path string) (Handler, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, h := range List() {
		for _, e := range h.Extensions() {
			if e == ext {
				return h, nil
			}
		}
	}
	return nil, errors.NewNotFound("format for extension", ext)
}

// Detect asks every handler about data and returns the first one that
// recognizes it. Handlers are tried in ID order.
func Detect(path string, data []byte) (Handler, *DetectResult, error) {
	for _, h := range List() {
		if res := h.Detect(path, data); res != nil && res.Detected {
			return h, res, nil
		}
	}
	return nil, nil, errors.NewNotFound("format", filepath.Base(path))
}

// Unregister removes a handler (for testing).
func Unregister(id string) {
	mu.Lock()
	defer mu.Unlock()
	delete(registry, id)
}
