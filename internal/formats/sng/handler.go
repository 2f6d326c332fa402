// Package sng registers the native song format.
package sng

import (
	"strings"

	"github.com/FocuswithJustin/songbook/core/song"
	"github.com/FocuswithJustin/songbook/internal/formats"
	"github.com/FocuswithJustin/songbook/internal/formats/base"
)

// Handler implements formats.Handler for .sng files.
type Handler struct{}

// Register registers this handler with the format registry.
func Register() {
	formats.Register(&Handler{})
}

func init() {
	Register()
}

// ID implements formats.Handler.
func (h *Handler) ID() string { return song.FormatName }

// Extensions implements formats.Handler.
func (h *Handler) Extensions() []string { return []string{".sng"} }

// Detect implements formats.Handler. A file whose first content line is a
// header directive is a song file whatever its name.
func (h *Handler) Detect(path string, data []byte) *formats.DetectResult {
	return base.Detect(path, data, base.DetectConfig{
		Extensions: h.Extensions(),
		FormatName: song.FormatName,
		CustomValidator: func(data []byte) (bool, string) {
			line := base.FirstContentLine(data)
			for _, d := range []string{"#title", "#author", "#category", "#capo"} {
				if line == d || strings.HasPrefix(line, d+" ") || strings.HasPrefix(line, d+"\t") {
					return true, "song directives detected"
				}
			}
			return false, ""
		},
	})
}

// Decode implements formats.Handler. Options are ignored: a song file
// always carries its own category.
func (h *Handler) Decode(data []byte, _ formats.DecodeOptions) (*song.Song, error) {
	return song.ParseBytes(data)
}

// Encode implements formats.Handler.
func (h *Handler) Encode(s *song.Song) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s.Bytes(), nil
}
