// Package json registers the JSON song format: one object per song with
// title, category, author, capo and a sections list of
// {lyrics, chords, chorus} objects.
package json

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/FocuswithJustin/songbook/core/errors"
	"github.com/FocuswithJustin/songbook/core/song"
	"github.com/FocuswithJustin/songbook/internal/formats"
	"github.com/FocuswithJustin/songbook/internal/formats/base"
)

// FormatName is the registry ID of the JSON format.
const FormatName = "json"

// Handler implements formats.Handler for JSON song files.
type Handler struct{}

// Register registers this handler with the format registry.
func Register() {
	formats.Register(&Handler{})
}

func init() {
	Register()
}

// ID implements formats.Handler.
func (h *Handler) ID() string { return FormatName }

// Extensions implements formats.Handler.
func (h *Handler) Extensions() []string { return []string{".json"} }

// Detect implements formats.Handler.
func (h *Handler) Detect(path string, data []byte) *formats.DetectResult {
	return base.Detect(path, data, base.DetectConfig{
		Extensions: h.Extensions(),
		FormatName: FormatName,
		CustomValidator: func(data []byte) (bool, string) {
			trimmed := bytes.TrimSpace(data)
			if len(trimmed) == 0 || trimmed[0] != '{' {
				return false, ""
			}
			var probe struct {
				Title    *string         `json:"title"`
				Sections json.RawMessage `json:"sections"`
			}
			if err := json.Unmarshal(trimmed, &probe); err != nil {
				return false, ""
			}
			return probe.Title != nil && probe.Sections != nil, "JSON song object detected"
		},
	})
}

// Decode implements formats.Handler. opts.Category fills in a missing
// category.
func (h *Handler) Decode(data []byte, opts formats.DecodeOptions) (*song.Song, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.NewParse(FormatName, 0, errors.KindMalformedSection, err.Error())
	}
	if m == nil {
		return nil, errors.NewParse(FormatName, 0, errors.KindMalformedSection, "expected a JSON object")
	}
	if _, ok := m["category"]; !ok && opts.Category != "" {
		m["category"] = opts.Category
	}
	return song.FromMap(m)
}

// Encode implements formats.Handler.
func (h *Handler) Encode(s *song.Song) ([]byte, error) {
	data, err := json.MarshalIndent(s.ToMap(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal song: %w", err)
	}
	return append(data, '\n'), nil
}
