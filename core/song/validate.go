package song

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/FocuswithJustin/songbook/core/errors"
)

// Validate reports the first value in s that the song format cannot carry
// through a Serialize/Parse round trip. A nil result means Parse(Serialize(s))
// is Equal to s.
func (s *Song) Validate() error {
	if s.Title == "" {
		return errors.NewValidation("title", "", "required")
	}
	if s.Category == "" {
		return errors.NewValidation("category", "", "required")
	}
	for _, f := range []struct{ name, value string }{
		{"title", s.Title},
		{"author", s.Author},
		{"category", s.Category},
		{"capo", s.Capo},
	} {
		if err := validateHeader(f.name, f.value); err != nil {
			return err
		}
	}

	for i, sec := range s.Sections {
		for j, ln := range sec.Lines() {
			field := fmt.Sprintf("sections[%d] line %d", i, j+1)
			if err := validateLine(field, ln); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateHeader(name, value string) error {
	if strings.ContainsAny(value, "\r\n") {
		return errors.NewValidation(name, value, "must be a single line")
	}
	if strings.TrimSpace(value) != value {
		return errors.NewValidation(name, value, "must not have surrounding whitespace")
	}
	return nil
}

func validateLine(field string, ln Line) error {
	switch {
	case strings.ContainsRune(ln.Lyric, '\r') || strings.ContainsRune(ln.Chord, '\r'):
		return errors.NewValidation(field, ln.Lyric, "contains a carriage return")
	case strings.HasPrefix(ln.Lyric, "#"):
		return errors.NewValidation(field, ln.Lyric, "lyric must not start with '#'")
	case strings.Contains(ln.Lyric, chordMark):
		return errors.NewValidation(field, ln.Lyric, fmt.Sprintf("lyric must not contain %q", chordMark))
	case strings.TrimRightFunc(ln.Lyric, unicode.IsSpace) != ln.Lyric:
		return errors.NewValidation(field, ln.Lyric, "lyric must not end with whitespace")
	case ln.Chord != "" && strings.HasSuffix(ln.Lyric, "~"):
		return errors.NewValidation(field, ln.Lyric, "lyric ending in '~' is ambiguous before a chord")
	}
	return nil
}
