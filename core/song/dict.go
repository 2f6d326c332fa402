package song

import (
	"fmt"
	"strconv"

	"github.com/FocuswithJustin/songbook/core/errors"
)

const dictFormat = "song map"

// FromMap builds a song from a loosely typed mapping such as the output of
// json.Unmarshal into map[string]any. Recognized keys are title, author,
// category, capo and sections; each section is a mapping with lyrics,
// chords and chorus. Missing author and capo default to "".
func FromMap(m map[string]any) (*Song, error) {
	title, err := stringField(m, "title")
	if err != nil {
		return nil, err
	}
	category, err := stringField(m, "category")
	if err != nil {
		return nil, err
	}
	if title == "" {
		return nil, errors.NewParse(dictFormat, 0, errors.KindMissingField, "title")
	}
	if category == "" {
		return nil, errors.NewParse(dictFormat, 0, errors.KindMissingField, "category")
	}

	s := New(title, category)
	if s.Author, err = stringField(m, "author"); err != nil {
		return nil, err
	}
	if s.Capo, err = stringField(m, "capo"); err != nil {
		return nil, err
	}

	var raw []map[string]any
	switch v := m["sections"].(type) {
	case nil:
	case []map[string]any:
		raw = v
	case []any:
		raw = make([]map[string]any, len(v))
		for i, item := range v {
			sm, ok := item.(map[string]any)
			if !ok {
				return nil, errors.NewParse(dictFormat, 0, errors.KindMalformedSection,
					fmt.Sprintf("sections[%d] is %T, want a mapping", i, item))
			}
			raw[i] = sm
		}
	default:
		return nil, errors.NewParse(dictFormat, 0, errors.KindMalformedSection,
			fmt.Sprintf("sections is %T, want a list", v))
	}

	for i, sm := range raw {
		sec, err := sectionFromMap(sm)
		if err != nil {
			return nil, errors.Wrapf(err, "sections[%d]", i)
		}
		s.AddSection(sec)
	}
	return s, nil
}

func sectionFromMap(m map[string]any) (Section, error) {
	var (
		sec Section
		err error
	)
	if sec.Lyrics, err = stringField(m, "lyrics"); err != nil {
		return Section{}, err
	}
	if sec.Chords, err = stringField(m, "chords"); err != nil {
		return Section{}, err
	}
	switch v := m["chorus"].(type) {
	case nil:
	case bool:
		sec.Chorus = v
	default:
		return Section{}, errors.NewParse(dictFormat, 0, errors.KindMalformedSection,
			fmt.Sprintf("chorus is %T, want bool", v))
	}
	return sec, nil
}

// stringField reads an optional string value. JSON numbers are accepted
// and formatted, since capo values are often written as bare numbers.
func stringField(m map[string]any, key string) (string, error) {
	switch v := m[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	default:
		return "", errors.NewParse(dictFormat, 0, errors.KindMalformedSection,
			fmt.Sprintf("%s is %T, want string", key, v))
	}
}

// ToMap converts s to the mapping shape FromMap accepts.
func (s *Song) ToMap() map[string]any {
	sections := make([]any, len(s.Sections))
	for i, sec := range s.Sections {
		sections[i] = map[string]any{
			"lyrics": sec.Lyrics,
			"chords": sec.Chords,
			"chorus": sec.Chorus,
		}
	}
	return map[string]any{
		"title":    s.Title,
		"author":   s.Author,
		"category": s.Category,
		"capo":     s.Capo,
		"sections": sections,
	}
}
