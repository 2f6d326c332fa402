package song

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/FocuswithJustin/songbook/core/errors"
)

// FormatName is the format identifier used in parse errors.
const FormatName = "sng"

// chordMark separates the lyric from the chord annotation on a body line.
const chordMark = "~ "

type directive int

const (
	dirUnknown directive = iota
	dirTitle
	dirAuthor
	dirCategory
	dirCapo
	dirVerse
	dirChorus
)

var directives = map[string]directive{
	"title":    dirTitle,
	"author":   dirAuthor,
	"category": dirCategory,
	"capo":     dirCapo,
	"verse":    dirVerse,
	"chorus":   dirChorus,
}

func (d directive) isSection() bool {
	return d == dirVerse || d == dirChorus
}

func (d directive) String() string {
	for name, v := range directives {
		if v == d {
			return "#" + name
		}
	}
	return "#?"
}

type scanState int

const (
	awaitingDirective scanState = iota
	inField
	inSectionBody
)

// parser is a single-pass line scanner. Each directive line closes the
// current block and opens a new one; the body of the open block accumulates
// in body (sections) or value (fields).
type parser struct {
	state     scanState
	cur       directive
	value     string
	valueLine int
	body      []string

	song Song
}

// Parse parses song-format text. It returns a *errors.ParseError of kind
// MissingField, UnknownDirective or MalformedSection on failure; no partial
// song is returned.
func Parse(text string) (*Song, error) {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	lines := strings.Split(text, "\n")
	// The final line break terminates the last line; it does not open a new one.
	if n := len(lines); lines[n-1] == "" {
		lines = lines[:n-1]
	}

	p := &parser{song: Song{Sections: []Section{}}}
	for i, line := range lines {
		if err := p.feed(i+1, line); err != nil {
			return nil, err
		}
	}
	p.closeBlock()

	if p.song.Title == "" {
		return nil, errors.NewParse(FormatName, 0, errors.KindMissingField, "no #title")
	}
	if p.song.Category == "" {
		return nil, errors.NewParse(FormatName, 0, errors.KindMissingField, "no #category")
	}
	s := p.song
	return &s, nil
}

// ParseBytes parses UTF-8 encoded song-format data.
func ParseBytes(data []byte) (*Song, error) {
	return Parse(string(data))
}

func (p *parser) feed(n int, line string) error {
	if strings.HasPrefix(line, "#") {
		d, rest := splitDirective(line)
		if d == dirUnknown {
			return errors.NewParse(FormatName, n, errors.KindUnknownDirective, fmt.Sprintf("%q", firstWord(line)))
		}
		p.closeBlock()
		p.open(n, d, rest)
		return nil
	}

	switch p.state {
	case awaitingDirective:
		if !isBlank(line) {
			return errors.NewParse(FormatName, n, errors.KindUnknownDirective, "content before first directive")
		}
	case inField:
		if isBlank(line) {
			return nil
		}
		if p.value != "" {
			return errors.NewParse(FormatName, n, errors.KindMalformedSection,
				fmt.Sprintf("%s takes a single line, already have %q from line %d", p.cur, p.value, p.valueLine))
		}
		p.value = strings.TrimSpace(line)
		p.valueLine = n
	case inSectionBody:
		p.body = append(p.body, line)
	}
	return nil
}

func (p *parser) open(n int, d directive, rest string) {
	p.cur = d
	p.value = ""
	p.valueLine = 0
	p.body = nil

	if d.isSection() {
		p.state = inSectionBody
		if !isBlank(rest) {
			p.body = append(p.body, strings.TrimLeftFunc(rest, unicode.IsSpace))
		}
		return
	}
	p.state = inField
	if v := strings.TrimSpace(rest); v != "" {
		p.value = v
		p.valueLine = n
	}
}

func (p *parser) closeBlock() {
	switch p.state {
	case inField:
		switch p.cur {
		case dirTitle:
			p.song.Title = p.value
		case dirAuthor:
			p.song.Author = p.value
		case dirCategory:
			p.song.Category = p.value
		case dirCapo:
			p.song.Capo = p.value
		}
	case inSectionBody:
		p.song.Sections = append(p.song.Sections, buildSection(p.body, p.cur == dirChorus))
	}
	p.state = awaitingDirective
}

// buildSection drops the blank separator line that ends a block and splits
// the remaining lines into lyric and chord blocks.
func buildSection(body []string, chorus bool) Section {
	if n := len(body); n > 0 && isBlank(body[n-1]) {
		body = body[:n-1]
	}
	lyrics := make([]string, len(body))
	chords := make([]string, len(body))
	for i, line := range body {
		lyric, chord, _ := strings.Cut(line, chordMark)
		lyrics[i] = strings.TrimRightFunc(lyric, unicode.IsSpace)
		chords[i] = chord
	}
	return Section{
		Lyrics: strings.Join(lyrics, "\n"),
		Chords: strings.Join(chords, "\n"),
		Chorus: chorus,
	}
}

// splitDirective matches "#keyword" at the start of line. The keyword must be
// followed by whitespace or the end of the line.
func splitDirective(line string) (directive, string) {
	word := firstWord(line)
	d, ok := directives[strings.TrimPrefix(word, "#")]
	if !ok {
		return dirUnknown, ""
	}
	return d, line[len(word):]
}

func firstWord(line string) string {
	if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
		return line[:i]
	}
	return line
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
