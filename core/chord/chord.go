// Package chord transposes chord lines of a song by a number of semitones.
//
// A chord token is a root note, an optional quality suffix and an optional
// slash bass note: "C", "Am7", "F#m7b5", "Cadd9/E", "h7", "Bb/D". Roots are
// A to H (H is the German/Polish spelling of B). A lowercase root denotes a
// minor chord in Polish songbooks and its case is kept. Tokens that are not
// chords are copied unchanged, as is all whitespace between tokens.
package chord

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/songbook/core/song"
)

// chordGrammar is the participle grammar for one chord token.
//
//nolint:govet // participle grammar tags are not standard struct tags
type chordGrammar struct {
	Root    string  `@Note`
	Quality string  `@Quality?`
	Bass    *string `( Slash @Note )?`
}

// chordLexer switches to the Tail state after a note so that quality suffixes
// starting with a note letter ("add9", "dim", "aug") are not read as notes.
// Anything outside the known suffix alphabet fails to lex, so words such as
// "Bad" or "Echo" on a chord line are left alone.
var chordLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{Name: "Note", Pattern: `[A-Ha-h][#b]?`, Action: lexer.Push("Tail")},
	},
	"Tail": {
		{Name: "Slash", Pattern: `/`, Action: lexer.Pop()},
		{Name: "Quality", Pattern: `(?:maj|min|dim|aug|sus|add|m|M|[0-9]|[#b+\-()°ø])+`},
	},
})

var chordParser = participle.MustBuild[chordGrammar](
	participle.Lexer(chordLexer),
)

// Chord is a parsed chord token.
type Chord struct {
	Root    Note
	Quality string
	Bass    *Note
}

// Note is a pitch class together with the spelling it was written in.
type Note struct {
	// Pitch is 0 for C up to 11 for B/H.
	Pitch int

	// Lower is true when the letter was written in lowercase.
	Lower bool

	// Flat is true when the note was written with a "b" accidental.
	Flat bool

	// German is true when B natural was written as H.
	German bool
}

var letterPitch = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11, 'H': 11,
}

var (
	sharpNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	flatNames  = [12]string{"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B"}
)

// Parse parses a single chord token. Surrounding whitespace is not allowed.
func Parse(token string) (*Chord, error) {
	if token == "" {
		return nil, fmt.Errorf("empty chord")
	}
	parsed, err := chordParser.ParseString("", token)
	if err != nil {
		return nil, fmt.Errorf("invalid chord %q: %w", token, err)
	}
	c := &Chord{Root: parseNote(parsed.Root), Quality: parsed.Quality}
	if parsed.Bass != nil {
		bass := parseNote(*parsed.Bass)
		c.Bass = &bass
	}
	return c, nil
}

func parseNote(s string) Note {
	letter := s[0]
	upper := byte(unicode.ToUpper(rune(letter)))
	n := Note{
		Pitch:  letterPitch[upper],
		Lower:  letter != upper,
		German: upper == 'H',
	}
	if len(s) > 1 {
		switch s[1] {
		case '#':
			n.Pitch++
		case 'b':
			n.Pitch--
			n.Flat = true
		}
	}
	n.Pitch = mod12(n.Pitch)
	return n
}

// Transpose returns the note shifted by semitones, keeping its spelling style.
func (n Note) Transpose(semitones int) Note {
	n.Pitch = mod12(n.Pitch + semitones)
	return n
}

func (n Note) String() string {
	name := sharpNames[n.Pitch]
	if n.Flat {
		name = flatNames[n.Pitch]
	}
	if n.German && name == "B" {
		name = "H"
	}
	if n.Lower {
		name = strings.ToLower(name[:1]) + name[1:]
	}
	return name
}

// Transpose returns the chord shifted by semitones.
func (c *Chord) Transpose(semitones int) *Chord {
	out := &Chord{Root: c.Root.Transpose(semitones), Quality: c.Quality}
	if c.Bass != nil {
		bass := c.Bass.Transpose(semitones)
		out.Bass = &bass
	}
	return out
}

func (c *Chord) String() string {
	s := c.Root.String() + c.Quality
	if c.Bass != nil {
		s += "/" + c.Bass.String()
	}
	return s
}

// TransposeLine shifts every chord token in line by semitones. Non-chord
// tokens and the whitespace between tokens are left as they are.
func TransposeLine(line string, semitones int) string {
	if mod12(semitones) == 0 || line == "" {
		return line
	}
	var sb strings.Builder
	sb.Grow(len(line))
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		sb.WriteString(transposeToken(line[start:end], semitones))
		start = -1
	}
	for i, r := range line {
		if unicode.IsSpace(r) {
			flush(i)
			sb.WriteRune(r)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(line))
	return sb.String()
}

func transposeToken(tok string, semitones int) string {
	// Bracketed chords such as "(G)" keep their brackets.
	prefix, suffix := "", ""
	core := tok
	if strings.HasPrefix(core, "(") && strings.HasSuffix(core, ")") && len(core) > 2 {
		prefix, suffix = "(", ")"
		core = core[1 : len(core)-1]
	}
	c, err := Parse(core)
	if err != nil {
		return tok
	}
	return prefix + c.Transpose(semitones).String() + suffix
}

// TransposeText applies TransposeLine to each line of a newline-separated
// chord block.
func TransposeText(text string, semitones int) string {
	lines := strings.Split(text, "\n")
	for i, ln := range lines {
		lines[i] = TransposeLine(ln, semitones)
	}
	return strings.Join(lines, "\n")
}

// TransposeSong returns a copy of s with every section's chords shifted by
// semitones. Lyrics and header fields are not touched.
func TransposeSong(s *song.Song, semitones int) *song.Song {
	out := s.Clone()
	for i := range out.Sections {
		out.Sections[i].Chords = TransposeText(out.Sections[i].Chords, semitones)
	}
	return out
}

func mod12(n int) int {
	n %= 12
	if n < 0 {
		n += 12
	}
	return n
}
