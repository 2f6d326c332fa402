package song

import (
	"slices"
	"strings"
)

// Song is a parsed song: header fields plus an ordered list of sections.
type Song struct {
	// Title identifies the song within its category. Required.
	Title string `json:"title"`

	// Category groups songs; storage uses it as a directory name. Required.
	Category string `json:"category"`

	// Author defaults to "" when the source has no #author directive.
	Author string `json:"author"`

	// Capo is a free-form annotation such as "2" or "II fret". Never validated.
	Capo string `json:"capo"`

	// Sections in sung order. Never nil for songs built by New or Parse.
	Sections []Section `json:"sections"`
}

// Section is a verse or chorus block.
type Section struct {
	// Lyrics holds newline-separated lyric lines. Empty lines are meaningful.
	Lyrics string `json:"lyrics"`

	// Chords holds newline-separated chord lines aligned with Lyrics.
	Chords string `json:"chords"`

	// Chorus is true for #chorus blocks.
	Chorus bool `json:"chorus"`
}

// Line is one logical (lyric, chord) row of a section.
type Line struct {
	Lyric string
	Chord string
}

// New returns an empty song with the two required fields set.
func New(title, category string) *Song {
	return &Song{
		Title:    title,
		Category: category,
		Sections: []Section{},
	}
}

// AddSection appends sec and returns a pointer to the stored copy so the
// caller can keep filling it in. The pointer is valid until the next append.
func (s *Song) AddSection(sec Section) *Section {
	s.Sections = append(s.Sections, sec)
	return &s.Sections[len(s.Sections)-1]
}

// Key returns "category/title", the identity used by the library and catalog.
func (s *Song) Key() string {
	return s.Category + "/" + s.Title
}

// FilterString returns the text searched by catalog queries: title,
// category, author and every section's lyrics, one per line.
func (s *Song) FilterString() string {
	var sb strings.Builder
	sb.WriteString(s.Title)
	sb.WriteByte('\n')
	sb.WriteString(s.Category)
	sb.WriteByte('\n')
	sb.WriteString(s.Author)
	sb.WriteByte('\n')
	for _, sec := range s.Sections {
		sb.WriteString(sec.Lyrics)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Clone returns a deep copy of s.
func (s *Song) Clone() *Song {
	cp := *s
	cp.Sections = slices.Clone(s.Sections)
	if cp.Sections == nil {
		cp.Sections = []Section{}
	}
	return &cp
}

// Equal reports whether s and other hold the same header fields and the same
// sections, comparing sections by their padded logical lines.
func (s *Song) Equal(other *Song) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.Title != other.Title || s.Category != other.Category ||
		s.Author != other.Author || s.Capo != other.Capo {
		return false
	}
	if len(s.Sections) != len(other.Sections) {
		return false
	}
	for i := range s.Sections {
		if !s.Sections[i].Equal(other.Sections[i]) {
			return false
		}
	}
	return true
}

// Lines returns the logical lines of the section. The shorter of the lyric
// and chord blocks is padded with empty strings.
func (sec Section) Lines() []Line {
	lyrics := strings.Split(sec.Lyrics, "\n")
	chords := strings.Split(sec.Chords, "\n")
	lines := make([]Line, max(len(lyrics), len(chords)))
	for i := range lines {
		if i < len(lyrics) {
			lines[i].Lyric = lyrics[i]
		}
		if i < len(chords) {
			lines[i].Chord = chords[i]
		}
	}
	return lines
}

// LineCount returns the number of logical lines.
func (sec Section) LineCount() int {
	return max(strings.Count(sec.Lyrics, "\n"), strings.Count(sec.Chords, "\n")) + 1
}

// Normalized returns the section with both blocks padded to the same
// number of lines, which is the shape Parse produces.
func (sec Section) Normalized() Section {
	lines := sec.Lines()
	lyrics := make([]string, len(lines))
	chords := make([]string, len(lines))
	for i, ln := range lines {
		lyrics[i] = ln.Lyric
		chords[i] = ln.Chord
	}
	return Section{
		Lyrics: strings.Join(lyrics, "\n"),
		Chords: strings.Join(chords, "\n"),
		Chorus: sec.Chorus,
	}
}

// Equal compares two sections by chorus flag and logical lines.
func (sec Section) Equal(other Section) bool {
	return sec.Chorus == other.Chorus && slices.Equal(sec.Lines(), other.Lines())
}

// String renders the line as it appears in a section body.
func (ln Line) String() string {
	switch {
	case ln.Chord == "":
		return ln.Lyric
	case ln.Lyric == "":
		return chordMark + ln.Chord
	default:
		return ln.Lyric + " " + chordMark + ln.Chord
	}
}
