package chord

import (
	"testing"

	"github.com/FocuswithJustin/songbook/core/song"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		root    int
		quality string
		bass    int // -1 for none
	}{
		{"C", 0, "", -1},
		{"Am7", 9, "m7", -1},
		{"F#m7b5", 6, "m7b5", -1},
		{"Bb/D", 10, "", 2},
		{"Cadd9/E", 0, "add9", 4},
		{"Ddim", 2, "dim", -1},
		{"h7", 11, "7", -1},
		{"H", 11, "", -1},
		{"Gsus4", 7, "sus4", -1},
		{"Ebmaj7", 3, "maj7", -1},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			c, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.input, err)
			}
			if c.Root.Pitch != tt.root {
				t.Errorf("Root.Pitch = %d, want %d", c.Root.Pitch, tt.root)
			}
			if c.Quality != tt.quality {
				t.Errorf("Quality = %q, want %q", c.Quality, tt.quality)
			}
			switch {
			case tt.bass < 0 && c.Bass != nil:
				t.Errorf("unexpected bass %+v", *c.Bass)
			case tt.bass >= 0 && (c.Bass == nil || c.Bass.Pitch != tt.bass):
				t.Errorf("Bass = %+v, want pitch %d", c.Bass, tt.bass)
			}
			if c.String() != tt.input {
				t.Errorf("String() = %q, want %q", c.String(), tt.input)
			}
		})
	}
}

func TestParseRejectsNonChords(t *testing.T) {
	for _, input := range []string{"", "x", "Bad", "Echo", "C/", "add9", "|", "N.C."} {
		if _, err := Parse(input); err == nil {
			t.Errorf("Parse(%q) should fail", input)
		}
	}
}

func TestTransposeLine(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		semitones int
		want      string
	}{
		{"up two", "C G Am F", 2, "D A Bm G"},
		{"down one", "C G", -1, "B F#"},
		{"wrap around", "B", 1, "C"},
		{"flats kept", "Bb Eb", 2, "C F"},
		{"flat spelling", "Eb", 1, "E"},
		{"flat stays flat", "Ab", 2, "Bb"},
		{"lowercase minor", "a d e", 2, "b e f#"},
		{"german h shifted", "H7 e", 2, "C#7 f#"},
		{"h spelling kept", "A7 H", 12, "A7 H"},
		{"h kept after shift", "h", -12, "h"},
		{"b natural", "A", 2, "B"},
		{"slash bass", "C/E", 5, "F/A"},
		{"spacing preserved", "  C   G  ", 7, "  G   D  "},
		{"unknown tokens kept", "C x2 | G", 2, "D x2 | A"},
		{"bracketed", "(G)", 2, "(A)"},
		{"octave is identity", "C G", 12, "C G"},
		{"empty", "", 3, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TransposeLine(tt.line, tt.semitones); got != tt.want {
				t.Errorf("TransposeLine(%q, %d) = %q, want %q", tt.line, tt.semitones, got, tt.want)
			}
		})
	}
}

func TestTransposeLineGermanSpelling(t *testing.T) {
	if got := TransposeLine("h", 12); got != "h" {
		t.Errorf("got %q", got)
	}
	if got := TransposeLine("H", 1); got != "C" {
		t.Errorf("H+1 = %q, want C", got)
	}
	if got := TransposeLine("c", -1); got != "b" {
		t.Errorf("c-1 = %q, want b", got)
	}
}

func TestTransposeSong(t *testing.T) {
	s := song.New("T", "C")
	s.AddSection(song.Section{Lyrics: "la\nla", Chords: "C G\nAm"})
	s.AddSection(song.Section{Lyrics: "ref", Chords: "", Chorus: true})

	got := TransposeSong(s, 2)
	if got.Sections[0].Chords != "D A\nBm" {
		t.Errorf("Chords = %q", got.Sections[0].Chords)
	}
	if got.Sections[0].Lyrics != "la\nla" {
		t.Errorf("Lyrics changed: %q", got.Sections[0].Lyrics)
	}
	if got.Sections[1].Chords != "" {
		t.Errorf("empty chords changed: %q", got.Sections[1].Chords)
	}
	if s.Sections[0].Chords != "C G\nAm" {
		t.Error("TransposeSong mutated its input")
	}
	if !TransposeSong(got, -2).Equal(s) {
		t.Error("transposing back does not restore the song")
	}
}
