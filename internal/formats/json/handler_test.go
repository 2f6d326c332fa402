package json

import (
	"encoding/json"
	"errors"
	"testing"

	sberrors "github.com/FocuswithJustin/songbook/core/errors"
	"github.com/FocuswithJustin/songbook/core/song"
	"github.com/FocuswithJustin/songbook/internal/formats"
)

func sampleSong() *song.Song {
	s := song.New("Majka", "SDM")
	s.Author = "Jane"
	s.Capo = "2"
	s.AddSection(song.Section{Lyrics: "a\nb", Chords: "C\nG"})
	s.AddSection(song.Section{Lyrics: "ref", Chords: "Am", Chorus: true})
	return s
}

func TestRegistered(t *testing.T) {
	h, err := formats.Get("JSON")
	if err != nil {
		t.Fatalf("json handler not registered: %v", err)
	}
	if h.ID() != FormatName {
		t.Errorf("ID() = %q", h.ID())
	}
}

func TestEncodeDecode(t *testing.T) {
	h := &Handler{}
	orig := sampleSong()

	data, err := h.Encode(orig)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	for _, key := range []string{"title", "category", "author", "capo", "sections"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}

	got, err := h.Decode(data, formats.DecodeOptions{})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !got.Equal(orig) {
		t.Errorf("round trip mismatch:\n%+v\n%+v", got, orig)
	}
}

func TestDecodeCategoryFallback(t *testing.T) {
	h := &Handler{}
	data := []byte(`{"title":"T","sections":[]}`)

	got, err := h.Decode(data, formats.DecodeOptions{Category: "Imported"})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Category != "Imported" {
		t.Errorf("Category = %q", got.Category)
	}

	if _, err := h.Decode(data, formats.DecodeOptions{}); !errors.Is(err, sberrors.ErrMissingField) {
		t.Errorf("err = %v, want ErrMissingField", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	h := &Handler{}
	for _, input := range []string{"not json", "null", "[1,2]"} {
		if _, err := h.Decode([]byte(input), formats.DecodeOptions{}); err == nil {
			t.Errorf("Decode(%q) should fail", input)
		}
	}
}

func TestDetect(t *testing.T) {
	h := &Handler{}
	tests := []struct {
		name string
		path string
		data string
		want bool
	}{
		{"extension", "song.json", "", true},
		{"content", "song.txt", `{"title":"T","category":"C","sections":[]}`, true},
		{"object without sections", "x", `{"title":"T"}`, false},
		{"song text", "x.sng", "#title T\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.Detect(tt.path, []byte(tt.data)).Detected; got != tt.want {
				t.Errorf("Detect() = %v, want %v", got, tt.want)
			}
		})
	}
}
