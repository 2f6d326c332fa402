package sng

import (
	"errors"
	"testing"

	sberrors "github.com/FocuswithJustin/songbook/core/errors"
	"github.com/FocuswithJustin/songbook/core/song"
	"github.com/FocuswithJustin/songbook/internal/formats"
)

const sample = "#title Test Song\n#author Jane\n#category Rock\n\n#verse\nHello world ~ C G\n\n"

func TestRegistered(t *testing.T) {
	h, err := formats.Get("sng")
	if err != nil {
		t.Fatalf("sng handler not registered: %v", err)
	}
	if _, ok := h.(*Handler); !ok {
		t.Errorf("registered handler is %T", h)
	}
	if h, err := formats.ForPath("lib/Rock/Test Song.sng"); err != nil || h.ID() != "sng" {
		t.Errorf("ForPath = %v, %v", h, err)
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
		{"extension", "a.sng", "", true},
		{"directives without extension", "a.txt", "\n#title T\n#category C\n", true},
		{"tab after directive", "a", "#category\tRock\n", true},
		{"verse first is not enough", "a.txt", "#verse\nla\n", false},
		{"plain text", "a.txt", "hello\n", false},
		{"json", "a.json", `{"title":"T"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.Detect(tt.path, []byte(tt.data)).Detected; got != tt.want {
				t.Errorf("Detect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeEncode(t *testing.T) {
	h := &Handler{}
	s, err := h.Decode([]byte(sample), formats.DecodeOptions{Category: "ignored"})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if s.Category != "Rock" {
		t.Errorf("Category = %q", s.Category)
	}

	out, err := h.Encode(s)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if string(out) != sample {
		t.Errorf("Encode() = %q, want %q", out, sample)
	}
}

func TestDecodeError(t *testing.T) {
	_, err := (&Handler{}).Decode([]byte("#verse\nla\n"), formats.DecodeOptions{})
	if !errors.Is(err, sberrors.ErrMissingField) {
		t.Errorf("err = %v, want ErrMissingField", err)
	}
}

func TestEncodeRejectsInvalidSong(t *testing.T) {
	s := song.New("T", "C")
	s.AddSection(song.Section{Lyrics: "a ~ b"})
	_, err := (&Handler{}).Encode(s)
	var ve *sberrors.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("err = %v, want *ValidationError", err)
	}
}
