package formats_test

import (
	"errors"
	"testing"

	sberrors "github.com/FocuswithJustin/songbook/core/errors"
	"github.com/FocuswithJustin/songbook/core/song"
	"github.com/FocuswithJustin/songbook/internal/formats"
	_ "github.com/FocuswithJustin/songbook/internal/formats/json"
	_ "github.com/FocuswithJustin/songbook/internal/formats/openlyrics"
	_ "github.com/FocuswithJustin/songbook/internal/formats/sng"
)

type fakeHandler struct{}

func (fakeHandler) ID() string           { return "fake" }
func (fakeHandler) Extensions() []string { return []string{".fake"} }
func (fakeHandler) Detect(string, []byte) *formats.DetectResult {
	return &formats.DetectResult{}
}
func (fakeHandler) Decode([]byte, formats.DecodeOptions) (*song.Song, error) { return nil, nil }
func (fakeHandler) Encode(*song.Song) ([]byte, error)                     { return nil, nil }

func TestList(t *testing.T) {
	var ids []string
	for _, h := range formats.List() {
		ids = append(ids, h.ID())
	}
	want := []string{"json", "openlyrics", "sng"}
	if len(ids) != len(want) {
		t.Fatalf("List() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("List()[%d] = %s, want %s", i, ids[i], want[i])
		}
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	formats.Register(fakeHandler{})
	if _, err := formats.Get("fake"); err != nil {
		t.Fatalf("Get(fake) failed: %v", err)
	}
	if h, err := formats.ForPath("x.FAKE"); err != nil || h.ID() != "fake" {
		t.Errorf("ForPath(x.FAKE) = %v, %v", h, err)
	}
	formats.Unregister("fake")
	if _, err := formats.Get("fake"); !errors.Is(err, sberrors.ErrNotFound) {
		t.Errorf("after Unregister err = %v, want ErrNotFound", err)
	}
}

func TestForPathUnknown(t *testing.T) {
	if _, err := formats.ForPath("song.docx"); !errors.Is(err, sberrors.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		path string
		data string
		want string
	}{
		{"song text", "noext", "#title T\n#category C\n", "sng"},
		{"json object", "noext", `{"title":"T","sections":[]}`, "json"},
		{"openlyrics", "noext", `<song xmlns="http://openlyrics.info/namespace/2009/song"/>`, "openlyrics"},
		{"by extension", "a.sng", "", "sng"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, res, err := formats.Detect(tt.path, []byte(tt.data))
			if err != nil {
				t.Fatalf("Detect failed: %v", err)
			}
			if h.ID() != tt.want || res.Format != tt.want {
				t.Errorf("Detect() = %s (%s), want %s", h.ID(), res.Format, tt.want)
			}
		})
	}

	if _, _, err := formats.Detect("notes.txt", []byte("hello")); !errors.Is(err, sberrors.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
