package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	sberrors "github.com/FocuswithJustin/songbook/core/errors"
	"github.com/FocuswithJustin/songbook/core/song"
)

func newSong(title, category, lyric string) *song.Song {
	s := song.New(title, category)
	s.AddSection(song.Section{Lyrics: lyric, Chords: "C"})
	return s
}

func openTemp(t *testing.T) *Library {
	t.Helper()
	lib, err := Open(t.TempDir(), WithWorkers(2))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return lib
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	lib := openTemp(t)
	s := newSong("Żółta łódź", "Szanty", "Płynie łódź")

	rev, err := lib.Save(ctx, s)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if rev.Key != "Szanty/Żółta łódź" {
		t.Errorf("revision key = %q", rev.Key)
	}

	path := filepath.Join(lib.Root(), "Szanty", "Żółta łódź.sng")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("song file not written: %v", err)
	}
	if string(data) != song.Serialize(s) {
		t.Errorf("file content = %q", data)
	}

	got, err := lib.Load("Szanty", "Żółta łódź")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !got.Equal(s) {
		t.Errorf("Load mismatch:\n%+v\n%+v", got, s)
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	lib := openTemp(t)

	tests := []struct {
		name string
		song *song.Song
	}{
		{"unrepresentable lyric", newSong("T", "C", "a ~ b")},
		{"slash in title", newSong("a/b", "C", "x")},
		{"dot dot category", newSong("T", "..", "x")},
		{"hidden category", newSong("T", "_drafts", "x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lib.Save(ctx, tt.song)
			var ve *sberrors.ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("err = %v, want *ValidationError", err)
			}
		})
	}
}

func TestLoadNotFound(t *testing.T) {
	lib := openTemp(t)
	if _, err := lib.Load("Rock", "Missing"); !errors.Is(err, sberrors.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := lib.LoadByTitle("Missing"); !errors.Is(err, sberrors.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLoadByTitle(t *testing.T) {
	ctx := context.Background()
	lib := openTemp(t)
	if _, err := lib.Save(ctx, newSong("Hej", "Ludowe", "hej")); err != nil {
		t.Fatal(err)
	}
	got, err := lib.LoadByTitle("Hej")
	if err != nil {
		t.Fatalf("LoadByTitle failed: %v", err)
	}
	if got.Category != "Ludowe" {
		t.Errorf("Category = %q", got.Category)
	}
}

func TestLoadFileParseErrorHasPath(t *testing.T) {
	lib := openTemp(t)
	path := filepath.Join(lib.Root(), "Rock", "Broken.sng")
	writeFile(t, path, "#verse\nno header\n")

	_, err := LoadFile(path)
	var pe *sberrors.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if pe.Path != path {
		t.Errorf("Path = %q, want %q", pe.Path, path)
	}
}

func TestScanSkipsHiddenDirectories(t *testing.T) {
	ctx := context.Background()
	lib := openTemp(t)
	root := lib.Root()
	writeFile(t, filepath.Join(root, "Rock", "B.sng"), "#title B\n#category Rock\n")
	writeFile(t, filepath.Join(root, "Rock", "A.sng"), "#title A\n#category Rock\n")
	writeFile(t, filepath.Join(root, "Rock", "notes.txt"), "ignored")
	writeFile(t, filepath.Join(root, "Blues", "C.sng"), "#title C\n#category Blues\n")
	writeFile(t, filepath.Join(root, ".git", "X.sng"), "#title X\n#category .git\n")
	writeFile(t, filepath.Join(root, "_drafts", "Y.sng"), "#title Y\n#category _drafts\n")
	writeFile(t, filepath.Join(root, "loose.sng"), "#title L\n#category C\n")

	cats, err := lib.Categories()
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 2 || cats[0] != "Blues" || cats[1] != "Rock" {
		t.Errorf("Categories() = %v", cats)
	}

	entries, err := lib.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	var keys []string
	for _, e := range entries {
		keys = append(keys, e.Category+"/"+e.Title)
	}
	want := []string{"Blues/C", "Rock/A", "Rock/B"}
	if len(keys) != len(want) {
		t.Fatalf("Scan() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("entry %d = %s, want %s", i, keys[i], want[i])
		}
	}
}

func TestLoadAllSkipsBadFiles(t *testing.T) {
	ctx := context.Background()
	lib := openTemp(t)
	root := lib.Root()
	for _, title := range []string{"A", "B", "C", "D", "E"} {
		writeFile(t, filepath.Join(root, "Rock", title+".sng"), "#title "+title+"\n#category Rock\n#verse\nla ~ C\n")
	}
	writeFile(t, filepath.Join(root, "Rock", "Bad.sng"), "#bridge\n")

	res, err := lib.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(res.Songs) != 5 {
		t.Errorf("loaded %d songs, want 5", len(res.Songs))
	}
	if len(res.Failures) != 1 || filepath.Base(res.Failures[0].Path) != "Bad.sng" {
		t.Errorf("Failures = %+v", res.Failures)
	}
	if !errors.Is(res.Failures[0].Err, sberrors.ErrUnknownDirective) {
		t.Errorf("failure err = %v", res.Failures[0].Err)
	}
	for i, s := range res.Songs {
		if s.Title != res.Entries[i].Title {
			t.Errorf("song %d (%s) does not match entry %s", i, s.Title, res.Entries[i].Title)
		}
	}
}

func TestLoadAllCancelled(t *testing.T) {
	lib := openTemp(t)
	writeFile(t, filepath.Join(lib.Root(), "Rock", "A.sng"), "#title A\n#category Rock\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := lib.LoadAll(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestHistoryAndRestore(t *testing.T) {
	ctx := context.Background()
	lib := openTemp(t)

	v1 := newSong("T", "Rock", "first")
	r1, err := lib.Save(ctx, v1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := lib.Save(ctx, newSong("T", "Rock", "second")); err != nil {
		t.Fatal(err)
	}

	hist, err := lib.History("Rock", "T")
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 2 {
		t.Fatalf("len(History) = %d, want 2", len(hist))
	}

	restored, err := lib.Restore(ctx, r1.Hash)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if !restored.Equal(v1) {
		t.Errorf("restored = %+v", restored)
	}
	cur, err := lib.Load("Rock", "T")
	if err != nil {
		t.Fatal(err)
	}
	if cur.Sections[0].Lyrics != "first" {
		t.Errorf("current lyrics = %q after restore", cur.Sections[0].Lyrics)
	}

	if _, err := lib.Restore(ctx, "0000000000000000000000000000000000000000000000000000000000000000"); !errors.Is(err, sberrors.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveRecordsHandEdits(t *testing.T) {
	ctx := context.Background()
	lib := openTemp(t)
	if _, err := lib.Save(ctx, newSong("T", "Rock", "saved")); err != nil {
		t.Fatal(err)
	}
	path, _ := lib.Path("Rock", "T")
	writeFile(t, path, "#title T\n#category Rock\n#verse\nhand edit\n")

	if _, err := lib.Save(ctx, newSong("T", "Rock", "saved again")); err != nil {
		t.Fatal(err)
	}
	hist, err := lib.History("Rock", "T")
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 3 {
		t.Fatalf("len(History) = %d, want 3 (saved, hand edit, saved again)", len(hist))
	}
	edited, err := lib.Revisions().GetSong(hist[1].Hash)
	if err != nil {
		t.Fatal(err)
	}
	if edited.Sections[0].Lyrics != "hand edit" {
		t.Errorf("hand edit not recorded: %+v", edited)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	lib := openTemp(t)
	if _, err := lib.Save(ctx, newSong("T", "Rock", "x")); err != nil {
		t.Fatal(err)
	}
	if err := lib.Delete(ctx, "Rock", "T"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := lib.Load("Rock", "T"); !errors.Is(err, sberrors.ErrNotFound) {
		t.Errorf("song still loadable: %v", err)
	}
	if err := lib.Delete(ctx, "Rock", "T"); !errors.Is(err, sberrors.ErrNotFound) {
		t.Errorf("second Delete err = %v, want ErrNotFound", err)
	}
}

func TestConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	lib := openTemp(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lyric := string(rune('a' + i))
			if _, err := lib.Save(ctx, newSong("Shared", "Rock", lyric)); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Save failed: %v", err)
	}
	if _, err := lib.Load("Rock", "Shared"); err != nil {
		t.Errorf("Load after concurrent saves failed: %v", err)
	}
}

func TestCategoryOrder(t *testing.T) {
	lib := openTemp(t)
	order, err := lib.CategoryOrder()
	if err != nil || order != nil {
		t.Fatalf("CategoryOrder() without file = %v, %v", order, err)
	}

	writeFile(t, filepath.Join(lib.Root(), CategoryOrderFile), "# order\nSzanty\r\n\nRock\n")
	order, err = lib.CategoryOrder()
	if err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != "Szanty" || order[1] != "Rock" {
		t.Errorf("CategoryOrder() = %q", order)
	}
}
