// Package library stores songs as files laid out <root>/<category>/<title>.sng.
//
// Directories whose names start with "." or "_" are not categories; the
// library keeps its lock file and revision store under such names. Every
// Save records the written content, and any hand edit it replaces, in a
// content-addressed revision store so earlier versions can be restored.
package library

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/FocuswithJustin/songbook/core/cas"
	"github.com/FocuswithJustin/songbook/core/errors"
	"github.com/FocuswithJustin/songbook/core/song"
	"github.com/FocuswithJustin/songbook/internal/logging"
	"github.com/FocuswithJustin/songbook/internal/validation"
)

const (
	// Ext is the extension of song files.
	Ext = ".sng"

	// CategoryOrderFile lists category names, one per line, in songbook order.
	CategoryOrderFile = "categories.cfg"

	lockFileName = ".songbook.lock"
	revisionsDir = "_revisions"
	lockRetry    = 50 * time.Millisecond
)

// Library is a directory of song files.
type Library struct {
	root      string
	workers   int
	mu        sync.Mutex
	lock      *flock.Flock
	revisions *cas.Store
}

// Option configures a Library.
type Option func(*Library)

// WithWorkers bounds the number of files LoadAll parses at once.
func WithWorkers(n int) Option {
	return func(l *Library) { l.workers = n }
}

// Open opens the library at root, creating the directory if needed.
func Open(root string, opts ...Option) (*Library, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.NewIO("create library", root, err)
	}
	revisions, err := cas.NewStore(filepath.Join(root, revisionsDir))
	if err != nil {
		return nil, err
	}
	l := &Library{
		root:      root,
		lock:      flock.New(filepath.Join(root, lockFileName)),
		revisions: revisions,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Root returns the library directory.
func (l *Library) Root() string { return l.root }

// Revisions returns the store holding saved song versions.
func (l *Library) Revisions() *cas.Store { return l.revisions }

// Path returns the file path of the song with the given category and title.
func (l *Library) Path(category, title string) (string, error) {
	if err := checkName("category", category); err != nil {
		return "", err
	}
	if strings.HasPrefix(category, ".") || strings.HasPrefix(category, "_") {
		return "", errors.NewValidation("category", category, "must not start with '.' or '_'")
	}
	if err := checkName("title", title); err != nil {
		return "", err
	}
	return filepath.Join(l.root, category, title+Ext), nil
}

// checkName rejects values that cannot be a single path component.
func checkName(field, name string) error {
	if err := validation.ValidateName(name); err != nil {
		return errors.NewValidation(field, name, err.Error())
	}
	return nil
}

// Save writes s to its file. The previous content, if it was never recorded,
// and the new content both go into the revision store. The returned
// revision is the one now on disk.
func (l *Library) Save(ctx context.Context, s *song.Song) (cas.Revision, error) {
	if err := s.Validate(); err != nil {
		return cas.Revision{}, err
	}
	path, err := l.Path(s.Category, s.Title)
	if err != nil {
		return cas.Revision{}, err
	}

	unlock, err := l.acquire(ctx)
	if err != nil {
		return cas.Revision{}, err
	}
	defer unlock()

	data := s.Bytes()
	if prev, err := os.ReadFile(path); err == nil {
		if !bytes.Equal(prev, data) {
			if _, err := l.revisions.Record(s.Key(), prev); err != nil {
				return cas.Revision{}, fmt.Errorf("record previous revision: %w", err)
			}
		}
	} else if !os.IsNotExist(err) {
		return cas.Revision{}, errors.NewIO("read", path, err)
	}

	rev, err := l.revisions.Record(s.Key(), data)
	if err != nil {
		return cas.Revision{}, fmt.Errorf("record revision: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return cas.Revision{}, errors.NewIO("write", path, err)
	}

	logging.SongSaved(ctx, s.Key(), path, rev.Hash)
	return rev, nil
}

// Load reads the song stored under category and title.
func (l *Library) Load(category, title string) (*song.Song, error) {
	path, err := l.Path(category, title)
	if err != nil {
		return nil, err
	}
	s, err := LoadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.NewNotFound("song", category+"/"+title)
	}
	return s, err
}

// LoadByTitle finds a song by title in any category. Categories are
// searched in name order.
func (l *Library) LoadByTitle(title string) (*song.Song, error) {
	cats, err := l.Categories()
	if err != nil {
		return nil, err
	}
	for _, cat := range cats {
		s, err := l.Load(cat, title)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
	}
	return nil, errors.NewNotFound("song", title)
}

// LoadFile parses the song file at path. Parse errors carry the path.
func LoadFile(path string) (*song.Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	s, err := song.ParseBytes(data)
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) {
			return nil, pe.WithPath(path)
		}
		return nil, err
	}
	return s, nil
}

// Delete removes a song file. Its content stays in the revision store.
func (l *Library) Delete(ctx context.Context, category, title string) error {
	path, err := l.Path(category, title)
	if err != nil {
		return err
	}
	unlock, err := l.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewNotFound("song", category+"/"+title)
		}
		return errors.NewIO("read", path, err)
	}
	if _, err := l.revisions.Record(category+"/"+title, data); err != nil {
		return fmt.Errorf("record revision: %w", err)
	}
	if err := os.Remove(path); err != nil {
		return errors.NewIO("remove", path, err)
	}
	return nil
}

// History lists the stored revisions of a song, oldest first.
func (l *Library) History(category, title string) ([]cas.Revision, error) {
	return l.revisions.History(category + "/" + title)
}

// Restore makes the revision with the given hash the current version of its
// song and returns the restored song.
func (l *Library) Restore(ctx context.Context, hash string) (*song.Song, error) {
	s, err := l.revisions.GetSong(hash)
	if err != nil {
		if errors.Is(err, cas.ErrBlobNotFound) {
			return nil, errors.NewNotFound("revision", hash)
		}
		return nil, err
	}
	if _, err := l.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Categories returns the category directory names in name order.
func (l *Library) Categories() ([]string, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, errors.NewIO("read", l.root, err)
	}
	var cats []string
	for _, e := range entries {
		if e.IsDir() && !hidden(e.Name()) {
			cats = append(cats, e.Name())
		}
	}
	return cats, nil
}

// CategoryOrder returns the categories listed in categories.cfg at the
// library root, skipping blank lines and lines starting with "#".
// It returns nil when the file does not exist.
func (l *Library) CategoryOrder() ([]string, error) {
	data, err := os.ReadFile(filepath.Join(l.root, CategoryOrderFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewIO("read", CategoryOrderFile, err)
	}
	var cats []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cats = append(cats, line)
	}
	return cats, nil
}

// Entry is a song file found by Scan.
type Entry struct {
	Category string
	Title    string
	Path     string
	Size     int64
	ModTime  time.Time
}

// Scan lists every song file, ordered by category then title.
func (l *Library) Scan(ctx context.Context) ([]Entry, error) {
	cats, err := l.Categories()
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, cat := range cats {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dir := filepath.Join(l.root, cat)
		files, err := os.ReadDir(dir)
		if err != nil {
			return nil, errors.NewIO("read", dir, err)
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), Ext) {
				continue
			}
			info, err := f.Info()
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return nil, errors.NewIO("stat", filepath.Join(dir, f.Name()), err)
			}
			entries = append(entries, Entry{
				Category: cat,
				Title:    strings.TrimSuffix(f.Name(), Ext),
				Path:     filepath.Join(dir, f.Name()),
				Size:     info.Size(),
				ModTime:  info.ModTime(),
			})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Category != entries[j].Category {
			return entries[i].Category < entries[j].Category
		}
		return entries[i].Title < entries[j].Title
	})
	return entries, nil
}

// LoadFailure records a file LoadAll could not parse.
type LoadFailure struct {
	Path string
	Err  error
}

// LoadResult is the outcome of LoadAll.
type LoadResult struct {
	Songs    []*song.Song
	Entries  []Entry
	Failures []LoadFailure
}

// LoadAll parses every song file concurrently. Files that fail are logged
// and reported in Failures; they do not stop the load. Songs[i] was read
// from Entries[i].
func (l *Library) LoadAll(ctx context.Context) (*LoadResult, error) {
	entries, err := l.Scan(ctx)
	if err != nil {
		return nil, err
	}

	type loaded struct {
		song *song.Song
		err  error
	}
	pool := newWorkerPool[Entry, loaded](l.workers, len(entries))
	results, err := pool.Run(ctx, entries, func(ctx context.Context, e Entry) loaded {
		s, err := LoadFile(e.Path)
		return loaded{song: s, err: err}
	})
	if err != nil {
		return nil, err
	}

	res := &LoadResult{}
	for i, r := range results {
		if r.err != nil {
			logging.SongSkipped(ctx, entries[i].Path, r.err)
			res.Failures = append(res.Failures, LoadFailure{Path: entries[i].Path, Err: r.err})
			continue
		}
		logging.SongLoaded(ctx, r.song.Key(), entries[i].Path, len(r.song.Sections))
		res.Songs = append(res.Songs, r.song)
		res.Entries = append(res.Entries, entries[i])
	}
	return res, nil
}

// acquire takes the library lock, waiting until ctx is done. The file lock
// keeps other processes out; mu serializes goroutines of this one.
func (l *Library) acquire(ctx context.Context) (func(), error) {
	l.mu.Lock()
	ok, err := l.lock.TryLockContext(ctx, lockRetry)
	if err == nil && !ok {
		err = fmt.Errorf("lock busy: %w", context.Cause(ctx))
	}
	if err != nil {
		l.mu.Unlock()
		return nil, errors.NewIO("lock", l.lock.Path(), err)
	}
	return func() {
		if err := l.lock.Unlock(); err != nil {
			logging.Warn("failed to release library lock", "path", l.lock.Path(), "error", err)
		}
		l.mu.Unlock()
	}, nil
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".song-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
