// Package bundle packs songs into a single compressed tar archive for
// sharing between songbooks, and reads such archives back.
//
// A bundle holds manifest.json followed by one .sng file per song under
// songs/<category>/<title>.sng. The manifest records the BLAKE3 hash of each
// file; reading a bundle fails if any file does not match.
package bundle

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/songbook/core/cas"
	"github.com/FocuswithJustin/songbook/core/errors"
	"github.com/FocuswithJustin/songbook/core/song"
	"github.com/FocuswithJustin/songbook/internal/logging"
	"github.com/FocuswithJustin/songbook/internal/validation"
)

// Version is the bundle format version written to new manifests.
const Version = "1"

const (
	manifestName = "manifest.json"
	songsDir     = "songs"
)

// Compression selects the stream compression of a bundle.
type Compression string

const (
	CompressionXZ   Compression = "xz"
	CompressionGzip Compression = "gzip"
	CompressionNone Compression = "none"
)

// ParseCompression accepts "xz", "gzip" or "none". An empty string means xz.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return CompressionXZ, nil
	case CompressionXZ, CompressionGzip, CompressionNone:
		return c, nil
	default:
		return "", errors.NewUnsupported("compression", s)
	}
}

// Manifest describes the contents of a bundle.
type Manifest struct {
	Version   string  `json:"version"`
	ID        string  `json:"id"`
	CreatedAt string  `json:"created_at"`
	Songs     []Entry `json:"songs"`
}

// Entry is one song in a bundle.
type Entry struct {
	Category string `json:"category"`
	Title    string `json:"title"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	BLAKE3   string `json:"blake3"`
}

// Created parses CreatedAt. It returns the zero time if the field is malformed.
func (m *Manifest) Created() time.Time {
	t, err := time.Parse(time.RFC3339, m.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// TotalSize is the uncompressed size of all song files.
func (m *Manifest) TotalSize() int64 {
	var n int64
	for _, e := range m.Songs {
		n += e.Size
	}
	return n
}

// Bundle is a decoded bundle.
type Bundle struct {
	Manifest *Manifest
	Songs    []*song.Song
}

// Options controls Write and Pack.
type Options struct {
	Compression Compression
}

// Injectable functions for testing.
var (
	timeNow            = time.Now
	gzipNewWriterLevel = gzip.NewWriterLevel
	xzNewWriter        = xz.NewWriter
	gzipNewReader      = gzip.NewReader
	xzNewReader        = xz.NewReader
	writeToTarFunc     = writeToTar
)

// EntryPath returns the archive path of a song.
func EntryPath(category, title string) (string, error) {
	if err := validation.ValidateName(category); err != nil {
		return "", errors.NewValidation("category", category, err.Error())
	}
	if err := validation.ValidateName(title); err != nil {
		return "", errors.NewValidation("title", title, err.Error())
	}
	return path.Join(songsDir, category, title+".sng"), nil
}

// Write encodes songs as a bundle to w and returns its manifest.
func Write(ctx context.Context, w io.Writer, songs []*song.Song, opts Options) (*Manifest, error) {
	if opts.Compression == "" {
		opts.Compression = CompressionXZ
	}

	created := timeNow().UTC().Truncate(time.Second)
	m := &Manifest{
		Version:   Version,
		ID:        uuid.NewString(),
		CreatedAt: created.Format(time.RFC3339),
		Songs:     make([]Entry, 0, len(songs)),
	}

	type file struct {
		name string
		data []byte
	}
	files := make([]file, 0, len(songs))
	seen := make(map[string]bool, len(songs))
	for _, s := range songs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		name, err := EntryPath(s.Category, s.Title)
		if err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, errors.NewValidation("song", s.Key(), "appears twice in bundle")
		}
		seen[name] = true

		data := s.Bytes()
		m.Songs = append(m.Songs, Entry{
			Category: s.Category,
			Title:    s.Title,
			Path:     name,
			Size:     int64(len(data)),
			BLAKE3:   cas.Hash(data),
		})
		files = append(files, file{name: name, data: data})
	}

	manifestData, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize manifest: %w", err)
	}

	var compressWriter io.WriteCloser
	switch opts.Compression {
	case CompressionGzip:
		compressWriter, err = gzipNewWriterLevel(w, gzip.BestCompression)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip writer: %w", err)
		}
	case CompressionXZ:
		xw, err := xzNewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz writer: %w", err)
		}
		compressWriter = xw
	case CompressionNone:
		compressWriter = nopWriteCloser{w}
	default:
		return nil, errors.NewUnsupported("compression", string(opts.Compression))
	}

	tw := tar.NewWriter(compressWriter)
	if err := writeToTarFunc(tw, manifestName, manifestData, created); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}
	for _, f := range files {
		if err := writeToTarFunc(tw, f.name, f.data, created); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", f.name, err)
		}
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err := compressWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish compression: %w", err)
	}
	return m, nil
}

// Pack writes a bundle file at archivePath. The file appears only once it
// is complete.
func Pack(ctx context.Context, archivePath string, songs []*song.Song, opts Options) (*Manifest, error) {
	dir := filepath.Dir(archivePath)
	tmp, err := os.CreateTemp(dir, ".bundle-*.tmp")
	if err != nil {
		return nil, errors.NewIO("create", archivePath, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	bw := bufio.NewWriter(tmp)
	m, err := Write(ctx, bw, songs, opts)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	if err := os.Rename(tmpName, archivePath); err != nil {
		return nil, errors.NewIO("rename", archivePath, err)
	}

	logging.BundleEvent(ctx, "pack", archivePath, len(m.Songs),
		"id", m.ID, "compression", string(opts.Compression))
	return m, nil
}

// Read decodes a bundle from r, detecting its compression, and verifies
// every song against the manifest.
func Read(ctx context.Context, r io.Reader) (*Bundle, error) {
	files, err := readFiles(ctx, r, nil)
	if err != nil {
		return nil, err
	}
	m, err := parseManifest(files[manifestName])
	if err != nil {
		return nil, err
	}

	b := &Bundle{Manifest: m, Songs: make([]*song.Song, 0, len(m.Songs))}
	for _, e := range m.Songs {
		data, ok := files[e.Path]
		if !ok {
			return nil, errors.NewNotFound("bundle entry", e.Path)
		}
		if got := cas.Hash(data); got != e.BLAKE3 {
			return nil, fmt.Errorf("%w: %s: manifest has %s, content hashes to %s",
				ErrHashMismatch, e.Path, e.BLAKE3, got)
		}
		s, err := song.ParseBytes(data)
		if err != nil {
			var pe *errors.ParseError
			if errors.As(err, &pe) {
				return nil, pe.WithPath(e.Path)
			}
			return nil, err
		}
		if s.Category != e.Category || s.Title != e.Title {
			return nil, errors.NewValidation("bundle entry", e.Path,
				fmt.Sprintf("file holds %s, manifest says %s/%s", s.Key(), e.Category, e.Title))
		}
		b.Songs = append(b.Songs, s)
	}
	return b, nil
}

// Open reads and verifies the bundle file at archivePath.
func Open(ctx context.Context, archivePath string) (*Bundle, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, errors.NewIO("open", archivePath, err)
	}
	defer f.Close()

	b, err := Read(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", archivePath, err)
	}
	logging.BundleEvent(ctx, "unpack", archivePath, len(b.Songs), "id", b.Manifest.ID)
	return b, nil
}

// Saver stores songs; *library.Library satisfies it.
type Saver interface {
	Save(ctx context.Context, s *song.Song) (cas.Revision, error)
}

// Unpack verifies the bundle at archivePath and saves each song to dst.
// Nothing is saved unless the whole bundle verifies.
func Unpack(ctx context.Context, archivePath string, dst Saver) (*Manifest, error) {
	b, err := Open(ctx, archivePath)
	if err != nil {
		return nil, err
	}
	for _, s := range b.Songs {
		if _, err := dst.Save(ctx, s); err != nil {
			return nil, fmt.Errorf("save %s: %w", s.Key(), err)
		}
	}
	return b.Manifest, nil
}

// Info reads only the manifest of the bundle at archivePath.
func Info(ctx context.Context, archivePath string) (*Manifest, Compression, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, "", errors.NewIO("open", archivePath, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	magic, _ := br.Peek(magicLen)
	compression, err := DetectCompression(magic)
	if err != nil {
		return nil, "", err
	}
	files, err := readFiles(ctx, br, func(name string) bool { return name == manifestName })
	if err != nil {
		return nil, "", err
	}
	m, err := parseManifest(files[manifestName])
	if err != nil {
		return nil, "", err
	}
	return m, compression, nil
}

// ErrHashMismatch indicates a song file whose content does not match the manifest.
var ErrHashMismatch = fmt.Errorf("bundle hash mismatch: %w", errors.ErrInvalidInput)

// readFiles decompresses r and collects regular files. With stop set,
// reading ends after the first file for which stop returns true.
func readFiles(ctx context.Context, r io.Reader, stop func(name string) bool) (map[string][]byte, error) {
	br := bufio.NewReader(r)
	magic, _ := br.Peek(magicLen)
	compression, err := DetectCompression(magic)
	if err != nil {
		return nil, err
	}

	var decompressReader io.Reader
	switch compression {
	case CompressionGzip:
		gzReader, err := gzipNewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzReader.Close()
		decompressReader = gzReader
	case CompressionXZ:
		xzReader, err := xzNewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		decompressReader = xzReader
	default:
		decompressReader = br
	}

	tarReader := tar.NewReader(decompressReader)
	files := make(map[string][]byte)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read tar header: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		name, err := validation.ArchivePath(header.Name)
		if err != nil {
			logging.WarnContext(ctx, "skipping bundle entry", "name", header.Name, "error", err)
			continue
		}
		data, err := io.ReadAll(tarReader)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		files[name] = data
		if stop != nil && stop(name) {
			break
		}
	}
	if _, ok := files[manifestName]; !ok {
		return nil, errors.NewNotFound("bundle entry", manifestName)
	}
	return files, nil
}

func parseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.Version != Version {
		return nil, errors.NewUnsupported("bundle version", m.Version)
	}
	return &m, nil
}

const magicLen = 262

var (
	gzipMagic = []byte{0x1f, 0x8b}
	xzMagic   = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
	tarMagic  = []byte("ustar")
)

// DetectCompression identifies a bundle stream from its leading bytes.
// Uncompressed tar is recognized by the "ustar" marker at offset 257.
func DetectCompression(magic []byte) (Compression, error) {
	switch {
	case len(magic) < 2:
		return "", errors.NewValidation("archive", "", "file too small to detect compression")
	case bytes.HasPrefix(magic, gzipMagic):
		return CompressionGzip, nil
	case bytes.HasPrefix(magic, xzMagic):
		return CompressionXZ, nil
	case len(magic) >= 262 && bytes.Equal(magic[257:262], tarMagic):
		return CompressionNone, nil
	}
	return "", errors.NewUnsupported("compression format", "unknown magic bytes")
}

func writeToTar(tw *tar.Writer, name string, data []byte, modTime time.Time) error {
	header := &tar.Header{
		Name:    name,
		Mode:    0644,
		Size:    int64(len(data)),
		ModTime: modTime,
		Format:  tar.FormatPAX,
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err := tw.Write(data)
	return err
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
