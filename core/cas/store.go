// Package cas provides content-addressed storage for song revisions.
// Blobs are stored by their BLAKE3 hash, so identical revisions are kept once
// and any blob can be verified against its name.
package cas

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/zeebo/blake3"
)

// osRename is a variable to allow testing of rename errors.
var osRename = os.Rename

// tempFileWrite is a function variable for writing to temp files (for testing).
var tempFileWrite = func(f *os.File, data []byte) (int, error) {
	return f.Write(data)
}

// tempFileClose is a function variable for closing temp files (for testing).
var tempFileClose = func(f io.Closer) error {
	return f.Close()
}

// ErrBlobNotFound is returned when a blob with the given hash does not exist.
var ErrBlobNotFound = errors.New("blob not found")

// ErrInvalidHash is returned when a hash string is not a 64-character hex string.
var ErrInvalidHash = errors.New("invalid hash format")

// ErrCorruptBlob is returned when stored bytes no longer match their hash.
var ErrCorruptBlob = errors.New("blob content does not match its hash")

var hashPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Store is a directory of blobs addressed by BLAKE3 hash.
type Store struct {
	root string
}

// NewStore creates a store rooted at root, creating the directory layout
// if it doesn't exist.
func NewStore(root string) (*Store, error) {
	for _, dir := range []string{blobDir(root), revisionDir(root)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	return &Store{root: root}, nil
}

// Root returns the directory the store was opened at.
func (s *Store) Root() string { return s.root }

// Put stores data and returns its hash. Storing existing content is a no-op.
func (s *Store) Put(data []byte) (string, error) {
	hash := Hash(data)
	blobPath := s.pathForHash(hash)
	if _, err := os.Stat(blobPath); err == nil {
		return hash, nil
	}
	if err := writeFileAtomic(blobPath, data); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	return hash, nil
}

// Get returns the blob with the given hash and checks it still matches.
func (s *Store) Get(hash string) ([]byte, error) {
	if !isValidHash(hash) {
		return nil, ErrInvalidHash
	}
	data, err := os.ReadFile(s.pathForHash(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	if Hash(data) != hash {
		return nil, fmt.Errorf("%s: %w", hash, ErrCorruptBlob)
	}
	return data, nil
}

// Exists reports whether a blob with the given hash is stored.
func (s *Store) Exists(hash string) bool {
	if !isValidHash(hash) {
		return false
	}
	_, err := os.Stat(s.pathForHash(hash))
	return err == nil
}

// pathForHash returns <root>/blobs/blake3/<first2>/<hash>.
func (s *Store) pathForHash(hash string) string {
	return filepath.Join(blobDir(s.root), hash[:2], hash)
}

func blobDir(root string) string     { return filepath.Join(root, "blobs", "blake3") }
func revisionDir(root string) string { return filepath.Join(root, "revisions") }

func isValidHash(hash string) bool {
	return hashPattern.MatchString(hash)
}

// Hash computes the BLAKE3 hash of data without storing it.
func Hash(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFileWrite(tempFile, data); err != nil {
		tempFileClose(tempFile)
		os.Remove(tempPath)
		return err
	}
	if err := tempFileClose(tempFile); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	// Rename is atomic on POSIX.
	if err := osRename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
