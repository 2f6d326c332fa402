package cas

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/FocuswithJustin/songbook/core/song"
)

// timeNow is a variable so tests can pin revision timestamps.
var timeNow = time.Now

// Revision is one stored version of a song.
type Revision struct {
	Hash    string    `json:"hash"`
	Key     string    `json:"key"`
	Size    int64     `json:"size"`
	Created time.Time `json:"created"`
}

// revisionLog is the on-disk history of one key, oldest first.
type revisionLog struct {
	Key       string     `json:"key"`
	Revisions []Revision `json:"revisions"`
}

var logMu sync.Mutex

// Record stores data as a new revision of key. Recording the same content
// as the latest revision returns that revision without adding another.
func (s *Store) Record(key string, data []byte) (Revision, error) {
	hash, err := s.Put(data)
	if err != nil {
		return Revision{}, err
	}

	logMu.Lock()
	defer logMu.Unlock()

	log, err := s.readLog(key)
	if err != nil {
		return Revision{}, err
	}
	if n := len(log.Revisions); n > 0 && log.Revisions[n-1].Hash == hash {
		return log.Revisions[n-1], nil
	}

	rev := Revision{
		Hash:    hash,
		Key:     key,
		Size:    int64(len(data)),
		Created: timeNow().UTC(),
	}
	log.Revisions = append(log.Revisions, rev)

	out, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return Revision{}, fmt.Errorf("failed to marshal revision log: %w", err)
	}
	if err := writeFileAtomic(s.logPath(key), out); err != nil {
		return Revision{}, fmt.Errorf("failed to write revision log: %w", err)
	}
	return rev, nil
}

// History returns every revision recorded for key, oldest first.
// A key that was never recorded has an empty history.
func (s *Store) History(key string) ([]Revision, error) {
	logMu.Lock()
	defer logMu.Unlock()

	log, err := s.readLog(key)
	if err != nil {
		return nil, err
	}
	return log.Revisions, nil
}

// PutSong records the canonical serialization of sg under sg.Key().
func (s *Store) PutSong(sg *song.Song) (Revision, error) {
	return s.Record(sg.Key(), sg.Bytes())
}

// GetSong loads and parses the song revision with the given hash.
func (s *Store) GetSong(hash string) (*song.Song, error) {
	data, err := s.Get(hash)
	if err != nil {
		return nil, err
	}
	sg, err := song.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("revision %s: %w", hash, err)
	}
	return sg, nil
}

func (s *Store) readLog(key string) (*revisionLog, error) {
	data, err := os.ReadFile(s.logPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return &revisionLog{Key: key}, nil
		}
		return nil, fmt.Errorf("failed to read revision log: %w", err)
	}
	var log revisionLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("failed to parse revision log: %w", err)
	}
	return &log, nil
}

// logPath names the log by the hash of the key so that any title is a
// valid file name.
func (s *Store) logPath(key string) string {
	return filepath.Join(revisionDir(s.root), Hash([]byte(key))+".json")
}
