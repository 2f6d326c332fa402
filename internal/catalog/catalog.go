// Package catalog keeps a SQLite index of songs for listing and search.
// The song files stay the source of truth; the catalog can be rebuilt from
// them at any time with Import.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/FocuswithJustin/songbook/core/cas"
	sberrors "github.com/FocuswithJustin/songbook/core/errors"
	"github.com/FocuswithJustin/songbook/core/song"
	"github.com/FocuswithJustin/songbook/core/sqlite"
	"github.com/FocuswithJustin/songbook/internal/logging"
)

// DefaultLanguage orders titles the way Polish songbooks do.
const DefaultLanguage = "pl"

// Catalog is an open song index.
type Catalog struct {
	db   *sql.DB
	path string
	tag  language.Tag

	// collate.Collator is not safe for concurrent use.
	collMu   sync.Mutex
	collator *collate.Collator
}

// Summary is one indexed song without its body.
type Summary struct {
	Category  string
	Title     string
	Author    string
	Capo      string
	Sections  int
	Hash      string
	BatchID   string
	IndexedAt time.Time
}

// Key returns "category/title".
func (s Summary) Key() string { return s.Category + "/" + s.Title }

// ImportOptions controls Import.
type ImportOptions struct {
	// Prune removes songs that are not part of the import.
	Prune bool
}

// ImportResult describes a completed Import.
type ImportResult struct {
	BatchID  string
	Songs    int
	Removed  int
	Started  time.Time
	Finished time.Time
}

// timeNow is a variable so tests can pin timestamps.
var timeNow = time.Now

// Open opens or creates the catalog at path. lang is a BCP 47 tag that
// selects the collation used by Categories and List.
func Open(ctx context.Context, path, lang string) (*Catalog, error) {
	if lang == "" {
		lang = DefaultLanguage
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("catalog language: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, sberrors.NewIO("create catalog directory", dir, err)
		}
	}

	db, err := sqlite.OpenDatabase(ctx, path)
	if err != nil {
		return nil, err
	}
	// One connection keeps the pragmas in effect for every statement.
	db.SetMaxOpenConns(1)
	c := &Catalog{
		db:       db,
		path:     path,
		tag:      tag,
		collator: collate.New(tag, collate.IgnoreCase),
	}
	if err := c.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the underlying database connection.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Language returns the collation language.
func (c *Catalog) Language() language.Tag { return c.tag }

// Put adds or replaces one song.
func (c *Catalog) Put(ctx context.Context, s *song.Song) error {
	return retryOnBusy(ctx, func() error {
		return upsert(ctx, c.db, s, "", timeNow())
	})
}

// Import indexes songs in one transaction under a new batch ID. With
// opts.Prune, songs from earlier batches that were not part of this one are
// removed, which makes Import a full rebuild.
func (c *Catalog) Import(ctx context.Context, songs []*song.Song, opts ImportOptions) (*ImportResult, error) {
	res := &ImportResult{
		BatchID: uuid.NewString(),
		Started: timeNow().UTC(),
	}

	err := retryOnBusy(ctx, func() error {
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin import tx: %w", err)
		}
		defer func() {
			_ = tx.Rollback()
		}()

		for _, s := range songs {
			if err := upsert(ctx, tx, s, res.BatchID, res.Started); err != nil {
				return err
			}
		}
		res.Songs = len(songs)
		res.Removed = 0
		if opts.Prune {
			r, err := tx.ExecContext(ctx, "DELETE FROM songs WHERE batch_id <> ?", res.BatchID)
			if err != nil {
				return fmt.Errorf("prune songs: %w", err)
			}
			n, _ := r.RowsAffected()
			res.Removed = int(n)
		}

		res.Finished = timeNow().UTC()
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO imports (id, started_at, finished_at, songs, removed) VALUES (?, ?, ?, ?, ?)",
			res.BatchID, formatTime(res.Started), formatTime(res.Finished), res.Songs, res.Removed,
		); err != nil {
			return fmt.Errorf("record import: %w", err)
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}

	logging.CatalogIndexed(ctx, res.BatchID, res.Songs, res.Finished.Sub(res.Started), "removed", res.Removed)
	return res, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, s *song.Song, batchID string, at time.Time) error {
	if err := s.Validate(); err != nil {
		return err
	}
	body := s.Serialize()
	_, err := db.ExecContext(ctx, `
INSERT INTO songs (category, title, author, capo, sections, body, search, hash, batch_id, indexed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(category, title) DO UPDATE SET
    author = excluded.author,
    capo = excluded.capo,
    sections = excluded.sections,
    body = excluded.body,
    search = excluded.search,
    hash = excluded.hash,
    batch_id = excluded.batch_id,
    indexed_at = excluded.indexed_at`,
		s.Category, s.Title, s.Author, s.Capo, len(s.Sections), body,
		searchText(s.FilterString()), cas.Hash([]byte(body)), batchID, formatTime(at),
	)
	if err != nil {
		return fmt.Errorf("index %s: %w", s.Key(), err)
	}
	return nil
}

// Get returns the indexed song.
func (c *Catalog) Get(ctx context.Context, category, title string) (*song.Song, error) {
	var body string
	err := c.db.QueryRowContext(ctx,
		"SELECT body FROM songs WHERE category = ? AND title = ?", category, title,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sberrors.NewNotFound("song", category+"/"+title)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", category, title, err)
	}
	return song.Parse(body)
}

// Delete removes a song from the index.
func (c *Catalog) Delete(ctx context.Context, category, title string) error {
	var n int64
	err := retryOnBusy(ctx, func() error {
		r, err := c.db.ExecContext(ctx, "DELETE FROM songs WHERE category = ? AND title = ?", category, title)
		if err != nil {
			return err
		}
		n, err = r.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", category, title, err)
	}
	if n == 0 {
		return sberrors.NewNotFound("song", category+"/"+title)
	}
	return nil
}

// Count returns the number of indexed songs.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM songs").Scan(&n); err != nil {
		return 0, fmt.Errorf("count songs: %w", err)
	}
	return n, nil
}

// Categories returns the distinct categories in collation order.
func (c *Catalog) Categories(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT DISTINCT category FROM songs")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []string
	for rows.Next() {
		var cat string
		if err := rows.Scan(&cat); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	c.collMu.Lock()
	c.collator.SortStrings(cats)
	c.collMu.Unlock()
	return cats, nil
}

// List returns the songs of category, or of all categories when category
// is "", ordered by category then title.
func (c *Catalog) List(ctx context.Context, category string) ([]Summary, error) {
	query := "SELECT " + summaryColumns + " FROM songs"
	var args []any
	if category != "" {
		query += " WHERE category = ?"
		args = append(args, category)
	}
	out, err := c.querySummaries(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	c.sortSummaries(out)
	return out, nil
}

// Search returns songs whose title, category, author or lyrics contain
// every whitespace-separated term of query, ignoring case.
func (c *Catalog) Search(ctx context.Context, query string) ([]Summary, error) {
	terms := strings.Fields(searchText(query))
	if len(terms) == 0 {
		return nil, sberrors.NewValidation("query", query, "must not be empty")
	}

	var where []string
	args := make([]any, 0, len(terms))
	for _, term := range terms {
		where = append(where, "instr(search, ?) > 0")
		args = append(args, term)
	}
	out, err := c.querySummaries(ctx,
		"SELECT "+summaryColumns+" FROM songs WHERE "+strings.Join(where, " AND "), args...)
	if err != nil {
		return nil, err
	}
	c.sortSummaries(out)
	return out, nil
}

const summaryColumns = "category, title, author, capo, sections, hash, batch_id, indexed_at"

func (c *Catalog) querySummaries(ctx context.Context, query string, args ...any) ([]Summary, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query songs: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			s         Summary
			indexedAt string
		)
		if err := rows.Scan(&s.Category, &s.Title, &s.Author, &s.Capo, &s.Sections, &s.Hash, &s.BatchID, &indexedAt); err != nil {
			return nil, fmt.Errorf("scan song: %w", err)
		}
		s.IndexedAt = parseTime(indexedAt)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query songs: %w", err)
	}
	return out, nil
}

func (c *Catalog) sortSummaries(s []Summary) {
	c.collMu.Lock()
	defer c.collMu.Unlock()
	sortByCollation(c.collator, s)
}

// searchText folds text for case-insensitive matching.
func searchText(s string) string {
	return strings.ToLower(s)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
