package main

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/FocuswithJustin/songbook/core/errors"
	"github.com/FocuswithJustin/songbook/internal/catalog"
)

// IndexCmd rebuilds the catalog from the library.
type IndexCmd struct {
	Prune bool `default:"true" negatable:"" help:"Remove songs no longer in the library"`
}

func (c *IndexCmd) Run(app *App) error {
	lib, err := app.openLibrary()
	if err != nil {
		return err
	}
	cat, err := app.openCatalog()
	if err != nil {
		return err
	}
	defer cat.Close()

	res, err := lib.LoadAll(app.Context)
	if err != nil {
		return err
	}
	for _, f := range res.Failures {
		app.printf("skipped %s: %v\n", f.Path, f.Err)
	}

	imp, err := cat.Import(app.Context, res.Songs, catalog.ImportOptions{Prune: c.Prune})
	if err != nil {
		return err
	}
	app.printf("indexed %d songs, removed %d, skipped %d in %s\n",
		imp.Songs, imp.Removed, len(res.Failures), imp.Finished.Sub(imp.Started).Round(time.Millisecond))

	total, err := cat.Count(app.Context)
	if err != nil {
		return err
	}
	app.printf("catalog holds %d songs\n", total)
	return nil
}

// ShowCmd prints an indexed song.
type ShowCmd struct {
	Category string `arg:"" help:"Song category"`
	Title    string `arg:"" help:"Song title"`
	Limit    int    `default:"5" help:"Maximum number of suggestions when the song is missing"`
}

func (c *ShowCmd) Run(app *App) error {
	cat, err := app.openCatalog()
	if err != nil {
		return err
	}
	defer cat.Close()

	s, err := cat.Get(app.Context, c.Category, c.Title)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			printSuggestions(app, cat, c.Title, c.Limit)
		}
		return err
	}
	_, err = app.Out.Write(s.Bytes())
	return err
}

// DeleteCmd removes a song from the library and the catalog.
type DeleteCmd struct {
	Category string `arg:"" help:"Song category"`
	Title    string `arg:"" help:"Song title"`
}

func (c *DeleteCmd) Run(app *App) error {
	lib, err := app.openLibrary()
	if err != nil {
		return err
	}
	if err := lib.Delete(app.Context, c.Category, c.Title); err != nil {
		return err
	}

	cat, err := app.openCatalog()
	if err != nil {
		return err
	}
	defer cat.Close()
	if err := cat.Delete(app.Context, c.Category, c.Title); err != nil && !errors.Is(err, errors.ErrNotFound) {
		return err
	}
	app.printf("deleted %s/%s (restore with 'songbook history')\n", c.Category, c.Title)
	return nil
}

// ListCmd lists indexed songs.
type ListCmd struct {
	Category string `arg:"" optional:"" help:"Only list this category"`
}

func (c *ListCmd) Run(app *App) error {
	cat, err := app.openCatalog()
	if err != nil {
		return err
	}
	defer cat.Close()

	songs, err := cat.List(app.Context, c.Category)
	if err != nil {
		return err
	}
	if len(songs) == 0 {
		app.printf("No songs indexed. Run 'songbook index' first.\n")
		return nil
	}

	if lib, err := app.openLibrary(); err == nil {
		if order, err := lib.CategoryOrder(); err == nil {
			orderByCategory(songs, order)
		}
	}

	app.printf("%s\n", renderSummaries(songs))
	return nil
}

// SearchCmd searches indexed songs.
type SearchCmd struct {
	Query []string `arg:"" help:"Words that must all appear in the song"`
	Limit int      `default:"5" help:"Maximum number of suggestions when nothing matches"`
}

func (c *SearchCmd) Run(app *App) error {
	cat, err := app.openCatalog()
	if err != nil {
		return err
	}
	defer cat.Close()

	query := strings.Join(c.Query, " ")
	songs, err := cat.Search(app.Context, query)
	if err != nil {
		return err
	}
	if len(songs) > 0 {
		app.printf("%s\n", renderSummaries(songs))
		return nil
	}

	app.printf("No songs match %q.\n", query)
	printSuggestions(app, cat, query, c.Limit)
	return nil
}

func printSuggestions(app *App, cat *catalog.Catalog, title string, limit int) {
	suggestions, err := cat.Suggest(app.Context, title, limit)
	if err != nil || len(suggestions) == 0 {
		return
	}
	app.printf("Did you mean:\n")
	for _, s := range suggestions {
		app.printf("  %s/%s\n", s.Category, s.Title)
	}
}

func renderSummaries(songs []catalog.Summary) string {
	rows := make([][]string, 0, len(songs))
	for _, s := range songs {
		rows = append(rows, []string{
			s.Category,
			s.Title,
			s.Author,
			s.Capo,
			strconv.Itoa(s.Sections),
			humanize.Time(s.IndexedAt),
		})
	}
	return renderTable(
		[]string{"Category", "Title", "Author", "Capo", "Sections", "Indexed"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

// orderByCategory moves categories named in order (from the library's
// categories.cfg) to the front in that order. The rest keep their places.
func orderByCategory(songs []catalog.Summary, order []string) {
	if len(order) == 0 {
		return
	}
	rank := make(map[string]int, len(order))
	for i, name := range order {
		if _, dup := rank[name]; !dup {
			rank[name] = i
		}
	}
	pos := func(category string) int {
		if r, ok := rank[category]; ok {
			return r
		}
		return len(order)
	}
	sort.SliceStable(songs, func(i, j int) bool {
		return pos(songs[i].Category) < pos(songs[j].Category)
	})
}
