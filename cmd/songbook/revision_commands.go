package main

import (
	"github.com/dustin/go-humanize"

	"github.com/FocuswithJustin/songbook/core/errors"
	"github.com/FocuswithJustin/songbook/core/sqlite"
	"github.com/FocuswithJustin/songbook/internal/config"
)

// HistoryCmd lists stored revisions of a song.
type HistoryCmd struct {
	Category string `arg:"" help:"Song category"`
	Title    string `arg:"" help:"Song title"`
}

func (c *HistoryCmd) Run(app *App) error {
	lib, err := app.openLibrary()
	if err != nil {
		return err
	}
	revs, err := lib.History(c.Category, c.Title)
	if err != nil {
		return err
	}
	if len(revs) == 0 {
		return errors.NewNotFound("revisions", c.Category+"/"+c.Title)
	}

	rows := make([][]string, 0, len(revs))
	for _, r := range revs {
		rows = append(rows, []string{r.Hash, humanize.Bytes(uint64(r.Size)), humanize.Time(r.Created)})
	}
	app.printf("%s\n", renderTable(
		[]string{"Revision", "Size", "Saved"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft},
	))
	return nil
}

// RestoreCmd restores a stored revision.
type RestoreCmd struct {
	Hash string `arg:"" help:"Revision hash from 'songbook history'"`
}

func (c *RestoreCmd) Run(app *App) error {
	lib, err := app.openLibrary()
	if err != nil {
		return err
	}
	s, err := lib.Restore(app.Context, c.Hash)
	if err != nil {
		return err
	}
	app.printf("restored %s\n", s.Key())
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(app *App) error {
	info := sqlite.GetInfo()
	app.printf("songbook version %s\n", version)
	app.printf("sqlite driver: %s (%s, %s)\n", info.DriverName, info.DriverType, info.Package)
	return nil
}

// WriteConfigCmd writes the effective configuration to a TOML file.
type WriteConfigCmd struct {
	Out string `arg:"" optional:"" help:"File to write (default: ~/.config/songbook/config.toml)" type:"path"`
}

func (c *WriteConfigCmd) Run(app *App) error {
	path := c.Out
	if path == "" {
		path = config.DefaultPath()
	}
	if err := config.Save(app.Config, path); err != nil {
		return err
	}
	app.printf("wrote %s\n", path)
	return nil
}
