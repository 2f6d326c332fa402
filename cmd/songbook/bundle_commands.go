package main

import (
	"os"

	"github.com/dustin/go-humanize"

	"github.com/FocuswithJustin/songbook/core/errors"
	"github.com/FocuswithJustin/songbook/core/song"
	"github.com/FocuswithJustin/songbook/internal/bundle"
)

// BundleGroup contains bundle operations.
type BundleGroup struct {
	Pack   BundlePackCmd   `cmd:"" help:"Pack library songs into a bundle"`
	Unpack BundleUnpackCmd `cmd:"" help:"Verify a bundle and save its songs into the library"`
	Info   BundleInfoCmd   `cmd:"" help:"Show the manifest of a bundle"`
}

// BundlePackCmd packs library songs into a bundle.
type BundlePackCmd struct {
	Out         string   `arg:"" help:"Bundle file to write" type:"path"`
	Category    []string `short:"C" help:"Only pack these categories (repeatable)"`
	Compression string   `help:"xz, gzip or none (default: bundle.compression)"`
}

func (c *BundlePackCmd) Run(app *App) error {
	compression := c.Compression
	if compression == "" {
		compression = app.Config.Bundle.Compression
	}
	comp, err := bundle.ParseCompression(compression)
	if err != nil {
		return err
	}

	lib, err := app.openLibrary()
	if err != nil {
		return err
	}
	res, err := lib.LoadAll(app.Context)
	if err != nil {
		return err
	}
	for _, f := range res.Failures {
		app.printf("skipped %s: %v\n", f.Path, f.Err)
	}

	songs := filterCategories(res.Songs, c.Category)
	if len(songs) == 0 {
		return errors.NewNotFound("songs", "nothing to pack")
	}

	m, err := bundle.Pack(app.Context, c.Out, songs, bundle.Options{Compression: comp})
	if err != nil {
		return err
	}
	size := int64(0)
	if info, err := os.Stat(c.Out); err == nil {
		size = info.Size()
	}
	app.printf("packed %d songs into %s (%s, %s of songs, %s)\n",
		len(m.Songs), c.Out, humanize.Bytes(uint64(size)), humanize.Bytes(uint64(m.TotalSize())), comp)
	return nil
}

func filterCategories(songs []*song.Song, categories []string) []*song.Song {
	if len(categories) == 0 {
		return songs
	}
	keep := make(map[string]bool, len(categories))
	for _, c := range categories {
		keep[c] = true
	}
	out := make([]*song.Song, 0, len(songs))
	for _, s := range songs {
		if keep[s.Category] {
			out = append(out, s)
		}
	}
	return out
}

// BundleUnpackCmd verifies a bundle and saves its songs into the library.
type BundleUnpackCmd struct {
	Archive string `arg:"" help:"Bundle file" type:"existingfile"`
}

func (c *BundleUnpackCmd) Run(app *App) error {
	lib, err := app.openLibrary()
	if err != nil {
		return err
	}
	m, err := bundle.Unpack(app.Context, c.Archive, lib)
	if err != nil {
		return err
	}
	app.printf("unpacked %d songs into %s\n", len(m.Songs), lib.Root())
	return nil
}

// BundleInfoCmd shows the manifest of a bundle.
type BundleInfoCmd struct {
	Archive string `arg:"" help:"Bundle file" type:"existingfile"`
}

func (c *BundleInfoCmd) Run(app *App) error {
	m, comp, err := bundle.Info(app.Context, c.Archive)
	if err != nil {
		return err
	}
	app.printf("ID:          %s\n", m.ID)
	app.printf("Created:     %s (%s)\n", m.CreatedAt, humanize.Time(m.Created()))
	app.printf("Compression: %s\n", comp)
	app.printf("Songs:       %d (%s)\n", len(m.Songs), humanize.Bytes(uint64(m.TotalSize())))

	rows := make([][]string, 0, len(m.Songs))
	for _, e := range m.Songs {
		hash := e.BLAKE3
		if len(hash) > 12 {
			hash = hash[:12]
		}
		rows = append(rows, []string{e.Category, e.Title, humanize.Bytes(uint64(e.Size)), hash})
	}
	app.printf("%s\n", renderTable(
		[]string{"Category", "Title", "Size", "BLAKE3"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))
	return nil
}

