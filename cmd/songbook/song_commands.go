package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/FocuswithJustin/songbook/core/chord"
	"github.com/FocuswithJustin/songbook/core/errors"
	"github.com/FocuswithJustin/songbook/core/song"
	"github.com/FocuswithJustin/songbook/internal/formats"
	"github.com/FocuswithJustin/songbook/internal/logging"
)

// readSong decodes the file at path. from names a format; when empty the
// format is detected from the content, then from the extension.
func readSong(path, from, category string) (*song.Song, formats.Handler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.NewIO("read", path, err)
	}

	var h formats.Handler
	switch {
	case from != "":
		h, err = formats.Get(from)
	default:
		h, _, err = formats.Detect(path, data)
		if err != nil {
			h, err = formats.ForPath(path)
		}
	}
	if err != nil {
		return nil, nil, err
	}

	s, err := h.Decode(data, formats.DecodeOptions{Category: category})
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) {
			return nil, h, pe.WithPath(path)
		}
		return nil, h, fmt.Errorf("%s: %w", path, err)
	}
	return s, h, nil
}

// CheckCmd parses song files and reports errors.
type CheckCmd struct {
	Paths []string `arg:"" optional:"" help:"Files to check (default: the whole library)" type:"existingfile"`
	From  string   `help:"Input format (default: detect)"`
	Quiet bool     `short:"q" help:"Only report failures"`
}

func (c *CheckCmd) Run(app *App) error {
	if len(c.Paths) == 0 {
		return c.checkLibrary(app)
	}

	failed := 0
	for _, path := range c.Paths {
		s, h, err := readSong(path, c.From, "")
		if err != nil {
			failed++
			app.printf("FAIL %s: %v\n", path, err)
			continue
		}
		if !c.Quiet {
			app.printf("ok   %s (%s, %s, %d sections)\n", path, h.ID(), s.Key(), len(s.Sections))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(c.Paths))
	}
	return nil
}

func (c *CheckCmd) checkLibrary(app *App) error {
	lib, err := app.openLibrary()
	if err != nil {
		return err
	}
	res, err := lib.LoadAll(app.Context)
	if err != nil {
		return err
	}
	for _, f := range res.Failures {
		app.printf("FAIL %s: %v\n", f.Path, f.Err)
	}
	if !c.Quiet {
		app.printf("%d songs ok, %d failed\n", len(res.Songs), len(res.Failures))
	}
	if len(res.Failures) > 0 {
		return fmt.Errorf("%d of %d files failed", len(res.Failures), len(res.Failures)+len(res.Songs))
	}
	return nil
}

// FmtCmd rewrites song files in canonical form.
type FmtCmd struct {
	Paths []string `arg:"" help:"Song files to format" type:"existingfile"`
	Write bool     `short:"w" help:"Write result to the source file instead of stdout"`
	List  bool     `short:"l" help:"List files whose formatting differs"`
}

func (c *FmtCmd) Run(app *App) error {
	for _, path := range c.Paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.NewIO("read", path, err)
		}
		s, err := song.ParseBytes(data)
		if err != nil {
			var pe *errors.ParseError
			if errors.As(err, &pe) {
				return pe.WithPath(path)
			}
			return err
		}
		if err := s.Validate(); err != nil {
			return fmt.Errorf("%s: formatting would change the song: %w", path, err)
		}
		out := s.Bytes()
		changed := !bytes.Equal(out, data)

		if c.List && changed {
			app.printf("%s\n", path)
		}
		switch {
		case c.Write && changed:
			if err := rewriteFile(path, out); err != nil {
				return err
			}
			logging.InfoContext(app.Context, "formatted", "path", path)
		case !c.Write && !c.List:
			if _, err := app.Out.Write(out); err != nil {
				return err
			}
		}
	}
	return nil
}

// ConvertCmd converts a song between formats.
type ConvertCmd struct {
	Input    string `arg:"" help:"Input file" type:"existingfile"`
	To       string `required:"" help:"Output format: sng or json"`
	From     string `help:"Input format (default: detect)"`
	Category string `help:"Category for formats that carry none"`
	Out      string `short:"o" help:"Output file (default: stdout)" type:"path"`
}

func (c *ConvertCmd) Run(app *App) error {
	s, _, err := readSong(c.Input, c.From, c.Category)
	if err != nil {
		return err
	}
	target, err := formats.Get(c.To)
	if err != nil {
		return err
	}
	out, err := target.Encode(s)
	if err != nil {
		return err
	}
	if c.Out == "" {
		_, err = app.Out.Write(out)
		return err
	}
	if err := os.WriteFile(c.Out, out, 0644); err != nil {
		return errors.NewIO("write", c.Out, err)
	}
	logging.InfoContext(app.Context, "converted", "input", c.Input, "output", c.Out, "format", target.ID())
	return nil
}

// TransposeCmd shifts the chords of a song.
type TransposeCmd struct {
	Path      string `arg:"" help:"Song file" type:"existingfile"`
	Semitones int    `short:"s" required:"" help:"Semitones to shift, negative to go down"`
	Write     bool   `short:"w" help:"Write result to the source file instead of stdout"`
	Save      bool   `help:"Save the result into the library"`
}

func (c *TransposeCmd) Run(app *App) error {
	s, h, err := readSong(c.Path, "", "")
	if err != nil {
		return err
	}
	out := chord.TransposeSong(s, c.Semitones)
	if err := out.Validate(); err != nil {
		return fmt.Errorf("%s: %w", c.Path, err)
	}

	switch {
	case c.Save:
		lib, err := app.openLibrary()
		if err != nil {
			return err
		}
		rev, err := lib.Save(app.Context, out)
		if err != nil {
			return err
		}
		app.printf("saved %s (revision %s)\n", out.Key(), rev.Hash)
	case c.Write:
		data, err := h.Encode(out)
		if err != nil {
			return fmt.Errorf("cannot write %s back as %s: %w", c.Path, h.ID(), err)
		}
		if err := rewriteFile(c.Path, data); err != nil {
			return err
		}
	default:
		_, err = app.Out.Write(out.Bytes())
		return err
	}
	return nil
}

// rewriteFile replaces the content of an existing file, keeping its mode.
func rewriteFile(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.NewIO("stat", path, err)
	}
	if err := os.WriteFile(path, data, info.Mode().Perm()); err != nil {
		return errors.NewIO("write", path, err)
	}
	return nil
}
