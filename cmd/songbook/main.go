// Command songbook checks, formats, converts and indexes song files.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"github.com/FocuswithJustin/songbook/internal/catalog"
	"github.com/FocuswithJustin/songbook/internal/config"
	"github.com/FocuswithJustin/songbook/internal/library"
	"github.com/FocuswithJustin/songbook/internal/logging"

	// Register the format handlers.
	_ "github.com/FocuswithJustin/songbook/internal/formats/json"
	_ "github.com/FocuswithJustin/songbook/internal/formats/openlyrics"
	_ "github.com/FocuswithJustin/songbook/internal/formats/sng"
)

const version = "0.1.0"

// CLI defines the command-line interface for songbook.
type CLI struct {
	// Global flags
	Config    string `name:"config" short:"c" help:"Config file (default: $SONGBOOK_CONFIG or ~/.config/songbook/config.toml)" type:"path"`
	Library   string `name:"library" short:"L" help:"Song library directory (overrides library.root)" type:"path"`
	Catalog   string `name:"catalog" help:"Catalog database path (overrides catalog.path)" type:"path"`
	LogLevel  string `name:"log-level" help:"Log level: debug, info, warn, error"`
	LogFormat string `name:"log-format" help:"Log format: text or json"`

	Check       CheckCmd       `cmd:"" help:"Parse song files and report errors"`
	Fmt         FmtCmd         `cmd:"" help:"Rewrite song files in canonical form"`
	Convert     ConvertCmd     `cmd:"" help:"Convert a song between formats"`
	Transpose   TransposeCmd   `cmd:"" help:"Shift the chords of a song"`
	Index       IndexCmd       `cmd:"" help:"Rebuild the catalog from the library"`
	List        ListCmd        `cmd:"" help:"List indexed songs"`
	Search      SearchCmd      `cmd:"" help:"Search indexed songs"`
	Show        ShowCmd        `cmd:"" help:"Print an indexed song"`
	Delete      DeleteCmd      `cmd:"" help:"Remove a song from the library and catalog"`
	Bundle      BundleGroup    `cmd:"" help:"Pack and unpack song bundles"`
	History     HistoryCmd     `cmd:"" help:"List stored revisions of a song"`
	Restore     RestoreCmd     `cmd:"" help:"Restore a stored revision"`
	WriteConfig WriteConfigCmd `cmd:"" help:"Write the effective configuration to a file"`
	Version     VersionCmd     `cmd:"" help:"Print version information"`
}

// App carries the resolved configuration into commands.
type App struct {
	Config  config.Config
	Context context.Context
	Out     io.Writer
}

func (a *App) openLibrary() (*library.Library, error) {
	return library.Open(a.Config.Library.Root, library.WithWorkers(a.Config.Workers))
}

func (a *App) openCatalog() (*catalog.Catalog, error) {
	return catalog.Open(a.Context, a.Config.Catalog.Path, a.Config.Catalog.Language)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.Out, format, args...)
}

// run parses args, loads configuration and runs the selected command.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("songbook"),
		kong.Description("Songbook - song files with lyrics and chords"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	if cli.Library != "" {
		cfg.Library.Root = cli.Library
	}
	if cli.Catalog != "" {
		cfg.Catalog.Path = cli.Catalog
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Log.Format = cli.LogFormat
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(cfg.Log.Format)
	if err != nil {
		return err
	}
	logging.InitLoggerTo(stderr, level, format)

	ctx = logging.WithRunID(ctx, uuid.NewString())
	logging.DebugContext(ctx, "command started", "command", kctx.Command(), "library", cfg.Library.Root)

	return kctx.Run(&App{Config: cfg, Context: ctx, Out: stdout})
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "songbook: error: %v\n", err)
		os.Exit(1)
	}
}
