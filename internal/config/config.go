// Package config loads songbook settings from a TOML file and SONGBOOK_
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"github.com/FocuswithJustin/songbook/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. SONGBOOK_LIBRARY_ROOT.
const EnvPrefix = "SONGBOOK"

// Config holds application configuration.
type Config struct {
	Library LibraryConfig
	Catalog CatalogConfig
	Log     LogConfig
	Bundle  BundleConfig
	Workers int
}

// LibraryConfig locates the song files.
type LibraryConfig struct {
	Root string
}

// CatalogConfig holds sqlite index settings.
type CatalogConfig struct {
	Path string
	// Language is a BCP 47 tag used to sort titles and categories.
	Language string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Format string
}

// BundleConfig holds archive settings.
type BundleConfig struct {
	Compression string
}

// DefaultPath returns the config file used when neither an explicit path
// nor SONGBOOK_CONFIG is given.
func DefaultPath() string {
	return filepath.Join(userHome(), ".config", "songbook", "config.toml")
}

// Load reads configuration from path (or SONGBOOK_CONFIG, or DefaultPath)
// and the environment. A missing default file is not an error; a missing
// explicit file is.
func Load(path string) (Config, error) {
	v := viper.New()

	dataDir := filepath.Join(userHome(), ".local", "share", "songbook")
	v.SetDefault("library.root", filepath.Join(dataDir, "songs"))
	v.SetDefault("catalog.path", filepath.Join(dataDir, "catalog.db"))
	v.SetDefault("catalog.language", "pl")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("bundle.compression", "xz")
	v.SetDefault("workers", runtime.NumCPU())

	v.SetConfigType("toml")

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvPrefix + "_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		path = DefaultPath()
	}
	v.SetConfigFile(path)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if explicit || !isNotExist(err) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks values that would otherwise fail later and far from the
// config file.
func (c Config) Validate() error {
	if c.Library.Root == "" {
		return errors.New("library.root must be set")
	}
	if c.Catalog.Path == "" {
		return errors.New("catalog.path must be set")
	}
	if _, err := language.Parse(c.Catalog.Language); err != nil {
		return fmt.Errorf("catalog.language: %w", err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return fmt.Errorf("log.format: %w", err)
	}
	switch c.Bundle.Compression {
	case "xz", "gzip", "none":
	default:
		return fmt.Errorf("bundle.compression: unknown value %q", c.Bundle.Compression)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}

// Save writes cfg as TOML to path, creating the directory if needed.
func Save(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("library.root", cfg.Library.Root)
	v.Set("catalog.path", cfg.Catalog.Path)
	v.Set("catalog.language", cfg.Catalog.Language)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("bundle.compression", cfg.Bundle.Compression)
	v.Set("workers", cfg.Workers)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

func userHome() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return os.Getenv("HOME")
}
