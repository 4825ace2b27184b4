package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/waystation/internal/listeners"
	"github.com/starford/waystation/internal/stationservice"
	pkgconfig "github.com/starford/waystation/pkg/config"
)

// DefaultDirectory is where Waystations are stored unless configured.
const DefaultDirectory = "~/.waystation"

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Index   IndexConfig       `yaml:"index"`
	Export  ExportConfig      `yaml:"export"`
	Context ContextConfig     `yaml:"context"`
	Recent  RecentConfig      `yaml:"recent"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Context.Validate(); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	return c.Recent.Validate()
}

// Resolve expands "~" in the storage directory and derives the index and
// export locations that were left empty from it.
func (c *Config) Resolve() error {
	dir, err := pkgconfig.ExpandHome(c.Storage.Directory)
	if err != nil {
		return err
	}
	c.Storage.Directory = dir

	if c.Index.Path == "" {
		c.Index.Path = filepath.Join(dir, "index.db")
	}
	if c.Index.Path, err = pkgconfig.ExpandHome(c.Index.Path); err != nil {
		return err
	}
	if c.Export.Directory == "" {
		c.Export.Directory = filepath.Join(dir, "markdown")
	}
	c.Export.Directory, err = pkgconfig.ExpandHome(c.Export.Directory)
	return err
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// StorageConfig holds the directory Waystation documents live in. It is also
// the directory recorded in new Waystations.
type StorageConfig struct {
	Directory string `yaml:"directory"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Directory, validation.Required),
	)
}

// IndexConfig holds SQLite search index configuration.
type IndexConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ExportConfig holds where exported documents are written.
type ExportConfig struct {
	Directory string `yaml:"directory"`
}

// ContextConfig controls the File Context note attached to marks.
type ContextConfig struct {
	Lines int `yaml:"lines"`
}

// Validate validates the context configuration.
func (c *ContextConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Lines, validation.Min(0), validation.Max(50)),
	)
}

// RecentConfig holds how many backups count as recent.
type RecentConfig struct {
	Limit int `yaml:"limit"`
}

// Validate validates the recent configuration.
func (c *RecentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Limit, validation.Required, validation.Min(1)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Storage: StorageConfig{
			Directory: DefaultDirectory,
		},
		Index: IndexConfig{
			Enabled: true,
		},
		Context: ContextConfig{
			Lines: listeners.DefaultContextLines,
		},
		Recent: RecentConfig{
			Limit: stationservice.DefaultRecentLimit,
		},
	}
}
