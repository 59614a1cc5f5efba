package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/TheMichaelB/cavsgen/internal/cavs"
	"github.com/TheMichaelB/cavsgen/internal/models"
)

// Config holds all application configuration.
type Config struct {
	// Response files, rendered in this order
	Inputs []InputConfig `mapstructure:"inputs" json:"inputs"`

	// Generated artifact
	Output OutputConfig `mapstructure:"output" json:"output"`

	// Storage paths
	Storage StorageConfig `mapstructure:"storage" json:"storage"`

	// Response file download
	Fetch FetchConfig `mapstructure:"fetch" json:"fetch"`

	// Logging
	Log LogConfig `mapstructure:"log" json:"log"`
}

// InputConfig describes one response file and how to parse it.
type InputConfig struct {
	Name    string `mapstructure:"name" json:"name"`       // Suite name in the output
	Path    string `mapstructure:"path" json:"path"`       // Relative to storage.input_dir
	Variant string `mapstructure:"variant" json:"variant"` // short, long

	// Unset fields fall back to the variant defaults.
	HeaderBlocks *int  `mapstructure:"header_blocks" json:"header_blocks,omitempty"`
	Truncate     *bool `mapstructure:"truncate" json:"truncate,omitempty"`
	TokenWidth   int   `mapstructure:"token_width" json:"token_width,omitempty"`
	IndexOrigin  int   `mapstructure:"index_origin" json:"index_origin,omitempty"`
}

// OutputConfig for the rendered test module.
type OutputConfig struct {
	Path       string `mapstructure:"path" json:"path"`               // Relative to storage.output_dir
	Format     string `mapstructure:"format" json:"format"`           // elm, go, json, yaml
	Module     string `mapstructure:"module" json:"module"`           // Elm module name
	HashModule string `mapstructure:"hash_module" json:"hash_module"` // Elm module under test
	Package    string `mapstructure:"package" json:"package"`         // Go package name
}

// StorageConfig for local file paths.
type StorageConfig struct {
	InputDir     string `mapstructure:"input_dir" json:"input_dir"`
	OutputDir    string `mapstructure:"output_dir" json:"output_dir"`
	StateDir     string `mapstructure:"state_dir" json:"state_dir"`
	StateBackend string `mapstructure:"state_backend" json:"state_backend"` // json, sqlite
	MaxFileSize  int64  `mapstructure:"max_file_size" json:"max_file_size"`  // Max file size in bytes
}

// FetchConfig for downloading response files.
type FetchConfig struct {
	BaseURL    string        `mapstructure:"base_url" json:"base_url"` // Prefix for bare file names
	Timeout    time.Duration `mapstructure:"timeout" json:"timeout"`
	MaxRetries int           `mapstructure:"max_retries" json:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay" json:"retry_delay"`
	UserAgent  string        `mapstructure:"user_agent" json:"user_agent"`
}

// LogConfig for logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" json:"format"` // text, json
	File   string `mapstructure:"file" json:"file"`     // Log file path (empty = stderr)
	Color  bool   `mapstructure:"color" json:"color"`   // Enable colored output
}

// Output formats.
const (
	FormatElm  = "elm"
	FormatGo   = "go"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// State backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// DefaultConfig returns config matching the original SHA-1 generator: the long
// file is rendered before the short one into CAVS.elm.
func DefaultConfig() *Config {
	dataDir := ".cavsgen"

	return &Config{
		Inputs: []InputConfig{
			{Name: "long", Path: "SHA1LongMsg.rsp", Variant: "long"},
			{Name: "short", Path: "SHA1ShortMsg.rsp", Variant: "short"},
		},
		Output: OutputConfig{
			Path:       "CAVS.elm",
			Format:     FormatElm,
			Module:     "CAVS",
			HashModule: "SHA1",
			Package:    "cavs",
		},
		Storage: StorageConfig{
			InputDir:     ".",
			OutputDir:    ".",
			StateDir:     filepath.Join(dataDir, "state"),
			StateBackend: BackendJSON,
			MaxFileSize:  64 * 1024 * 1024, // 64MB
		},
		Fetch: FetchConfig{
			BaseURL:    "",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			RetryDelay: time.Second,
			UserAgent:  "cavsgen/1.0",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Color:  true,
		},
	}
}

// Options resolves the parse options for an input.
func (in InputConfig) Options() (cavs.Variant, cavs.Options, error) {
	variant, err := cavs.ParseVariant(in.Variant)
	if err != nil {
		return 0, cavs.Options{}, err
	}

	opts := cavs.DefaultOptions()
	if in.HeaderBlocks != nil {
		opts.HeaderBlocks = *in.HeaderBlocks
	}
	if in.Truncate != nil {
		opts.Truncate = *in.Truncate
	}
	if in.TokenWidth != 0 {
		opts.TokenWidth = in.TokenWidth
	}
	opts.IndexOrigin = in.IndexOrigin

	if err := opts.Validate(); err != nil {
		return 0, cavs.Options{}, err
	}
	return variant, opts, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return models.ErrNoInputs
	}

	seen := make(map[string]bool, len(c.Inputs))
	for i, in := range c.Inputs {
		if in.Name == "" {
			return fmt.Errorf("inputs[%d].name is required", i)
		}
		if seen[in.Name] {
			return fmt.Errorf("duplicate input name: %s", in.Name)
		}
		seen[in.Name] = true

		if in.Path == "" {
			return fmt.Errorf("inputs[%d].path is required", i)
		}
		if _, _, err := in.Options(); err != nil {
			return fmt.Errorf("inputs[%d] (%s): %w", i, in.Name, err)
		}
	}

	if c.Output.Path == "" {
		return errors.New("output.path is required")
	}

	validFormats := map[string]bool{FormatElm: true, FormatGo: true, FormatJSON: true, FormatYAML: true}
	if !validFormats[c.Output.Format] {
		return fmt.Errorf("%w: %s", models.ErrUnknownFormat, c.Output.Format)
	}

	validBackends := map[string]bool{BackendJSON: true, BackendSQLite: true}
	if !validBackends[c.Storage.StateBackend] {
		return fmt.Errorf("invalid state backend: %s", c.Storage.StateBackend)
	}

	if c.Storage.MaxFileSize <= 0 {
		return errors.New("storage.max_file_size must be positive")
	}

	if c.Fetch.Timeout <= 0 {
		return errors.New("fetch.timeout must be positive")
	}

	if c.Fetch.MaxRetries < 0 {
		return errors.New("fetch.max_retries must not be negative")
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}

// StatePath returns the location of the state store for the configured backend.
func (c *Config) StatePath() string {
	return c.StatePathFor(c.Storage.StateBackend)
}

// StatePathFor returns where backend keeps its state.
func (c *Config) StatePathFor(backend string) string {
	if backend == BackendSQLite {
		return filepath.Join(c.Storage.StateDir, "state.db")
	}
	return c.Storage.StateDir
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Storage.OutputDir,
		c.Storage.StateDir,
	}

	if c.Log.File != "" {
		dirs = append(dirs, filepath.Dir(c.Log.File))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}
