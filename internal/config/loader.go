package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configPath string
	envPrefix  string
}

// NewLoader creates a config loader.
func NewLoader(configPath string) *Loader {
	return &Loader{
		v:          viper.New(),
		configPath: configPath,
		envPrefix:  "CAVSGEN",
	}
}

// Viper exposes the underlying viper instance so callers can bind flags.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// ConfigFile returns the file the config was read from, if any.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Load reads configuration from defaults, file, environment and bound flags,
// in increasing order of precedence.
func (l *Loader) Load() (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()
	setDefaults(l.v, cfg)

	// Load from file if exists
	if l.configPath != "" {
		l.v.SetConfigFile(l.configPath)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	} else {
		// Try default locations
		for _, path := range l.defaultPaths() {
			if _, err := os.Stat(path); err == nil {
				l.v.SetConfigFile(path)
				if err := l.v.ReadInConfig(); err != nil {
					return nil, fmt.Errorf("load config file %s: %w", path, err)
				}
				break
			}
		}
	}

	// Override with environment variables
	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	// A configured input list replaces the default one instead of merging into it.
	if l.v.InConfig("inputs") {
		cfg.Inputs = nil
	}

	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	cfg.Output.Format = strings.ToLower(cfg.Output.Format)

	// Validate final config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// defaultPaths returns default config file locations.
func (l *Loader) defaultPaths() []string {
	paths := []string{
		"cavsgen.yaml",
		"cavsgen.yml",
		"cavsgen.json",
		".cavsgen.yaml",
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(homeDir, ".config", "cavsgen", "config.yaml"),
		)
	}

	return paths
}

// setDefaults registers every scalar key so environment variables can
// override it.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("output.path", cfg.Output.Path)
	v.SetDefault("output.format", cfg.Output.Format)
	v.SetDefault("output.module", cfg.Output.Module)
	v.SetDefault("output.hash_module", cfg.Output.HashModule)
	v.SetDefault("output.package", cfg.Output.Package)

	v.SetDefault("storage.input_dir", cfg.Storage.InputDir)
	v.SetDefault("storage.output_dir", cfg.Storage.OutputDir)
	v.SetDefault("storage.state_dir", cfg.Storage.StateDir)
	v.SetDefault("storage.state_backend", cfg.Storage.StateBackend)
	v.SetDefault("storage.max_file_size", cfg.Storage.MaxFileSize)

	v.SetDefault("fetch.base_url", cfg.Fetch.BaseURL)
	v.SetDefault("fetch.timeout", cfg.Fetch.Timeout)
	v.SetDefault("fetch.max_retries", cfg.Fetch.MaxRetries)
	v.SetDefault("fetch.retry_delay", cfg.Fetch.RetryDelay)
	v.SetDefault("fetch.user_agent", cfg.Fetch.UserAgent)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.color", cfg.Log.Color)
}

// SaveExample writes an example config file. The format follows the file
// extension (yaml, json or toml); an existing file is never overwritten.
func SaveExample(path string) error {
	cfg := DefaultConfig()
	v := viper.New()
	setDefaults(v, cfg)

	inputs := make([]map[string]interface{}, 0, len(cfg.Inputs))
	for _, in := range cfg.Inputs {
		inputs = append(inputs, map[string]interface{}{
			"name":     in.Name,
			"path":     in.Path,
			"variant":  in.Variant,
			"truncate": true,
		})
	}
	v.Set("inputs", inputs)
	v.Set("fetch.timeout", cfg.Fetch.Timeout.String())
	v.Set("fetch.retry_delay", cfg.Fetch.RetryDelay.String())

	if err := v.SafeWriteConfigAs(path); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}
