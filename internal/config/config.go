package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigDir is the directory, relative to the working directory, searched for config.yaml
const DefaultConfigDir = ".pitufo"

// ConfigPathEnv overrides the config file location when set
const ConfigPathEnv = "PITUFO_CONFIG"

// Config represents pitufo run options.
// A validated Config is treated as immutable for the duration of a run.
type Config struct {
	// Path is the directory to scan; it comes from the command line only
	Path string `yaml:"-"`

	// FollowSymlinks descends into symlinked directories
	FollowSymlinks bool `yaml:"follow_symlinks"`

	// MaxDepth caps traversal depth (0 = unlimited)
	MaxDepth int `yaml:"max_depth"`

	// Minify writes compact output instead of indented output
	Minify bool `yaml:"minify"`

	// StripBOM removes a leading byte-order marker before parsing
	StripBOM bool `yaml:"strip_bom"`

	// Verbose reports every successfully processed file
	Verbose bool `yaml:"verbose"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir, when set, also writes a run log file into this directory
	LogDir string `yaml:"log_dir"`

	// Workers is the number of files processed concurrently (1 = sequential)
	Workers int `yaml:"workers"`

	// AtomicWrite replaces files through a temp file and rename
	AtomicWrite bool `yaml:"atomic_write"`

	// Lock refuses to start while another run holds the lock for the same root
	Lock bool `yaml:"lock"`

	// HistoryDB is the path of the SQLite run-history database ("" = disabled)
	HistoryDB string `yaml:"history_db"`

	// FailOnError makes the run fail when any file failed
	FailOnError bool `yaml:"fail_on_error"`
}

// FlagOverrides holds command-line values. Nil fields were not set and leave
// the configuration untouched.
type FlagOverrides struct {
	Path           *string
	FollowSymlinks *bool
	MaxDepth       *int
	Minify         *bool
	StripBOM       *bool
	Verbose        *bool
	LogLevel       *string
	LogDir         *string
	Workers        *int
	AtomicWrite    *bool
	Lock           *bool
	HistoryDB      *string
	FailOnError    *bool
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		FollowSymlinks: false,
		MaxDepth:       0, // Unlimited
		Minify:         false,
		StripBOM:       false,
		Verbose:        false,
		LogLevel:       "info",
		LogDir:         "",
		Workers:        1, // Sequential
		AtomicWrite:    false,
		Lock:           false,
		HistoryDB:      "",
		FailOnError:    false,
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Keys absent from the file keep their default values
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .pitufo/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(ResolveConfigPath(dir))
}

// ResolveConfigPath returns the config file location
// Priority order:
//  1. PITUFO_CONFIG environment variable (if set)
//  2. <dir>/.pitufo/config.yaml
func ResolveConfigPath(dir string) string {
	if path := os.Getenv(ConfigPathEnv); path != "" {
		return path
	}
	return filepath.Join(dir, DefaultConfigDir, "config.yaml")
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
// This allows CLI flags to take precedence over config file settings
func (c *Config) MergeWithFlags(f FlagOverrides) {
	if f.Path != nil {
		c.Path = *f.Path
	}
	if f.FollowSymlinks != nil {
		c.FollowSymlinks = *f.FollowSymlinks
	}
	if f.MaxDepth != nil {
		c.MaxDepth = *f.MaxDepth
	}
	if f.Minify != nil {
		c.Minify = *f.Minify
	}
	if f.StripBOM != nil {
		c.StripBOM = *f.StripBOM
	}
	if f.Verbose != nil {
		c.Verbose = *f.Verbose
	}
	if f.LogLevel != nil {
		c.LogLevel = *f.LogLevel
	}
	if f.LogDir != nil {
		c.LogDir = *f.LogDir
	}
	if f.Workers != nil {
		c.Workers = *f.Workers
	}
	if f.AtomicWrite != nil {
		c.AtomicWrite = *f.AtomicWrite
	}
	if f.Lock != nil {
		c.Lock = *f.Lock
	}
	if f.HistoryDB != nil {
		c.HistoryDB = *f.HistoryDB
	}
	if f.FailOnError != nil {
		c.FailOnError = *f.FailOnError
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}

	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be >= 0, got %d", c.MaxDepth)
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	return nil
}
