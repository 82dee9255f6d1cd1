// Package config loads engine settings from an optional sema.toml file and
// locates the Rust standard library sources.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the config file looked up from the project directory upwards.
const FileName = "sema.toml"

// Config holds the settings of one engine.
type Config struct {
	// RustSrcPath overrides discovery of the std sources.
	RustSrcPath string `toml:"rust_src_path"`
	// CacheSize bounds the number of files read from disk kept in memory.
	CacheSize int `toml:"cache_size"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `toml:"log_level"`
	Metrics  bool   `toml:"metrics"`
}

// Default returns the settings used when no file is found.
func Default() Config {
	return Config{CacheSize: 256, LogLevel: "warn"}
}

// Load reads the TOML file at path over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		slog.Warn("unknown config key", "file", path, "key", key.String())
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if cfg.RustSrcPath != "" && !filepath.IsAbs(cfg.RustSrcPath) {
		cfg.RustSrcPath = filepath.Join(filepath.Dir(path), cfg.RustSrcPath)
	}
	return &cfg, nil
}

// Find walks up from dir looking for FileName.
func Find(dir string) (string, bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		p := filepath.Join(dir, FileName)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// LoadOrDefault loads path when it is set, else the nearest FileName above
// dir, else the defaults.
func LoadOrDefault(path, dir string) (*Config, error) {
	if path == "" {
		found, ok := Find(dir)
		if !ok {
			cfg := Default()
			return &cfg, nil
		}
		path = found
	}
	return Load(path)
}

func (c *Config) validate() error {
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must not be negative, got %d", c.CacheSize)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() slog.Level {
	l, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return l
}

// ParseLevel maps a level name to a slog.Level. An empty name is warn.
func ParseLevel(name string) (slog.Level, error) {
	if strings.TrimSpace(name) == "" {
		return slog.LevelWarn, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q", name)
	}
	return l, nil
}

// SrcPath returns the configured std source path after validating it, or
// the discovered one when none is configured.
func (c *Config) SrcPath() (string, error) {
	if c.RustSrcPath != "" {
		return ValidateRustSrcPath(c.RustSrcPath)
	}
	return DiscoverRustSrcPath()
}

// IsSrcPathError reports whether err came from locating the std sources.
func IsSrcPathError(err error) bool {
	return errors.Is(err, ErrRustSrcMissing) ||
		errors.Is(err, ErrRustSrcDoesNotExist) ||
		errors.Is(err, ErrRustSrcNotSourceTree)
}
