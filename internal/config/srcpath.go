package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

var (
	// ErrRustSrcMissing means no candidate location held the std sources.
	ErrRustSrcMissing = errors.New("rust std sources not found")
	// ErrRustSrcDoesNotExist means a configured location does not exist.
	ErrRustSrcDoesNotExist = errors.New("rust src path does not exist")
	// ErrRustSrcNotSourceTree means a location exists but holds no std crate.
	ErrRustSrcNotSourceTree = errors.New("not a rust source tree")
)

// SrcLocator finds the std sources. Its hooks are replaceable for tests.
type SrcLocator struct {
	Getenv   func(string) string
	Sysroot  func() (string, error)
	Defaults []string
}

// DefaultLocator consults the environment, rustc and the usual install
// locations.
func DefaultLocator() SrcLocator {
	return SrcLocator{
		Getenv:   os.Getenv,
		Sysroot:  rustcSysroot,
		Defaults: []string{"/usr/local/src/rust/src", "/usr/src/rust/src"},
	}
}

var discovered = sync.OnceValues(func() (string, error) {
	return DefaultLocator().Locate()
})

// DiscoverRustSrcPath locates the std sources once per process.
func DiscoverRustSrcPath() (string, error) {
	return discovered()
}

// Locate tries RUST_SRC_PATH, then the rust-src component of the rustc
// sysroot, then the default locations. A set RUST_SRC_PATH or a found
// sysroot component is final: its validation error is returned as is.
func (l SrcLocator) Locate() (string, error) {
	if env := l.Getenv("RUST_SRC_PATH"); env != "" {
		first, _, _ := strings.Cut(env, string(os.PathListSeparator))
		slog.Debug("rust src path from environment", "path", first)
		return ValidateRustSrcPath(first)
	}
	if l.Sysroot != nil {
		if root, err := l.Sysroot(); err == nil && root != "" {
			for _, rel := range []string{"lib/rustlib/src/rust/library", "lib/rustlib/src/rust/src"} {
				p := filepath.Join(root, filepath.FromSlash(rel))
				if isDir(p) {
					slog.Debug("rust src path from sysroot", "path", p)
					return ValidateRustSrcPath(p)
				}
			}
		} else if err != nil {
			slog.Debug("rustc sysroot unavailable", "err", err)
		}
	}
	for _, p := range l.Defaults {
		if got, err := ValidateRustSrcPath(p); err == nil {
			return got, nil
		}
	}
	slog.Warn("rust std source path not found")
	return "", ErrRustSrcMissing
}

// ValidateRustSrcPath checks that path holds a std crate in either the
// libstd or the std/src layout.
func ValidateRustSrcPath(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("config: %s: %w", path, ErrRustSrcDoesNotExist)
	}
	if isDir(filepath.Join(path, "libstd")) || isDir(filepath.Join(path, "std", "src")) {
		return path, nil
	}
	return "", fmt.Errorf("config: %s: %w", filepath.Join(path, "libstd"), ErrRustSrcNotSourceTree)
}

func rustcSysroot() (string, error) {
	out, err := exec.Command("rustc", "--print", "sysroot").Output()
	if err != nil {
		return "", fmt.Errorf("config: rustc --print sysroot: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
