// Package config loads the workspace configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/alimasry/boxesnlines/store"
)

// ErrInvalidPattern is returned for an ignore entry that is not a valid glob.
var ErrInvalidPattern = errors.New("invalid ignore pattern")

// DefaultFile is the config file location relative to the workspace root.
const DefaultFile = ".boxesnlines/config.yml"

// Config holds workspace settings. Zero values in the file fall back to defaults.
type Config struct {
	// Workspace is the root directory; storage and ignore patterns are relative to it.
	Workspace  string `yaml:"-"`
	ListenAddr string `yaml:"listen_addr"`
	StorageDir string `yaml:"storage_dir"`
	// Author is recorded on new annotations. Empty means annotation.DefaultAuthor.
	Author string `yaml:"author"`
	// Ignore lists doublestar globs for documents that are never annotated.
	Ignore            []string `yaml:"ignore"`
	Cache             bool     `yaml:"cache"`
	LogLevel          string   `yaml:"log_level"`
	LogFormat         string   `yaml:"log_format"`
	MessagesPerSecond float64  `yaml:"messages_per_second"`
}

// Default returns the built-in configuration for a workspace.
func Default(workspace string) Config {
	return Config{
		Workspace:         workspace,
		ListenAddr:        "127.0.0.1:7357",
		StorageDir:        store.DefaultDir,
		Cache:             true,
		LogLevel:          "info",
		LogFormat:         "text",
		MessagesPerSecond: 50,
	}
}

// Load reads the config file at path over the defaults. A missing file is
// not an error. An empty path means DefaultFile inside the workspace.
func Load(workspace, path string) (Config, error) {
	cfg := Default(workspace)
	if path == "" {
		path = filepath.Join(workspace, DefaultFile)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}
	cfg.Workspace = workspace
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values the file may have set.
func (c Config) Validate() error {
	for _, p := range c.Ignore {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("%w: %q", ErrInvalidPattern, p)
		}
	}
	if c.MessagesPerSecond < 0 {
		return fmt.Errorf("messages_per_second must not be negative, got %v", c.MessagesPerSecond)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	return nil
}

// StoragePath returns the absolute annotation storage directory.
func (c Config) StoragePath() string {
	dir := c.StorageDir
	if dir == "" {
		dir = store.DefaultDir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.Workspace, dir)
}

// Ignored reports whether a document matches one of the ignore patterns.
// Patterns match the path relative to the workspace, with forward slashes.
// Documents outside the workspace are matched by their absolute path.
func (c Config) Ignored(docPath string) bool {
	if len(c.Ignore) == 0 {
		return false
	}
	rel := docPath
	if c.Workspace != "" {
		if r, err := filepath.Rel(c.Workspace, docPath); err == nil && !isOutside(r) {
			rel = r
		}
	}
	rel = filepath.ToSlash(rel)
	for _, p := range c.Ignore {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func isOutside(rel string) bool {
	return rel == ".." || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator)
}
