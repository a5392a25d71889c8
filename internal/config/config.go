package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Collection names the collection root and the partition directories inside it.
type Collection struct {
	Path       string `toml:"path"`
	AirlockDir string `toml:"airlock_dir"`
	GalleryDir string `toml:"gallery_dir"`
	StateDir   string `toml:"state_dir"`
}

// Import contains configuration for copying files into the airlock.
type Import struct {
	Ignore         []string `toml:"ignore"`
	FollowSymlinks bool     `toml:"follow_symlinks"`
}

// Viewer contains configuration for the external media viewer (mpv).
type Viewer struct {
	Binary                   string   `toml:"binary"`
	AcceptKeys               []string `toml:"accept_keys"`
	RejectKeys               []string `toml:"reject_keys"`
	QuitKeys                 []string `toml:"quit_keys"`
	Mute                     bool     `toml:"mute"`
	LoopFile                 bool     `toml:"loop_file"`
	StartTimeoutSeconds      int      `toml:"start_timeout_seconds"`
	SlideshowIntervalSeconds int      `toml:"slideshow_interval_seconds"`
	ExtraArgs                []string `toml:"extra_args"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	Dir           string `toml:"dir"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for galman.
//
// Configuration sections by subsystem:
//   - Collection: collection root and partition directory names
//   - Import: ignore patterns and symlink handling for imports
//   - Viewer: mpv binary, key bindings, and playback flags
//   - Logging: log format, level, directory, and retention
type Config struct {
	Collection Collection `toml:"collection"`
	Import     Import     `toml:"import"`
	Viewer     Viewer     `toml:"viewer"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigLocation)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigLocation)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigFileName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// WithCollection returns a copy of the config pointing at the given collection root.
// An empty value leaves the configured collection untouched.
func (c *Config) WithCollection(root string) (*Config, error) {
	clone := *c
	root = strings.TrimSpace(root)
	if root == "" {
		return &clone, nil
	}
	expanded, err := expandPath(root)
	if err != nil {
		return nil, fmt.Errorf("collection path: %w", err)
	}
	clone.Collection.Path = expanded
	return &clone, nil
}

// EnsureDirectories creates the log directory. Collection directories are owned
// by the collection package and created when the collection is opened.
func (c *Config) EnsureDirectories() error {
	if strings.TrimSpace(c.Logging.Dir) == "" {
		return nil
	}
	if err := os.MkdirAll(c.Logging.Dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Logging.Dir, err)
	}
	return nil
}

// ViewerStartTimeout returns how long to wait for the viewer IPC socket.
func (c *Config) ViewerStartTimeout() time.Duration {
	return time.Duration(c.Viewer.StartTimeoutSeconds) * time.Second
}

// SlideshowInterval returns the auto-advance interval used by the gallery slideshow.
func (c *Config) SlideshowInterval() time.Duration {
	return time.Duration(c.Viewer.SlideshowIntervalSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}
