package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCollection(); err != nil {
		return err
	}
	if err := c.validateImport(); err != nil {
		return err
	}
	if err := c.validateViewer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// RequireCollection reports a descriptive error when no collection root is configured.
func (c *Config) RequireCollection() error {
	if c.Collection.Path == "" {
		return fmt.Errorf("collection path is required: pass --collection, set %s, or set collection.path in the config file", collectionEnvVar)
	}
	return nil
}

func (c *Config) validateCollection() error {
	names := map[string]string{
		"collection.airlock_dir": c.Collection.AirlockDir,
		"collection.gallery_dir": c.Collection.GalleryDir,
		"collection.state_dir":   c.Collection.StateDir,
	}
	seen := make(map[string]string, len(names))
	for key, value := range names {
		if filepath.IsAbs(value) || value == "." || value == ".." || filepath.Base(value) != value {
			return fmt.Errorf("%s must be a plain directory name inside the collection, got %q", key, value)
		}
		if other, dup := seen[value]; dup {
			return fmt.Errorf("%s and %s must differ (both %q)", key, other, value)
		}
		seen[value] = key
	}
	return nil
}

func (c *Config) validateImport() error {
	for _, pattern := range c.Import.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("import.ignore: invalid pattern %q", pattern)
		}
	}
	return nil
}

func (c *Config) validateViewer() error {
	if len(c.Viewer.AcceptKeys) == 0 {
		return errors.New("viewer.accept_keys must contain at least one key")
	}
	if len(c.Viewer.RejectKeys) == 0 {
		return errors.New("viewer.reject_keys must contain at least one key")
	}
	if len(c.Viewer.QuitKeys) == 0 {
		return errors.New("viewer.quit_keys must contain at least one key")
	}
	bound := make(map[string]string)
	for action, keys := range map[string][]string{
		"accept": c.Viewer.AcceptKeys,
		"reject": c.Viewer.RejectKeys,
		"quit":   c.Viewer.QuitKeys,
	} {
		for _, key := range keys {
			if other, dup := bound[key]; dup && other != action {
				return fmt.Errorf("viewer key %q is bound to both %s and %s", key, other, action)
			}
			bound[key] = action
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
