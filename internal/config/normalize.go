package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeCollection(); err != nil {
		return err
	}
	c.normalizeImport()
	c.normalizeViewer()
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizeCollection() error {
	c.Collection.Path = strings.TrimSpace(c.Collection.Path)
	if c.Collection.Path == "" {
		if value, ok := os.LookupEnv(collectionEnvVar); ok {
			c.Collection.Path = strings.TrimSpace(value)
		}
	}
	var err error
	if c.Collection.Path, err = expandPath(c.Collection.Path); err != nil {
		return fmt.Errorf("collection.path: %w", err)
	}
	c.Collection.AirlockDir = cleanDirName(c.Collection.AirlockDir, defaultAirlockDir)
	c.Collection.GalleryDir = cleanDirName(c.Collection.GalleryDir, defaultGalleryDir)
	c.Collection.StateDir = cleanDirName(c.Collection.StateDir, defaultStateDir)
	return nil
}

func cleanDirName(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return filepath.Clean(value)
}

func (c *Config) normalizeImport() {
	patterns := make([]string, 0, len(c.Import.Ignore))
	for _, pattern := range c.Import.Ignore {
		if trimmed := strings.TrimSpace(pattern); trimmed != "" {
			patterns = append(patterns, filepath.ToSlash(trimmed))
		}
	}
	c.Import.Ignore = patterns
}

func (c *Config) normalizeViewer() {
	c.Viewer.Binary = strings.TrimSpace(c.Viewer.Binary)
	if c.Viewer.Binary == "" {
		c.Viewer.Binary = defaultViewerBinary
	}
	c.Viewer.AcceptKeys = trimKeys(c.Viewer.AcceptKeys)
	c.Viewer.RejectKeys = trimKeys(c.Viewer.RejectKeys)
	c.Viewer.QuitKeys = trimKeys(c.Viewer.QuitKeys)
	if c.Viewer.StartTimeoutSeconds <= 0 {
		c.Viewer.StartTimeoutSeconds = defaultViewerStartTimeout
	}
	if c.Viewer.SlideshowIntervalSeconds <= 0 {
		c.Viewer.SlideshowIntervalSeconds = defaultSlideshowInterval
	}
}

func trimKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	return nil
}
