package collection

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"galman/internal/config"
)

const (
	databaseFileName = "collection.db"
	lockFileName     = "lock"
)

// Names are the partition directory names inside a collection root.
type Names struct {
	Airlock string
	Gallery string
	State   string
}

// DefaultNames returns the standard partition names.
func DefaultNames() Names {
	d := config.Default()
	return NamesFromConfig(&d)
}

// NamesFromConfig extracts partition names from the collection config section.
func NamesFromConfig(cfg *config.Config) Names {
	return Names{
		Airlock: cfg.Collection.AirlockDir,
		Gallery: cfg.Collection.GalleryDir,
		State:   cfg.Collection.StateDir,
	}
}

// Layout holds the absolute paths of a collection's partitions.
type Layout struct {
	Root    string
	Airlock string
	Gallery string
	State   string
}

// NewLayout resolves partition paths under root. Empty names fall back to the defaults.
func NewLayout(root string, names Names) Layout {
	defaults := config.Default().Collection
	pick := func(value, fallback string) string {
		if strings.TrimSpace(value) == "" {
			return fallback
		}
		return value
	}
	root = filepath.Clean(root)
	return Layout{
		Root:    root,
		Airlock: filepath.Join(root, pick(names.Airlock, defaults.AirlockDir)),
		Gallery: filepath.Join(root, pick(names.Gallery, defaults.GalleryDir)),
		State:   filepath.Join(root, pick(names.State, defaults.StateDir)),
	}
}

// DatabasePath returns the decision record location.
func (l Layout) DatabasePath() string {
	return filepath.Join(l.State, databaseFileName)
}

// LockPath returns the session lock file location.
func (l Layout) LockPath() string {
	return filepath.Join(l.State, lockFileName)
}

// InAirlock reports whether path names a file directly inside the airlock.
func (l Layout) InAirlock(path string) bool {
	return filepath.Dir(filepath.Clean(path)) == l.Airlock
}

// EnsureLayout creates the partition directories under an existing root. It is
// idempotent.
func EnsureLayout(root string, names Names) (Layout, error) {
	if strings.TrimSpace(root) == "" {
		return Layout{}, fmt.Errorf("collection root is required")
	}
	info, err := os.Stat(root)
	if err != nil {
		return Layout{}, fmt.Errorf("collection root %q: %w", root, err)
	}
	if !info.IsDir() {
		return Layout{}, fmt.Errorf("collection root %q is not a directory", root)
	}
	layout := NewLayout(root, names)
	for _, dir := range []string{layout.Airlock, layout.Gallery, layout.State} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Layout{}, fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return layout, nil
}
