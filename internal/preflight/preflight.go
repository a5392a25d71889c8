package preflight

import (
	"context"
	"path/filepath"

	"galman/internal/config"
)

// Check names used in results.
const (
	NameCollection = "Collection"
	NameFreeSpace  = "Airlock free space"
	NameViewer     = "Viewer"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	root := cfg.Collection.Path
	results := []Result{CheckDirectoryAccess(NameCollection, root)}

	// The airlock may not exist before the first run; its filesystem is the root's.
	spaceTarget := filepath.Join(root, cfg.Collection.AirlockDir)
	if !exists(spaceTarget) {
		spaceTarget = root
	}
	results = append(results, CheckFreeSpace(NameFreeSpace, spaceTarget, MinFreeBytes))
	results = append(results, CheckViewer(ctx, cfg.Viewer.Binary))
	return results
}

// Find returns the result with the given name.
func Find(results []Result, name string) (Result, bool) {
	for _, result := range results {
		if result.Name == name {
			return result, true
		}
	}
	return Result{}, false
}
