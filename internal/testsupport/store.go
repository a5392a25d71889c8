package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"galman/internal/collection"
	"galman/internal/config"
)

// MustOpenCollection opens the configured collection for tests and registers cleanup.
func MustOpenCollection(t testing.TB, cfg *config.Config) *collection.Store {
	t.Helper()

	store, err := collection.Open(context.Background(), cfg.Collection.Path, collection.Options{
		Names: collection.NamesFromConfig(cfg),
	})
	if err != nil {
		t.Fatalf("collection.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// Airlock admits a file with the given content straight into the collection's
// airlock and returns its airlock path.
func Airlock(t testing.TB, store *collection.Store, name, content string) string {
	t.Helper()

	source := WriteContent(t, filepath.Join(t.TempDir(), name), content)
	path, err := store.AdmitToAirlock(context.Background(), source)
	if err != nil {
		t.Fatalf("AdmitToAirlock: %v", err)
	}
	return path
}
