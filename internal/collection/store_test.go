package collection_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"galman/internal/collection"
	"galman/internal/faults"
	"galman/internal/fileutil"
	"galman/internal/identity"
	"galman/internal/testsupport"
)

func identityOf(t *testing.T, content string) identity.Identity {
	t.Helper()
	id, err := identity.Hasher{}.IdentifyReader(context.Background(), "test", strings.NewReader(content))
	if err != nil {
		t.Fatalf("IdentifyReader: %v", err)
	}
	return id
}

func TestOpenCreatesLayout(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCollection(t, cfg)

	layout := store.Layout()
	for _, dir := range []string{layout.Airlock, layout.Gallery, layout.State} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s, err=%v", dir, err)
		}
	}
	if _, err := os.Stat(layout.DatabasePath()); err != nil {
		t.Fatalf("expected database file: %v", err)
	}
	if filepath.Base(layout.Airlock) != ".airlock" || filepath.Base(layout.Gallery) != "Gallery" {
		t.Fatalf("unexpected layout %#v", layout)
	}
}

func TestOpenFailsWhenRootMissing(t *testing.T) {
	root := filepath.Join(t.TempDir(), "missing")
	_, err := collection.Open(context.Background(), root, collection.Options{})
	if err == nil {
		t.Fatal("expected error for missing collection root")
	}
	if _, statErr := os.Stat(root); !os.IsNotExist(statErr) {
		t.Fatalf("collection root should not be created, stat err=%v", statErr)
	}
}

func TestOpenRejectsSecondSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_ = testsupport.MustOpenCollection(t, cfg)

	_, err := collection.Open(context.Background(), cfg.Collection.Path, collection.Options{
		Names: collection.NamesFromConfig(cfg),
	})
	if !errors.Is(err, faults.ErrCollectionBusy) {
		t.Fatalf("expected ErrCollectionBusy, got %v", err)
	}
}

func TestCloseReleasesLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()
	opts := collection.Options{Names: collection.NamesFromConfig(cfg)}

	first, err := collection.Open(ctx, cfg.Collection.Path, opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	second, err := collection.Open(ctx, cfg.Collection.Path, opts)
	if err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
	_ = second.Close()
}

func TestAdmitToAirlockCopiesSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCollection(t, cfg)

	source := testsupport.WriteContent(t, filepath.Join(t.TempDir(), "holiday.JPG"), "beach")
	path, err := store.AdmitToAirlock(context.Background(), source)
	if err != nil {
		t.Fatalf("AdmitToAirlock: %v", err)
	}
	if filepath.Dir(path) != store.Layout().Airlock || filepath.Base(path) != "holiday.JPG" {
		t.Fatalf("unexpected airlock path %s", path)
	}
	if got := testsupport.ReadContent(t, path); got != "beach" {
		t.Fatalf("airlock content = %q", got)
	}
	if got := testsupport.ReadContent(t, source); got != "beach" {
		t.Fatalf("source modified: %q", got)
	}
	for _, name := range testsupport.ListNames(t, store.Layout().Airlock) {
		if strings.HasSuffix(name, ".partial") {
			t.Fatalf("temporary copy left behind: %s", name)
		}
	}
}

func TestAdmitToAirlockAvoidsNameCollision(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCollection(t, cfg)

	first := testsupport.Airlock(t, store, "clip.mp4", "one")
	second := testsupport.Airlock(t, store, "clip.mp4", "two")
	if first == second {
		t.Fatalf("expected distinct airlock paths, both %s", first)
	}
	if !strings.HasPrefix(filepath.Base(second), "clip-") || filepath.Ext(second) != ".mp4" {
		t.Fatalf("unexpected collision name %s", second)
	}
	if testsupport.ReadContent(t, first) != "one" || testsupport.ReadContent(t, second) != "two" {
		t.Fatal("collision overwrote an airlock file")
	}
}

func TestAdmitToAirlockUnhidesDotNames(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCollection(t, cfg)

	path := testsupport.Airlock(t, store, ".secret.png", "x")
	if strings.HasPrefix(filepath.Base(path), ".") {
		t.Fatalf("airlock file must be visible, got %s", path)
	}
}

func TestAcceptIntoGalleryMovesAndRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCollection(t, cfg)
	ctx := context.Background()

	path := testsupport.Airlock(t, store, "Cat.JPEG", "meow")
	id, err := store.AcceptIntoGallery(ctx, path)
	if err != nil {
		t.Fatalf("AcceptIntoGallery: %v", err)
	}
	if id != identityOf(t, "meow") {
		t.Fatalf("identity = %s", id)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("airlock file should be gone, stat err=%v", err)
	}
	galleryPath := filepath.Join(store.Layout().Gallery, id.String()+".jpeg")
	if got := testsupport.ReadContent(t, galleryPath); got != "meow" {
		t.Fatalf("gallery content = %q", got)
	}

	decision, err := store.Lookup(ctx, id)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if decision == nil || decision.Verdict != collection.VerdictAccepted || decision.Name != "Cat.JPEG" {
		t.Fatalf("unexpected decision %#v", decision)
	}
	known, err := store.IsKnown(ctx, id)
	if err != nil || !known {
		t.Fatalf("IsKnown = %v, %v", known, err)
	}
}

func TestAcceptDuplicateCollapses(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCollection(t, cfg)
	ctx := context.Background()

	first := testsupport.Airlock(t, store, "a.png", "same")
	second := testsupport.Airlock(t, store, "b.png", "same")

	if _, err := store.AcceptIntoGallery(ctx, first); err != nil {
		t.Fatalf("accept first: %v", err)
	}
	if _, err := store.AcceptIntoGallery(ctx, second); err != nil {
		t.Fatalf("accept duplicate: %v", err)
	}
	if names := testsupport.ListNames(t, store.Layout().Gallery); len(names) != 1 {
		t.Fatalf("expected one gallery file, got %v", names)
	}
	if names := testsupport.ListNames(t, store.Layout().Airlock); len(names) != 0 {
		t.Fatalf("expected empty airlock, got %v", names)
	}
}

func TestRejectFromAirlockDeletesAndRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCollection(t, cfg)
	ctx := context.Background()

	path := testsupport.Airlock(t, store, "blurry.jpg", "blur")
	id, err := store.RejectFromAirlock(ctx, path)
	if err != nil {
		t.Fatalf("RejectFromAirlock: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("rejected file should be deleted, stat err=%v", err)
	}
	decision, err := store.Lookup(ctx, id)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if decision == nil || decision.Verdict != collection.VerdictRejected {
		t.Fatalf("unexpected decision %#v", decision)
	}
	if names := testsupport.ListNames(t, store.Layout().Gallery); len(names) != 0 {
		t.Fatalf("gallery should stay empty, got %v", names)
	}
}

func TestRejectDuplicateOfAcceptedKeepsPartitionsExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCollection(t, cfg)
	ctx := context.Background()

	accepted := testsupport.Airlock(t, store, "keep.png", "keeper")
	copyPath := testsupport.Airlock(t, store, "keep-again.png", "keeper")
	id, err := store.AcceptIntoGallery(ctx, accepted)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := store.RejectFromAirlock(ctx, copyPath); err != nil {
		t.Fatalf("reject copy: %v", err)
	}
	if _, err := os.Stat(copyPath); !os.IsNotExist(err) {
		t.Fatalf("duplicate should be removed, stat err=%v", err)
	}
	decision, err := store.Lookup(ctx, id)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if decision == nil || decision.Verdict != collection.VerdictAccepted {
		t.Fatalf("identity must stay accepted, got %#v", decision)
	}
	if names := testsupport.ListNames(t, store.Layout().Gallery); len(names) != 1 {
		t.Fatalf("gallery copy must remain, got %v", names)
	}
}

func TestAcceptOfRejectedIdentityCompletesRejection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCollection(t, cfg)
	ctx := context.Background()

	first := testsupport.Airlock(t, store, "x.gif", "nope")
	second := testsupport.Airlock(t, store, "y.gif", "nope")
	if _, err := store.RejectFromAirlock(ctx, first); err != nil {
		t.Fatalf("reject: %v", err)
	}
	_, err := store.AcceptIntoGallery(ctx, second)
	if !errors.Is(err, faults.ErrAlreadyRejected) || !errors.Is(err, faults.ErrStoreTransition) {
		t.Fatalf("expected ErrAlreadyRejected transition error, got %v", err)
	}
	if _, statErr := os.Stat(second); !os.IsNotExist(statErr) {
		t.Fatalf("copy of rejected identity should be deleted, stat err=%v", statErr)
	}
	if names := testsupport.ListNames(t, store.Layout().Gallery); len(names) != 0 {
		t.Fatalf("gallery should stay empty, got %v", names)
	}
}

func TestTransitionFailureLeavesFileInAirlock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCollection(t, cfg)
	ctx := context.Background()

	outside := testsupport.WriteContent(t, filepath.Join(t.TempDir(), "elsewhere.jpg"), "data")
	_, err := store.AcceptIntoGallery(ctx, outside)
	if !errors.Is(err, faults.ErrStoreTransition) {
		t.Fatalf("expected ErrStoreTransition, got %v", err)
	}
	if path, ok := faults.PathOf(err); !ok || path != outside {
		t.Fatalf("error should name %s, got %q", outside, path)
	}
	if testsupport.ReadContent(t, outside) != "data" {
		t.Fatal("file outside the airlock must be untouched")
	}

	missing := filepath.Join(store.Layout().Airlock, "gone.jpg")
	if _, err := store.RejectFromAirlock(ctx, missing); !errors.Is(err, faults.ErrHash) {
		t.Fatalf("expected ErrHash for missing file, got %v", err)
	}
}

func TestIsKnownSeesGalleryFilesWithoutRecord(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCollection(t, cfg)
	ctx := context.Background()

	id := identityOf(t, "hand placed")
	testsupport.WriteContent(t, filepath.Join(store.Layout().Gallery, id.FileName(".png")), "hand placed")

	known, err := store.IsKnown(ctx, id)
	if err != nil || !known {
		t.Fatalf("IsKnown = %v, %v", known, err)
	}
	unknown, err := store.IsKnown(ctx, identityOf(t, "never seen"))
	if err != nil || unknown {
		t.Fatalf("IsKnown(unseen) = %v, %v", unknown, err)
	}
}

func TestListAirlockSkipsHiddenAndDirectories(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCollection(t, cfg)
	airlock := store.Layout().Airlock

	testsupport.WriteContent(t, filepath.Join(airlock, "b.jpg"), "b")
	testsupport.WriteContent(t, filepath.Join(airlock, "a.jpg"), "a")
	testsupport.WriteContent(t, filepath.Join(airlock, ".hidden"), "h")
	if err := os.Mkdir(filepath.Join(airlock, "nested"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	var names []string
	for path, err := range store.ListAirlock(context.Background()) {
		if err != nil {
			t.Fatalf("ListAirlock: %v", err)
		}
		names = append(names, filepath.Base(path))
	}
	if !slices.Equal(names, []string{"a.jpg", "b.jpg"}) {
		t.Fatalf("unexpected worklist %v", names)
	}
}

func TestReconcileHealsInterruptedRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()
	layout, err := collection.EnsureLayout(cfg.Collection.Path, collection.NamesFromConfig(cfg))
	if err != nil {
		t.Fatalf("EnsureLayout: %v", err)
	}

	id := identityOf(t, "moved before crash")
	testsupport.WriteContent(t, filepath.Join(layout.Gallery, id.FileName(".mov")), "moved before crash")
	testsupport.WriteContent(t, fileutil.MoveTempName(filepath.Join(layout.Gallery, id.FileName(".mov"))), "moved")
	testsupport.WriteContent(t, filepath.Join(layout.Airlock, ".incoming-abc.partial"), "half")
	testsupport.WriteContent(t, filepath.Join(layout.Gallery, "holiday.jpg"), "named by hand")

	store := testsupport.MustOpenCollection(t, cfg)

	decision, err := store.Lookup(ctx, id)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if decision == nil || decision.Verdict != collection.VerdictAccepted {
		t.Fatalf("expected accepted decision after reconcile, got %#v", decision)
	}
	if names := testsupport.ListNames(t, layout.Airlock); len(names) != 0 {
		t.Fatalf("airlock partials should be removed, got %v", names)
	}
	gallery := testsupport.ListNames(t, layout.Gallery)
	if len(gallery) != 2 {
		t.Fatalf("expected the two real gallery files, got %v", gallery)
	}

	report, err := store.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if report.RemovedPartials != 0 || report.RecordedAccepted != 0 || report.Unrecognized != 1 {
		t.Fatalf("second reconcile should only flag the hand-named file, got %#v", report)
	}
}

func TestStatsCountsPartitions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCollection(t, cfg)
	ctx := context.Background()

	keep := testsupport.Airlock(t, store, "keep.jpg", "12345")
	drop := testsupport.Airlock(t, store, "drop.jpg", "123")
	testsupport.Airlock(t, store, "pending.jpg", "1")

	if _, err := store.AcceptIntoGallery(ctx, keep); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := store.RejectFromAirlock(ctx, drop); err != nil {
		t.Fatalf("reject: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := collection.Stats{
		Airlock:  collection.PartitionStats{Files: 1, Bytes: 1},
		Gallery:  collection.PartitionStats{Files: 1, Bytes: 5},
		Accepted: collection.PartitionStats{Files: 1, Bytes: 5},
		Rejected: collection.PartitionStats{Files: 1, Bytes: 3},
	}
	if stats != want {
		t.Fatalf("Stats = %#v, want %#v", stats, want)
	}
}

func TestDecisionsSurviveReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()
	opts := collection.Options{Names: collection.NamesFromConfig(cfg)}

	store, err := collection.Open(ctx, cfg.Collection.Path, opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	path := testsupport.Airlock(t, store, "bad.jpg", "bad")
	id, err := store.RejectFromAirlock(ctx, path)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenCollection(t, cfg)
	known, err := reopened.IsKnown(ctx, id)
	if err != nil || !known {
		t.Fatalf("rejection should persist, IsKnown = %v, %v", known, err)
	}
}

func TestAcceptedPartialExtensionSurvivesReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()
	store, err := collection.Open(ctx, cfg.Collection.Path, collection.Options{Names: collection.NamesFromConfig(cfg)})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	path := testsupport.Airlock(t, store, "clip.partial", "download half")
	id, err := store.AcceptIntoGallery(ctx, path)
	if err != nil {
		t.Fatalf("AcceptIntoGallery: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenCollection(t, cfg)
	kept := filepath.Join(reopened.Layout().Gallery, id.FileName(".partial"))
	if got := testsupport.ReadContent(t, kept); got != "download half" {
		t.Fatalf("accepted file changed by reopen: %q", got)
	}
}

func TestGalleryDedupWithGlobCharactersInRoot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	root := filepath.Join(t.TempDir(), "Pics [2020]?")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg.Collection.Path = root
	store := testsupport.MustOpenCollection(t, cfg)
	ctx := context.Background()

	first := testsupport.Airlock(t, store, "a.jpg", "same")
	if _, err := store.AcceptIntoGallery(ctx, first); err != nil {
		t.Fatalf("accept first: %v", err)
	}
	second := testsupport.Airlock(t, store, "b.jpeg", "same")
	if _, err := store.AcceptIntoGallery(ctx, second); err != nil {
		t.Fatalf("accept second: %v", err)
	}
	if names := testsupport.ListNames(t, store.Layout().Gallery); len(names) != 1 {
		t.Fatalf("gallery holds %v for one identity", names)
	}

	id := identityOf(t, "by hand")
	testsupport.WriteContent(t, filepath.Join(store.Layout().Gallery, id.FileName(".png")), "by hand")
	known, err := store.IsKnown(ctx, id)
	if err != nil || !known {
		t.Fatalf("IsKnown = %v, %v; gallery file without a record should count", known, err)
	}
}
