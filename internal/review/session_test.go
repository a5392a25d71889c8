package review_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"galman/internal/faults"
	"galman/internal/review"
	"galman/internal/testsupport"
	"galman/internal/viewer"
)

func runSession(t *testing.T, ctx context.Context, store review.Store, v viewer.Viewer) (review.Summary, []review.State) {
	t.Helper()
	var states []review.State
	session := review.New(store, v, review.Options{OnState: func(s review.State) { states = append(states, s) }})
	summary, err := session.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return summary, states
}

func TestEmptyAirlockTerminatesWithoutViewer(t *testing.T) {
	coll := testsupport.NewMemoryCollection()
	v := testsupport.NewFakeViewer()

	summary, states := runSession(t, context.Background(), coll, v)
	if summary.Outcome != review.OutcomeDone || summary.Total != 0 {
		t.Fatalf("unexpected summary %#v", summary)
	}
	if v.Loads() != 0 || v.Closed() {
		t.Fatal("viewer must not be started for an empty airlock")
	}
	if !slices.Equal(states, []review.State{review.StateDone}) {
		t.Fatalf("unexpected states %v", states)
	}
}

func TestAcceptThenRejectAgainstCollectionStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCollection(t, cfg)
	ctx := context.Background()

	a := testsupport.Airlock(t, store, "a.jpg", "apple")
	b := testsupport.Airlock(t, store, "b.jpg", "banana")
	v := testsupport.NewFakeViewer(testsupport.Events(viewer.EventAccept, viewer.EventReject)...)

	summary, states := runSession(t, ctx, store, v)
	if summary.Outcome != review.OutcomeDone || summary.Accepted != 1 || summary.Rejected != 1 || len(summary.Failed) != 0 {
		t.Fatalf("unexpected summary %#v", summary)
	}
	if !slices.Equal(v.Loaded(), []string{a, b}) {
		t.Fatalf("viewer loaded %v", v.Loaded())
	}
	if v.NextCalls() != 1 || !v.Closed() {
		t.Fatalf("next calls = %d, closed = %v", v.NextCalls(), v.Closed())
	}

	wantStates := []review.State{
		review.StatePresenting,
		review.StateAcceptPending,
		review.StatePresenting,
		review.StateRejectPending,
		review.StateDone,
	}
	if !slices.Equal(states, wantStates) {
		t.Fatalf("states = %v, want %v", states, wantStates)
	}

	gallery := testsupport.ListNames(t, store.Layout().Gallery)
	if len(gallery) != 1 {
		t.Fatalf("expected one gallery file, got %v", gallery)
	}
	if got := testsupport.ReadContent(t, filepath.Join(store.Layout().Gallery, gallery[0])); got != "apple" {
		t.Fatalf("gallery holds %q", got)
	}
	if names := testsupport.ListNames(t, store.Layout().Airlock); len(names) != 0 {
		t.Fatalf("airlock should be empty, got %v", names)
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Rejected.Files != 1 || stats.Accepted.Files != 1 {
		t.Fatalf("unexpected decision counts %#v", stats)
	}
}

func TestQuitLeavesRemainingFilesUntouched(t *testing.T) {
	coll := testsupport.NewMemoryCollection()
	first := coll.Add("1.jpg", "one")
	second := coll.Add("2.jpg", "two")
	third := coll.Add("3.jpg", "three")
	v := testsupport.NewFakeViewer(testsupport.Events(viewer.EventReject, viewer.EventQuit)...)

	summary, states := runSession(t, context.Background(), coll, v)
	if summary.Outcome != review.OutcomeInterrupted || summary.Rejected != 1 || summary.Remaining != 2 {
		t.Fatalf("unexpected summary %#v", summary)
	}
	if states[len(states)-1] != review.StateInterrupted {
		t.Fatalf("final state %v", states[len(states)-1])
	}
	if _, ok := coll.Content(first); ok {
		t.Fatal("decided file should have left the airlock")
	}
	for path, want := range map[string]string{second: "two", third: "three"} {
		got, ok := coll.Content(path)
		if !ok || got != want {
			t.Fatalf("%s changed: %q, %v", path, got, ok)
		}
	}
}

func TestViewerExitInterruptsSession(t *testing.T) {
	coll := testsupport.NewMemoryCollection()
	coll.Add("a.png", "a")
	coll.Add("b.png", "b")
	v := testsupport.NewFakeViewer(testsupport.Events(viewer.EventAccept)...)
	v.CloseAfterScript = true

	summary, _ := runSession(t, context.Background(), coll, v)
	if summary.Outcome != review.OutcomeInterrupted || summary.Accepted != 1 || summary.Remaining != 1 {
		t.Fatalf("unexpected summary %#v", summary)
	}
	if len(coll.Airlock()) != 1 || coll.GalleryCount() != 1 {
		t.Fatalf("airlock %v gallery %d", coll.Airlock(), coll.GalleryCount())
	}
}

func TestStoreFailureKeepsFileAndAdvances(t *testing.T) {
	coll := testsupport.NewMemoryCollection()
	broken := coll.Add("broken.jpg", "broken")
	coll.Add("fine.jpg", "fine")
	coll.FailOn(broken, errors.New("read-only filesystem"))
	v := testsupport.NewFakeViewer(testsupport.Events(viewer.EventAccept, viewer.EventAccept)...)

	summary, _ := runSession(t, context.Background(), coll, v)
	if summary.Outcome != review.OutcomeDone || summary.Accepted != 1 || len(summary.Failed) != 1 {
		t.Fatalf("unexpected summary %#v", summary)
	}
	failure := summary.Failed[0]
	if failure.Path != broken || failure.Verdict != viewer.EventAccept || !errors.Is(failure.Err, faults.ErrStoreTransition) {
		t.Fatalf("unexpected failure %#v", failure)
	}
	if got, ok := coll.Content(broken); !ok || got != "broken" {
		t.Fatal("failed file must stay in the airlock")
	}
	if v.NextCalls() != 1 {
		t.Fatalf("session should advance past the failure, next calls = %d", v.NextCalls())
	}
}

func TestUnknownEventKeepsPresenting(t *testing.T) {
	coll := testsupport.NewMemoryCollection()
	coll.Add("only.gif", "only")
	v := testsupport.NewFakeViewer(
		viewer.Event{Kind: viewer.EventUnknown, Raw: "shrug"},
		viewer.Event{Kind: viewer.EventUnknown, Raw: "{garbage", Err: errors.New("bad json")},
		viewer.Event{Kind: viewer.EventReject, Raw: "reject"},
	)

	summary, states := runSession(t, context.Background(), coll, v)
	if summary.Outcome != review.OutcomeDone || summary.Rejected != 1 {
		t.Fatalf("unexpected summary %#v", summary)
	}
	want := []review.State{review.StatePresenting, review.StateRejectPending, review.StateDone}
	if !slices.Equal(states, want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	if !coll.IsRejected("only") {
		t.Fatal("identity should be rejected")
	}
}

func TestCancellationStopsBetweenDecisions(t *testing.T) {
	coll := testsupport.NewMemoryCollection()
	coll.Add("a.jpg", "a")
	coll.Add("b.jpg", "b")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	v := testsupport.NewFakeViewer(testsupport.Events(viewer.EventAccept)...)
	v.OnNext = func(int) { cancel() }

	summary, _ := runSession(t, ctx, coll, v)
	if summary.Outcome != review.OutcomeInterrupted || summary.Accepted != 1 || summary.Remaining != 1 {
		t.Fatalf("unexpected summary %#v", summary)
	}
	if !coll.InGallery("a") {
		t.Fatal("decision made before cancellation must be kept")
	}
}

func TestAcceptOfRejectedIdentityIsCounted(t *testing.T) {
	coll := testsupport.NewMemoryCollection()
	coll.MarkRejected("again")
	path := coll.Add("again.jpg", "again")
	v := testsupport.NewFakeViewer(testsupport.Events(viewer.EventAccept)...)

	summary, _ := runSession(t, context.Background(), coll, v)
	if summary.Outcome != review.OutcomeDone || summary.AlreadyRejected != 1 || summary.Accepted != 0 {
		t.Fatalf("unexpected summary %#v", summary)
	}
	if _, ok := coll.Content(path); ok {
		t.Fatal("copy of rejected identity should be deleted")
	}
	if coll.InGallery("again") {
		t.Fatal("rejected identity must not enter the gallery")
	}
}

func TestViewerLoadFailureIsFatal(t *testing.T) {
	coll := testsupport.NewMemoryCollection()
	path := coll.Add("a.jpg", "a")
	v := testsupport.NewFakeViewer()
	v.LoadErr = errors.New("mpv: not found")

	_, err := review.New(coll, v, review.Options{}).Run(context.Background())
	if err == nil {
		t.Fatal("expected error when the viewer cannot start")
	}
	if _, ok := coll.Content(path); !ok {
		t.Fatal("airlock must be untouched")
	}
}

func TestVerdictAppliesToFileOnScreen(t *testing.T) {
	coll := testsupport.NewMemoryCollection()
	unreadable := coll.Add("notes.txt", "not media")
	shownFirst := coll.Add("photo.jpg", "photo")
	shownSecond := coll.Add("video.mp4", "video")

	v := testsupport.NewFakeViewer(testsupport.Events(viewer.EventReject, viewer.EventAccept)...)
	v.Unplayable = []string{unreadable}
	v.CloseAfterScript = true

	summary, _ := runSession(t, context.Background(), coll, v)
	if summary.Outcome != review.OutcomeInterrupted || summary.Rejected != 1 || summary.Accepted != 1 || summary.Remaining != 1 {
		t.Fatalf("unexpected summary %#v", summary)
	}
	if !coll.IsRejected("photo") {
		t.Fatalf("reject should land on the file on screen %s", shownFirst)
	}
	if !coll.InGallery("video") {
		t.Fatalf("accept should land on the file on screen %s", shownSecond)
	}
	if got, ok := coll.Content(unreadable); !ok || got != "not media" {
		t.Fatal("file the viewer passed over must stay undecided in the airlock")
	}
}

func TestVerdictForFileOutsideWorklistIsDropped(t *testing.T) {
	coll := testsupport.NewMemoryCollection()
	path := coll.Add("a.jpg", "a")
	v := testsupport.NewFakeViewer(
		viewer.Event{Kind: viewer.EventReject, Path: "/elsewhere/b.jpg", Raw: "reject"},
		viewer.Event{Kind: viewer.EventAccept, Path: path, Raw: "accept"},
	)

	summary, _ := runSession(t, context.Background(), coll, v)
	if summary.Outcome != review.OutcomeDone || summary.Accepted != 1 || summary.Rejected != 0 {
		t.Fatalf("unexpected summary %#v", summary)
	}
	if coll.RejectedCount() != 0 || !coll.InGallery("a") {
		t.Fatal("only the verdict for the reviewed file may apply")
	}
}

func TestVerdictWhileViewerIdleIsDropped(t *testing.T) {
	coll := testsupport.NewMemoryCollection()
	path := coll.Add("broken.jpg", "broken")
	v := testsupport.NewFakeViewer(testsupport.Events(viewer.EventReject)...)
	v.Unplayable = []string{path}
	v.CloseAfterScript = true

	summary, _ := runSession(t, context.Background(), coll, v)
	if summary.Outcome != review.OutcomeInterrupted || summary.Decided() != 0 || summary.Remaining != 1 {
		t.Fatalf("unexpected summary %#v", summary)
	}
	if _, ok := coll.Content(path); !ok {
		t.Fatal("no file may change while nothing is on screen")
	}
}
