package faults_test

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"galman/internal/faults"
)

func TestWrapIncludesContext(t *testing.T) {
	base := fs.ErrPermission
	err := faults.Wrap(faults.ErrHash, "identify", "/airlock/a.jpg", base)
	if !errors.Is(err, faults.ErrHash) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"hash error", "identify", "/airlock/a.jpg", "permission"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
	path, ok := faults.PathOf(err)
	if !ok || path != "/airlock/a.jpg" {
		t.Fatalf("PathOf = %q, %v", path, ok)
	}
}

func TestWrapDefaultsToStoreTransition(t *testing.T) {
	err := faults.Wrap(nil, "accept", "x", errors.New("boom"))
	if !errors.Is(err, faults.ErrStoreTransition) {
		t.Fatalf("expected store transition marker, got %v", err)
	}
}

func TestWrapDoesNotNestSameFile(t *testing.T) {
	inner := faults.Wrap(faults.ErrStoreTransition, "move", "/a", errors.New("disk"))
	outer := faults.Wrap(faults.ErrStoreTransition, "accept", "/a", inner)
	if outer != inner {
		t.Fatalf("expected identical error, got %v", outer)
	}

	other := faults.Wrap(faults.ErrStoreTransition, "accept", "/b", inner)
	if other == inner {
		t.Fatal("different path should wrap")
	}
}

func TestJoinedMarkers(t *testing.T) {
	err := faults.Wrap(faults.ErrStoreTransition, "accept", "/a", faults.ErrAlreadyRejected)
	if !errors.Is(err, faults.ErrStoreTransition) || !errors.Is(err, faults.ErrAlreadyRejected) {
		t.Fatalf("expected both markers, got %v", err)
	}
	if got := faults.Hint(err); !strings.Contains(got, "rejected") {
		t.Fatalf("expected rejected hint, got %q", got)
	}
}

func TestHintFallback(t *testing.T) {
	if got := faults.Hint(errors.New("x")); got != "check logs for details" {
		t.Fatalf("unexpected hint %q", got)
	}
}
