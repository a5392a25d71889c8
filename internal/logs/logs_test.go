package logs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"galman/internal/logs"
)

func TestLatestPicksNewestRunLog(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "galman-1.log")
	newer := filepath.Join(dir, "galman-2.log")
	for _, path := range []string{older, newer, filepath.Join(dir, "other.txt")} {
		if err := os.WriteFile(path, []byte("x\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	got, err := logs.Latest(dir, "galman-*.log")
	if err != nil || got != newer {
		t.Fatalf("Latest = %q, %v; want %q", got, err, newer)
	}

	if _, err := logs.Latest(t.TempDir(), "galman-*.log"); !errors.Is(err, logs.ErrNoLogs) {
		t.Fatalf("expected ErrNoLogs, got %v", err)
	}
}

func TestLastReturnsTrailingLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	lines, offset, err := logs.Last(path, 2)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if !slices.Equal(lines, []string{"b", "c"}) || offset != 6 {
		t.Fatalf("Last = %v, %d", lines, offset)
	}

	lines, _, err = logs.Last(path, 10)
	if err != nil || len(lines) != 3 {
		t.Fatalf("Last(10) = %v, %v", lines, err)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, offset, err := logs.Last(path, 1)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		mu   sync.Mutex
		seen []string
	)
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, 10*time.Millisecond, func(line string) {
			mu.Lock()
			seen = append(seen, line)
			mu.Unlock()
			if line == "later" {
				cancel()
			}
		})
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = f.Close()

	if err := <-done; err != nil {
		t.Fatalf("Follow: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if !slices.Equal(seen, []string{"later"}) {
		t.Fatalf("followed lines = %v", seen)
	}
}

func TestFormat(t *testing.T) {
	line := `{"ts":"2026-01-02T03:04:05Z","level":"info","msg":"file accepted","component":"collection","session_id":"abc","path":"/a.jpg","identity":"x_1"}`
	got := logs.Format(line)
	want := "INFO  collection: file accepted identity=x_1 path=/a.jpg"
	if len(got) < len(want) || got[len(got)-len(want):] != want {
		t.Fatalf("Format = %q, want suffix %q", got, want)
	}
	if plain := logs.Format("not json"); plain != "not json" {
		t.Fatalf("non-JSON line changed: %q", plain)
	}
}
