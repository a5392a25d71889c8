package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler for all nil handlers")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if newFanoutHandler(nil, inner) != inner {
		t.Fatal("expected single non-nil handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsPerHandlerLevels(t *testing.T) {
	var verbose, quiet bytes.Buffer
	h := newFanoutHandler(
		slog.NewJSONHandler(&verbose, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&quiet, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug enabled through verbose handler")
	}

	logger := slog.New(h).With("component", "review")
	logger.Debug("only verbose")
	logger.Warn("both")

	if !strings.Contains(verbose.String(), "only verbose") || !strings.Contains(verbose.String(), "both") {
		t.Fatalf("verbose handler missing records: %q", verbose.String())
	}
	if strings.Contains(quiet.String(), "only verbose") {
		t.Fatalf("quiet handler received debug record: %q", quiet.String())
	}
	if !strings.Contains(quiet.String(), `"component":"review"`) {
		t.Fatalf("quiet handler missing attrs: %q", quiet.String())
	}
}
