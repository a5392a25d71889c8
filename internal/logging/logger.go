package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"galman/internal/config"
)

// LogFilePattern matches the per-run log files written by NewFromConfig.
const LogFilePattern = "galman-*.log"

// Options describes logger construction parameters.
type Options struct {
	Level string
	// Format selects the terminal encoding: console or json.
	Format string
	// Console receives human-facing output. Defaults to stderr so command
	// output on stdout stays machine-readable.
	Console io.Writer
	// FilePath, when set, additionally receives every record as JSON.
	FilePath    string
	SessionID   string
	Development bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(opts.Level))
	addSource := opts.Development || levelVar.Level() <= slog.LevelDebug

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	var terminal slog.Handler
	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "json":
		terminal = newJSONHandler(console, levelVar, addSource)
	case "console", "":
		terminal = newPrettyHandler(console, levelVar, addSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	var file slog.Handler
	if path := strings.TrimSpace(opts.FilePath); path != "" {
		writer, err := openLogFile(path)
		if err != nil {
			return nil, err
		}
		file = newJSONHandler(writer, levelVar, true)
	}

	handler := newFanoutHandler(terminal, file)
	if opts.SessionID != "" {
		handler = withStamp(handler, slog.String(FieldSessionID, opts.SessionID))
	}
	return slog.New(handler), nil
}

// NewFromConfig creates a logger using application config defaults. When a log
// directory is configured, records are also written to a per-run JSON file
// whose path is returned.
func NewFromConfig(cfg *config.Config, sessionID string, console io.Writer) (*slog.Logger, string, error) {
	if cfg == nil {
		logger, err := New(Options{Level: "info", Format: "console", Console: console, SessionID: sessionID})
		return logger, "", err
	}

	var logPath string
	if dir := strings.TrimSpace(cfg.Logging.Dir); dir != "" {
		logPath = filepath.Join(dir, runLogName(time.Now(), sessionID))
	}

	logger, err := New(Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Console:   console,
		FilePath:  logPath,
		SessionID: sessionID,
	})
	if err != nil {
		return nil, "", err
	}
	return logger, logPath, nil
}

func runLogName(now time.Time, sessionID string) string {
	suffix := sessionID
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	name := "galman-" + now.UTC().Format("20060102T150405")
	if suffix != "" {
		name += "-" + suffix
	}
	return name + ".log"
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openLogFile(path string) (io.Writer, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	opts := slog.HandlerOptions{
		Level:     lvl,
		AddSource: addSource,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "ts"
				if attr.Value.Kind() == slog.KindTime {
					attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
				}
			case slog.LevelKey:
				attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			}
			return attr
		},
	}
	return slog.NewJSONHandler(w, &opts)
}
