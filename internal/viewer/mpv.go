package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"galman/internal/config"
	"galman/internal/logging"
)

const (
	clientName          = "galman"
	defaultStartTimeout = 10 * time.Second
	dialInterval        = 50 * time.Millisecond
)

var errViewerGone = errors.New("viewer is no longer running")

// MPVOptions configures the mpv process.
type MPVOptions struct {
	Binary       string
	AcceptKeys   []string
	RejectKeys   []string
	QuitKeys     []string
	Mute         bool
	LoopFile     bool
	LoopPlaylist bool
	StartTimeout time.Duration
	ExtraArgs    []string
	// RuntimeDir holds the IPC socket, key map, and playlist. Defaults to os.TempDir().
	RuntimeDir string
}

// OptionsFromConfig maps the viewer config section onto MPVOptions.
func OptionsFromConfig(cfg *config.Config) MPVOptions {
	return MPVOptions{
		Binary:       cfg.Viewer.Binary,
		AcceptKeys:   append([]string(nil), cfg.Viewer.AcceptKeys...),
		RejectKeys:   append([]string(nil), cfg.Viewer.RejectKeys...),
		QuitKeys:     append([]string(nil), cfg.Viewer.QuitKeys...),
		Mute:         cfg.Viewer.Mute,
		LoopFile:     cfg.Viewer.LoopFile,
		StartTimeout: cfg.ViewerStartTimeout(),
		ExtraArgs:    append([]string(nil), cfg.Viewer.ExtraArgs...),
	}
}

// Executor abstracts command execution for testability. Run blocks until the
// process exits or ctx is cancelled.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}

// Option configures an MPV viewer.
type Option func(*MPV)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(m *MPV) {
		if exec != nil {
			m.exec = exec
		}
	}
}

// WithLogger sets the logger used for viewer diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(m *MPV) {
		m.logger = logging.NewComponentLogger(logger, "viewer")
	}
}

// MPV drives an mpv process over its JSON IPC socket.
type MPV struct {
	opts   MPVOptions
	exec   Executor
	logger *slog.Logger
	events chan Event

	cancel context.CancelFunc
	group  *errgroup.Group
	files  []string

	mu      sync.Mutex
	conn    net.Conn
	nextID  int64
	pending map[int64]chan ipcMessage
	gone    bool

	loadOnce   sync.Once
	closeOnce  sync.Once
	eventsOnce sync.Once
}

// NewMPV constructs an mpv-backed viewer. The process starts on Load.
func NewMPV(opts MPVOptions, options ...Option) *MPV {
	if strings.TrimSpace(opts.Binary) == "" {
		opts.Binary = "mpv"
	}
	if opts.StartTimeout <= 0 {
		opts.StartTimeout = defaultStartTimeout
	}
	if opts.RuntimeDir == "" {
		opts.RuntimeDir = os.TempDir()
	}
	m := &MPV{
		opts:    opts,
		exec:    commandExecutor{},
		logger:  logging.NewComponentLogger(nil, "viewer"),
		events:  make(chan Event, 16),
		pending: make(map[int64]chan ipcMessage),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// Events returns the decision stream. It is closed when mpv exits.
func (m *MPV) Events() <-chan Event {
	return m.events
}

// Load launches mpv with paths as its playlist and waits for the IPC socket.
func (m *MPV) Load(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return errors.New("viewer: empty playlist")
	}
	err := errors.New("viewer: already loaded")
	m.loadOnce.Do(func() {
		err = m.start(ctx, paths)
	})
	return err
}

func (m *MPV) start(ctx context.Context, paths []string) error {
	base := filepath.Join(m.opts.RuntimeDir, "galman-"+uuid.NewString()[:8])
	socket := base + ".sock"
	inputConf := base + ".conf"
	playlist := base + ".m3u"

	if err := os.WriteFile(inputConf, []byte(renderInputConf(m.opts)), 0o600); err != nil {
		return fmt.Errorf("write mpv key map: %w", err)
	}
	m.files = append(m.files, inputConf, socket, playlist)
	if err := writePlaylist(playlist, paths); err != nil {
		m.removeFiles()
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(runCtx)
	m.cancel = cancel
	m.group = group

	exited := make(chan struct{})
	args := m.args(socket, inputConf, playlist)
	m.logger.Debug("starting mpv", logging.String("binary", m.opts.Binary), logging.Int("playlist_entries", len(paths)))
	group.Go(func() error {
		defer close(exited)
		err := m.exec.Run(groupCtx, m.opts.Binary, args, func(line string) {
			m.logger.Debug("mpv output", logging.String("line", line))
		})
		if err != nil && groupCtx.Err() == nil {
			return fmt.Errorf("mpv exited: %w", err)
		}
		return nil
	})

	conn, err := m.dial(ctx, socket, exited)
	if err != nil {
		_ = m.Close()
		return err
	}
	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	group.Go(func() error {
		return m.readLoop(groupCtx, conn)
	})
	return nil
}

func (m *MPV) args(socket, inputConf, playlist string) []string {
	args := []string{
		"--idle=yes",
		"--force-window=yes",
		"--input-ipc-server=" + socket,
		"--no-input-default-bindings",
		"--input-conf=" + inputConf,
		"--image-display-duration=inf",
		"--playlist=" + playlist,
	}
	if m.opts.Mute {
		args = append(args, "--mute=yes")
	}
	if m.opts.LoopFile {
		args = append(args, "--loop-file=inf")
	}
	if m.opts.LoopPlaylist {
		args = append(args, "--loop-playlist=inf")
	}
	return append(args, m.opts.ExtraArgs...)
}

func (m *MPV) dial(ctx context.Context, socket string, exited <-chan struct{}) (net.Conn, error) {
	deadline := time.NewTimer(m.opts.StartTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(dialInterval)
	defer ticker.Stop()

	var dialer net.Dialer
	for {
		conn, err := dialer.DialContext(ctx, "unix", socket)
		if err == nil {
			return conn, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-exited:
			return nil, fmt.Errorf("mpv exited before its IPC socket was ready (is %q installed?)", m.opts.Binary)
		case <-deadline.C:
			return nil, fmt.Errorf("mpv IPC socket %s not ready after %s: %w", socket, m.opts.StartTimeout, err)
		case <-ticker.C:
		}
	}
}

// Current asks mpv for the path it is showing. mpv passes over entries it
// cannot open, so this is the authority on what the user is looking at.
func (m *MPV) Current(ctx context.Context) (string, error) {
	data, err := m.request(ctx, "get_property", "path")
	if err != nil {
		return "", err
	}
	var path string
	if err := json.Unmarshal(data, &path); err != nil {
		return "", fmt.Errorf("decode mpv path: %w", err)
	}
	if path == "" {
		return "", errors.New("mpv is not showing a file")
	}
	return path, nil
}

// Next removes the current playlist entry; mpv moves on to the following one.
func (m *MPV) Next(ctx context.Context) error {
	return m.command(ctx, "playlist-remove", "current")
}

// Skip advances to the following entry, wrapping at the end when the playlist loops.
func (m *MPV) Skip(ctx context.Context) error {
	return m.command(ctx, "playlist-next", "force")
}

// Close asks mpv to quit, stops the process, and removes runtime files.
func (m *MPV) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.mu.Lock()
		connected := m.conn != nil && !m.gone
		m.mu.Unlock()
		if connected {
			quitCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			_ = m.command(quitCtx, "quit")
			cancel()
		}
		if m.cancel != nil {
			m.cancel()
		}
		m.mu.Lock()
		if m.conn != nil {
			_ = m.conn.Close()
		}
		m.mu.Unlock()
		if m.group != nil {
			err = m.group.Wait()
		}
		m.closeEvents()
		m.removeFiles()
	})
	return err
}

func (m *MPV) closeEvents() {
	m.eventsOnce.Do(func() {
		close(m.events)
	})
}

func (m *MPV) removeFiles() {
	for _, path := range m.files {
		_ = os.Remove(path)
	}
}

func writePlaylist(path string, paths []string) error {
	var b strings.Builder
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve playlist entry %q: %w", p, err)
		}
		if strings.ContainsAny(abs, "\r\n") {
			return fmt.Errorf("playlist entry %q contains a line break", p)
		}
		b.WriteString(abs)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("write mpv playlist: %w", err)
	}
	return nil
}

// renderInputConf builds an mpv input.conf that maps each configured key to a
// script-message the IPC reader understands. Each message carries the path on
// screen (mpv expands ${path:} when the key is pressed, empty while idle).
// Closing the window counts as quit.
func renderInputConf(opts MPVOptions) string {
	var b strings.Builder
	b.WriteString("# generated by galman; regenerated on every launch\n")
	bind := func(keys []string, action string) {
		for _, key := range keys {
			fmt.Fprintf(&b, "%s script-message %s %s \"${path:}\"\n", mpvKeyName(key), clientName, action)
		}
	}
	bind(opts.AcceptKeys, "accept")
	bind(opts.RejectKeys, "reject")
	bind(opts.QuitKeys, "quit")
	fmt.Fprintf(&b, "CLOSE_WIN script-message %s quit\n", clientName)
	return b.String()
}

func mpvKeyName(key string) string {
	switch key {
	case "#":
		return "SHARP"
	case " ":
		return "SPACE"
	default:
		return key
	}
}
