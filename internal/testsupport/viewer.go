package testsupport

import (
	"context"
	"errors"
	"slices"
	"sync"

	"galman/internal/viewer"
)

// FakeViewer is a scripted viewer.Viewer. Script events are queued on Load;
// more can be pushed with Send. When CloseAfterScript is set the event channel
// is closed once the script is queued, which looks like the user closing the
// viewer.
//
// It keeps a playlist like mpv does: Unplayable entries are passed over,
// Next drops the entry on screen, and Skip moves past it.
type FakeViewer struct {
	Script           []viewer.Event
	CloseAfterScript bool
	LoadErr          error
	Unplayable       []string
	// OnNext and OnSkip run after the call is recorded, with the running count.
	OnNext func(n int)
	OnSkip func(n int)

	mu        sync.Mutex
	events    chan viewer.Event
	loaded    []string
	playlist  []string
	pos       int
	loads     int
	nextCalls int
	skipCalls int
	closed    bool
	closeOnce sync.Once
}

// NewFakeViewer returns a viewer that will emit script in order.
func NewFakeViewer(script ...viewer.Event) *FakeViewer {
	return &FakeViewer{
		Script: script,
		events: make(chan viewer.Event, len(script)+64),
	}
}

// Events builds a script from event kinds.
func Events(kinds ...viewer.EventKind) []viewer.Event {
	events := make([]viewer.Event, 0, len(kinds))
	for _, kind := range kinds {
		events = append(events, viewer.Event{Kind: kind, Raw: kind.String()})
	}
	return events
}

func (f *FakeViewer) Load(_ context.Context, paths []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.LoadErr != nil {
		return f.LoadErr
	}
	if len(paths) == 0 {
		return errors.New("fake viewer: empty playlist")
	}
	f.loaded = append([]string(nil), paths...)
	f.playlist = append([]string(nil), paths...)
	f.pos = f.playable(0)
	for _, ev := range f.Script {
		f.events <- ev
	}
	if f.CloseAfterScript {
		f.closeEvents()
	}
	return nil
}

// Send queues another event.
func (f *FakeViewer) Send(ev viewer.Event) {
	f.events <- ev
}

func (f *FakeViewer) Events() <-chan viewer.Event {
	return f.events
}

// Current returns the entry on screen, or an error once nothing is playable.
func (f *FakeViewer) Current(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pos < 0 || f.pos >= len(f.playlist) {
		return "", errors.New("fake viewer: idle")
	}
	return f.playlist[f.pos], nil
}

func (f *FakeViewer) Next(context.Context) error {
	f.mu.Lock()
	if f.pos >= 0 && f.pos < len(f.playlist) {
		f.playlist = slices.Delete(f.playlist, f.pos, f.pos+1)
		f.pos = f.playable(f.pos)
	}
	f.nextCalls++
	n := f.nextCalls
	hook := f.OnNext
	f.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return nil
}

func (f *FakeViewer) Skip(context.Context) error {
	f.mu.Lock()
	if len(f.playlist) > 0 {
		if next := f.playable(f.pos + 1); next >= 0 {
			f.pos = next
		} else {
			f.pos = f.playable(0)
		}
	}
	f.skipCalls++
	n := f.skipCalls
	hook := f.OnSkip
	f.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return nil
}

func (f *FakeViewer) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// playable returns the first index at or after from that is not Unplayable,
// or -1.
func (f *FakeViewer) playable(from int) int {
	for i := from; i < len(f.playlist); i++ {
		if !slices.Contains(f.Unplayable, f.playlist[i]) {
			return i
		}
	}
	return -1
}

func (f *FakeViewer) closeEvents() {
	f.closeOnce.Do(func() { close(f.events) })
}

// Loaded returns the playlist passed to Load.
func (f *FakeViewer) Loaded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.loaded...)
}

// Loads returns how many times Load was called.
func (f *FakeViewer) Loads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

// NextCalls returns how many times Next was called.
func (f *FakeViewer) NextCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nextCalls
}

// SkipCalls returns how many times Skip was called.
func (f *FakeViewer) SkipCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.skipCalls
}

// Closed reports whether Close was called.
func (f *FakeViewer) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
