package viewer

import (
	"context"
	"strings"
)

// EventKind classifies a viewer event.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventAccept
	EventReject
	EventQuit
)

func (k EventKind) String() string {
	switch k {
	case EventAccept:
		return "accept"
	case EventReject:
		return "reject"
	case EventQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Event is a user action reported by the viewer. Path is the file on screen
// when the action was taken, if the viewer reports it. Raw holds the original
// payload for unknown events; Err is set when the payload was malformed.
type Event struct {
	Kind EventKind
	Path string
	Raw  string
	Err  error
}

// ParseAction maps an action word to its event kind.
func ParseAction(action string) EventKind {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "accept":
		return EventAccept
	case "reject":
		return EventReject
	case "quit":
		return EventQuit
	default:
		return EventUnknown
	}
}

// Viewer presents files to the user.
//
// Events is closed when the viewer goes away (window closed, process exit);
// callers treat that like EventQuit.
type Viewer interface {
	// Load starts presenting paths in order, beginning with the first.
	Load(ctx context.Context, paths []string) error
	Events() <-chan Event
	// Current returns the path on screen. Entries the viewer could not open
	// are passed over, so this need not be the first undecided path.
	Current(ctx context.Context) (string, error)
	// Next removes the current entry and presents the following one.
	Next(ctx context.Context) error
	// Skip advances without removing the current entry.
	Skip(ctx context.Context) error
	Close() error
}
