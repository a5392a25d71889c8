package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrHash marks a file that could not be read while computing its identity.
	ErrHash = errors.New("hash error")
	// ErrStoreTransition marks a move, record, or delete step that failed; the
	// file is left in the airlock.
	ErrStoreTransition = errors.New("store transition error")
	// ErrImportSource marks an import source root that is missing or unreadable.
	ErrImportSource = errors.New("import source error")
	// ErrViewerSignal marks a malformed or unexpected event from the viewer.
	ErrViewerSignal = errors.New("viewer signal error")
	// ErrCollectionBusy is returned when another session holds the collection lock.
	ErrCollectionBusy = errors.New("collection is in use by another galman session")
	// ErrAlreadyRejected marks an accept of an identity already on the rejected record.
	ErrAlreadyRejected = errors.New("identity already rejected")
)

// FileError attaches the operation and path to a per-file failure. It unwraps
// to both the classification marker and the underlying cause.
type FileError struct {
	Marker error
	Op     string
	Path   string
	Err    error
}

func (e *FileError) Error() string {
	parts := make([]string, 0, 4)
	if e.Marker != nil {
		parts = append(parts, e.Marker.Error())
	}
	if op := strings.TrimSpace(e.Op); op != "" {
		parts = append(parts, op)
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("%q", e.Path))
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if len(parts) == 0 {
		return "file error"
	}
	return strings.Join(parts, ": ")
}

func (e *FileError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Marker != nil {
		errs = append(errs, e.Marker)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Wrap builds a FileError tagged with marker. A nil marker defaults to
// ErrStoreTransition. Wrapping an existing FileError with the same marker and
// path returns it unchanged so errors do not nest redundantly.
func Wrap(marker error, op, path string, err error) error {
	if marker == nil {
		marker = ErrStoreTransition
	}
	var existing *FileError
	if errors.As(err, &existing) && existing.Path == path && errors.Is(existing.Marker, marker) {
		return err
	}
	return &FileError{Marker: marker, Op: op, Path: path, Err: err}
}

// PathOf returns the file path carried by err, if any.
func PathOf(err error) (string, bool) {
	var fileErr *FileError
	if errors.As(err, &fileErr) && fileErr.Path != "" {
		return fileErr.Path, true
	}
	return "", false
}

// Hint returns a short next-step suggestion for a classified error, used as the
// error_hint log field.
func Hint(err error) string {
	switch {
	case errors.Is(err, ErrCollectionBusy):
		return "close the other galman session or remove a stale lock holder"
	case errors.Is(err, ErrAlreadyRejected):
		return "the file was previously rejected; its copy has been discarded"
	case errors.Is(err, ErrHash):
		return "check the file is readable and not being modified"
	case errors.Is(err, ErrImportSource):
		return "check the import source path exists and is a readable directory"
	case errors.Is(err, ErrStoreTransition):
		return "file left in the airlock; it will be presented again next session"
	case errors.Is(err, ErrViewerSignal):
		return "check the viewer key bindings"
	default:
		return "check logs for details"
	}
}
