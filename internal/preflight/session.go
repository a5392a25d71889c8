package preflight

import (
	"errors"
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

// SessionState reports whether a galman session holds a collection's lock.
type SessionState struct {
	LockPath string
	Active   bool
}

// InspectSession tries the collection lock without keeping it. A missing lock
// file means no session has ever run.
func InspectSession(lockPath string) (SessionState, error) {
	state := SessionState{LockPath: lockPath}
	if _, err := os.Stat(lockPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return state, nil
		}
		return state, fmt.Errorf("stat lock: %w", err)
	}
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return state, fmt.Errorf("test lock %s: %w", lockPath, err)
	}
	if !locked {
		state.Active = true
		return state, nil
	}
	if err := lock.Unlock(); err != nil {
		return state, fmt.Errorf("release test lock: %w", err)
	}
	return state, nil
}

// Detail renders the session state for status output.
func (s SessionState) Detail() string {
	if s.Active {
		return "review session in progress"
	}
	return "idle"
}
