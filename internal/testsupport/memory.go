package testsupport

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path"
	"slices"
	"strings"
	"sync"

	"galman/internal/faults"
	"galman/internal/identity"
)

// MemoryAirlock is the virtual directory MemoryCollection keeps airlock files in.
const MemoryAirlock = "/memory/airlock"

// MemoryCollection is an in-memory collection with the same partition rules
// as collection.Store. It satisfies the importer and review store interfaces.
type MemoryCollection struct {
	mu       sync.Mutex
	hasher   identity.Hasher
	airlock  map[string]string
	gallery  map[identity.Identity]string
	rejected map[identity.Identity]bool
	failures map[string]error
	seq      int
}

// NewMemoryCollection returns an empty in-memory collection.
func NewMemoryCollection() *MemoryCollection {
	return &MemoryCollection{
		airlock:  make(map[string]string),
		gallery:  make(map[identity.Identity]string),
		rejected: make(map[identity.Identity]bool),
		failures: make(map[string]error),
	}
}

// Add places content in the airlock under name and returns its path.
func (m *MemoryCollection) Add(name, content string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addLocked(name, content)
}

func (m *MemoryCollection) addLocked(name, content string) string {
	p := path.Join(MemoryAirlock, name)
	for {
		if _, taken := m.airlock[p]; !taken {
			break
		}
		m.seq++
		ext := path.Ext(name)
		p = path.Join(MemoryAirlock, fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), m.seq, ext))
	}
	m.airlock[p] = content
	return p
}

// MarkAccepted seeds the gallery with content.
func (m *MemoryCollection) MarkAccepted(content string) identity.Identity {
	id := m.identify(content)
	m.mu.Lock()
	m.gallery[id] = content
	m.mu.Unlock()
	return id
}

// MarkRejected seeds the rejected record with content's identity.
func (m *MemoryCollection) MarkRejected(content string) identity.Identity {
	id := m.identify(content)
	m.mu.Lock()
	m.rejected[id] = true
	m.mu.Unlock()
	return id
}

// FailOn makes the next transition of airlockPath fail with err.
func (m *MemoryCollection) FailOn(airlockPath string, err error) {
	m.mu.Lock()
	m.failures[airlockPath] = err
	m.mu.Unlock()
}

// Airlock returns the airlock paths in name order.
func (m *MemoryCollection) Airlock() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.airlock))
	for p := range m.airlock {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Content returns the bytes stored at an airlock path.
func (m *MemoryCollection) Content(airlockPath string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.airlock[airlockPath]
	return content, ok
}

// InGallery reports whether content's identity is in the gallery.
func (m *MemoryCollection) InGallery(content string) bool {
	id := m.identify(content)
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.gallery[id]
	return ok
}

// IsRejected reports whether content's identity is on the rejected record.
func (m *MemoryCollection) IsRejected(content string) bool {
	id := m.identify(content)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rejected[id]
}

// GalleryCount returns the number of accepted identities.
func (m *MemoryCollection) GalleryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.gallery)
}

// RejectedCount returns the number of rejected identities.
func (m *MemoryCollection) RejectedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rejected)
}

func (m *MemoryCollection) identify(content string) identity.Identity {
	id, err := m.hasher.IdentifyReader(context.Background(), "memory", strings.NewReader(content))
	if err != nil {
		panic(err)
	}
	return id
}

// IsKnown implements the importer collection interface.
func (m *MemoryCollection) IsKnown(_ context.Context, id identity.Identity) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, accepted := m.gallery[id]
	return accepted || m.rejected[id], nil
}

// AdmitToAirlock copies a real file's bytes into the in-memory airlock.
func (m *MemoryCollection) AdmitToAirlock(_ context.Context, sourcePath string) (string, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return "", faults.Wrap(faults.ErrStoreTransition, "admit", sourcePath, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failures[sourcePath]; ok {
		delete(m.failures, sourcePath)
		return "", faults.Wrap(faults.ErrStoreTransition, "admit", sourcePath, err)
	}
	return m.addLocked(path.Base(sourcePath), string(data)), nil
}

// ListAirlock yields airlock paths in name order.
func (m *MemoryCollection) ListAirlock(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, p := range m.Airlock() {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			if !yield(p, nil) {
				return
			}
		}
	}
}

// AcceptIntoGallery mirrors collection.Store.AcceptIntoGallery.
func (m *MemoryCollection) AcceptIntoGallery(_ context.Context, airlockPath string) (identity.Identity, error) {
	content, err := m.take("accept", airlockPath)
	if err != nil {
		return identity.Identity{}, err
	}
	id := m.identify(content)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rejected[id] {
		delete(m.airlock, airlockPath)
		return id, faults.Wrap(faults.ErrStoreTransition, "accept", airlockPath, faults.ErrAlreadyRejected)
	}
	delete(m.airlock, airlockPath)
	m.gallery[id] = content
	return id, nil
}

// RejectFromAirlock mirrors collection.Store.RejectFromAirlock.
func (m *MemoryCollection) RejectFromAirlock(_ context.Context, airlockPath string) (identity.Identity, error) {
	content, err := m.take("reject", airlockPath)
	if err != nil {
		return identity.Identity{}, err
	}
	id := m.identify(content)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.airlock, airlockPath)
	if _, accepted := m.gallery[id]; !accepted {
		m.rejected[id] = true
	}
	return id, nil
}

// take returns the content at airlockPath, or the injected or missing-file error.
func (m *MemoryCollection) take(op, airlockPath string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failures[airlockPath]; ok {
		delete(m.failures, airlockPath)
		return "", faults.Wrap(faults.ErrStoreTransition, op, airlockPath, err)
	}
	content, ok := m.airlock[airlockPath]
	if !ok {
		return "", faults.Wrap(faults.ErrHash, "open", airlockPath, os.ErrNotExist)
	}
	return content, nil
}
