package collection

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"galman/internal/faults"
	"galman/internal/fileutil"
)

const incomingPrefix = ".incoming-"

// AdmitToAirlock copies sourcePath into the airlock and returns the new path.
// The copy is written under a hidden temporary name, verified against the
// source, synced, and only then renamed to the source's base name (or a
// uuid-suffixed variant when that name is taken). The source is not modified.
func (s *Store) AdmitToAirlock(ctx context.Context, sourcePath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	const op = "admit"
	info, err := os.Stat(sourcePath)
	if err != nil {
		return "", faults.Wrap(faults.ErrStoreTransition, op, sourcePath, err)
	}
	if free, err := fileutil.AvailableBytes(s.layout.Airlock); err == nil && uint64(info.Size()) > free {
		return "", faults.Wrap(faults.ErrStoreTransition, op, sourcePath,
			fmt.Errorf("insufficient space in airlock: need %d bytes, %d available", info.Size(), free))
	}

	temp := filepath.Join(s.layout.Airlock, incomingPrefix+uuid.NewString()+fileutil.PartialSuffix)
	if _, err := fileutil.CopyFileVerified(ctx, sourcePath, temp); err != nil {
		return "", faults.Wrap(faults.ErrStoreTransition, op, sourcePath, err)
	}

	target, err := s.airlockTarget(airlockName(sourcePath))
	if err != nil {
		_ = os.Remove(temp)
		return "", faults.Wrap(faults.ErrStoreTransition, op, sourcePath, err)
	}
	if err := os.Rename(temp, target); err != nil {
		_ = os.Remove(temp)
		return "", faults.Wrap(faults.ErrStoreTransition, op, sourcePath, err)
	}
	if err := fileutil.SyncDir(s.layout.Airlock); err != nil {
		return "", faults.Wrap(faults.ErrStoreTransition, op, sourcePath, err)
	}
	return target, nil
}

// airlockName derives a visible, NFC-normalised file name from a source path.
func airlockName(sourcePath string) string {
	name := norm.NFC.String(filepath.Base(sourcePath))
	if strings.HasPrefix(name, ".") {
		name = "untitled" + name
	}
	return name
}

// airlockTarget returns a free path for name, appending "-<uuid8>" to the stem
// on collision.
func (s *Store) airlockTarget(name string) (string, error) {
	candidate := filepath.Join(s.layout.Airlock, name)
	for range 8 {
		_, err := os.Lstat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		ext := filepath.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		candidate = filepath.Join(s.layout.Airlock, stem+"-"+uuid.NewString()[:8]+ext)
	}
	return "", fmt.Errorf("no free airlock name for %q", name)
}

// ListAirlock yields the airlock's pending files in name order. Hidden files,
// temporary copies, and directories are skipped. Each call reads the directory
// afresh.
func (s *Store) ListAirlock(ctx context.Context) iter.Seq2[string, error] {
	return listVisible(ctx, s.layout.Airlock)
}

// ListGallery returns every file in the gallery in name order.
func (s *Store) ListGallery(ctx context.Context) ([]string, error) {
	return s.layout.GalleryFiles(ctx)
}

// GalleryFiles lists the gallery without opening the collection, so read-only
// commands do not contend for the session lock.
func (l Layout) GalleryFiles(ctx context.Context) ([]string, error) {
	var paths []string
	for path, err := range listVisible(ctx, l.Gallery) {
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func listVisible(ctx context.Context, dir string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			yield("", fmt.Errorf("read %s: %w", dir, err))
			return
		}
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			if strings.HasPrefix(entry.Name(), ".") || !entry.Type().IsRegular() {
				continue
			}
			if !yield(filepath.Join(dir, entry.Name()), nil) {
				return
			}
		}
	}
}
