package collection

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"galman/internal/fileutil"
	"galman/internal/identity"
	"galman/internal/logging"
)

// ReconcileReport summarizes repairs made by Reconcile.
type ReconcileReport struct {
	RemovedPartials  int
	RecordedAccepted int
	// Unrecognized counts gallery files not named by identity.
	Unrecognized int
}

// Empty reports whether Reconcile changed or flagged nothing.
func (r ReconcileReport) Empty() bool {
	return r == ReconcileReport{}
}

// Reconcile repairs state left by an interrupted run. It removes temporary
// copies from the airlock and gallery and records an accepted decision for
// every identity-named gallery file that lacks one (a crash between the move
// and the record). Open runs it automatically.
func (s *Store) Reconcile(ctx context.Context) (ReconcileReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report ReconcileReport

	removed, err := s.removePartials(s.layout.Airlock, func(name string) bool {
		return strings.HasPrefix(name, incomingPrefix) && strings.HasSuffix(name, fileutil.PartialSuffix)
	})
	if err != nil {
		return report, err
	}
	report.RemovedPartials += removed

	removed, err = s.removePartials(s.layout.Gallery, fileutil.IsMoveTemp)
	if err != nil {
		return report, err
	}
	report.RemovedPartials += removed

	entries, err := os.ReadDir(s.layout.Gallery)
	if err != nil {
		return report, fmt.Errorf("read gallery: %w", err)
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		id, ok := identity.FromFileName(entry.Name())
		if !ok {
			report.Unrecognized++
			s.logger.Debug("gallery file not named by identity", logging.Path(filepath.Join(s.layout.Gallery, entry.Name())))
			continue
		}
		verdict, found, err := s.lookupVerdict(ctx, id)
		if err != nil {
			return report, err
		}
		if found {
			if verdict == VerdictRejected {
				logging.WarnWithContext(s.logger, "gallery holds a rejected identity", "gallery_rejected_identity",
					logging.Identity(id.String()),
					logging.Path(filepath.Join(s.layout.Gallery, entry.Name())),
					logging.String(logging.FieldImpact, "file left in gallery; the rejection stays on record"),
					logging.String(logging.FieldErrorHint, "delete the gallery file if the rejection is intended"),
				)
			}
			continue
		}
		written, err := s.recordDecision(ctx, id, VerdictAccepted, entry.Name())
		if err != nil {
			return report, err
		}
		if written {
			report.RecordedAccepted++
		}
	}
	return report, nil
}

func (s *Store) removePartials(dir string, match func(string) bool) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", dir, err)
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !match(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			logging.WarnWithContext(s.logger, "stale partial copy not removed", "partial_cleanup_failed",
				logging.Path(path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "temporary file remains on disk"),
			)
			continue
		}
		removed++
		s.logger.Debug("stale partial copy removed", logging.Path(path))
	}
	if removed > 0 {
		if err := fileutil.SyncDir(dir); err != nil {
			return removed, err
		}
	}
	return removed, nil
}
