package collection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"galman/internal/faults"
	"galman/internal/identity"
	"galman/internal/logging"
)

// Options configures Open.
type Options struct {
	Names  Names
	Hasher identity.Hasher
	Logger *slog.Logger
	// Now overrides the clock used for decided_at timestamps.
	Now func() time.Time
}

// Store manages a collection's partitions and its decision record.
type Store struct {
	layout Layout
	db     *sql.DB
	lock   *flock.Flock
	hasher identity.Hasher
	logger *slog.Logger
	now    func() time.Time

	// mu serializes partition transitions.
	mu sync.Mutex
}

// Open prepares the collection at root: it creates missing partitions, takes
// the session lock, opens the decision record, and reconciles state left by an
// interrupted run.
func Open(ctx context.Context, root string, opts Options) (*Store, error) {
	layout, err := EnsureLayout(root, opts.Names)
	if err != nil {
		return nil, err
	}

	logger := logging.NewComponentLogger(opts.Logger, "collection")
	lock := flock.New(layout.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire collection lock %s: %w", layout.LockPath(), err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", faults.ErrCollectionBusy, layout.Root)
	}

	db, err := openDatabase(layout.DatabasePath())
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	store := &Store{
		layout: layout,
		db:     db,
		lock:   lock,
		hasher: opts.Hasher,
		logger: logger,
		now:    opts.Now,
	}
	if store.now == nil {
		store.now = time.Now
	}

	if err := store.applyMigrations(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	report, err := store.Reconcile(ctx)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("reconcile collection: %w", err)
	}
	if !report.Empty() {
		logger.Info("collection reconciled",
			logging.String(logging.FieldEventType, "collection_reconciled"),
			logging.Int("removed_partials", report.RemovedPartials),
			logging.Int("recorded_accepted", report.RecordedAccepted),
			logging.Int("unrecognized", report.Unrecognized),
		)
	}

	logger.Debug("collection opened", logging.Path(layout.Root))
	return store, nil
}

func openDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", databaseURI(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas below are per-connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	return db, nil
}

// databaseURI escapes path into a file: URI. A bare path containing '?' would
// otherwise be split into a file name and driver parameters.
func databaseURI(path string) string {
	return "file:" + (&url.URL{Path: path}).EscapedPath()
}

// Close closes the decision record and releases the session lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("release collection lock: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Layout returns the resolved partition paths.
func (s *Store) Layout() Layout {
	return s.layout
}
