package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"

	"galman/internal/config"
	"galman/internal/faults"
	"galman/internal/identity"
	"galman/internal/logging"
)

// Collection is the part of the collection store the importer needs.
type Collection interface {
	IsKnown(ctx context.Context, id identity.Identity) (bool, error)
	AdmitToAirlock(ctx context.Context, sourcePath string) (string, error)
}

// Options configures an Importer.
type Options struct {
	// Ignore holds doublestar patterns matched case-insensitively against
	// slash-separated paths relative to the source root.
	Ignore         []string
	FollowSymlinks bool
	// Exclude lists directories never descended into, such as the collection
	// itself when it lives under the source.
	Exclude []string
	Logger  *slog.Logger
}

// OptionsFromConfig builds importer options from the import config section.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		Ignore:         append([]string(nil), cfg.Import.Ignore...),
		FollowSymlinks: cfg.Import.FollowSymlinks,
		Logger:         logger,
	}
}

// Failure records a file that could not be imported.
type Failure struct {
	Path string
	Err  error
}

// Result summarizes one import.
type Result struct {
	Scanned    int
	Imported   int
	Known      int
	Duplicates int
	Ignored    int
	Failed     []Failure
	// ImportedBytes sums the sizes of admitted files.
	ImportedBytes int64
}

// Importer admits new files from a source tree into a collection.
type Importer struct {
	coll    Collection
	hasher  identity.Hasher
	ignore  []string
	follow  bool
	exclude []string
	logger  *slog.Logger
}

// New constructs an importer for coll.
func New(coll Collection, hasher identity.Hasher, opts Options) *Importer {
	ignore := make([]string, 0, len(opts.Ignore))
	for _, pattern := range opts.Ignore {
		if pattern = strings.TrimSpace(pattern); pattern != "" {
			ignore = append(ignore, strings.ToLower(pattern))
		}
	}
	exclude := make([]string, 0, len(opts.Exclude))
	for _, dir := range opts.Exclude {
		if dir = strings.TrimSpace(dir); dir != "" {
			exclude = append(exclude, filepath.Clean(dir))
		}
	}
	return &Importer{
		coll:    coll,
		hasher:  hasher,
		ignore:  ignore,
		follow:  opts.FollowSymlinks,
		exclude: exclude,
		logger:  logging.NewComponentLogger(opts.Logger, "importer"),
	}
}

// ImportFrom imports every new file under sourceDir. A missing, non-directory,
// or unreadable source root returns an error wrapping faults.ErrImportSource
// and imports nothing. Cancellation stops the import between files and
// returns the partial result with the context error.
func (im *Importer) ImportFrom(ctx context.Context, sourceDir string) (Result, error) {
	var result Result

	root, err := im.checkSource(sourceDir)
	if err != nil {
		return result, err
	}

	batch, err := im.scan(ctx, root, &result)
	if err != nil {
		return result, err
	}
	im.logger.Info("import scan complete",
		logging.String(logging.FieldEventType, "import_scanned"),
		logging.Path(root),
		logging.Int("candidates", len(batch)),
		logging.Int("ignored", result.Ignored),
	)

	admitted := make(map[identity.Identity]string, len(batch))
	sampler := logging.NewProgressSampler(10)
	for i, path := range batch {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		im.importFile(ctx, path, admitted, &result)
		if sampler.ShouldLog(i+1, len(batch)) {
			im.logger.Info("import progress",
				logging.String(logging.FieldEventType, "import_progress"),
				logging.String("progress", fmt.Sprintf("%d/%d", i+1, len(batch))),
				logging.Int("imported", result.Imported),
			)
		}
	}

	im.logger.Info("import complete",
		logging.String(logging.FieldEventType, "import_complete"),
		logging.Path(root),
		logging.Int("scanned", result.Scanned),
		logging.Int("imported", result.Imported),
		logging.String("imported_size", humanize.IBytes(uint64(result.ImportedBytes))),
		logging.Int("known", result.Known),
		logging.Int("duplicates", result.Duplicates),
		logging.Int("ignored", result.Ignored),
		logging.Int("failed", len(result.Failed)),
	)
	return result, nil
}

func (im *Importer) checkSource(sourceDir string) (string, error) {
	const op = "import"
	if strings.TrimSpace(sourceDir) == "" {
		return "", faults.Wrap(faults.ErrImportSource, op, sourceDir, errors.New("source path is empty"))
	}
	root, err := filepath.Abs(sourceDir)
	if err != nil {
		return "", faults.Wrap(faults.ErrImportSource, op, sourceDir, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", faults.Wrap(faults.ErrImportSource, op, root, err)
	}
	if !info.IsDir() {
		return "", faults.Wrap(faults.ErrImportSource, op, root, errors.New("not a directory"))
	}
	dir, err := os.Open(root)
	if err != nil {
		return "", faults.Wrap(faults.ErrImportSource, op, root, err)
	}
	defer dir.Close()
	if _, err := dir.ReadDir(1); err != nil && !errors.Is(err, io.EOF) {
		return "", faults.Wrap(faults.ErrImportSource, op, root, err)
	}
	return root, nil
}

// scan walks root and returns the candidate files in walk order.
func (im *Importer) scan(ctx context.Context, root string, result *Result) ([]string, error) {
	var batch []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return faults.Wrap(faults.ErrImportSource, "walk", root, walkErr)
			}
			im.fail(result, path, "walk", walkErr)
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			im.fail(result, path, "walk", err)
			return nil
		}
		if entry.IsDir() {
			if im.excluded(path) || im.ignored(rel) {
				im.logger.Debug("directory skipped", logging.Path(path))
				return fs.SkipDir
			}
			return nil
		}

		result.Scanned++
		if im.ignored(rel) {
			result.Ignored++
			im.logger.Debug("file ignored", logging.Path(path))
			return nil
		}
		if !im.regular(path, entry) {
			result.Ignored++
			im.logger.Debug("non-regular file skipped", logging.Path(path), logging.String("type", entry.Type().String()))
			return nil
		}
		batch = append(batch, path)
		return nil
	})
	if err != nil {
		return batch, err
	}
	return batch, nil
}

func (im *Importer) importFile(ctx context.Context, path string, admitted map[identity.Identity]string, result *Result) {
	id, err := im.hasher.Identify(ctx, path)
	if err != nil {
		im.fail(result, path, "hash", err)
		return
	}
	logger := im.logger.With(logging.Identity(id.String()), logging.Path(path))

	known, err := im.coll.IsKnown(ctx, id)
	if err != nil {
		im.fail(result, path, "lookup", err)
		return
	}
	if known {
		result.Known++
		logger.Debug("already decided; skipped")
		return
	}
	if first, seen := admitted[id]; seen {
		result.Duplicates++
		logger.Debug("duplicate within import; skipped", logging.String("first_path", first))
		return
	}

	dest, err := im.coll.AdmitToAirlock(ctx, path)
	if err != nil {
		im.fail(result, path, "admit", err)
		return
	}
	admitted[id] = path
	result.Imported++
	result.ImportedBytes += id.Size
	logger.Debug("admitted to airlock", logging.String("airlock_path", dest))
}

func (im *Importer) fail(result *Result, path, op string, err error) {
	result.Failed = append(result.Failed, Failure{Path: path, Err: err})
	logging.WarnWithContext(im.logger, "file not imported", "import_file_failed",
		logging.Path(path),
		logging.String("op", op),
		logging.Error(err),
		logging.String(logging.FieldImpact, "file skipped; the import continues"),
		logging.String(logging.FieldErrorHint, faults.Hint(err)),
	)
}

func (im *Importer) ignored(rel string) bool {
	rel = strings.ToLower(filepath.ToSlash(rel))
	for _, pattern := range im.ignore {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (im *Importer) excluded(path string) bool {
	for _, dir := range im.exclude {
		if path == dir {
			return true
		}
	}
	return false
}

// regular reports whether entry is a regular file, resolving symlinks when
// FollowSymlinks is set. Symlinked directories are never descended into.
func (im *Importer) regular(path string, entry fs.DirEntry) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 || !im.follow {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
