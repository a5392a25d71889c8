package triage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"galman/internal/collection"
	"galman/internal/config"
	"galman/internal/identity"
	"galman/internal/importer"
	"galman/internal/logging"
	"galman/internal/preflight"
	"galman/internal/review"
	"galman/internal/viewer"
)

// Options selects what a run does.
type Options struct {
	// Collection overrides the configured collection root when set.
	Collection string
	// Source is imported before review when set.
	Source string
	// ImportOnly stops after the import.
	ImportOnly bool
	// Viewer replaces the mpv viewer built from config.
	Viewer viewer.Viewer
	Logger *slog.Logger
}

// Report describes a completed run.
type Report struct {
	Collection string
	Import     *importer.Result
	Review     *review.Summary
	// Interrupted is set when cancellation stopped the import.
	Interrupted bool
}

// Run imports from opts.Source when given, then reviews the airlock unless
// opts.ImportOnly is set. Per-file import failures do not prevent the review;
// an unusable import source does. A review that ends because the user quit
// is a success.
func Run(ctx context.Context, cfg *config.Config, opts Options) (Report, error) {
	var report Report
	logger := logging.NewComponentLogger(opts.Logger, "triage")

	cfg, err := resolveConfig(cfg, opts.Collection)
	if err != nil {
		return report, err
	}
	report.Collection = cfg.Collection.Path

	store, err := collection.Open(ctx, cfg.Collection.Path, collection.Options{
		Names:  collection.NamesFromConfig(cfg),
		Logger: opts.Logger,
	})
	if err != nil {
		return report, err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warn("collection close failed", logging.Error(closeErr))
		}
	}()

	if strings.TrimSpace(opts.Source) != "" {
		importOpts := importer.OptionsFromConfig(cfg, opts.Logger)
		importOpts.Exclude = []string{store.Layout().Root}
		result, err := importer.New(store, identity.Hasher{}, importOpts).ImportFrom(ctx, opts.Source)
		report.Import = &result
		if err != nil {
			if errors.Is(err, context.Canceled) {
				report.Interrupted = true
				return report, nil
			}
			return report, err
		}
	}
	if opts.ImportOnly {
		return report, nil
	}

	v := opts.Viewer
	if v == nil {
		if check := preflight.CheckViewer(ctx, cfg.Viewer.Binary); !check.Passed {
			return report, fmt.Errorf("viewer %q unavailable: %s", cfg.Viewer.Binary, check.Detail)
		}
		v = viewer.NewMPV(viewer.OptionsFromConfig(cfg), viewer.WithLogger(opts.Logger))
	}

	summary, err := review.New(store, v, review.Options{Logger: opts.Logger}).Run(ctx)
	if err != nil {
		return report, err
	}
	report.Review = &summary
	return report, nil
}

// ViewOptions configures View.
type ViewOptions struct {
	Collection string
	// Interval overrides the configured slideshow interval when positive.
	Interval time.Duration
	Viewer   viewer.Viewer
	Logger   *slog.Logger
}

// View plays the gallery as a slideshow. It reads the gallery directly and
// does not take the collection lock.
func View(ctx context.Context, cfg *config.Config, opts ViewOptions) error {
	cfg, err := resolveConfig(cfg, opts.Collection)
	if err != nil {
		return err
	}
	layout, err := collection.EnsureLayout(cfg.Collection.Path, collection.NamesFromConfig(cfg))
	if err != nil {
		return err
	}
	paths, err := layout.GalleryFiles(ctx)
	if err != nil {
		return err
	}

	interval := cfg.SlideshowInterval()
	if opts.Interval > 0 {
		interval = opts.Interval
	}

	v := opts.Viewer
	if v == nil && len(paths) > 0 {
		if check := preflight.CheckViewer(ctx, cfg.Viewer.Binary); !check.Passed {
			return fmt.Errorf("viewer %q unavailable: %s", cfg.Viewer.Binary, check.Detail)
		}
		mpvOpts := viewer.OptionsFromConfig(cfg)
		mpvOpts.LoopPlaylist = true
		v = viewer.NewMPV(mpvOpts, viewer.WithLogger(opts.Logger))
	}
	return review.Slideshow(ctx, v, paths, interval, opts.Logger)
}

func resolveConfig(cfg *config.Config, collectionRoot string) (*config.Config, error) {
	if cfg == nil {
		d := config.Default()
		cfg = &d
	}
	resolved, err := cfg.WithCollection(collectionRoot)
	if err != nil {
		return nil, err
	}
	if err := resolved.RequireCollection(); err != nil {
		return nil, err
	}
	return resolved, nil
}
