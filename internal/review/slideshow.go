package review

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"galman/internal/logging"
	"galman/internal/viewer"
)

// Slideshow shows paths in random order, advancing every interval until the
// user quits or closes the viewer. The accept key advances immediately. A
// non-positive interval disables auto-advance. Nothing in the collection is
// modified.
func Slideshow(ctx context.Context, v viewer.Viewer, paths []string, interval time.Duration, logger *slog.Logger) error {
	logger = logging.NewComponentLogger(logger, "slideshow")
	if len(paths) == 0 {
		logger.Info("gallery empty; nothing to show", logging.String(logging.FieldEventType, "slideshow_empty"))
		return nil
	}

	order := append([]string(nil), paths...)
	rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	if err := v.Load(ctx, order); err != nil {
		return fmt.Errorf("start viewer: %w", err)
	}
	defer func() {
		if err := v.Close(); err != nil {
			logger.Debug("viewer close failed", logging.Error(err))
		}
	}()
	logger.Info("slideshow started",
		logging.String(logging.FieldEventType, "slideshow_started"),
		logging.Int("files", len(order)),
		logging.Duration("interval", interval),
	)

	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	shown := 1
	events := v.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
		case event, open := <-events:
			if !open || event.Kind == viewer.EventQuit {
				logger.Info("slideshow finished",
					logging.String(logging.FieldEventType, "slideshow_finished"),
					logging.Int("shown", shown),
				)
				return nil
			}
			if event.Kind != viewer.EventAccept {
				logger.Debug("event ignored during slideshow", logging.String("event", event.Kind.String()))
				continue
			}
		}
		if err := v.Skip(ctx); err != nil {
			return fmt.Errorf("advance slideshow: %w", err)
		}
		shown++
	}
}
