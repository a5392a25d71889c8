package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PruneRunLogs deletes run logs (LogFilePattern) in dir last written more than
// retentionDays ago, never touching current. It returns the number removed.
// Other files in dir are left alone, and retentionDays <= 0 keeps everything.
func PruneRunLogs(logger *slog.Logger, dir string, retentionDays int, current string) int {
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	current = filepath.Base(current)

	pruned := 0
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || name == current {
			continue
		}
		if ok, _ := filepath.Match(LogFilePattern, name); !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "old run log not removed", "log_retention_failed",
				Path(path),
				Error(err),
				String(FieldErrorHint, "check file permissions on logging.dir"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		pruned++
	}
	if pruned > 0 && logger != nil {
		logger.Debug("old run logs pruned",
			String(FieldEventType, "log_pruned"),
			Int("count", pruned),
			Int("retention_days", retentionDays),
		)
	}
	return pruned
}
