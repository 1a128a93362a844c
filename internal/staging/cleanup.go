package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"oepma/internal/logging"
)

// CleanResult contains the outcome of a success directory cleanup.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a file path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanDone removes materialized records older than maxAge from the success
// directory below stagingDir.
func CleanDone(ctx context.Context, stagingDir string, maxAge time.Duration, logger *slog.Logger) CleanResult {
	result := CleanResult{}

	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return result
	}
	successDir := filepath.Join(stagingDir, SuccessDirName)
	paths, err := List(successDir)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: successDir, Error: err})
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, path := range paths {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, CleanupError{Path: successDir, Error: ctx.Err()})
			return result
		}
		info, err := os.Stat(path)
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			if logger != nil {
				logger.Warn("failed to remove materialized record",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldEventType, "staging_cleanup_failed"),
					logging.String(logging.FieldErrorHint, "check import_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, path)
		if logger != nil {
			logger.Info("removed materialized record",
				logging.String("path", path),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "staging_cleanup"),
			)
		}
	}
	return result
}
