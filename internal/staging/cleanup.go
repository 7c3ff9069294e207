package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dubber/internal/logging"
)

// CleanResult contains the outcome of a cleanup operation.
type CleanResult struct {
	Removed    []string
	FreedBytes int64
	Errors     []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

func (r *CleanResult) merge(other CleanResult) {
	r.Removed = append(r.Removed, other.Removed...)
	r.FreedBytes += other.FreedBytes
	r.Errors = append(r.Errors, other.Errors...)
}

// CleanStale removes job workspaces under workDir older than maxAge. Entries
// named in active are kept regardless of age.
func CleanStale(ctx context.Context, workDir string, maxAge time.Duration, active map[string]struct{}, logger *slog.Logger) CleanResult {
	return sweep(ctx, workDir, maxAge, logger, func(entry os.DirEntry) bool {
		if !entry.IsDir() {
			return false
		}
		_, running := active[entry.Name()]
		return !running
	}, "stale workspace")
}

// CleanOutputs removes finished videos in outputDir older than retention.
func CleanOutputs(ctx context.Context, outputDir string, retention time.Duration, logger *slog.Logger) CleanResult {
	return sweep(ctx, outputDir, retention, logger, func(entry os.DirEntry) bool {
		return entry.Type().IsRegular() && strings.HasPrefix(entry.Name(), "dubbed_")
	}, "expired output")
}

// CleanUploads removes uploaded files in uploadDir older than maxAge.
func CleanUploads(ctx context.Context, uploadDir string, maxAge time.Duration, logger *slog.Logger) CleanResult {
	return sweep(ctx, uploadDir, maxAge, logger, func(entry os.DirEntry) bool {
		return entry.Type().IsRegular()
	}, "stale upload")
}

func sweep(ctx context.Context, dir string, maxAge time.Duration, logger *slog.Logger, eligible func(os.DirEntry) bool, label string) CleanResult {
	result := CleanResult{}

	dir = strings.TrimSpace(dir)
	if dir == "" {
		return result
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !eligible(entry) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		size := info.Size()
		if info.IsDir() {
			size, _ = dirSize(path)
		}
		if err := os.RemoveAll(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			if logger != nil {
				logging.WarnWithContext(logger, "failed to remove "+label, "staging_cleanup_failed",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check directory permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, path)
		result.FreedBytes += size
		if logger != nil {
			logger.Info("removed "+label,
				logging.String("path", path),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "staging_cleanup"),
			)
		}
	}

	return result
}

// ListEntries returns the files and directories in dir with their metadata.
func ListEntries(dir string) ([]EntryInfo, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []EntryInfo
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		size := info.Size()
		if entry.IsDir() {
			size, _ = dirSize(path)
		}

		out = append(out, EntryInfo{
			Name:    entry.Name(),
			Path:    path,
			IsDir:   entry.IsDir(),
			ModTime: info.ModTime(),
			Size:    size,
		})
	}

	return out, nil
}

// EntryInfo contains metadata about a staged file or workspace.
type EntryInfo struct {
	Name    string
	Path    string
	IsDir   bool
	ModTime time.Time
	Size    int64
}

// dirSize calculates the total size of a directory recursively.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // best effort
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
