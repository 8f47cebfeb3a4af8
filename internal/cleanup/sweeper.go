// Package cleanup removes uploaded files that no document row references.
// Such orphans appear when a commit fails after the gateway wrote the file but
// before the cleanup ran, or when the process died mid-commit.
package cleanup

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// MinAge protects files from being swept while a commit that wrote them may
// still be in flight.
const MinAge = 48 * time.Hour

// PathLister reports every file path the documents table references.
type PathLister interface {
	ListPaths(ctx context.Context) ([]string, error)
}

// Sweeper periodically deletes orphaned uploads.
type Sweeper struct {
	dir      string
	docs     PathLister
	interval time.Duration
	logger   *slog.Logger

	now func() time.Time
}

func NewSweeper(dir string, docs PathLister, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		dir:      dir,
		docs:     docs,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if removed, err := s.Sweep(ctx); err != nil {
				s.logger.Error("cleanup sweep failed", "error", err)
			} else if removed > 0 {
				s.logger.Info("cleanup sweep done", "removed", removed)
			}
		}
	}
}

// Sweep deletes every file in the upload dir that is older than MinAge and
// absent from the documents table. Returns how many files were removed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	paths, err := s.docs.ListPaths(ctx)
	if err != nil {
		return 0, err
	}
	referenced := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		referenced[abs] = struct{}{}
	}

	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-MinAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path, err := filepath.Abs(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		if _, ok := referenced[path]; ok {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			s.logger.Warn("remove orphaned file failed", "path", path, "error", err)
			continue
		}
		s.logger.Info("orphaned file removed", "path", path)
		removed++
	}
	return removed, nil
}
