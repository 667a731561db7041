package service

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const tempCleanupSchedule = "@every 1h"

// SweepTempDir removes upload temp files in dir last modified before
// now - maxAge. Requests release their own files, this only catches what a
// crash left behind.
func SweepTempDir(dir string, maxAge time.Duration, now time.Time) (int, error) {
	if dir == "" {
		dir = os.TempDir()
	}

	matches, err := filepath.Glob(filepath.Join(dir, TempFilePattern))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}

		if now.Sub(info.ModTime()) < maxAge {
			continue
		}

		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			zap.L().Warn("Failed to remove stale temp file", zap.Error(err), zap.String("path", m))
			continue
		}
		removed++
	}

	return removed, nil
}

// TempCleanup schedules SweepTempDir on a cron and returns the running
// scheduler. Stop it on shutdown.
func TempCleanup(dir string, maxAge time.Duration) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(tempCleanupSchedule, func() {
		n, err := SweepTempDir(dir, maxAge, time.Now())
		if err != nil {
			zap.L().Error("Failed to sweep upload temp dir", zap.Error(err))
			return
		}

		if n > 0 {
			zap.L().Debug("Removed stale upload temp files", zap.Int("count", n))
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	zap.L().Debug("Temp cleanup attached", zap.String("schedule", tempCleanupSchedule))

	return c, nil
}
