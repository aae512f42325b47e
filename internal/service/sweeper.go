package service

import (
	"context"
	"errors"
	"time"

	"github.com/HardCodeMatter/file-fortress-api/internal/logging"
	"github.com/HardCodeMatter/file-fortress-api/internal/repo"
	"github.com/HardCodeMatter/file-fortress-api/internal/storage"
)

const sweepBatch = 100

// SweepPending removes upload records that never got committed, together
// with whatever blob was written for them. Records whose blob cannot be
// deleted are left for the next run. It returns the number of records
// removed.
func (s *FileService) SweepPending(ctx context.Context, olderThan time.Duration) (int, error) {
	l := logging.FromContext(ctx).With("svc", "files.sweep")
	before := s.Now().UTC().Add(-olderThan)

	removed := 0
	for {
		stale, err := s.Files.ListStalePendingFiles(ctx, before, sweepBatch)
		if err != nil {
			return removed, err
		}
		if len(stale) == 0 {
			return removed, nil
		}

		batch := 0
		for _, f := range stale {
			// the record is the only pointer to the blob, keep it until the blob is gone
			if err := s.Storage.Delete(ctx, f.StorageKey); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
				l.Warn("sweep_blob_failed", "file_id", f.ID, "storage_key", f.StorageKey, "error", err)
				continue
			}
			if err := s.Files.DeleteFile(ctx, f.ID); err != nil && !errors.Is(err, repo.ErrNotFound) {
				return removed + batch, err
			}
			batch++
		}
		removed += batch
		if len(stale) < sweepBatch || batch == 0 {
			return removed, nil
		}
	}
}

// RunSweeper calls SweepPending every interval until ctx is done.
func (s *FileService) RunSweeper(ctx context.Context, interval, olderThan time.Duration) {
	if interval <= 0 {
		return
	}
	l := logging.FromContext(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := s.SweepPending(ctx, olderThan)
			if err != nil {
				l.Error("sweep_failed", "error", err)
				continue
			}
			if n > 0 {
				l.Info("sweep_done", "removed", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
