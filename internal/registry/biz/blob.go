package biz

import (
	"context"
	"time"

	"github.com/lk2023060901/filestore-backend/internal/pkg/logger"

	"go.uber.org/zap"
)

const blobCleanupTimeout = 30 * time.Second

// blobCleaner removes stored objects after their registry rows are gone.
// Failures are logged only; the registry is already consistent.
type blobCleaner struct {
	blobs BlobStore
	tasks TaskRunner
	log   *logger.Logger
}

func newBlobCleaner(blobs BlobStore, tasks TaskRunner, log *logger.Logger) *blobCleaner {
	return &blobCleaner{blobs: blobs, tasks: tasks, log: log}
}

func (c *blobCleaner) remove(handles []string) {
	if c.blobs == nil || len(handles) == 0 {
		return
	}

	task := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, blobCleanupTimeout)
		defer cancel()
		return c.blobs.Remove(ctx, handles)
	}

	if c.tasks != nil {
		err := c.tasks.Go("blob_cleanup", task)
		if err == nil {
			return
		}
		c.log.Warn("blob cleanup not scheduled, running inline", zap.Error(err))
	}
	if err := task(context.Background()); err != nil {
		c.log.Warn("blob cleanup failed", zap.Int("objects", len(handles)), zap.Error(err))
	}
}
