package biz

import (
	"context"

	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"

	"go.uber.org/zap"
)

// SerialAllocator inserts files with the next serial of their group.
// Ordering comes from the (group_id, serial) unique index: a losing insert rolls
// back and the read-compute-insert cycle starts over.
type SerialAllocator struct {
	*Registry
}

// NewSerialAllocator creates a serial allocator
func NewSerialAllocator(r *Registry) *SerialAllocator {
	return &SerialAllocator{Registry: r}
}

// Insert assigns f.Serial and stores f together with the group totals and the
// uploader's stats in one transaction.
func (a *SerialAllocator) Insert(ctx context.Context, f *File) error {
	log := a.log.WithContext(ctx)

	codeTaken := false
	for attempt := 1; attempt <= a.cfg.SerialMaxRetries; attempt++ {
		row := *f
		err := a.retry(ctx, "allocate_serial", func(ctx context.Context) error {
			return a.repos.Tx.InTx(ctx, func(ctx context.Context) error {
				serial, err := a.repos.Groups.NextSerial(ctx, row.GroupID)
				if err != nil {
					return err
				}
				row.Serial = serial

				if err := a.repos.Files.Create(ctx, &row); err != nil {
					return err
				}
				if err := a.repos.Groups.ApplyFileAdded(ctx, row.GroupID, row.FileSize, serial); err != nil {
					return err
				}
				return a.repos.Stats.AddUpload(ctx, row.UploaderID, row.CreatedAt)
			})
		})

		codeTaken = false
		switch {
		case err == nil:
			*f = row
			return nil
		case IsUniqueViolation(err, ConstraintFileGroupSerial):
			a.metrics.RecordSerialRetry()
			log.Debug("serial taken, retrying",
				zap.Int64("group_id", f.GroupID),
				zap.Int64("serial", row.Serial),
				zap.Int("attempt", attempt),
			)
		case IsUniqueViolation(err, ConstraintFileUniqueCode):
			codeTaken = true
			f.UniqueCode = a.newCode()
		default:
			return err
		}
	}

	if codeTaken {
		log.Warn("unique code collisions exhausted retries",
			zap.Int64("group_id", f.GroupID),
			zap.Int("attempts", a.cfg.SerialMaxRetries),
		)
		return apperrors.New(apperrors.ErrCodeCollision)
	}

	a.metrics.RecordSerialFailure()
	log.Warn("serial allocation failed",
		zap.Int64("group_id", f.GroupID),
		zap.Int("attempts", a.cfg.SerialMaxRetries),
	)
	return apperrors.Newf(apperrors.ErrSerialAllocationFailed, "group %d", f.GroupID)
}
