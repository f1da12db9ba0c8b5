package biz

import (
	"context"
	"time"

	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	"github.com/lk2023060901/filestore-backend/internal/pkg/logger"
	"github.com/lk2023060901/filestore-backend/internal/pkg/metrics"

	"go.uber.org/zap"
)

// IsTransient reports whether err is a retryable store failure
func IsTransient(err error) bool {
	return apperrors.IsKind(err, apperrors.KindTransientStore)
}

// retryTransient runs fn up to attempts times, backing off exponentially from base
// while fn fails with a TransientStore error. Other errors return at once.
func retryTransient(ctx context.Context, log *logger.Logger, m *metrics.Metrics, op string, attempts int, base time.Duration, fn func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			m.RecordStoreRetry(op)
			log.WithContext(ctx).Warn("retrying after transient store error",
				zap.String("op", op),
				zap.Int("attempt", i+1),
				zap.Error(err),
			)

			delay := base << (i - 1)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return apperrors.NewStoreUnavailableError(ctx.Err())
			case <-timer.C:
			}
		}

		err = fn(ctx)
		if err == nil || !IsTransient(err) {
			return err
		}
	}
	return err
}
