package biz

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job names used for scheduling and metrics
const (
	JobLinkSweep    = "link_expiry_sweep"
	JobSessionSweep = "idle_session_sweep"
)

// SweeperConfig 后台清理任务配置
type SweeperConfig struct {
	LinkInterval    time.Duration
	SessionInterval time.Duration
	SessionIdle     time.Duration
}

// Sweeper deactivates expired links and evicts idle upload sessions.
// It only ever writes link deactivation state and session removal.
type Sweeper struct {
	*Registry
	uploads *UploadUseCase
	config  SweeperConfig
}

// NewSweeper creates a sweeper. uploads may be nil to skip session eviction.
func NewSweeper(r *Registry, uploads *UploadUseCase, cfg SweeperConfig) *Sweeper {
	if cfg.LinkInterval <= 0 {
		cfg.LinkInterval = 20 * time.Second
	}
	if cfg.SessionInterval <= 0 {
		cfg.SessionInterval = time.Minute
	}
	return &Sweeper{Registry: r, uploads: uploads, config: cfg}
}

// SweepExpired deactivates every active link whose expires_at has passed and returns how many it flipped
func (s *Sweeper) SweepExpired(ctx context.Context) (int, error) {
	now := s.now()
	log := s.log.WithContext(ctx)

	swept := 0
	for {
		var batch []*Link
		err := s.retry(ctx, "list_expired_links", func(ctx context.Context) error {
			var err error
			batch, err = s.repos.Links.ListExpired(ctx, now, s.cfg.SweepBatchSize)
			return err
		})
		if err != nil {
			s.metrics.RecordLinksSwept(swept)
			return swept, err
		}

		flipped := 0
		for _, l := range batch {
			var changed bool
			err := s.retry(ctx, "deactivate_expired_link", func(ctx context.Context) error {
				var err error
				changed, err = s.repos.Links.Deactivate(ctx, l.ID, ReasonExpired, now)
				return err
			})
			if err != nil {
				swept += flipped
				s.metrics.RecordLinksSwept(swept)
				return swept, err
			}
			if !changed {
				continue
			}
			flipped++
			log.Info("link expired",
				zap.String("link_code", l.Code),
				zap.Int64("link_id", l.ID),
				zap.Timep("expires_at", l.ExpiresAt),
			)
		}
		swept += flipped

		if len(batch) < s.cfg.SweepBatchSize || flipped == 0 {
			break
		}
	}

	s.metrics.RecordLinksSwept(swept)
	return swept, nil
}

// SweepIdleSessions evicts sessions idle longer than the configured timeout
func (s *Sweeper) SweepIdleSessions(ctx context.Context) (int, error) {
	if s.uploads == nil {
		return 0, nil
	}
	return s.uploads.SweepIdleSessions(ctx, s.config.SessionIdle)
}

// Start registers the periodic sweeps on sched. They stop when ctx is done.
// Failures are logged by the scheduler and retried on the next tick.
func (s *Sweeper) Start(ctx context.Context, sched Scheduler) error {
	err := sched.Every(ctx, JobLinkSweep, s.config.LinkInterval, func(ctx context.Context) error {
		_, err := s.SweepExpired(ctx)
		return err
	})
	if err != nil {
		return err
	}

	if s.uploads == nil || s.config.SessionIdle <= 0 {
		s.log.Info("idle session sweep disabled")
		return nil
	}
	return sched.Every(ctx, JobSessionSweep, s.config.SessionInterval, func(ctx context.Context) error {
		_, err := s.SweepIdleSessions(ctx)
		return err
	})
}
