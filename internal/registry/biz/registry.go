package biz

import (
	"context"
	"time"

	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	"github.com/lk2023060901/filestore-backend/internal/pkg/logger"
	"github.com/lk2023060901/filestore-backend/internal/pkg/metrics"
)

// Registry carries what every use case shares: the store, the gate, config and telemetry
type Registry struct {
	repos   *Repos
	cfg     *Config
	gate    *Gate
	log     *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	newCode CodeGenerator
}

// Option customises a Registry
type Option func(*Registry)

// WithClock 替换时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithCodeGenerator 替换短码生成器（测试用）
func WithCodeGenerator(gen CodeGenerator) Option {
	return func(r *Registry) { r.newCode = gen }
}

// NewRegistry creates the shared use case dependencies
func NewRegistry(repos *Repos, cfg *Config, log *logger.Logger, m *metrics.Metrics, opts ...Option) *Registry {
	if log == nil {
		log = logger.NewNop()
	}
	cfg = cfg.withDefaults()

	r := &Registry{
		repos:   repos,
		cfg:     cfg,
		gate:    NewGate(cfg),
		log:     log.Named("registry"),
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
		newCode: NewCode,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Gate exposes the authorization gate
func (r *Registry) Gate() *Gate { return r.gate }

// Config returns the effective configuration
func (r *Registry) Config() *Config { return r.cfg }

// Now returns the registry clock
func (r *Registry) Now() time.Time { return r.now() }

// retry runs fn with the store timeout per attempt and retries transient failures
func (r *Registry) retry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return retryTransient(ctx, r.log, r.metrics, op, r.cfg.TransientRetries, r.cfg.TransientBackoff, func(ctx context.Context) error {
		return r.once(ctx, fn)
	})
}

// once runs fn a single time under the store timeout
func (r *Registry) once(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.StoreTimeout)
	defer cancel()
	return fn(ctx)
}

func (r *Registry) limit(n, def int) int {
	if n <= 0 {
		n = def
	}
	if n > r.cfg.MaxListLimit {
		n = r.cfg.MaxListLimit
	}
	return n
}

// ensureActive 已停用的用户不能再上传；从未登记的用户视为正常
func (r *Registry) ensureActive(ctx context.Context, userID int64) error {
	u, err := r.repos.Users.Get(ctx, userID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUserNotFound) {
			return nil
		}
		return err
	}
	if !u.IsActive {
		return apperrors.New(apperrors.ErrUserInactive)
	}
	return nil
}

func validateUserID(id int64) error {
	if id <= 0 {
		return apperrors.New(apperrors.ErrInvalidParams, "user id must be positive")
	}
	return nil
}
