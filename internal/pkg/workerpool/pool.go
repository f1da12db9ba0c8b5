package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

var ErrPoolClosed = errors.New("worker pool is closed")

// ============= 配置 =============

// Config Worker Pool 配置
type Config struct {
	Workers         int           `mapstructure:"workers"`          // worker 数量
	NonBlocking     bool          `mapstructure:"nonblocking"`      // 池满时立即返回错误而不是等待
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"` // 关闭时等待运行中任务的最长时间
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Workers:         16,
		NonBlocking:     false,
		ShutdownTimeout: 10 * time.Second,
	}
}

// ============= 统计信息 =============

// Statistics 统计信息
type Statistics struct {
	Submitted int64 // 已提交
	Completed int64 // 已完成
	Failed    int64 // 失败（返回错误或 panic）
	Running   int64 // 运行中
}

type counters struct {
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	running   atomic.Int64
}

func (c *counters) snapshot() Statistics {
	return Statistics{
		Submitted: c.submitted.Load(),
		Completed: c.completed.Load(),
		Failed:    c.failed.Load(),
		Running:   c.running.Load(),
	}
}

// JobHook 在每次周期任务结束后调用，err 为 nil 表示成功
type JobHook func(name string, elapsed time.Duration, err error)

// ============= Worker Pool =============

// Pool 基于 ants 的 worker pool，负责后台清理和周期任务
type Pool struct {
	pool   *ants.Pool
	config *Config
	stats  counters
	hook   JobHook

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *zap.Logger
}

// New 创建 Worker Pool
func New(config *Config, logger *zap.Logger) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Workers <= 0 {
		return nil, fmt.Errorf("workers must be > 0, got %d", config.Workers)
	}

	p := &Pool{
		config: config,
		logger: logger,
	}

	antsPool, err := ants.NewPool(config.Workers,
		ants.WithNonblocking(config.NonBlocking),
		ants.WithPanicHandler(func(v interface{}) {
			p.stats.failed.Add(1)
			logger.Error("worker panic", zap.Any("error", v), zap.Stack("stacktrace"))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants pool: %w", err)
	}

	p.pool = antsPool
	p.ctx, p.cancel = context.WithCancel(context.Background())
	return p, nil
}

// SetJobHook 注册周期任务回调（用于指标统计）
func (p *Pool) SetJobHook(hook JobHook) {
	p.hook = hook
}

// Submit 提交任务
func (p *Pool) Submit(task func()) error {
	select {
	case <-p.ctx.Done():
		return ErrPoolClosed
	default:
	}

	p.stats.submitted.Add(1)
	return p.pool.Submit(func() {
		p.stats.running.Add(1)
		defer p.stats.running.Add(-1)
		task()
		p.stats.completed.Add(1)
	})
}

// Go 提交一个返回错误的任务，错误只记录日志
func (p *Pool) Go(name string, task func(ctx context.Context) error) error {
	return p.Submit(func() {
		if err := task(p.ctx); err != nil {
			p.stats.failed.Add(1)
			p.logger.Warn("background task failed", zap.String("task", name), zap.Error(err))
		}
	})
}

// Every 每隔 interval 在池中执行一次 fn，直到 ctx 取消或池关闭。
// 上一次执行未结束时跳过本次 tick。fn 的错误不会终止调度。
func (p *Pool) Every(ctx context.Context, name string, interval time.Duration, fn func(ctx context.Context) error) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be > 0", name)
	}

	var busy atomic.Bool

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-p.ctx.Done():
				return
			case <-ticker.C:
			}

			if !busy.CompareAndSwap(false, true) {
				p.logger.Debug("periodic job still running, tick skipped", zap.String("job", name))
				continue
			}

			err := p.Submit(func() {
				defer busy.Store(false)
				p.runJob(ctx, name, fn)
			})
			if err != nil {
				busy.Store(false)
				if errors.Is(err, ErrPoolClosed) {
					return
				}
				p.logger.Warn("periodic job not scheduled", zap.String("job", name), zap.Error(err))
			}
		}
	}()

	p.logger.Info("periodic job registered", zap.String("job", name), zap.Duration("interval", interval))
	return nil
}

func (p *Pool) runJob(ctx context.Context, name string, fn func(ctx context.Context) error) {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	if err != nil {
		p.stats.failed.Add(1)
		p.logger.Error("periodic job failed", zap.String("job", name), zap.Duration("elapsed", elapsed), zap.Error(err))
	}
	if p.hook != nil {
		p.hook(name, elapsed, err)
	}
}

// ============= 公共方法 =============

// Stats 获取统计信息
func (p *Pool) Stats() Statistics {
	return p.stats.snapshot()
}

// Shutdown 停止调度并等待运行中的任务结束
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()

	if err := p.pool.ReleaseTimeout(p.config.ShutdownTimeout); err != nil {
		p.logger.Warn("worker pool release timed out", zap.Error(err))
	}
}
