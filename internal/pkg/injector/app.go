package injector

import (
	"context"

	"github.com/lk2023060901/filestore-backend/internal/conf"
	"github.com/lk2023060901/filestore-backend/internal/pkg/logger"
	"github.com/lk2023060901/filestore-backend/internal/pkg/workerpool"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
	"github.com/lk2023060901/filestore-backend/internal/server"
)

// App encapsulates all application dependencies
type App struct {
	Config     *conf.Config
	Logger     *logger.Logger
	HTTPServer *server.HTTPServer
	Sweeper    *biz.Sweeper
	Pool       *workerpool.Pool

	stop context.CancelFunc
}

func newApp(
	config *conf.Config,
	log *logger.Logger,
	httpServer *server.HTTPServer,
	sweeper *biz.Sweeper,
	pool *workerpool.Pool,
) *App {
	return &App{
		Config:     config,
		Logger:     log,
		HTTPServer: httpServer,
		Sweeper:    sweeper,
		Pool:       pool,
	}
}

// StartBackground 启动链接过期与空闲会话清理任务，StopBackground 或 ctx 结束时停止
func (a *App) StartBackground(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	if err := a.Sweeper.Start(ctx, a.Pool); err != nil {
		cancel()
		return err
	}
	a.stop = cancel
	return nil
}

// StopBackground stops the periodic jobs. Running jobs finish during pool shutdown.
func (a *App) StopBackground() {
	if a.stop != nil {
		a.stop()
	}
}
