package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/filestore-backend/internal/auth"
	"github.com/lk2023060901/filestore-backend/internal/auth/middleware"
	"github.com/lk2023060901/filestore-backend/internal/conf"
	"github.com/lk2023060901/filestore-backend/internal/data"
	"github.com/lk2023060901/filestore-backend/internal/pkg/logger"
	"github.com/lk2023060901/filestore-backend/internal/pkg/metrics"
	"github.com/lk2023060901/filestore-backend/internal/registry/service"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

type HTTPServer struct {
	server *http.Server
	logger *logger.Logger
}

func NewHTTPServer(
	config *conf.Config,
	log *logger.Logger,
	d *data.Data,
	tokens *auth.TokenManager,
	m *metrics.Metrics,
	userService *service.UserService,
	groupService *service.GroupService,
	uploadService *service.UploadService,
	fileService *service.FileService,
	linkService *service.LinkService,
) *HTTPServer {
	if config.Server.Mode != "" {
		gin.SetMode(config.Server.Mode)
	}

	metricsPath := config.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	router := gin.New()
	router.Use(logger.GinRecovery(log))
	router.Use(logger.GinLoggerWithConfig(log, logger.MiddlewareOptions{
		SkipPaths: []string{"/health", metricsPath},
	}))
	if m != nil {
		router.Use(metrics.GinMiddleware(m))
	}

	router.GET("/health", healthHandler(d))
	if config.Metrics.Enabled {
		router.GET(metricsPath, metrics.Handler(m))
	}

	api := router.Group("/api/v1")

	// 兑换无需登录，按 IP 限流
	linkService.RegisterPublicRoutes(api,
		middleware.OptionalJWTAuth(tokens),
		middleware.RateLimiter(d.RedisClient, config.Registry.RedeemRateLimit, m, log),
	)

	authed := api.Group("", middleware.JWTAuth(tokens, log))
	userService.RegisterRoutes(authed)
	groupService.RegisterRoutes(authed)
	uploadService.RegisterRoutes(authed)
	fileService.RegisterRoutes(authed)
	linkService.RegisterRoutes(authed)

	return &HTTPServer{
		server: &http.Server{
			Addr:              config.Server.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: log,
	}
}

// healthHandler 检查数据库与 Redis，memory 驱动下两者都不存在
func healthHandler(d *data.Data) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		checks := gin.H{}
		status := http.StatusOK

		if d.DB != nil {
			if err := d.DB.HealthCheck(ctx); err != nil {
				checks["database"] = err.Error()
				status = http.StatusServiceUnavailable
			} else {
				checks["database"] = "ok"
			}
		}
		if d.RedisClient != nil {
			if err := d.RedisClient.Ping(ctx); err != nil {
				checks["redis"] = err.Error()
				status = http.StatusServiceUnavailable
			} else {
				checks["redis"] = "ok"
			}
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{
			"status": state,
			"checks": checks,
			"time":   time.Now().Format(time.RFC3339),
		})
	}
}

// Handler exposes the router, mainly for tests
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}
