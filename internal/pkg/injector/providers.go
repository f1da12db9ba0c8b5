package injector

import (
	"github.com/google/wire"
	"github.com/lk2023060901/filestore-backend/internal/auth"
	"github.com/lk2023060901/filestore-backend/internal/conf"
	"github.com/lk2023060901/filestore-backend/internal/data"
	"github.com/lk2023060901/filestore-backend/internal/pkg/logger"
	"github.com/lk2023060901/filestore-backend/internal/pkg/metrics"
	"github.com/lk2023060901/filestore-backend/internal/pkg/workerpool"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
	regdata "github.com/lk2023060901/filestore-backend/internal/registry/data"
	"github.com/lk2023060901/filestore-backend/internal/registry/data/memstore"
	"github.com/lk2023060901/filestore-backend/internal/registry/service"
	"github.com/lk2023060901/filestore-backend/internal/server"
)

// ProviderSet is the Wire provider set for all dependencies
var ProviderSet = wire.NewSet(
	dataProviderSet,
	repositoryProviderSet,
	useCaseProviderSet,
	httpServiceProviderSet,
	serverProviderSet,
)

// Data layer providers
var dataProviderSet = wire.NewSet(
	provideData,
	provideMetrics,
	provideWorkerPool,
	provideTaskRunner,
	provideBlobStore,
	provideBizBlobStore,
	provideBlobUploader,
	providePresigner,
)

// Repository providers
var repositoryProviderSet = wire.NewSet(
	provideRepos,
	provideSessionStore,
)

// Use case providers
var useCaseProviderSet = wire.NewSet(
	provideBizConfig,
	provideRegistry,
	biz.NewUserUseCase,
	biz.NewGroupUseCase,
	biz.NewFileUseCase,
	biz.NewLinkUseCase,
	biz.NewSerialAllocator,
	biz.NewUploadUseCase,
	provideSweeper,
)

// HTTP service providers
var httpServiceProviderSet = wire.NewSet(
	provideTokenManager,
	provideServiceOptions,
	service.NewUserService,
	service.NewGroupService,
	service.NewUploadService,
	service.NewFileService,
	service.NewLinkService,
)

// Server providers
var serverProviderSet = wire.NewSet(
	server.NewHTTPServer,
)

// Data layer helpers

func provideData(config *conf.Config, log *logger.Logger) (*data.Data, func(), error) {
	return data.NewData(config, log)
}

func provideMetrics(config *conf.Config) *metrics.Metrics {
	if !config.Metrics.Enabled {
		return nil
	}
	return metrics.NewMetrics(config.Metrics.ServiceName)
}

func provideWorkerPool(config *conf.Config, log *logger.Logger, m *metrics.Metrics) (*workerpool.Pool, func(), error) {
	pool, err := workerpool.New(&config.WorkerPool, log.Named("workerpool").Logger)
	if err != nil {
		return nil, nil, err
	}
	if m != nil {
		pool.SetJobHook(m.RecordJob)
	}
	return pool, pool.Shutdown, nil
}

func provideTaskRunner(pool *workerpool.Pool) biz.TaskRunner {
	return pool
}

// provideBlobStore 未启用 MinIO 时返回 nil
func provideBlobStore(d *data.Data) *regdata.BlobStore {
	if d.MinIOClient == nil {
		return nil
	}
	return regdata.NewBlobStore(d.MinIOClient)
}

// The interface providers below must return an untyped nil when MinIO is off,
// otherwise callers see a non-nil interface wrapping a nil pointer.

func provideBizBlobStore(b *regdata.BlobStore) biz.BlobStore {
	if b == nil {
		return nil
	}
	return b
}

func provideBlobUploader(b *regdata.BlobStore) service.BlobUploader {
	if b == nil {
		return nil
	}
	return b
}

func providePresigner(b *regdata.BlobStore) service.Presigner {
	if b == nil {
		return nil
	}
	return b
}

// Repository providers

func provideRepos(d *data.Data) *biz.Repos {
	if d.Memory() {
		return memstore.New().Repos()
	}
	return regdata.NewRepos(d.DB)
}

func provideSessionStore(config *conf.Config, d *data.Data) biz.SessionStore {
	if d.RedisClient == nil {
		return memstore.NewSessionStore()
	}
	return regdata.NewSessionStore(d.RedisClient, config.Registry.SessionTTL)
}

// Use case providers

func provideBizConfig(config *conf.Config) *biz.Config {
	rc := config.Registry

	cfg := biz.DefaultConfig()
	cfg.AdminIDs = rc.AdminIDs
	cfg.AllowListEnabled = rc.AllowListEnabled
	cfg.AllowedUserIDs = rc.AllowedUserIDs
	cfg.StoreTimeout = rc.StoreTimeout
	cfg.SerialMaxRetries = rc.SerialMaxRetries
	cfg.CodeMaxRetries = rc.CodeMaxRetries
	cfg.MaxGroupNameLen = rc.MaxGroupNameLen
	cfg.MaxFileSize = rc.MaxFileSize
	if len(rc.AllowedKinds) > 0 {
		kinds := make([]biz.AttachmentKind, 0, len(rc.AllowedKinds))
		for _, k := range rc.AllowedKinds {
			kinds = append(kinds, biz.AttachmentKind(k))
		}
		cfg.AllowedKinds = kinds
	}
	return cfg
}

func provideRegistry(repos *biz.Repos, cfg *biz.Config, log *logger.Logger, m *metrics.Metrics) *biz.Registry {
	return biz.NewRegistry(repos, cfg, log, m)
}

func provideSweeper(config *conf.Config, r *biz.Registry, uploads *biz.UploadUseCase) *biz.Sweeper {
	return biz.NewSweeper(r, uploads, biz.SweeperConfig{
		LinkInterval:    config.Registry.LinkSweepInterval,
		SessionInterval: config.Registry.SessionSweepInterval,
		SessionIdle:     config.Registry.SessionIdleTimeout,
	})
}

// HTTP service providers

func provideTokenManager(config *conf.Config) *auth.TokenManager {
	return auth.NewTokenManager(config.Auth.JWTSecret, config.Auth.JWTIssuer, config.Auth.TokenTTL)
}

func provideServiceOptions(config *conf.Config) service.Options {
	return service.Options{
		ShareBaseURL:  config.Registry.ShareBaseURL,
		MaxUploadSize: config.Server.MaxUploadSize,
	}
}
