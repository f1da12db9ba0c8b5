package data

import (
	"context"
	"fmt"
	"time"

	"github.com/lk2023060901/filestore-backend/internal/conf"
	"github.com/lk2023060901/filestore-backend/internal/pkg/database"
	"github.com/lk2023060901/filestore-backend/internal/pkg/logger"
	"github.com/lk2023060901/filestore-backend/internal/pkg/minio"
	pkgredis "github.com/lk2023060901/filestore-backend/internal/pkg/redis"
	"go.uber.org/zap"
)

// Data 持有所有外部存储连接。memory 驱动下 DB 与 Redis 为空。
type Data struct {
	DB          *database.DB
	RedisClient *pkgredis.Client
	MinIOClient *minio.Client
	Logger      *logger.Logger
}

// Memory reports whether the registry runs on the in-memory store
func (d *Data) Memory() bool {
	return d.DB == nil
}

func NewData(config *conf.Config, log *logger.Logger) (*Data, func(), error) {
	d := &Data{Logger: log}
	var closers []func()

	cleanup := func() {
		log.Info("cleaning up data resources")
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	fail := func(err error) (*Data, func(), error) {
		cleanup()
		return nil, nil, err
	}

	if config.Store.Driver != conf.StoreDriverMemory {
		// Initialize PostgreSQL
		db, err := database.New(&config.Database, log)
		if err != nil {
			return fail(fmt.Errorf("failed to init database: %w", err))
		}
		d.DB = db
		closers = append(closers, func() {
			if err := db.Close(); err != nil {
				log.Warn("failed to close database", zap.Error(err))
			}
		})

		if config.Database.MigrateOnStart {
			if err := migrate(db, log); err != nil {
				return fail(err)
			}
		}

		// Initialize Redis
		redisClient, err := pkgredis.New(&config.Redis, log)
		if err != nil {
			return fail(fmt.Errorf("failed to connect to redis: %w", err))
		}
		d.RedisClient = redisClient
		closers = append(closers, func() {
			if err := redisClient.Close(); err != nil {
				log.Warn("failed to close redis", zap.Error(err))
			}
		})
	} else {
		log.Warn("registry running on the in-memory store, data is lost on restart")
	}

	// Initialize MinIO
	if config.MinIO.Enabled {
		minioClient, err := initMinIO(config, log)
		if err != nil {
			return fail(fmt.Errorf("failed to init minio: %w", err))
		}
		d.MinIOClient = minioClient
		closers = append(closers, func() {
			if err := minioClient.Close(); err != nil {
				log.Warn("failed to close minio", zap.Error(err))
			}
		})
	}

	return d, cleanup, nil
}

func migrate(db *database.DB, log *logger.Logger) error {
	sqlDB, err := db.SQLDB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := RunMigrations(ctx, sqlDB); err != nil {
		return err
	}
	log.Info("database migrations applied")
	return nil
}

func initMinIO(config *conf.Config, log *logger.Logger) (*minio.Client, error) {
	cfg := config.MinIO.Config
	client, err := minio.NewClient(&cfg, log.Logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cfg.CreateBucket {
		if err := client.EnsureBucket(ctx); err != nil {
			return nil, err
		}
	} else if err := client.Ping(ctx); err != nil {
		return nil, err
	}

	return client, nil
}
