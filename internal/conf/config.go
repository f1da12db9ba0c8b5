package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/lk2023060901/filestore-backend/internal/auth/middleware"
	"github.com/lk2023060901/filestore-backend/internal/pkg/database"
	"github.com/lk2023060901/filestore-backend/internal/pkg/logger"
	"github.com/lk2023060901/filestore-backend/internal/pkg/minio"
	"github.com/lk2023060901/filestore-backend/internal/pkg/redis"
	"github.com/lk2023060901/filestore-backend/internal/pkg/workerpool"
	"github.com/spf13/viper"
)

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Database   database.Config   `mapstructure:"database"`
	Redis      redis.Config      `mapstructure:"redis"`
	MinIO      MinIOConfig       `mapstructure:"minio"`
	Log        logger.Config     `mapstructure:"log"`
	Auth       AuthConfig        `mapstructure:"auth"`
	Registry   RegistryConfig    `mapstructure:"registry"`
	Store      StoreConfig       `mapstructure:"store"`
	WorkerPool workerpool.Config `mapstructure:"workerpool"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // gin mode: debug, release, test
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadSize   int64         `mapstructure:"max_upload_size"` // multipart body limit in bytes
}

// MinIOConfig 对象存储配置，关闭时兑换链接只返回 storage handle
type MinIOConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	minio.Config `mapstructure:",squash"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTIssuer string        `mapstructure:"jwt_issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// RegistryConfig 文件注册中心业务配置
type RegistryConfig struct {
	AdminIDs         []int64 `mapstructure:"admin_ids"`
	AllowListEnabled bool    `mapstructure:"allow_list_enabled"`
	AllowedUserIDs   []int64 `mapstructure:"allowed_user_ids"`

	LinkSweepInterval    time.Duration `mapstructure:"link_sweep_interval"`
	SessionSweepInterval time.Duration `mapstructure:"session_sweep_interval"`
	SessionIdleTimeout   time.Duration `mapstructure:"session_idle_timeout"`
	SessionTTL           time.Duration `mapstructure:"session_ttl"`

	StoreTimeout     time.Duration `mapstructure:"store_timeout"`
	SerialMaxRetries int           `mapstructure:"serial_max_retries"`
	CodeMaxRetries   int           `mapstructure:"code_max_retries"`

	MaxGroupNameLen int      `mapstructure:"max_group_name_len"`
	MaxFileSize     int64    `mapstructure:"max_file_size"`
	AllowedKinds    []string `mapstructure:"allowed_kinds"`

	ShareBaseURL    string                       `mapstructure:"share_base_url"`
	RedeemRateLimit middleware.RateLimiterConfig `mapstructure:"redeem_rate_limit"`
}

// StoreConfig 选择注册中心存储实现
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // postgres, memory
}

type MetricsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	Path        string `mapstructure:"path"`
}

// LoadConfig 读取配置文件，环境变量优先，例如 DATABASE_HOST 覆盖 database.host
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_upload_size", 64<<20)

	db := database.DefaultConfig()
	v.SetDefault("database.host", db.Host)
	v.SetDefault("database.port", db.Port)
	v.SetDefault("database.user", db.User)
	v.SetDefault("database.dbname", db.DBName)
	v.SetDefault("database.sslmode", db.SSLMode)
	v.SetDefault("database.maxidleconns", db.MaxIdleConns)
	v.SetDefault("database.maxopenconns", db.MaxOpenConns)
	v.SetDefault("database.connmaxlifetime", db.ConnMaxLifetime)
	v.SetDefault("database.connmaxidletime", db.ConnMaxIdleTime)
	v.SetDefault("database.loglevel", db.LogLevel)
	v.SetDefault("database.slowthreshold", db.SlowThreshold)
	v.SetDefault("database.timezone", db.Timezone)
	v.SetDefault("database.migrateonstart", db.MigrateOnStart)

	rdb := redis.DefaultConfig()
	v.SetDefault("redis.mode", rdb.Mode)
	v.SetDefault("redis.master_addr", rdb.MasterAddr)
	v.SetDefault("redis.pool_size", rdb.PoolSize)
	v.SetDefault("redis.min_idle_conns", rdb.MinIdleConns)
	v.SetDefault("redis.pool_timeout", rdb.PoolTimeout)
	v.SetDefault("redis.max_retries", rdb.MaxRetries)
	v.SetDefault("redis.dial_timeout", rdb.DialTimeout)
	v.SetDefault("redis.read_timeout", rdb.ReadTimeout)
	v.SetDefault("redis.write_timeout", rdb.WriteTimeout)

	v.SetDefault("minio.enabled", false)
	v.SetDefault("minio.bucket", minio.DefaultConfig().Bucket)
	v.SetDefault("minio.bucket_lookup", minio.BucketLookupAuto)
	v.SetDefault("minio.presign_expiry", 15*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "console")
	v.SetDefault("log.service", "filestore")

	v.SetDefault("auth.jwt_issuer", "filestore")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("registry.link_sweep_interval", 20*time.Second)
	v.SetDefault("registry.session_sweep_interval", time.Minute)
	v.SetDefault("registry.session_idle_timeout", 30*time.Minute)
	v.SetDefault("registry.session_ttl", 24*time.Hour)
	v.SetDefault("registry.store_timeout", 5*time.Second)
	v.SetDefault("registry.serial_max_retries", 5)
	v.SetDefault("registry.code_max_retries", 5)
	v.SetDefault("registry.max_group_name_len", 80)
	v.SetDefault("registry.redeem_rate_limit.max_requests", 30)
	v.SetDefault("registry.redeem_rate_limit.window", time.Minute)
	v.SetDefault("registry.redeem_rate_limit.strategy", "ip")

	v.SetDefault("store.driver", StoreDriverPostgres)

	v.SetDefault("workerpool.workers", 8)
	v.SetDefault("workerpool.shutdown_timeout", 10*time.Second)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.service_name", "filestore")
	v.SetDefault("metrics.path", "/metrics")
}

// Validate checks the cross-section settings
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	switch c.Store.Driver {
	case StoreDriverPostgres:
		if err := c.Database.Validate(); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.MinIO.Enabled {
		if err := c.MinIO.Config.Validate(); err != nil {
			return fmt.Errorf("minio: %w", err)
		}
	}

	if c.Registry.LinkSweepInterval <= 0 {
		return fmt.Errorf("registry.link_sweep_interval must be positive")
	}
	return nil
}

// Addr returns the HTTP listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
