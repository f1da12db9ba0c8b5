package redis

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DeployMode Redis 部署模式
type DeployMode string

const (
	ModeSingle   DeployMode = "single"
	ModeSentinel DeployMode = "sentinel"
)

// Config Redis 配置，对应 config.yaml 中的 redis 节
type Config struct {
	Mode DeployMode `mapstructure:"mode" yaml:"mode"`

	MasterAddr    string   `mapstructure:"master_addr" yaml:"master_addr"` // 单机: host:port
	SentinelAddrs []string `mapstructure:"sentinel_addrs" yaml:"sentinel_addrs"`
	MasterName    string   `mapstructure:"master_name" yaml:"master_name"`

	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`

	PoolSize     int           `mapstructure:"pool_size" yaml:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns" yaml:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout" yaml:"pool_timeout"`
	MaxRetries   int           `mapstructure:"max_retries" yaml:"max_retries"`
}

func DefaultConfig() *Config {
	return &Config{
		Mode:         ModeSingle,
		MasterAddr:   "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
		MaxRetries:   3,
	}
}

// Validate 校验部署模式必填项和连接池参数
func (c *Config) Validate() error {
	var errs []error
	switch c.Mode {
	case ModeSingle:
		if c.MasterAddr == "" {
			errs = append(errs, errors.New("master_addr is required in single mode"))
		}
	case ModeSentinel:
		if len(c.SentinelAddrs) == 0 || c.MasterName == "" {
			errs = append(errs, errors.New("sentinel mode needs sentinel_addrs and master_name"))
		}
	default:
		errs = append(errs, errors.New("mode must be single or sentinel"))
	}

	if c.DB < 0 || c.DB > 15 {
		errs = append(errs, errors.New("db must be between 0 and 15"))
	}
	if c.PoolSize <= 0 {
		errs = append(errs, errors.New("pool_size must be > 0"))
	} else if c.MinIdleConns < 0 || c.MinIdleConns > c.PoolSize {
		errs = append(errs, errors.New("min_idle_conns must be within [0, pool_size]"))
	}
	if c.DialTimeout <= 0 {
		errs = append(errs, errors.New("dial_timeout must be > 0"))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, errors.New("max_retries must be >= 0"))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{errors.New("redis: invalid config")}, errs...)...)
	}
	return nil
}

func (c *Config) singleOptions() *redis.Options {
	return &redis.Options{
		Addr:         c.MasterAddr,
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		PoolTimeout:  c.PoolTimeout,
		MaxRetries:   c.MaxRetries,
	}
}

func (c *Config) failoverOptions() *redis.FailoverOptions {
	return &redis.FailoverOptions{
		MasterName:    c.MasterName,
		SentinelAddrs: c.SentinelAddrs,
		Username:      c.Username,
		Password:      c.Password,
		DB:            c.DB,
		PoolSize:      c.PoolSize,
		MinIdleConns:  c.MinIdleConns,
		DialTimeout:   c.DialTimeout,
		ReadTimeout:   c.ReadTimeout,
		WriteTimeout:  c.WriteTimeout,
		PoolTimeout:   c.PoolTimeout,
		MaxRetries:    c.MaxRetries,
	}
}
