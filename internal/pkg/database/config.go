package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Config PostgreSQL 连接与 gorm 配置，对应 config.yaml 的 database 节
type Config struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"` // disable, require, verify-ca, verify-full

	MaxIdleConns    int           `mapstructure:"maxidleconns"`
	MaxOpenConns    int           `mapstructure:"maxopenconns"`
	ConnMaxLifetime time.Duration `mapstructure:"connmaxlifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"connmaxidletime"`

	// gorm
	LogLevel      string        `mapstructure:"loglevel"` // silent, error, warn, info
	SlowThreshold time.Duration `mapstructure:"slowthreshold"`
	PrepareStmt   bool          `mapstructure:"preparestmt"`

	Timezone             string `mapstructure:"timezone"`
	MigrateOnStart       bool   `mapstructure:"migrateonstart"` // run embedded goose migrations at boot
	PreferSimpleProtocol bool   `mapstructure:"prefersimpleprotocol"`
}

func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		DBName:   "filestore",
		SSLMode:  "disable",

		MaxIdleConns:    10,
		MaxOpenConns:    50,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,

		LogLevel:      "warn",
		SlowThreshold: 200 * time.Millisecond,
		PrepareStmt:   false,

		Timezone:       "UTC",
		MigrateOnStart: true,
	}
}

// Validate 收集全部配置问题一次返回
func (c *Config) Validate() error {
	var errs []error
	check := func(bad bool, msg string) {
		if bad {
			errs = append(errs, errors.New(msg))
		}
	}

	check(c.Host == "", "host is required")
	check(c.Port <= 0 || c.Port > 65535, "port must be between 1 and 65535")
	check(c.User == "", "user is required")
	check(c.DBName == "", "dbname is required")
	check(!oneOf(c.SSLMode, "disable", "require", "verify-ca", "verify-full"), "sslmode must be disable, require, verify-ca or verify-full")
	check(!oneOf(c.LogLevel, "silent", "error", "warn", "info"), "loglevel must be silent, error, warn or info")
	check(c.MaxIdleConns < 0 || c.MaxOpenConns < 0, "pool sizes must be >= 0")
	check(c.MaxOpenConns > 0 && c.MaxIdleConns > c.MaxOpenConns, "maxidleconns cannot exceed maxopenconns")
	check(c.ConnMaxLifetime < 0 || c.ConnMaxIdleTime < 0, "connection lifetimes must be >= 0")
	check(c.SlowThreshold < 0, "slowthreshold must be >= 0")

	if len(errs) > 0 {
		return fmt.Errorf("database: %w", errors.Join(errs...))
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// DSN returns the PostgreSQL connection DSN
func (c *Config) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode, c.Timezone)

	if c.PreferSimpleProtocol {
		dsn += " prefer_simple_protocol=true"
	}

	return dsn
}

func (c *Config) applyPool(sqlDB *sql.DB) {
	sqlDB.SetMaxIdleConns(c.MaxIdleConns)
	sqlDB.SetMaxOpenConns(c.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(c.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(c.ConnMaxIdleTime)
}
