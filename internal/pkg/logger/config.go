package logger

import (
	"errors"
	"fmt"
	"strings"
)

// Config 日志配置，对应 config.yaml 的 log 节
type Config struct {
	Level            string     `mapstructure:"level"`  // debug, info, warn, error
	Format           string     `mapstructure:"format"` // json, console
	Output           string     `mapstructure:"output"` // console, file, both
	Service          string     `mapstructure:"service"`
	File             FileConfig `mapstructure:"file"`
	EnableCaller     bool       `mapstructure:"enablecaller"`
	EnableStacktrace bool       `mapstructure:"enablestacktrace"`
}

// FileConfig lumberjack 滚动参数，MaxSize 单位 MB，MaxAge 单位天
type FileConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"maxsize"`
	MaxAge     int    `mapstructure:"maxage"`
	MaxBackups int    `mapstructure:"maxbackups"`
	Compress   bool   `mapstructure:"compress"`
}

func DefaultConfig() *Config {
	return &Config{
		Level:            "info",
		Format:           "json",
		Output:           "console",
		Service:          "filestore",
		EnableCaller:     true,
		EnableStacktrace: true,
		File: FileConfig{
			Filename:   "logs/filestore.log",
			MaxSize:    100,
			MaxAge:     30,
			MaxBackups: 10,
			Compress:   true,
		},
	}
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func (c *Config) Validate() error {
	if !oneOf(strings.ToLower(c.Level), "debug", "info", "warn", "error", "dpanic", "panic", "fatal") {
		return fmt.Errorf("invalid log level %q", c.Level)
	}
	if !oneOf(c.Format, "json", "console") {
		return fmt.Errorf("invalid log format %q, want json or console", c.Format)
	}
	if !oneOf(c.Output, "console", "file", "both") {
		return fmt.Errorf("invalid log output %q, want console, file or both", c.Output)
	}
	if c.Output == "console" {
		return nil
	}

	// 写文件时滚动参数必须完整
	switch {
	case c.File.Filename == "":
		return errors.New("log file filename is required for file output")
	case c.File.MaxSize <= 0, c.File.MaxAge <= 0:
		return errors.New("log file maxsize and maxage must be > 0")
	case c.File.MaxBackups < 0:
		return errors.New("log file maxbackups must be >= 0")
	}
	return nil
}
