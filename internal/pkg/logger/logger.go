package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 在 zap.Logger 之上保留配置，With/Named 返回的子 logger 共享同一份配置
type Logger struct {
	*zap.Logger
	config *Config
}

// New builds a logger from cfg; nil means DefaultConfig.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger configuration: %w", err)
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), newSink(cfg), level)
	return fromCore(core, cfg), nil
}

func newEncoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeDuration = zapcore.MillisDurationEncoder

	if format == "console" {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

// newSink 按 output 组合 stdout 和滚动文件
func newSink(cfg *Config) zapcore.WriteSyncer {
	var sinks []zapcore.WriteSyncer
	if cfg.Output != "file" {
		sinks = append(sinks, zapcore.Lock(os.Stdout))
	}
	if cfg.Output != "console" {
		sinks = append(sinks, zapcore.AddSync(rotatingFile(&cfg.File)))
	}
	return zapcore.NewMultiWriteSyncer(sinks...)
}

func rotatingFile(fc *FileConfig) *lumberjack.Logger {
	if err := os.MkdirAll(filepath.Dir(fc.Filename), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create log directory: %v\n", err)
	}
	return &lumberjack.Logger{
		Filename:   fc.Filename,
		MaxSize:    fc.MaxSize,
		MaxAge:     fc.MaxAge,
		MaxBackups: fc.MaxBackups,
		Compress:   fc.Compress,
		LocalTime:  true,
	}
}

func fromCore(core zapcore.Core, cfg *Config) *Logger {
	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	zl := zap.New(core, opts...)
	if cfg.Service != "" {
		zl = zl.With(zap.String("service", cfg.Service))
	}
	return &Logger{Logger: zl, config: cfg}
}

// NewFromCore 测试用：挂在 zaptest/observer 之类的 core 上，不附加 service 字段
func NewFromCore(core zapcore.Core) *Logger {
	cfg := DefaultConfig()
	cfg.Service = ""
	cfg.EnableStacktrace = false
	return fromCore(core, cfg)
}

func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop(), config: DefaultConfig()}
}

func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...), config: l.config}
}

func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name), config: l.config}
}
