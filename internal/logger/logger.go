// Package logger builds the process zap logger.
package logger

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logger construction.
type Config struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`

	// File, when set, tees JSON entries into a size-rotated log file.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// New creates a new zap logger
func New(cfg Config) (*zap.Logger, error) {
	var zc zap.Config

	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
	}

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}

	var opts []zap.Option
	if cfg.File != "" {
		file := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(rotating(cfg)),
			zc.Level,
		)
		opts = append(opts, zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, file)
		}))
	}

	return zc.Build(opts...)
}

func rotating(cfg Config) *lumberjack.Logger {
	size := cfg.MaxSizeMB
	if size <= 0 {
		size = 100
	}
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    size,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
}

// Must creates a logger or panics
func Must(cfg Config) *zap.Logger {
	log, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return log
}

// Cron adapts a zap logger to the cron scheduler's logger. Scheduler
// chatter goes to debug, job errors stay at error.
func Cron(log *zap.Logger) cron.Logger {
	if log == nil {
		log = zap.NewNop()
	}
	std, err := zap.NewStdLogAt(log.Named("cron"), zapcore.DebugLevel)
	if err != nil {
		std = zap.NewStdLog(log.Named("cron"))
	}
	return cronLogger{info: cron.VerbosePrintfLogger(std), log: log.Named("cron")}
}

type cronLogger struct {
	info cron.Logger
	log  *zap.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.info.Info(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error(msg, zap.Error(err), zap.Any("details", keysAndValues))
}
