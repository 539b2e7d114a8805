package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Log is the global logger
	Log *zap.SugaredLogger

	// logger is the underlying zap logger
	logger *zap.Logger
)

// Options configures the logger
type Options struct {
	Level  string
	Format string

	// File enables a rotated log file next to stderr output when set
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Init initializes the global logger
func Init(opts Options) error {
	l, err := New(opts)
	if err != nil {
		return err
	}
	logger = l
	Log = logger.Sugar()
	return nil
}

// New builds a logger without touching the global one
func New(opts Options) (*zap.Logger, error) {
	zapLevel, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var encoderConfig zapcore.EncoderConfig
	if opts.Format == "json" {
		encoderConfig = zap.NewProductionEncoderConfig()
	} else {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.LevelKey = "level"
	encoderConfig.MessageKey = "msg"
	encoderConfig.CallerKey = "caller"
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	newEncoder := func() zapcore.Encoder {
		if opts.Format == "json" {
			return zapcore.NewJSONEncoder(encoderConfig)
		}
		return zapcore.NewConsoleEncoder(encoderConfig)
	}

	level := zap.NewAtomicLevelAt(zapLevel)
	cores := []zapcore.Core{
		zapcore.NewCore(newEncoder(), zapcore.Lock(os.Stderr), level),
	}

	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}
		// Files always get JSON so they stay machine readable
		fileEncoder := zapcore.NewJSONEncoder(encoderConfig)
		if opts.Format != "json" {
			fileConfig := zap.NewProductionEncoderConfig()
			fileConfig.TimeKey = "timestamp"
			fileConfig.EncodeTime = zapcore.ISO8601TimeEncoder
			fileConfig.EncodeCaller = zapcore.ShortCallerEncoder
			fileEncoder = zapcore.NewJSONEncoder(fileConfig)
		}
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(rotator), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

// parseLevel converts string log level to zapcore.Level
func parseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level: %s", level)
	}
}

// Sync flushes any buffered log entries
func Sync() error {
	if logger != nil {
		return logger.Sync()
	}
	return nil
}

// GetZapLogger returns the underlying zap.Logger, or a no-op logger before Init
func GetZapLogger() *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
