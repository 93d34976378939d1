// Package logger 提供基于 zap 的全局日志
package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	log  *zap.Logger
	skip *zap.Logger // 包级函数使用，跳过一层调用栈
	mu   sync.Mutex
	once sync.Once
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" env:"BF_LOG_LEVEL"`   // debug, info, warn, error
	Format     string `yaml:"format" env:"BF_LOG_FORMAT"` // json, console
	Output     string `yaml:"output" env:"BF_LOG_OUTPUT"` // stderr, stdout, file, both
	FilePath   string `yaml:"file_path" env:"BF_LOG_FILE"`
	MaxSize    int    `yaml:"max_size"` // MB
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // days
}

// Init 初始化日志，只生效一次
func Init(cfg *Config) {
	once.Do(func() {
		Replace(New(cfg))
	})
}

// Replace 替换全局日志实例 (测试中使用 zap.NewNop)
func Replace(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l
	skip = l.WithOptions(zap.AddCallerSkip(1))
}

// New 按配置创建日志实例
func New(cfg *Config) *zap.Logger {
	if cfg == nil {
		cfg = &Config{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		}
	}

	level := zapcore.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn", "warning":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	// stdout 留给运维报告，默认写 stderr
	var cores []zapcore.Core
	switch cfg.Output {
	case "stdout":
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level))
	case "", "stderr", "both":
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), level))
	}
	if (cfg.Output == "file" || cfg.Output == "both") && cfg.FilePath != "" {
		writer := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(writer), level))
	}
	// file 输出但没有 file_path 时退回 stderr
	if len(cores) == 0 {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

// L 获取日志实例
func L() *zap.Logger {
	mu.Lock()
	l := log
	mu.Unlock()
	if l == nil {
		Init(nil)
		mu.Lock()
		l = log
		mu.Unlock()
	}
	return l
}

func wrapped() *zap.Logger {
	L()
	mu.Lock()
	defer mu.Unlock()
	return skip
}

func Debug(msg string, fields ...zap.Field) {
	wrapped().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	wrapped().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	wrapped().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	wrapped().Error(msg, fields...)
}

// Sync 刷新缓冲
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if log != nil {
		_ = log.Sync()
	}
}
