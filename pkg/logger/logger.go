package logger

import (
	"io"
	"os"
	"scorm_trends_backend/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const serviceName = "scorm-trends"

// Log 全局日志，未初始化时为 Nop，便于测试直接调用
var Log = zap.NewNop()

// InitLogger 文件写 JSON 并按大小滚动，stderr 写可读格式，避免和 CLI 报表输出混在一起
func InitLogger(cfg *config.Config) {
	rotated := &lumberjack.Logger{
		Filename:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   true,
	}
	Log = New(cfg, rotated, os.Stderr)
}

// New 按配置构造日志，file 和 console 可以替换成任意 writer
func New(cfg *config.Config, file, console io.Writer) *zap.Logger {
	level := Level(cfg)

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(file), level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.AddSync(console), level),
	)

	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
		zap.Fields(zap.String("service", serviceName)),
	)
}

// Level log.level 优先；没配或写错时 debug 模式用 debug，其余用 info
func Level(cfg *config.Config) zapcore.Level {
	if cfg.Log.Level != "" {
		if lvl, err := zapcore.ParseLevel(cfg.Log.Level); err == nil {
			return lvl
		}
	}
	if cfg.Server.Mode == "debug" {
		return zap.DebugLevel
	}
	return zap.InfoLevel
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// WithReport 一次报表生成的日志都带上 run id、活动和小组；runID 为空时不输出该字段
func WithReport(runID string, scormID, groupID uint) *zap.Logger {
	fields := []zap.Field{zap.Uint("scorm_id", scormID), zap.Uint("group_id", groupID)}
	if runID != "" {
		fields = append(fields, zap.String("run_id", runID))
	}
	return Log.Named("report").With(fields...)
}
