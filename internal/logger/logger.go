package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is global logger, no-op until Initialize is called
var Log = zap.NewNop()

// FileConfig describes rotating log file
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Initialize creates logger with log level and sets it as global.
// If file path is set, logs are written to stdout and to rotating file.
func Initialize(level string, file FileConfig) error {
	loggerLvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}
	loggerCfg := zap.NewProductionConfig()
	loggerCfg.Level = loggerLvl

	l, err := loggerCfg.Build()
	if err != nil {
		return err
	}

	if file.Path != "" {
		rot := &lumberjack.Logger{
			Filename:   file.Path,
			MaxSize:    file.MaxSizeMB,
			MaxBackups: file.MaxBackups,
			MaxAge:     file.MaxAgeDays,
		}
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(loggerCfg.EncoderConfig),
			zapcore.AddSync(rot),
			loggerLvl,
		)
		l = l.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore)
		}))
	}

	Log = l
	return nil
}
