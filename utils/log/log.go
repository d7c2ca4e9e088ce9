package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var atomLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

func init() {
	cfg := zap.NewProductionConfig()
	cfg.Level = atomLevel
	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}

	zap.ReplaceGlobals(logger)
}

func Debug(format string, args ...interface{}) {
	zap.S().Debugf(format, args...)
}

func Info(format string, args ...interface{}) {
	zap.S().Infof(format, args...)
}

func Warn(format string, args ...interface{}) {
	zap.S().Warnf(format, args...)
}

func Error(format string, args ...interface{}) {
	zap.S().Errorf(format, args...)
}

func Fatal(format string, args ...interface{}) {
	zap.S().Fatalf(format, args...)
}

type Level int

const (
	DEBUG Level = iota
	INFO
	WARNING
	ERROR
)

func SetLevel(level Level) {
	switch level {
	case DEBUG:
		atomLevel.SetLevel(zapcore.DebugLevel)
	case INFO:
		atomLevel.SetLevel(zapcore.InfoLevel)
	case WARNING:
		atomLevel.SetLevel(zapcore.WarnLevel)
	case ERROR:
		atomLevel.SetLevel(zapcore.ErrorLevel)
	}
}
