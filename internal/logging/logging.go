// Package logging provides leveled, printf-style logging for synthpop backed
// by go.uber.org/zap. The level is resolved from the config key log_level
// (DEBUG, INFO, WARN, ERROR or NONE).
package logging

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"spenser.io/synthpop/internal/config"
)

var (
	logger     *zap.SugaredLogger
	loggerOnce sync.Once
	silent     bool
)

// levelFromConfig resolves log_level; ok is false for NONE.
func levelFromConfig() (zapcore.Level, bool) {
	switch strings.ToUpper(config.GetString(config.LogLevelKey)) {
	case "DEBUG":
		return zapcore.DebugLevel, true
	case "WARN":
		return zapcore.WarnLevel, true
	case "ERROR":
		return zapcore.ErrorLevel, true
	case "NONE":
		return zapcore.InfoLevel, false
	default:
		return zapcore.InfoLevel, true
	}
}

func initLogger() {
	loggerOnce.Do(func() {
		if silent {
			logger = zap.NewNop().Sugar()
			return
		}
		level, enabled := levelFromConfig()
		if !enabled {
			logger = zap.NewNop().Sugar()
			return
		}
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		base, err := cfg.Build(zap.AddCallerSkip(1))
		if err != nil {
			logger = zap.NewNop().Sugar()
			return
		}
		logger = base.Sugar()
	})
}

// resetLogger discards the current logger so the next call re-reads the
// configured level. Test use only.
func resetLogger() {
	loggerOnce = sync.Once{}
	logger = nil
}

// SetSilentLoggingForTest suppresses all log output for the current test
// binary.
func SetSilentLoggingForTest() {
	silent = true
	resetLogger()
}

// Debug logs at debug level with fmt.Sprintf semantics.
func Debug(format string, args ...interface{}) {
	initLogger()
	logger.Debugf(format, args...)
}

// Info logs at info level with fmt.Sprintf semantics.
func Info(format string, args ...interface{}) {
	initLogger()
	logger.Infof(format, args...)
}

// Warn logs at warn level with fmt.Sprintf semantics.
func Warn(format string, args ...interface{}) {
	initLogger()
	logger.Warnf(format, args...)
}

// Error logs at error level with fmt.Sprintf semantics.
func Error(format string, args ...interface{}) {
	initLogger()
	logger.Errorf(format, args...)
}
