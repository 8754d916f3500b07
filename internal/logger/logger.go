// Package logger holds the process-wide zap logger.
//
// Every package logs through logger.Logger (or a named child from
// ComponentLogger). Until Initialize is called the logger is a no-op, so
// library code and tests never need to configure logging.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global logger instance
	Logger *zap.SugaredLogger
	// Flag to track if JSON output is enabled
	JSONOutput bool
)

func init() {
	// Safe no-op logger until Initialize is called
	Logger = zap.NewNop().Sugar()
}

// Initialize sets up the global logger.
//
// level is one of debug, info, warn, error (anything else means info).
// jsonOutput selects zap's production JSON encoder; otherwise a console
// encoder writes human-readable lines to stderr so stdout stays free for
// the report tables.
func Initialize(level string, jsonOutput bool) error {
	JSONOutput = jsonOutput
	atomicLevel := zap.NewAtomicLevelAt(ParseLevel(level))

	if jsonOutput {
		config := zap.NewProductionConfig()
		config.Level = atomicLevel
		zapLogger, err := config.Build()
		if err != nil {
			return err
		}
		Logger = zapLogger.Sugar()
		return nil
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")

	Logger = zap.New(
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(os.Stderr),
			atomicLevel,
		),
	).Sugar()
	return nil
}

// ParseLevel maps a config string to a zap level.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// ComponentLogger returns a named child of the global logger.
//
// Example:
//
//	log := logger.ComponentLogger("nexus")
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// Cleanup flushes any buffered log entries
func Cleanup() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}
