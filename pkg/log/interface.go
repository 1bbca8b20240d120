// Package log provides the structured logging interface used by the harness
// and the estimators it drives.
//
// The interface is slog-compatible so the backend can be switched without
// touching call sites. The default backend is zerolog (see provider.go); a
// slog JSON backend is available for machine-readable runs (see logger.go).
//
// Example usage:
//
//	logger := log.GetLoggerWithName("testng").With(
//	    log.TestcaseIDKey, "drf_tc_01",
//	    log.AlgorithmKey, "drf",
//	)
//	logger.Info("training finished",
//	    log.MSEKey, 0.125,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are key-value pairs. When the first field passed to a logging method
// is an error it is attached as the error of the record rather than as a key.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	//
	// Example:
	//   logger.Warn("row shorter than header",
	//       log.FilePathKey, path,
	//       "cells", 3,
	//   )
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	//
	// Example:
	//   logger.Error("model training failed",
	//       err,
	//       log.TestcaseIDKey, tc.ID,
	//   )
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4 // Detailed diagnostic information
	LevelInfo  Level = 0  // General operational information
	LevelWarn  Level = 4  // Warning conditions
	LevelError Level = 8  // Error conditions
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates and configures loggers. Tests swap the global
// provider with a TestLoggerProvider to capture output.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
