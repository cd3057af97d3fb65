// Package logging provides the level-based, stderr-only logger shared
// across asp's commands, grounded on the teacher's internal/logging.
package logging

import (
	"io"
	"log"
	"os"
)

// Logger is a level-based logger. All output goes to stderr so stdout
// stays clean for command output printed there.
type Logger struct {
	verboseEnabled bool
	infoLogger     *log.Logger
	debugLogger    *log.Logger
}

var globalLogger *Logger

// Initialize sets up the global logger. verbose enables Debug output.
func Initialize(verbose bool) {
	var output io.Writer = os.Stderr
	globalLogger = &Logger{
		verboseEnabled: verbose,
		infoLogger:     log.New(output, "", 0),
		debugLogger:    log.New(output, "", 0),
	}
}

// Info logs an always-shown informational message.
func Info(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.infoLogger.Printf(format, args...)
	}
}

// Debug logs a message only when verbose mode is enabled.
func Debug(format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.verboseEnabled {
		globalLogger.debugLogger.Printf("debug: "+format, args...)
	}
}

// Warn logs an always-shown warning.
func Warn(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.infoLogger.Printf("warning: "+format, args...)
	}
}

// Error logs an always-shown error.
func Error(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.infoLogger.Printf("error: "+format, args...)
	}
}

// IsVerbose reports whether Debug output is enabled.
func IsVerbose() bool {
	return globalLogger != nil && globalLogger.verboseEnabled
}
