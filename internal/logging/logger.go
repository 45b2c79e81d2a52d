package logging

import (
	"fmt"
	"log"
	"os"
)

// Logger provides leveled key/value logging for long-lived worker components.
type Logger struct {
	prefix string
	jobID  string
	logger *log.Logger
}

// NewLogger creates a new logger with a component prefix.
func NewLogger(prefix string) *Logger {
	return &Logger{
		prefix: prefix,
		logger: log.New(os.Stdout, fmt.Sprintf("[%s] ", prefix), log.LstdFlags),
	}
}

// WithJob returns a logger that tags every line with the given job ID.
// Pipeline steps use this so concurrent extractions stay distinguishable.
func (l *Logger) WithJob(jobID string) *Logger {
	return &Logger{prefix: l.prefix, jobID: jobID, logger: l.logger}
}

// Info logs an informational message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.logWithKV("INFO", msg, keysAndValues...)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.logWithKV("WARN", msg, keysAndValues...)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.logWithKV("ERROR", msg, keysAndValues...)
}

// Debug logs a debug message with key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.logWithKV("DEBUG", msg, keysAndValues...)
}

func (l *Logger) logWithKV(level, msg string, keysAndValues ...interface{}) {
	kvStr := ""
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 < len(keysAndValues) {
			kvStr += fmt.Sprintf(" %v=%v", keysAndValues[i], keysAndValues[i+1])
		}
	}
	if l.jobID != "" {
		l.logger.Printf("[%s] [Job %s] %s%s", level, l.jobID, msg, kvStr)
		return
	}
	l.logger.Printf("[%s] %s%s", level, msg, kvStr)
}
