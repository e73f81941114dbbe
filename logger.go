// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package netconf

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxLogValueLength limits the length of log values to prevent log injection
// and excessive log file growth. Values longer than this are truncated.
const MaxLogValueLength = 1024

// Logger interface for pluggable logging support
//
// Implementations should use structured logging with key-value pairs.
// The library ships two implementations:
//   - DefaultLogger: wraps Go's standard log package with a level threshold
//   - NoOpLogger: discards everything (default)
//
// Example custom logger integration:
//
//	type SlogAdapter struct {
//	    logger *slog.Logger
//	}
//
//	func (s *SlogAdapter) Debug(ctx context.Context, msg string, keysAndValues ...any) {
//	    s.logger.DebugContext(ctx, msg, keysAndValues...)
//	}
//	// ... implement Info, Warn, Error
//
//	client, _ := netconf.NewClient("192.168.1.1",
//	    netconf.Username("admin"),
//	    netconf.Password("secret"),
//	    netconf.WithLogger(&SlogAdapter{logger: slog.Default()}))
type Logger interface {
	Debug(ctx context.Context, msg string, keysAndValues ...any)
	Info(ctx context.Context, msg string, keysAndValues ...any)
	Warn(ctx context.Context, msg string, keysAndValues ...any)
	Error(ctx context.Context, msg string, keysAndValues ...any)
}

// LogLevel represents the severity threshold for logging
type LogLevel int

const (
	// LogLevelDebug enables all log levels (most verbose)
	LogLevelDebug LogLevel = iota

	// LogLevelInfo enables Info, Warn, and Error logs
	LogLevelInfo

	// LogLevelWarn enables Warn and Error logs
	LogLevelWarn

	// LogLevelError enables only Error logs
	LogLevelError

	// LogLevelNone disables all logging
	LogLevelNone
)

// String returns the string representation of a LogLevel
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelNone:
		return "NONE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", l)
	}
}

// DefaultLogger wraps Go's standard log package with configurable log level
//
// Log output format: [LEVEL] message key1=value1 key2=value2
//
// Example:
//
//	logger := netconf.NewDefaultLogger(netconf.LogLevelDebug)
//	client, _ := netconf.NewClient("192.168.1.1",
//	    netconf.Username("admin"),
//	    netconf.Password("secret"),
//	    netconf.WithLogger(logger))
type DefaultLogger struct {
	level  LogLevel
	output *log.Logger
}

// NewDefaultLogger creates a DefaultLogger with the specified log level
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	return &DefaultLogger{level: level}
}

// Debug logs a debug message with structured key-value pairs
func (l *DefaultLogger) Debug(_ context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelDebug, msg, keysAndValues)
}

// Info logs an informational message with structured key-value pairs
func (l *DefaultLogger) Info(_ context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelInfo, msg, keysAndValues)
}

// Warn logs a warning message with structured key-value pairs
func (l *DefaultLogger) Warn(_ context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelWarn, msg, keysAndValues)
}

// Error logs an error message with structured key-value pairs
func (l *DefaultLogger) Error(_ context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelError, msg, keysAndValues)
}

// log formats one line. Keys and values are sanitized; the message is
// trusted because it always comes from this package.
func (l *DefaultLogger) log(level LogLevel, msg string, keysAndValues []any) {
	if level < l.level || l.level == LogLevelNone {
		return
	}

	var b strings.Builder
	b.Grow(len(msg) + 10 + len(keysAndValues)*25)
	b.WriteString("[")
	b.WriteString(level.String())
	b.WriteString("] ")
	b.WriteString(msg)

	for i := 0; i < len(keysAndValues); i += 2 {
		b.WriteString(" ")
		b.WriteString(sanitizeLogValue(keysAndValues[i]))
		b.WriteString("=")
		if i+1 < len(keysAndValues) {
			b.WriteString(sanitizeLogValue(keysAndValues[i+1]))
		} else {
			b.WriteString("<MISSING>")
		}
	}

	if l.output != nil {
		l.output.Println(b.String())
		return
	}
	log.Println(b.String())
}

// sanitizeLogValue renders val on a single line: control characters become
// spaces or dots, zero-width and bidi override runes are dropped, invalid
// UTF-8 becomes '.', and the result is capped at MaxLogValueLength bytes.
//
// Example attack prevented:
//
//	Input: "user\n[ERROR] Fake attack message"
//	Output: "user [ERROR] Fake attack message"
func sanitizeLogValue(val any) string {
	str := fmt.Sprintf("%v", val)

	truncated := false
	if len(str) > MaxLogValueLength {
		str = str[:MaxLogValueLength]
		truncated = true
	}

	var b strings.Builder
	b.Grow(len(str))
	for len(str) > 0 {
		r, size := utf8.DecodeRuneInString(str)
		str = str[size:]

		switch {
		case r == utf8.RuneError && size <= 1:
			b.WriteByte('.')
		case r == '\n' || r == '\r' || r == '\t' || r == '\f':
			b.WriteByte(' ')
		case r == 0x200B || r == 0x200C || r == 0x200D || r == 0xFEFF:
			// zero-width: dropped
		case r == 0x202E:
			b.WriteByte(' ')
		case r < 0x20 || r == 0x7F:
			b.WriteByte('.')
		case !unicode.IsPrint(r) && r > 0x7F:
			b.WriteByte('.')
		default:
			b.WriteRune(r)
		}
	}

	if truncated {
		b.WriteString("...[TRUNCATED]")
	}
	return b.String()
}

// NoOpLogger is a no-operation logger that discards all log messages
//
// This is the default logger used when no custom logger is configured,
// so the library never writes anything on its own.
type NoOpLogger struct{}

// Debug discards the log message
func (n *NoOpLogger) Debug(_ context.Context, _ string, _ ...any) {}

// Info discards the log message
func (n *NoOpLogger) Info(_ context.Context, _ string, _ ...any) {}

// Warn discards the log message
func (n *NoOpLogger) Warn(_ context.Context, _ string, _ ...any) {}

// Error discards the log message
func (n *NoOpLogger) Error(_ context.Context, _ string, _ ...any) {}
