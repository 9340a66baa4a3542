package logging

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Logger is a leveled text logger. It is given an explicit writer because the
// engine's stdout and stderr belong to the host protocol.
type Logger struct {
	logger *log.Logger
	level  Level
	mu     sync.RWMutex
}

func NewLogger(w io.Writer, prefix string, level string) *Logger {
	return &Logger{
		logger: log.New(w, prefix, log.LstdFlags|log.Lmicroseconds),
		level:  parseLevel(level),
	}
}

// NewNopLogger returns a logger that drops everything.
func NewNopLogger() *Logger {
	return NewLogger(io.Discard, "", "error")
}

func parseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

func (l *Logger) shouldLog(level Level) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level >= l.level
}

func (l *Logger) Debug(format string, v ...interface{}) {
	if l.shouldLog(DebugLevel) {
		l.logger.Print("[DEBUG] " + formatMessage(format, v))
	}
}

func (l *Logger) Info(format string, v ...interface{}) {
	if l.shouldLog(InfoLevel) {
		l.logger.Print("[INFO] " + formatMessage(format, v))
	}
}

func (l *Logger) Warn(format string, v ...interface{}) {
	if l.shouldLog(WarnLevel) {
		l.logger.Print("[WARN] " + formatMessage(format, v))
	}
}

func (l *Logger) Error(format string, v ...interface{}) {
	if l.shouldLog(ErrorLevel) {
		l.logger.Print("[ERROR] " + formatMessage(format, v))
	}
}

// formatMessage consumes as many args as the message has format verbs and
// renders the rest as key=value pairs.
func formatMessage(message string, args []interface{}) string {
	if len(args) == 0 {
		return message
	}

	verbCount := 0
	for i := 0; i < len(message)-1; i++ {
		if message[i] == '%' {
			if message[i+1] != '%' {
				verbCount++
			}
			i++
		}
	}

	if verbCount > 0 && len(args) >= verbCount {
		message = fmt.Sprintf(message, args[:verbCount]...)
		args = args[verbCount:]
	}

	var b strings.Builder
	b.WriteString(message)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}
	if len(args)%2 == 1 {
		fmt.Fprintf(&b, " extra=%v", args[len(args)-1])
	}
	return b.String()
}
