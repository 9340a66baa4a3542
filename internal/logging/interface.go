package logging

// LoggerInterface defines the common interface for all loggers.
type LoggerInterface interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})

	SetLevel(level Level)
	GetLevel() Level
}

var _ LoggerInterface = (*Logger)(nil)
