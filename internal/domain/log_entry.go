package domain

import "time"

// LogLevel classifies captured log entries.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogEntry is a message captured by the log service on behalf of another service.
type LogEntry struct {
	ID        string
	Service   string
	Level     LogLevel
	Message   string
	Meta      map[string]any
	Timestamp time.Time
}
