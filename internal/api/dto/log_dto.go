package dto

import (
	"time"

	"github.com/spec-kit/giftcard-platform/internal/domain"
)

// CaptureLogRequest payload for POST /logs.
type CaptureLogRequest struct {
	Service string         `json:"service"`
	Level   string         `json:"level,omitempty"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func (r CaptureLogRequest) Missing() []string {
	return missing(map[string]string{"service": r.Service, "message": r.Message})
}

// LogEntryResponse is the wire shape of a captured entry.
type LogEntryResponse struct {
	ID        string          `json:"id"`
	Service   string          `json:"service"`
	Level     domain.LogLevel `json:"level"`
	Message   string          `json:"message"`
	Meta      map[string]any  `json:"meta,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewLogEntryResponse(entry *domain.LogEntry) LogEntryResponse {
	return LogEntryResponse{
		ID:        entry.ID,
		Service:   entry.Service,
		Level:     entry.Level,
		Message:   entry.Message,
		Meta:      entry.Meta,
		Timestamp: entry.Timestamp,
	}
}

func NewLogEntryList(entries []domain.LogEntry) []LogEntryResponse {
	out := make([]LogEntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, NewLogEntryResponse(&entries[i]))
	}
	return out
}
