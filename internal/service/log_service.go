package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/spec-kit/giftcard-platform/internal/domain"
	"github.com/spec-kit/giftcard-platform/internal/repository"
)

// Listing bounds for GET /logs.
const (
	DefaultLogLimit = 100
	MaxLogLimit     = 500
)

// LogInput is a log entry submitted by another service.
type LogInput struct {
	Service string
	Level   string
	Message string
	Meta    map[string]any
}

// LogService captures and lists log entries.
type LogService struct {
	entries repository.LogRepository
	now     func() time.Time
}

// NewLogService builds the service.
func NewLogService(entries repository.LogRepository) *LogService {
	return &LogService{entries: entries, now: time.Now}
}

// Capture validates and stores an entry. Ids are ULIDs so they sort by time.
func (s *LogService) Capture(ctx context.Context, in LogInput) (*domain.LogEntry, error) {
	service := strings.TrimSpace(in.Service)
	message := strings.TrimSpace(in.Message)
	if service == "" || message == "" {
		return nil, fmt.Errorf("%w: service and message are required", domain.ErrInvalidRequest)
	}
	level, err := parseLevel(in.Level)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	entry := &domain.LogEntry{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Service:   service,
		Level:     level,
		Message:   message,
		Meta:      in.Meta,
		Timestamp: now,
	}
	if err := s.entries.Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns entries newest first. A zero limit means DefaultLogLimit and
// anything above MaxLogLimit is capped.
func (s *LogService) List(ctx context.Context, service string, limit int) ([]domain.LogEntry, error) {
	switch {
	case limit < 0:
		return nil, fmt.Errorf("%w: limit must not be negative", domain.ErrInvalidRequest)
	case limit == 0:
		limit = DefaultLogLimit
	case limit > MaxLogLimit:
		limit = MaxLogLimit
	}
	entries, err := s.entries.List(ctx, repository.LogFilter{Service: strings.TrimSpace(service), Limit: limit})
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.LogEntry{}
	}
	return entries, nil
}

func parseLevel(raw string) (domain.LogLevel, error) {
	switch level := domain.LogLevel(strings.ToLower(strings.TrimSpace(raw))); level {
	case "":
		return domain.LogLevelInfo, nil
	case domain.LogLevelDebug, domain.LogLevelInfo, domain.LogLevelWarn, domain.LogLevelError:
		return level, nil
	default:
		return "", fmt.Errorf("%w: unknown level %q", domain.ErrInvalidRequest, raw)
	}
}
