package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/giftcard-platform/internal/config"
)

// Badger wraps an embedded key-value store used as a single-node record store.
type Badger struct {
	DB *badger.DB
}

// NewBadger opens (or creates) the store in cfg.Dir.
func NewBadger(cfg config.BadgerConfig, logger *zap.Logger) (*Badger, error) {
	if cfg.Dir == "" {
		return nil, errors.New("BADGER_DIR is required for the badger store")
	}
	opts := badger.DefaultOptions(cfg.Dir).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(badgerLogger{logger.Sugar().Named("badger")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", cfg.Dir, err)
	}
	logger.Info("opened badger store", zap.String("dir", cfg.Dir))
	return &Badger{DB: db}, nil
}

// Close flushes and closes the store.
func (b *Badger) Close() {
	if b != nil && b.DB != nil {
		_ = b.DB.Close()
	}
}

// Ping reports whether the store is open.
func (b *Badger) Ping(_ context.Context) error {
	if b == nil || b.DB == nil {
		return errors.New("badger store not configured")
	}
	if b.DB.IsClosed() {
		return errors.New("badger store closed")
	}
	return nil
}

// badgerLogger routes badger's internal logging through zap.
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(format string, args ...interface{})   { l.s.Errorf(format, args...) }
func (l badgerLogger) Warningf(format string, args ...interface{}) { l.s.Warnf(format, args...) }
func (l badgerLogger) Infof(format string, args ...interface{})    { l.s.Debugf(format, args...) }
func (l badgerLogger) Debugf(format string, args ...interface{})   { l.s.Debugf(format, args...) }
