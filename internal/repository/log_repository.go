package repository

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/giftcard-platform/internal/domain"
)

// LogFilter narrows a log listing. An empty Service matches every service.
type LogFilter struct {
	Service string
	Limit   int
}

// LogRepository persists captured log entries.
type LogRepository interface {
	Append(ctx context.Context, entry *domain.LogEntry) error
	// List returns entries newest first.
	List(ctx context.Context, filter LogFilter) ([]domain.LogEntry, error)
}

type logRepository struct {
	pool *pgxpool.Pool
}

// NewLogRepository returns a Postgres-backed implementation.
func NewLogRepository(pool *pgxpool.Pool) LogRepository {
	return &logRepository{pool: pool}
}

func (r *logRepository) Append(ctx context.Context, entry *domain.LogEntry) error {
	const query = `
        INSERT INTO log_entries (id, service, level, message, meta, logged_at)
        VALUES ($1, $2, $3, $4, $5, $6)`

	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.Service,
		entry.Level,
		entry.Message,
		meta,
		entry.Timestamp,
	); err != nil {
		return storeError(err)
	}
	return nil
}

func (r *logRepository) List(ctx context.Context, filter LogFilter) ([]domain.LogEntry, error) {
	const query = `
        SELECT id, service, level, message, meta, logged_at
        FROM log_entries
        WHERE ($1 = '' OR service = $1)
        ORDER BY logged_at DESC, id DESC
        LIMIT $2`

	rows, err := r.pool.Query(ctx, query, filter.Service, filter.Limit)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	var entries []domain.LogEntry
	for rows.Next() {
		var (
			entry domain.LogEntry
			meta  []byte
		)
		if err := rows.Scan(&entry.ID, &entry.Service, &entry.Level, &entry.Message, &meta, &entry.Timestamp); err != nil {
			return nil, storeError(err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &entry.Meta); err != nil {
				return nil, err
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}
	return entries, nil
}

// MemoryLogRepository keeps log entries in process memory.
type MemoryLogRepository struct {
	mu      sync.RWMutex
	entries []domain.LogEntry
}

// NewMemoryLogRepository returns an empty store.
func NewMemoryLogRepository() *MemoryLogRepository {
	return &MemoryLogRepository{}
}

func (r *MemoryLogRepository) Append(_ context.Context, entry *domain.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *MemoryLogRepository) List(_ context.Context, filter LogFilter) ([]domain.LogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.LogEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
		if filter.Service == "" || r.entries[i].Service == filter.Service {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}
