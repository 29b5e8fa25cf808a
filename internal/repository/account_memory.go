package repository

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/giftcard-platform/internal/domain"
)

// MemoryAccountRepository keeps accounts in process memory. It backs tests and
// the default development setup.
type MemoryAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
	now      func() time.Time
}

// NewMemoryAccountRepository returns an empty store.
func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{accounts: make(map[string]domain.Account), now: time.Now}
}

func (r *MemoryAccountRepository) Get(_ context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAccount(account), nil
}

func (r *MemoryAccountRepository) Create(_ context.Context, account *domain.Account) error {
	now := r.now()
	account.CreatedAt = now
	account.UpdatedAt = now
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[account.ID] = *cloneAccount(*account)
	return nil
}

func (r *MemoryAccountRepository) UpdateToken(_ context.Context, id string, token *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}
	account.CurrentToken = cloneString(token)
	account.UpdatedAt = r.now()
	r.accounts[id] = account
	return nil
}

func cloneAccount(a domain.Account) *domain.Account {
	a.CurrentToken = cloneString(a.CurrentToken)
	return &a
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
