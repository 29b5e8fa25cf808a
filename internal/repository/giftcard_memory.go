package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/giftcard-platform/internal/domain"
)

// MemoryGiftCardRepository keeps gift cards in process memory.
type MemoryGiftCardRepository struct {
	mu    sync.RWMutex
	cards map[string]domain.GiftCard
}

// NewMemoryGiftCardRepository returns an empty store.
func NewMemoryGiftCardRepository() *MemoryGiftCardRepository {
	return &MemoryGiftCardRepository{cards: make(map[string]domain.GiftCard)}
}

func (r *MemoryGiftCardRepository) Create(_ context.Context, card *domain.GiftCard) error {
	now := time.Now()
	card.CreatedAt = now
	card.UpdatedAt = now
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards[card.ID] = cloneCard(*card)
	return nil
}

func (r *MemoryGiftCardRepository) GetByID(_ context.Context, id string) (*domain.GiftCard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	card, ok := r.cards[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneCard(card)
	return &out, nil
}

func (r *MemoryGiftCardRepository) Update(_ context.Context, card *domain.GiftCard, expect CardPrecondition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.cards[card.ID]
	if !ok || stored.Status != expect.Status || !sameOwner(stored.OwnerID, expect.OwnerID) {
		return ErrStale
	}
	stored.OwnerID = cloneString(card.OwnerID)
	stored.Status = card.Status
	stored.UpdatedAt = time.Now()
	card.UpdatedAt = stored.UpdatedAt
	r.cards[card.ID] = stored
	return nil
}

func (r *MemoryGiftCardRepository) ListByMerchant(_ context.Context, merchantID string) ([]domain.GiftCard, error) {
	return r.filter(func(c domain.GiftCard) bool { return c.MerchantID == merchantID }), nil
}

func (r *MemoryGiftCardRepository) ListByOwner(_ context.Context, ownerID string) ([]domain.GiftCard, error) {
	return r.filter(func(c domain.GiftCard) bool { return c.OwnerID != nil && *c.OwnerID == ownerID }), nil
}

func (r *MemoryGiftCardRepository) filter(keep func(domain.GiftCard) bool) []domain.GiftCard {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.GiftCard
	for _, card := range r.cards {
		if keep(card) {
			out = append(out, cloneCard(card))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func cloneCard(c domain.GiftCard) domain.GiftCard {
	c.OwnerID = cloneString(c.OwnerID)
	return c
}

func sameOwner(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
