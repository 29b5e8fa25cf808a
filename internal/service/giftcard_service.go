package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/giftcard-platform/internal/domain"
	"github.com/spec-kit/giftcard-platform/internal/events"
	"github.com/spec-kit/giftcard-platform/internal/repository"
)

// DefaultCurrency is applied when a merchant creates a card without one.
const DefaultCurrency = "USD"

// GiftCardService coordinates the card lifecycle ISSUED -> ON_SALE -> SOLD.
type GiftCardService struct {
	cards      repository.GiftCardRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewGiftCardService builds the service.
func NewGiftCardService(cards repository.GiftCardRepository, dispatcher events.Dispatcher, logger *zap.Logger) *GiftCardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GiftCardService{cards: cards, dispatcher: dispatcher, logger: logger}
}

// Create issues a new card owned by no one.
func (s *GiftCardService) Create(ctx context.Context, merchantID string, amount int64, currency string) (*domain.GiftCard, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidRequest)
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	if !validCurrency(currency) {
		return nil, fmt.Errorf("%w: currency must be a 3-letter code", domain.ErrInvalidRequest)
	}

	card := &domain.GiftCard{
		ID:         uuid.NewString(),
		MerchantID: merchantID,
		Amount:     amount,
		Currency:   currency,
		Status:     domain.GiftCardStatusIssued,
	}
	if err := s.cards.Create(ctx, card); err != nil {
		return nil, err
	}
	s.logger.Info("gift card created", zap.String("card_id", card.ID), zap.String("merchant_id", merchantID))
	s.publish(ctx, events.EventGiftCardCreated, merchantID, card, "")
	return card, nil
}

// Sell puts one of the merchant's issued cards on sale.
func (s *GiftCardService) Sell(ctx context.Context, merchantID, cardID string) (*domain.GiftCard, error) {
	card, err := s.load(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card.MerchantID != merchantID {
		return nil, fmt.Errorf("%w: card belongs to another merchant", domain.ErrForbidden)
	}
	if card.Status != domain.GiftCardStatusIssued {
		return nil, fmt.Errorf("%w: card is %s", domain.ErrConflict, card.Status)
	}

	card.Status = domain.GiftCardStatusOnSale
	if err := s.update(ctx, card, repository.CardPrecondition{Status: domain.GiftCardStatusIssued}); err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventGiftCardListed, merchantID, card, "")
	return card, nil
}

// Buy transfers an on-sale card to the consumer.
func (s *GiftCardService) Buy(ctx context.Context, consumerID, cardID string) (*domain.GiftCard, error) {
	card, err := s.load(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card.Status != domain.GiftCardStatusOnSale {
		return nil, fmt.Errorf("%w: card is %s", domain.ErrConflict, card.Status)
	}

	owner := consumerID
	card.OwnerID = &owner
	card.Status = domain.GiftCardStatusSold
	if err := s.update(ctx, card, repository.CardPrecondition{Status: domain.GiftCardStatusOnSale}); err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventGiftCardSold, consumerID, card, "")
	return card, nil
}

// Share hands a card the consumer owns to another consumer.
func (s *GiftCardService) Share(ctx context.Context, consumerID, cardID, recipient string) (*domain.GiftCard, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return nil, fmt.Errorf("%w: recipient is required", domain.ErrInvalidRequest)
	}
	if recipient == consumerID {
		return nil, fmt.Errorf("%w: cannot share a card with yourself", domain.ErrInvalidRequest)
	}
	card, err := s.load(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card.OwnerID == nil || *card.OwnerID != consumerID {
		return nil, fmt.Errorf("%w: card is not yours", domain.ErrForbidden)
	}

	from := consumerID
	card.OwnerID = &recipient
	if err := s.update(ctx, card, repository.CardPrecondition{Status: domain.GiftCardStatusSold, OwnerID: &from}); err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventGiftCardShared, consumerID, card, recipient)
	return card, nil
}

// ListForMerchant returns the cards a merchant created, newest first.
func (s *GiftCardService) ListForMerchant(ctx context.Context, merchantID string) ([]domain.GiftCard, error) {
	return s.cards.ListByMerchant(ctx, merchantID)
}

// ListOwned returns the cards a consumer holds, newest first.
func (s *GiftCardService) ListOwned(ctx context.Context, consumerID string) ([]domain.GiftCard, error) {
	return s.cards.ListByOwner(ctx, consumerID)
}

func (s *GiftCardService) load(ctx context.Context, cardID string) (*domain.GiftCard, error) {
	if _, err := uuid.Parse(cardID); err != nil {
		return nil, fmt.Errorf("%w: card_id must be a uuid", domain.ErrInvalidRequest)
	}
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: gift card %s", domain.ErrNotFound, cardID)
		}
		return nil, err
	}
	return card, nil
}

func (s *GiftCardService) update(ctx context.Context, card *domain.GiftCard, expect repository.CardPrecondition) error {
	if err := s.cards.Update(ctx, card, expect); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return fmt.Errorf("%w: card changed concurrently", domain.ErrConflict)
		}
		return err
	}
	return nil
}

func (s *GiftCardService) publish(ctx context.Context, eventType events.EventType, actor string, card *domain.GiftCard, recipient string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.New(eventType, actor, events.GiftCardPayload{
		CardID:    card.ID,
		Status:    card.Status,
		Recipient: recipient,
	}))
}

func validCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
