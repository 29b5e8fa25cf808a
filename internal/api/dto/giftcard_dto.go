package dto

import (
	"time"

	"github.com/spec-kit/giftcard-platform/internal/domain"
)

// CreateGiftCardRequest payload for POST /merchant/create.
type CreateGiftCardRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

// GiftCardActionRequest names the card for sell and buy.
type GiftCardActionRequest struct {
	CardID string `json:"card_id"`
}

func (r GiftCardActionRequest) Missing() []string {
	return missing(map[string]string{"card_id": r.CardID})
}

// ShareGiftCardRequest payload for POST /consumer/share.
type ShareGiftCardRequest struct {
	CardID    string `json:"card_id"`
	Recipient string `json:"recipient"`
}

func (r ShareGiftCardRequest) Missing() []string {
	return missing(map[string]string{"card_id": r.CardID, "recipient": r.Recipient})
}

// GiftCardResponse is the wire shape of a card.
type GiftCardResponse struct {
	ID         string                `json:"id"`
	MerchantID string                `json:"merchant_id"`
	OwnerID    *string               `json:"owner_id,omitempty"`
	Amount     int64                 `json:"amount"`
	Currency   string                `json:"currency"`
	Status     domain.GiftCardStatus `json:"status"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

func NewGiftCardResponse(card *domain.GiftCard) GiftCardResponse {
	return GiftCardResponse{
		ID:         card.ID,
		MerchantID: card.MerchantID,
		OwnerID:    card.OwnerID,
		Amount:     card.Amount,
		Currency:   card.Currency,
		Status:     card.Status,
		CreatedAt:  card.CreatedAt,
		UpdatedAt:  card.UpdatedAt,
	}
}

func NewGiftCardList(cards []domain.GiftCard) []GiftCardResponse {
	out := make([]GiftCardResponse, 0, len(cards))
	for i := range cards {
		out = append(out, NewGiftCardResponse(&cards[i]))
	}
	return out
}
