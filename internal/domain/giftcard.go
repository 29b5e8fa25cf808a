package domain

import "time"

// GiftCardStatus represents where a card is in its sale lifecycle.
type GiftCardStatus string

const (
	GiftCardStatusIssued GiftCardStatus = "ISSUED"
	GiftCardStatusOnSale GiftCardStatus = "ON_SALE"
	GiftCardStatusSold   GiftCardStatus = "SOLD"
)

// GiftCard is created by a merchant and bought or shared by consumers.
// Amount is expressed in minor currency units.
type GiftCard struct {
	ID         string
	MerchantID string
	OwnerID    *string
	Amount     int64
	Currency   string
	Status     GiftCardStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
