package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/giftcard-platform/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAccountRegistered EventType = "account_registered"
	EventSessionStarted    EventType = "session_started"
	EventSessionReused     EventType = "session_reused"
	EventSessionEnded      EventType = "session_ended"
	EventLoginFailed       EventType = "login_failed"

	EventGiftCardCreated EventType = "giftcard_created"
	EventGiftCardListed  EventType = "giftcard_listed"
	EventGiftCardSold    EventType = "giftcard_sold"
	EventGiftCardShared  EventType = "giftcard_shared"

	// AllEvents subscribes a handler to every event type.
	AllEvents EventType = "*"
)

// Event represents a domain event emitted by services. Payloads never carry
// passwords or token values.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	AccountID string      `json:"account_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// New stamps an event with an id and the current time.
func New(eventType EventType, accountID string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		AccountID: accountID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// SessionPayload describes a session that was started or reused.
type SessionPayload struct {
	Role      domain.Role `json:"role"`
	TokenID   string      `json:"jti,omitempty"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// LoginFailedPayload records why a login was refused.
type LoginFailedPayload struct {
	Reason string `json:"reason"`
}

// GiftCardPayload describes a gift-card transition.
type GiftCardPayload struct {
	CardID    string                `json:"card_id"`
	Status    domain.GiftCardStatus `json:"status"`
	Recipient string                `json:"recipient,omitempty"`
}
