package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/giftcard-platform/internal/api/dto"
	"github.com/spec-kit/giftcard-platform/internal/auth"
	"github.com/spec-kit/giftcard-platform/internal/service"
	apperrors "github.com/spec-kit/giftcard-platform/pkg/util"
)

// ConsumerHandler exposes buying and sharing cards.
type ConsumerHandler struct {
	cards *service.GiftCardService
}

// NewConsumerHandler constructs handler.
func NewConsumerHandler(cards *service.GiftCardService) *ConsumerHandler {
	return &ConsumerHandler{cards: cards}
}

// Buy handles POST /consumer/buy.
func (h *ConsumerHandler) Buy(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("unauthorized")
	}
	var req dto.GiftCardActionRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	card, err := h.cards.Buy(c.UserContext(), identity.AccountID, req.CardID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewGiftCardResponse(card)})
}

// Share handles POST /consumer/share.
func (h *ConsumerHandler) Share(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("unauthorized")
	}
	var req dto.ShareGiftCardRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	card, err := h.cards.Share(c.UserContext(), identity.AccountID, req.CardID, req.Recipient)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewGiftCardResponse(card)})
}

// List handles GET /consumer/cards.
func (h *ConsumerHandler) List(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("unauthorized")
	}
	cards, err := h.cards.ListOwned(c.UserContext(), identity.AccountID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewGiftCardList(cards)})
}
