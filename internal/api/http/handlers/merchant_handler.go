package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/giftcard-platform/internal/api/dto"
	"github.com/spec-kit/giftcard-platform/internal/auth"
	"github.com/spec-kit/giftcard-platform/internal/service"
	apperrors "github.com/spec-kit/giftcard-platform/pkg/util"
)

// MerchantHandler exposes card issuing for merchants.
type MerchantHandler struct {
	cards *service.GiftCardService
}

// NewMerchantHandler constructs handler.
func NewMerchantHandler(cards *service.GiftCardService) *MerchantHandler {
	return &MerchantHandler{cards: cards}
}

// Create handles POST /merchant/create.
func (h *MerchantHandler) Create(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("unauthorized")
	}
	var req dto.CreateGiftCardRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	card, err := h.cards.Create(c.UserContext(), identity.AccountID, req.Amount, req.Currency)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewGiftCardResponse(card)})
}

// Sell handles POST /merchant/sell.
func (h *MerchantHandler) Sell(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("unauthorized")
	}
	var req dto.GiftCardActionRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	card, err := h.cards.Sell(c.UserContext(), identity.AccountID, req.CardID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewGiftCardResponse(card)})
}

// List handles GET /merchant/cards.
func (h *MerchantHandler) List(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("unauthorized")
	}
	cards, err := h.cards.ListForMerchant(c.UserContext(), identity.AccountID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewGiftCardList(cards)})
}
