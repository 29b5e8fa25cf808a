package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/giftcard-platform/internal/api/dto"
	"github.com/spec-kit/giftcard-platform/internal/service"
	apperrors "github.com/spec-kit/giftcard-platform/pkg/util"
)

// LogsHandler exposes log capture and listing.
type LogsHandler struct {
	logs *service.LogService
}

// NewLogsHandler constructs handler.
func NewLogsHandler(logs *service.LogService) *LogsHandler {
	return &LogsHandler{logs: logs}
}

// Capture handles POST /logs.
func (h *LogsHandler) Capture(c *fiber.Ctx) error {
	var req dto.CaptureLogRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	entry, err := h.logs.Capture(c.UserContext(), service.LogInput{
		Service: req.Service,
		Level:   req.Level,
		Message: req.Message,
		Meta:    req.Meta,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewLogEntryResponse(entry)})
}

// List handles GET /logs?service=&limit=.
func (h *LogsHandler) List(c *fiber.Ctx) error {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed := c.QueryInt("limit", -1)
		if parsed < 0 {
			return apperrors.NewValidationError("limit must be a non-negative integer", nil)
		}
		limit = parsed
	}

	entries, err := h.logs.List(c.UserContext(), c.Query("service"), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewLogEntryList(entries)})
}
