package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"collab-backend/internal/service"
)

// userIDOf reads the authenticated user from locals; 0 when absent.
func userIDOf(c *fiber.Ctx) int64 {
	if val := c.Locals("userID"); val != nil {
		if id, ok := val.(int64); ok {
			return id
		}
	}
	return 0
}

// orgIDOf reads the organization set by the membership middleware.
func orgIDOf(c *fiber.Ctx) int64 {
	if val := c.Locals("orgID"); val != nil {
		if id, ok := val.(int64); ok {
			return id
		}
	}
	return 0
}

// respondError maps service errors to HTTP responses.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error(), "code": CodeValidation})
	case errors.Is(err, service.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error(), "code": CodeNotFound})
	case errors.Is(err, service.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error(), "code": CodeForbidden})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error", "code": CodeStorage})
	}
}
