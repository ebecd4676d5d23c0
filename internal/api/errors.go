package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"quote-service/internal/service"
)

// writeError maps service errors onto HTTP responses.
func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrQuotaExceeded):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": "Monthly quote limit reached",
			"code":  "quota_exceeded",
		})
	case errors.Is(err, service.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input", "details": err.Error()})
	case errors.Is(err, service.ErrQuoteNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Quote not found"})
	case errors.Is(err, service.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You do not own this quote"})
	case errors.Is(err, service.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	case errors.Is(err, service.ErrEmailTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Email already exists"})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	case errors.Is(err, service.ErrTokenInvalid):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	case errors.Is(err, service.ErrStorageDisabled):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "PDF storage is not configured"})
	}

	slog.ErrorContext(c.UserContext(), "Unhandled error", slog.String("path", c.Path()), slog.String("error", err.Error()))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}

func badRequest(c *fiber.Ctx, msg string, err error) error {
	body := fiber.Map{"error": msg}
	if err != nil {
		body["details"] = err.Error()
	}
	return c.Status(fiber.StatusBadRequest).JSON(body)
}
