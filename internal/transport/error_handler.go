package transport

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/postmangpx/postmangpx/internal/domain"
	"go.uber.org/zap"
)

// ErrorHandler maps errors that escape the handlers to JSON responses.
// Domain sentinels keep their HTTP meaning even when a handler returns them
// raw; everything else is a 500.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := statusFromError(err)

		log := logger.Warn
		if code >= fiber.StatusInternalServerError {
			log = logger.Error
		}
		log("request error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}

func statusFromError(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidState):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrRateExceeded):
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}
