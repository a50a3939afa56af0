package handlers

import (
	"errors"

	"librarian/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// ErrorHandler renders every error as {"message": ...} with the matching status.
// Unexpected errors are logged and hidden behind a generic 500.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, message := classify(err)
		if status == fiber.StatusInternalServerError {
			log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
		}
		return c.Status(status).JSON(fiber.Map{"message": message})
	}
}

func classify(err error) (int, string) {
	var verr *services.ValidationError
	var ferr *fiber.Error

	switch {
	case errors.As(err, &verr):
		return fiber.StatusBadRequest, verr.Error()
	case errors.Is(err, services.ErrMissingCredentials),
		errors.Is(err, services.ErrAuthenticationFailed),
		errors.Is(err, services.ErrUserNoLongerExists):
		return fiber.StatusUnauthorized, err.Error()
	case errors.Is(err, services.ErrInsufficientPermission):
		return fiber.StatusForbidden, err.Error()
	case errors.Is(err, services.ErrBookNotFound):
		return fiber.StatusNotFound, "Not Found"
	case errors.As(err, &ferr):
		if ferr.Code >= fiber.StatusInternalServerError {
			return ferr.Code, "Internal Server Error"
		}
		return ferr.Code, ferr.Message
	default:
		return fiber.StatusInternalServerError, "Internal Server Error"
	}
}
