package middleware

import (
	"librarian/internal/models"
	"librarian/internal/services"

	"github.com/gofiber/fiber/v2"
)

const identityKey = "identity"

// AuthRequired is a Fiber middleware to check for a valid JWT token.
// The verified identity is stored for IdentityFrom; failures are left to the app's error handler.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Expected format: "Bearer <token>"
		tokenString, err := services.BearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return err
		}

		identity, err := authService.VerifyToken(tokenString)
		if err != nil {
			return err
		}

		c.Locals(identityKey, identity)
		return c.Next()
	}
}

// RequireRole lets the request through only when the verified identity holds one of roles.
// It must run after AuthRequired.
func RequireRole(authService *services.AuthService, roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := authService.RequireRole(IdentityFrom(c), roles...); err != nil {
			return err
		}
		return c.Next()
	}
}

// IdentityFrom returns the identity stored by AuthRequired, or the zero Identity.
func IdentityFrom(c *fiber.Ctx) models.Identity {
	identity, _ := c.Locals(identityKey).(models.Identity)
	return identity
}
