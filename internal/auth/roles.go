package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

// RequireRole lets the request through only for the given role; otherwise deny handles it.
func RequireRole(role domain.Role, deny fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok || identity.Role != role {
			return deny(c)
		}
		return c.Next()
	}
}

// FlashAndRedirect queues an error flash and redirects to target.
func FlashAndRedirect(message, target string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if session, ok := SessionFromContext(c); ok {
			session.AddFlash("error", message)
		}
		return c.Redirect(target, fiber.StatusFound)
	}
}
