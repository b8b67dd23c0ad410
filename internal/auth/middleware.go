package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

const identityKey = "auth_identity"

// IdentityMiddleware resolves the acting identity once per request.
// Requests without credentials act as fallback.
func IdentityMiddleware(provider Provider, fallback domain.Identity) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := provider.Resolve(c)
		if errors.Is(err, ErrNoCredentials) {
			identity, err = fallback, nil
		}
		if err != nil {
			return err
		}
		c.Locals(identityKey, identity)
		return c.Next()
	}
}

// IdentityFromContext returns the resolved identity, or ok=false outside IdentityMiddleware.
func IdentityFromContext(c *fiber.Ctx) (domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(domain.Identity)
	return identity, ok
}
