package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-desk/internal/domain"
	apperrors "github.com/spec-kit/ticket-desk/pkg/util/errorutil"
)

// ErrNoCredentials means a provider found nothing to resolve in the request.
var ErrNoCredentials = errors.New("no credentials presented")

// Provider resolves the acting identity for a request.
type Provider interface {
	Resolve(c *fiber.Ctx) (domain.Identity, error)
}

// IdentityResolver turns raw stored values into an identity.
type IdentityResolver interface {
	Resolve(name, role string) domain.Identity
}

// SessionProvider reads user_name and user_role from the session.
type SessionProvider struct {
	Resolver IdentityResolver
}

func (p SessionProvider) Resolve(c *fiber.Ctx) (domain.Identity, error) {
	session, ok := SessionFromContext(c)
	if !ok {
		return domain.Identity{}, ErrNoCredentials
	}
	return p.Resolver.Resolve(session.UserName, session.UserRole), nil
}

// TokenProvider reads a bearer token from the Authorization header.
type TokenProvider struct {
	Tokens *TokenManager
}

func (p TokenProvider) Resolve(c *fiber.Ctx) (domain.Identity, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return domain.Identity{}, ErrNoCredentials
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return domain.Identity{}, apperrors.NewUnauthorized("Invalid authorization header")
	}
	identity, err := p.Tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return domain.Identity{}, apperrors.NewUnauthorized("Invalid token")
	}
	return identity, nil
}

// ChainProvider asks each provider in turn until one finds credentials.
type ChainProvider []Provider

func (p ChainProvider) Resolve(c *fiber.Ctx) (domain.Identity, error) {
	for _, provider := range p {
		identity, err := provider.Resolve(c)
		if errors.Is(err, ErrNoCredentials) {
			continue
		}
		return identity, err
	}
	return domain.Identity{}, ErrNoCredentials
}
