package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-desk/internal/api/dto"
	"github.com/spec-kit/ticket-desk/internal/auth"
	"github.com/spec-kit/ticket-desk/internal/service"
	apperrors "github.com/spec-kit/ticket-desk/pkg/util/errorutil"
)

// SessionHandler exposes the acting identity over the JSON API.
type SessionHandler struct {
	identities *service.IdentityService
	tokens     *auth.TokenManager
}

// NewSessionHandler constructs handler.
func NewSessionHandler(identities *service.IdentityService, tokens *auth.TokenManager) *SessionHandler {
	return &SessionHandler{identities: identities, tokens: tokens}
}

// Current GET /api/session.
func (h *SessionHandler) Current(c *fiber.Ctx) error {
	identity, err := actingIdentity(c)
	if err != nil {
		return err
	}
	return c.JSON(dto.SessionResponse{UserName: identity.Name, UserRole: string(identity.Role)})
}

// SetRole POST /api/session. Stores the identity in the session and issues a
// bearer token for clients that do not keep cookies.
func (h *SessionHandler) SetRole(c *fiber.Ctx) error {
	var req dto.SetRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("Invalid user or role")
	}
	identity, err := h.identities.SetRole(req.UserName, req.UserRole)
	if err != nil {
		return err
	}
	if session, ok := auth.SessionFromContext(c); ok {
		session.SetIdentity(identity)
	}
	token, expiresAt, err := h.tokens.GenerateToken(identity)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(dto.SessionResponse{
		UserName:  identity.Name,
		UserRole:  string(identity.Role),
		Token:     token,
		ExpiresAt: &expiresAt,
	})
}
