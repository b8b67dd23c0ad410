package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/ticket-desk/pkg/util/errorutil"
)

const sessionKey = "auth_session"

// SessionOptions controls the session cookie.
type SessionOptions struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// SessionMiddleware loads the caller's session before the request and saves
// it afterwards when it changed. A session only gets an id and a cookie once
// something is written to it. A failed save fails the request.
func SessionMiddleware(store SessionStore, opts SessionOptions, logger *zap.Logger) fiber.Handler {
	if opts.CookieName == "" {
		opts.CookieName = "session_id"
	}
	return func(c *fiber.Ctx) error {
		session := &Session{}
		if id := c.Cookies(opts.CookieName); id != "" {
			loaded, err := store.Load(c.UserContext(), id)
			switch {
			case err == nil:
				session = loaded
			case errors.Is(err, ErrSessionNotFound):
			default:
				logger.Warn("session load failed", zap.Error(err))
			}
		}
		c.Locals(sessionKey, session)

		err := c.Next()

		if session.Dirty() {
			if session.ID == "" {
				session.ID = uuid.NewString()
			}
			if saveErr := store.Save(c.UserContext(), session, opts.TTL); saveErr != nil {
				logger.Error("session save failed", zap.Error(saveErr))
				return apperrors.NewInternalError(fmt.Errorf("save session: %w", saveErr))
			}
			c.Cookie(&fiber.Cookie{
				Name:     opts.CookieName,
				Value:    session.ID,
				Path:     "/",
				MaxAge:   int(opts.TTL.Seconds()),
				Secure:   opts.Secure,
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}
		return err
	}
}

// SessionFromContext returns the session loaded by SessionMiddleware.
func SessionFromContext(c *fiber.Ctx) (*Session, bool) {
	session, ok := c.Locals(sessionKey).(*Session)
	return session, ok && session != nil
}
