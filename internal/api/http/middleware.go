package http

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-desk/internal/api/dto"
	"github.com/spec-kit/ticket-desk/internal/auth"
	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/observability"
	apperrors "github.com/spec-kit/ticket-desk/pkg/util/errorutil"
)

const apiPrefix = "/api/"

// MiddlewareConfig bundles the global middleware dependencies.
type MiddlewareConfig struct {
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	Timeout        time.Duration
	Sessions       auth.SessionStore
	SessionOptions auth.SessionOptions
	Identity       auth.Provider
	Fallback       domain.Identity
}

// RegisterMiddlewares attaches global middlewares. Order matters: the session
// wraps error handling so flashes added for failed page requests are saved.
func RegisterMiddlewares(app *fiber.App, cfg MiddlewareConfig) {
	app.Use(observability.RequestLogger(cfg.Logger, cfg.Metrics))
	if cfg.Timeout > 0 {
		app.Use(requestTimeoutMiddleware(cfg.Timeout))
	}
	app.Use(auth.SessionMiddleware(cfg.Sessions, cfg.SessionOptions, cfg.Logger))
	app.Use(errorHandlingMiddleware(cfg.Logger, cfg.Metrics))
	app.Use(auth.IdentityMiddleware(cfg.Identity, cfg.Fallback))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := apperrors.ToDomainError(err)
				metrics.RecordError(c.Route().Path, c.Method(), domainErr.Code)
				if domainErr.HTTPStatus >= http.StatusInternalServerError {
					logger.Error("request failed", zap.String("path", c.Path()), zap.Error(domainErr))
				}
				err = writeError(c, domainErr)
			}
		}()
		return c.Next()
	}
}

func writeError(c *fiber.Ctx, domainErr *apperrors.DomainError) error {
	if strings.HasPrefix(c.Path(), apiPrefix) {
		if domainErr.HTTPStatus == http.StatusNotFound {
			return c.Status(http.StatusNotFound).JSON(dto.MessageResponse{Message: "Resource not found"})
		}
		return c.Status(domainErr.HTTPStatus).JSON(dto.ErrorsResponse{Errors: domainErr.Messages()})
	}

	if session, ok := auth.SessionFromContext(c); ok {
		session.AddFlash("error", pageErrorMessage(domainErr))
	}
	return c.Redirect("/", http.StatusFound)
}

// fallbackErrorHandler renders errors raised outside errorHandlingMiddleware,
// such as a session that could not be saved. Page requests get a plain
// response since the flash itself may be what failed to persist.
func fallbackErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		domainErr := apperrors.ToDomainError(err)
		if domainErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Error("request failed", zap.String("path", c.Path()), zap.Error(domainErr))
		}
		c.Response().Header.Del(fiber.HeaderLocation)
		if strings.HasPrefix(c.Path(), apiPrefix) {
			return c.Status(domainErr.HTTPStatus).JSON(dto.ErrorsResponse{Errors: domainErr.Messages()})
		}
		return c.Status(domainErr.HTTPStatus).SendString(domainErr.Messages()[0])
	}
}

func pageErrorMessage(domainErr *apperrors.DomainError) string {
	switch {
	case domainErr.HTTPStatus == http.StatusNotFound:
		return "Page not found"
	case domainErr.HTTPStatus >= http.StatusInternalServerError:
		return "Internal server error"
	case domainErr.HTTPStatus == http.StatusBadRequest:
		return "Bad request"
	default:
		return domainErr.Messages()[0]
	}
}
