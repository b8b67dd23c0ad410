package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-desk/internal/api/http/handlers"
	"github.com/spec-kit/ticket-desk/internal/auth"
	"github.com/spec-kit/ticket-desk/internal/config"
	"github.com/spec-kit/ticket-desk/internal/observability"
	"github.com/spec-kit/ticket-desk/internal/service"
)

// ServerDependencies bundles everything the HTTP surface needs.
type ServerDependencies struct {
	App        config.AppConfig
	Session    config.SessionConfig
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Tickets    *service.TicketService
	Identities *service.IdentityService
	Tokens     *auth.TokenManager
	Sessions   auth.SessionStore
	Health     map[string]handlers.Pinger
}

// NewServer builds the fiber app with middlewares and routes registered.
func NewServer(deps ServerDependencies) (*fiber.App, error) {
	pages, err := handlers.NewPagesHandler(deps.Tickets, deps.Identities)
	if err != nil {
		return nil, err
	}

	// Immutable: form and query values end up in stored tickets and sessions,
	// so they must not alias fasthttp's pooled buffers.
	app := fiber.New(fiber.Config{
		AppName:               deps.App.Name,
		DisableStartupMessage: true,
		Immutable:             true,
		ReadTimeout:           30 * time.Second,
		ErrorHandler:          fallbackErrorHandler(deps.Logger),
	})

	RegisterMiddlewares(app, MiddlewareConfig{
		Logger:   deps.Logger,
		Metrics:  deps.Metrics,
		Timeout:  deps.App.RequestTimeout(),
		Sessions: deps.Sessions,
		SessionOptions: auth.SessionOptions{
			CookieName: deps.Session.CookieName,
			TTL:        deps.Session.TTL(),
			Secure:     deps.Session.Secure,
		},
		Identity: auth.ChainProvider{
			auth.TokenProvider{Tokens: deps.Tokens},
			auth.SessionProvider{Resolver: deps.Identities},
		},
		Fallback: deps.Identities.Directory().DefaultIdentity(),
	})

	routes := RouteConfig{
		Health:  handlers.NewHealthHandler(deps.App.Name, deps.App.Version, deps.Health),
		Tickets: handlers.NewTicketsHandler(deps.Tickets),
		Session: handlers.NewSessionHandler(deps.Identities, deps.Tokens),
		Pages:   pages,
	}
	if deps.Metrics != nil {
		routes.Registry = deps.Metrics.Registry()
	}
	RegisterRoutes(app, routes)
	return app, nil
}
