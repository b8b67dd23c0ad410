package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/ticket-desk/internal/api/http/handlers"
	"github.com/spec-kit/ticket-desk/internal/auth"
	"github.com/spec-kit/ticket-desk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Tickets  *handlers.TicketsHandler
	Session  *handlers.SessionHandler
	Pages    *handlers.PagesHandler
	Registry *prometheus.Registry
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")
	api.Get("/session", cfg.Session.Current)
	api.Post("/session", cfg.Session.SetRole)

	api.Get("/tickets", cfg.Tickets.ListTickets)
	api.Post("/tickets", cfg.Tickets.CreateTicket)
	api.Get("/tickets/stats", cfg.Tickets.TicketStats)
	api.Get("/tickets/:id", cfg.Tickets.GetTicket)
	api.Patch("/tickets/:id/assign-self", cfg.Tickets.AssignSelf)
	api.Patch("/tickets/:id/status", cfg.Tickets.UpdateStatus)
	api.Delete("/tickets/:id", cfg.Tickets.DeleteTicket)

	app.Get("/", cfg.Pages.Index)
	app.Get("/new_ticket",
		auth.RequireRole(domain.RoleReporter, auth.FlashAndRedirect("Only reporters can create tickets", "/")),
		cfg.Pages.NewTicket)
	app.Get("/admin",
		auth.RequireRole(domain.RoleAdmin, auth.FlashAndRedirect("Only admins can access admin dashboard", "/")),
		cfg.Pages.Admin)
	app.Post("/set_role", cfg.Pages.SetRole)
	app.Post("/tickets", cfg.Pages.CreateTicket)
	app.Post("/tickets/:id/assign-self", cfg.Pages.AssignSelf)
	app.Post("/tickets/:id/status", cfg.Pages.UpdateStatus)
	app.Post("/tickets/:id/delete", cfg.Pages.DeleteTicket)
}
