package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-desk/internal/auth"
	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/service"
	apperrors "github.com/spec-kit/ticket-desk/pkg/util/errorutil"
)

//go:embed templates/*.html
var templateFiles embed.FS

var pageNames = []string{"index", "new_ticket", "admin"}

// PageData is handed to every page template.
type PageData struct {
	CurrentUser  domain.Identity
	Flashes      []auth.Flash
	Reporters    []string
	Admins       []string
	Tickets      []domain.Ticket
	StatusCounts domain.StatusCounts
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	StatusFilter string
	AdminFilter  string
}

// PagesHandler renders the HTML surface. Failures are reported as flash
// messages followed by a redirect.
type PagesHandler struct {
	tickets    *service.TicketService
	identities *service.IdentityService
	pages      map[string]*template.Template
}

// NewPagesHandler parses the embedded templates.
func NewPagesHandler(tickets *service.TicketService, identities *service.IdentityService) (*PagesHandler, error) {
	funcs := template.FuncMap{
		"assignee": func(admin *string) string {
			if admin == nil || *admin == "" {
				return "Unassigned"
			}
			return *admin
		},
		"countFor": func(counts domain.StatusCounts, status domain.TicketStatus) int {
			return counts[status]
		},
	}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFiles, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &PagesHandler{tickets: tickets, identities: identities, pages: pages}, nil
}

// Index GET /.
func (h *PagesHandler) Index(c *fiber.Ctx) error {
	statusFilter := c.Query("status")
	adminFilter := c.Query("assigned_admin")
	tickets, err := h.tickets.ListTickets(c.UserContext(), service.TicketListFilter{
		Status:        statusFilter,
		AssignedAdmin: adminFilter,
	})
	if err != nil {
		return err
	}
	counts, err := h.tickets.StatusCounts(c.UserContext())
	if err != nil {
		return err
	}
	data := h.pageData(c)
	data.Tickets = tickets
	data.StatusCounts = counts
	data.StatusFilter = statusFilter
	data.AdminFilter = adminFilter
	return h.render(c, "index", data)
}

// NewTicket GET /new_ticket.
func (h *PagesHandler) NewTicket(c *fiber.Ctx) error {
	return h.render(c, "new_ticket", h.pageData(c))
}

// Admin GET /admin.
func (h *PagesHandler) Admin(c *fiber.Ctx) error {
	tickets, err := h.tickets.ListTickets(c.UserContext(), service.TicketListFilter{})
	if err != nil {
		return err
	}
	data := h.pageData(c)
	data.Tickets = tickets
	return h.render(c, "admin", data)
}

// SetRole POST /set_role.
func (h *PagesHandler) SetRole(c *fiber.Ctx) error {
	identity, err := h.identities.SetRole(c.FormValue("user_name"), c.FormValue("user_role"))
	session, ok := auth.SessionFromContext(c)
	switch {
	case err != nil:
		flash(c, "error", "Invalid user or role")
	case ok:
		session.SetIdentity(identity)
	}
	return c.Redirect("/", http.StatusFound)
}

// CreateTicket POST /tickets.
func (h *PagesHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := actingIdentity(c)
	if err != nil {
		return err
	}
	input := &service.TicketInput{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Priority:    c.FormValue("priority"),
	}
	if _, err := h.tickets.CreateTicket(c.UserContext(), actor, input); err != nil {
		return flashFailure(c, err, "/new_ticket")
	}
	flash(c, "success", "Ticket created successfully")
	return c.Redirect("/", http.StatusFound)
}

// AssignSelf POST /tickets/:id/assign-self.
func (h *PagesHandler) AssignSelf(c *fiber.Ctx) error {
	actor, err := actingIdentity(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return flashFailure(c, err, "/admin")
	}
	if _, err := h.tickets.AssignSelf(c.UserContext(), actor, id); err != nil {
		return flashFailure(c, err, "/admin")
	}
	flash(c, "success", "Ticket assigned to you")
	return c.Redirect("/admin", http.StatusFound)
}

// UpdateStatus POST /tickets/:id/status.
func (h *PagesHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := actingIdentity(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return flashFailure(c, err, "/admin")
	}
	var status *string
	if raw := c.FormValue("status"); raw != "" {
		status = &raw
	}
	if _, err := h.tickets.UpdateStatus(c.UserContext(), actor, id, status); err != nil {
		return flashFailure(c, err, "/admin")
	}
	flash(c, "success", "Ticket status updated")
	return c.Redirect("/admin", http.StatusFound)
}

// DeleteTicket POST /tickets/:id/delete.
func (h *PagesHandler) DeleteTicket(c *fiber.Ctx) error {
	actor, err := actingIdentity(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return flashFailure(c, err, "/")
	}
	if err := h.tickets.DeleteTicket(c.UserContext(), actor, id); err != nil {
		return flashFailure(c, err, "/")
	}
	flash(c, "success", "Ticket deleted successfully")
	return c.Redirect("/", http.StatusFound)
}

func (h *PagesHandler) pageData(c *fiber.Ctx) PageData {
	identity, _ := auth.IdentityFromContext(c)
	directory := h.identities.Directory()
	data := PageData{
		CurrentUser: identity,
		Reporters:   directory.Reporters,
		Admins:      directory.Admins,
		Statuses:    domain.TicketStatuses(),
		Priorities:  domain.TicketPriorities(),
	}
	if session, ok := auth.SessionFromContext(c); ok {
		data.Flashes = session.PopFlashes()
	}
	return data
}

func (h *PagesHandler) render(c *fiber.Ctx, name string, data PageData) error {
	tmpl, ok := h.pages[name]
	if !ok {
		return apperrors.NewInternalError(fmt.Errorf("unknown page %q", name))
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return apperrors.NewInternalError(fmt.Errorf("render %s: %w", name, err))
	}
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

func flash(c *fiber.Ctx, category, message string) {
	if session, ok := auth.SessionFromContext(c); ok {
		session.AddFlash(category, message)
	}
}

// flashFailure turns a service error into flash messages; server faults are
// left to the error middleware.
func flashFailure(c *fiber.Ctx, err error, target string) error {
	domainErr := apperrors.ToDomainError(err)
	switch {
	case domainErr.HTTPStatus >= http.StatusInternalServerError:
		return err
	case domainErr.HTTPStatus == http.StatusNotFound:
		flash(c, "error", "Ticket not found")
	default:
		for _, message := range domainErr.Messages() {
			flash(c, "error", message)
		}
	}
	return c.Redirect(target, http.StatusFound)
}
