package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-desk/internal/api/dto"
	"github.com/spec-kit/ticket-desk/internal/service"
)

// TicketsHandler serves the JSON ticket API.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.service.ListTickets(c.UserContext(), service.TicketListFilter{
		Status:        c.Query("status"),
		AssignedAdmin: c.Query("assigned_admin"),
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponses(tickets))
}

// TicketStats GET /api/tickets/stats.
func (h *TicketsHandler) TicketStats(c *fiber.Ctx) error {
	counts, err := h.service.StatusCounts(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.StatusCountsResponse(counts))
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := actingIdentity(c)
	if err != nil {
		return err
	}
	var input *service.TicketInput
	if payload := decodeObject(c); payload != nil {
		input = &service.TicketInput{
			Title:       stringField(payload, "title"),
			Description: stringField(payload, "description"),
			Priority:    stringField(payload, "priority"),
		}
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewTicketResponse(ticket))
}

// AssignSelf PATCH /api/tickets/:id/assign-self.
func (h *TicketsHandler) AssignSelf(c *fiber.Ctx) error {
	actor, err := actingIdentity(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.AssignSelf(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// UpdateStatus PATCH /api/tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := actingIdentity(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var status *string
	if raw, ok := decodeObject(c)["status"]; ok {
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			// non-string values such as null are present but invalid
			value = string(raw)
		}
		status = &value
	}
	ticket, err := h.service.UpdateStatus(c.UserContext(), actor, id, status)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// DeleteTicket DELETE /api/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	actor, err := actingIdentity(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTicket(c.UserContext(), actor, id); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Ticket deleted successfully"})
}
