package dto

import (
	"time"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

// TicketResponse is the JSON shape of a ticket.
type TicketResponse struct {
	ID            int64                 `json:"id"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Priority      domain.TicketPriority `json:"priority"`
	Status        domain.TicketStatus   `json:"status"`
	ReporterName  string                `json:"reporter_name"`
	AssignedAdmin *string               `json:"assigned_admin"`
	CreatedAt     *time.Time            `json:"created_at"`
	UpdatedAt     *time.Time            `json:"updated_at"`
}

// NewTicketResponse maps a ticket; zero timestamps render as null.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:            ticket.ID,
		Title:         ticket.Title,
		Description:   ticket.Description,
		Priority:      ticket.Priority,
		Status:        ticket.Status,
		ReporterName:  ticket.ReporterName,
		AssignedAdmin: ticket.AssignedAdmin,
		CreatedAt:     timeOrNil(ticket.CreatedAt),
		UpdatedAt:     timeOrNil(ticket.UpdatedAt),
	}
}

// NewTicketResponses maps a list, never returning nil.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, NewTicketResponse(&tickets[i]))
	}
	return items
}

// StatusCountsResponse lists ticket counts keyed by status.
type StatusCountsResponse map[domain.TicketStatus]int

// MessageResponse carries a plain confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorsResponse carries one or more client facing errors.
type ErrorsResponse struct {
	Errors []string `json:"errors"`
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}
