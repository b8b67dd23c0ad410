package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketStatuses returns every status in display order.
func TicketStatuses() []TicketStatus {
	return []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed}
}

// Valid reports whether s is a member of the status enumeration.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed:
		return true
	default:
		return false
	}
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// TicketPriorities returns every priority in display order.
func TicketPriorities() []TicketPriority {
	return []TicketPriority{TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh}
}

func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	default:
		return false
	}
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID            int64
	Title         string
	Description   string
	Priority      TicketPriority
	Status        TicketStatus
	ReporterName  string
	AssignedAdmin *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsAssigned reports whether an admin has claimed the ticket.
func (t *Ticket) IsAssigned() bool {
	return t.AssignedAdmin != nil && *t.AssignedAdmin != ""
}

// StatusCounts maps each status to the number of tickets in it.
type StatusCounts map[TicketStatus]int
