package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/events"
	"github.com/spec-kit/ticket-desk/internal/repository"
	apperrors "github.com/spec-kit/ticket-desk/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows. The acting identity is always an
// explicit argument; the service never reads request state.
type TicketService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// TicketListFilter holds raw list filters; empty values are ignored.
type TicketListFilter struct {
	Status        string
	AssignedAdmin string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
	}
}

// ListTickets returns tickets newest first, optionally filtered.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{}
	if filter.Status != "" {
		status := domain.TicketStatus(filter.Status)
		repoFilter.Status = &status
	}
	if filter.AssignedAdmin != "" {
		admin := filter.AssignedAdmin
		repoFilter.AssignedAdmin = &admin
	}
	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("list tickets: %w", err))
	}
	return tickets, nil
}

// StatusCounts returns the number of tickets for every status.
func (s *TicketService) StatusCounts(ctx context.Context) (domain.StatusCounts, error) {
	counts, err := s.tickets.CountByStatus(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("count tickets: %w", err))
	}
	return counts, nil
}

// GetTicket fetches a single ticket.
func (s *TicketService) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	return s.loadTicket(ctx, id)
}

// CreateTicket files a new ticket on behalf of a reporter. A nil input means
// the request carried no data.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Identity, input *TicketInput) (*domain.Ticket, error) {
	if !actor.IsReporter() {
		return nil, apperrors.NewForbidden("Only reporters can create tickets")
	}
	if input == nil {
		return nil, apperrors.NewValidationError("No data provided")
	}
	if messages := ValidateTicketInput(*input); len(messages) > 0 {
		return nil, apperrors.NewValidationError(messages...)
	}

	now := s.now()
	ticket := &domain.Ticket{
		Title:        strings.TrimSpace(input.Title),
		Description:  strings.TrimSpace(input.Description),
		Priority:     domain.TicketPriority(input.Priority),
		Status:       domain.TicketStatusOpen,
		ReporterName: actor.Name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.NewPersistenceError("Failed to create ticket", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Priority: ticket.Priority,
		},
	})
	return ticket, nil
}

// AssignSelf lets an admin claim an unassigned ticket.
func (s *TicketService) AssignSelf(ctx context.Context, actor domain.Identity, id int64) (*domain.Ticket, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("Only admins can assign tickets")
	}
	ticket, err := s.loadTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.IsAssigned() {
		return nil, apperrors.NewValidationError("Ticket is already assigned")
	}

	updated, err := s.tickets.AssignAdmin(ctx, id, actor.Name, s.now())
	switch {
	case errors.Is(err, repository.ErrAlreadyAssigned):
		// another admin committed first
		return nil, apperrors.NewValidationError("Ticket is already assigned")
	case errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.NewNotFound("ticket")
	case err != nil:
		return nil, apperrors.NewPersistenceError("Failed to assign ticket", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: updated.ID,
		Actor:    actorOf(actor),
		Payload:  events.TicketAssignedPayload{AssignedAdmin: actor.Name},
	})
	return updated, nil
}

// UpdateStatus sets a ticket's status. A nil status means the field was absent.
// Any status may follow any other.
func (s *TicketService) UpdateStatus(ctx context.Context, actor domain.Identity, id int64, status *string) (*domain.Ticket, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("Only admins can update ticket status")
	}
	ticket, err := s.loadTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return nil, apperrors.NewValidationError("Status is required")
	}
	newStatus, ok := ValidateStatus(*status)
	if !ok {
		return nil, apperrors.NewValidationError("Status must be one of: " + joinStatuses())
	}

	oldStatus := ticket.Status
	updated, err := s.tickets.UpdateStatus(ctx, id, newStatus, s.now())
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.NewNotFound("ticket")
	case err != nil:
		return nil, apperrors.NewPersistenceError("Failed to update ticket status", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: updated.ID,
		Actor:    actorOf(actor),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
	})
	return updated, nil
}

// DeleteTicket removes a ticket permanently. Any role may delete.
func (s *TicketService) DeleteTicket(ctx context.Context, actor domain.Identity, id int64) error {
	if _, err := s.loadTicket(ctx, id); err != nil {
		return err
	}
	err := s.tickets.Delete(ctx, id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.NewNotFound("ticket")
	case err != nil:
		return apperrors.NewPersistenceError("Failed to delete ticket", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: id,
		Actor:    actorOf(actor),
	})
	return nil
}

func (s *TicketService) loadTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket")
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("load ticket %d: %w", id, err))
	}
	return ticket, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func actorOf(identity domain.Identity) events.Actor {
	return events.Actor{Name: identity.Name, Role: identity.Role}
}
