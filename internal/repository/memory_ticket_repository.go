package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

// memoryTicketRepository keeps tickets in process memory. It reports missing
// rows with pgx.ErrNoRows so callers handle both stores alike.
type memoryTicketRepository struct {
	mu      sync.RWMutex
	nextID  int64
	tickets map[int64]domain.Ticket
}

// NewMemoryTicketRepository returns a repository for local runs and tests.
func NewMemoryTicketRepository() TicketRepository {
	return &memoryTicketRepository{tickets: make(map[int64]domain.Ticket)}
}

func (r *memoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	ticket.ID = r.nextID
	r.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r *memoryTicketRepository) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := cloneTicket(ticket)
	return &out, nil
}

func (r *memoryTicketRepository) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := []domain.Ticket{}
	for _, ticket := range r.tickets {
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		if filter.AssignedAdmin != nil && (ticket.AssignedAdmin == nil || *ticket.AssignedAdmin != *filter.AssignedAdmin) {
			continue
		}
		result = append(result, cloneTicket(ticket))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *memoryTicketRepository) CountByStatus(_ context.Context) (domain.StatusCounts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(domain.StatusCounts, len(domain.TicketStatuses()))
	for _, status := range domain.TicketStatuses() {
		counts[status] = 0
	}
	for _, ticket := range r.tickets {
		counts[ticket.Status]++
	}
	return counts, nil
}

func (r *memoryTicketRepository) AssignAdmin(_ context.Context, id int64, admin string, at time.Time) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if ticket.IsAssigned() {
		return nil, ErrAlreadyAssigned
	}
	ticket.AssignedAdmin = &admin
	ticket.UpdatedAt = laterOf(at, ticket.CreatedAt)
	r.tickets[id] = ticket
	out := cloneTicket(ticket)
	return &out, nil
}

func (r *memoryTicketRepository) UpdateStatus(_ context.Context, id int64, status domain.TicketStatus, at time.Time) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	ticket.Status = status
	ticket.UpdatedAt = laterOf(at, ticket.CreatedAt)
	r.tickets[id] = ticket
	out := cloneTicket(ticket)
	return &out, nil
}

func (r *memoryTicketRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	return nil
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	if t.AssignedAdmin != nil {
		admin := *t.AssignedAdmin
		t.AssignedAdmin = &admin
	}
	return t
}

func laterOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return b
	}
	return a
}
