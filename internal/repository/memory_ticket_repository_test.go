package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

func newTicket(title string, at time.Time) *domain.Ticket {
	return &domain.Ticket{
		Title:        title,
		Description:  "desc",
		Priority:     domain.TicketPriorityMedium,
		Status:       domain.TicketStatusOpen,
		ReporterName: "Alice",
		CreatedAt:    at,
		UpdatedAt:    at,
	}
}

func TestMemoryRepositoryAssignsIncreasingIDs(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ctx := context.Background()
	now := time.Now()

	first := newTicket("one", now)
	second := newTicket("two", now)
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)

	// same created_at falls back to id order
	list, err := repo.List(ctx, TicketFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[0].ID)
}

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ctx := context.Background()
	ticket := newTicket("copy", time.Now())
	require.NoError(t, repo.Create(ctx, ticket))

	assigned, err := repo.AssignAdmin(ctx, ticket.ID, "Admin1", time.Now())
	require.NoError(t, err)
	*assigned.AssignedAdmin = "Mallory"

	stored, err := repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "Admin1", *stored.AssignedAdmin)
}

func TestMemoryRepositoryAssignOnce(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ctx := context.Background()
	ticket := newTicket("race", time.Now())
	require.NoError(t, repo.Create(ctx, ticket))

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AssignAdmin(ctx, ticket.ID, "Admin1", time.Now())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var won int
	for err := range results {
		if err == nil {
			won++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyAssigned)
	}
	assert.Equal(t, 1, won)
}

func TestMemoryRepositoryUpdatedAtNeverBeforeCreatedAt(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	ticket := newTicket("clock skew", created)
	require.NoError(t, repo.Create(ctx, ticket))

	updated, err := repo.UpdateStatus(ctx, ticket.ID, domain.TicketStatusClosed, created.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, created, updated.UpdatedAt)
}

func TestMemoryRepositoryMissingRows(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ctx := context.Background()

	_, err := repo.GetByID(ctx, 1)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	_, err = repo.AssignAdmin(ctx, 1, "Admin1", time.Now())
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	_, err = repo.UpdateStatus(ctx, 1, domain.TicketStatusClosed, time.Now())
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	assert.ErrorIs(t, repo.Delete(ctx, 1), pgx.ErrNoRows)
}
