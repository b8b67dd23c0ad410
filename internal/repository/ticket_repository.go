package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

// ErrAlreadyAssigned is returned when a conditional assignment finds an admin already set.
var ErrAlreadyAssigned = errors.New("ticket already assigned")

// TicketFilter captures list parameters. Nil fields are not applied.
type TicketFilter struct {
	Status        *domain.TicketStatus
	AssignedAdmin *string
}

// TicketRepository encapsulates ticket persistence. Every mutating call is atomic.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountByStatus(ctx context.Context) (domain.StatusCounts, error)
	// AssignAdmin sets assigned_admin only while it is still NULL.
	AssignAdmin(ctx context.Context, id int64, admin string, at time.Time) (*domain.Ticket, error)
	UpdateStatus(ctx context.Context, id int64, status domain.TicketStatus, at time.Time) (*domain.Ticket, error)
	Delete(ctx context.Context, id int64) error
}

const ticketColumns = `id, title, description, priority, status, reporter_name, assigned_admin, created_at, updated_at`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates a Postgres-backed repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, priority, status, reporter_name, assigned_admin, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id`
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query,
			ticket.Title,
			ticket.Description,
			ticket.Priority,
			ticket.Status,
			ticket.ReporterName,
			ticket.AssignedAdmin,
			ticket.CreatedAt,
			ticket.UpdatedAt,
		).Scan(&ticket.ID)
	})
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.AssignedAdmin != nil {
		args = append(args, *filter.AssignedAdmin)
		clauses = append(clauses, fmt.Sprintf("assigned_admin=$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, id DESC`,
		ticketColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountByStatus(ctx context.Context) (domain.StatusCounts, error) {
	const query = `SELECT status, COUNT(*) FROM tickets GROUP BY status`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(domain.StatusCounts, len(domain.TicketStatuses()))
	for _, status := range domain.TicketStatuses() {
		counts[status] = 0
	}
	for rows.Next() {
		var (
			status domain.TicketStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		if status.Valid() {
			counts[status] = count
		}
	}
	return counts, rows.Err()
}

func (r *ticketRepository) AssignAdmin(ctx context.Context, id int64, admin string, at time.Time) (*domain.Ticket, error) {
	query := `
        UPDATE tickets SET assigned_admin=$1, updated_at=GREATEST($2, created_at)
        WHERE id=$3 AND assigned_admin IS NULL
        RETURNING ` + ticketColumns

	var ticket *domain.Ticket
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		ticket, err = scanTicket(tx.QueryRow(ctx, query, admin, at, id))
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, id).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrAlreadyAssigned
		}
		return pgx.ErrNoRows
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id int64, status domain.TicketStatus, at time.Time) (*domain.Ticket, error) {
	query := `
        UPDATE tickets SET status=$1, updated_at=GREATEST($2, created_at)
        WHERE id=$3
        RETURNING ` + ticketColumns

	var ticket *domain.Ticket
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		ticket, err = scanTicket(tx.QueryRow(ctx, query, status, at, id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id int64) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.ReporterName,
		&ticket.AssignedAdmin,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
