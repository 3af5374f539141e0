package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// SLAPauseRepository stores pause intervals.
type SLAPauseRepository interface {
	// Create opens a pause. A ticket has at most one open pause; a second one returns ErrDuplicate.
	Create(ctx context.Context, pause *domain.SLAPause) error
	// Resume closes the ticket's open pause at the given instant.
	Resume(ctx context.Context, ticketID string, at time.Time) (*domain.SLAPause, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.SLAPause, error)
	ListByTickets(ctx context.Context, ticketIDs []string) (map[string][]domain.SLAPause, error)
}

type slaPauseRepository struct {
	pool *pgxpool.Pool
}

// NewSLAPauseRepository builds the repository.
func NewSLAPauseRepository(pool *pgxpool.Pool) SLAPauseRepository {
	return &slaPauseRepository{pool: pool}
}

func (r *slaPauseRepository) Create(ctx context.Context, pause *domain.SLAPause) error {
	const query = `
        INSERT INTO sla_pauses (ticket_id, reason, paused_at)
        VALUES ($1,$2,$3)
        RETURNING id`
	err := r.pool.QueryRow(ctx, query, pause.TicketID, pause.Reason, pause.PausedAt).Scan(&pause.ID)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *slaPauseRepository) Resume(ctx context.Context, ticketID string, at time.Time) (*domain.SLAPause, error) {
	const query = `
        UPDATE sla_pauses SET resumed_at = GREATEST($2, paused_at)
        WHERE ticket_id=$1 AND resumed_at IS NULL
        RETURNING id, ticket_id, reason, paused_at, resumed_at`
	var pause domain.SLAPause
	if err := scanPause(r.pool.QueryRow(ctx, query, ticketID, at), &pause); err != nil {
		return nil, err
	}
	return &pause, nil
}

func (r *slaPauseRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.SLAPause, error) {
	grouped, err := r.ListByTickets(ctx, []string{ticketID})
	if err != nil {
		return nil, err
	}
	return grouped[ticketID], nil
}

func (r *slaPauseRepository) ListByTickets(ctx context.Context, ticketIDs []string) (map[string][]domain.SLAPause, error) {
	result := make(map[string][]domain.SLAPause, len(ticketIDs))
	if len(ticketIDs) == 0 {
		return result, nil
	}
	const query = `
        SELECT id, ticket_id, reason, paused_at, resumed_at
        FROM sla_pauses WHERE ticket_id::text = ANY($1)
        ORDER BY paused_at`
	rows, err := r.pool.Query(ctx, query, ticketIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var pause domain.SLAPause
		if err := scanPause(rows, &pause); err != nil {
			return nil, err
		}
		result[pause.TicketID] = append(result[pause.TicketID], pause)
	}
	return result, rows.Err()
}

func scanPause(row pgx.Row, pause *domain.SLAPause) error {
	return row.Scan(&pause.ID, &pause.TicketID, &pause.Reason, &pause.PausedAt, &pause.ResumedAt)
}
