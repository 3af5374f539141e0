package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// EscalationRepository stores the append-only escalation log.
type EscalationRepository interface {
	// Create inserts the row once per (ticket, level); repeats return ErrDuplicate.
	Create(ctx context.Context, escalation *domain.TicketEscalation) error
	HighestLevel(ctx context.Context, ticketID string) (int, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketEscalation, error)
}

type escalationRepository struct {
	pool *pgxpool.Pool
}

// NewEscalationRepository builds the repository.
func NewEscalationRepository(pool *pgxpool.Pool) EscalationRepository {
	return &escalationRepository{pool: pool}
}

func (r *escalationRepository) Create(ctx context.Context, escalation *domain.TicketEscalation) error {
	const query = `
        INSERT INTO ticket_escalations (ticket_id, escalated_from, escalated_to, reason, escalation_level)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (ticket_id, escalation_level) DO NOTHING
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		escalation.TicketID,
		escalation.EscalatedFrom,
		escalation.EscalatedTo,
		escalation.Reason,
		escalation.EscalationLevel,
	).Scan(&escalation.ID, &escalation.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *escalationRepository) HighestLevel(ctx context.Context, ticketID string) (int, error) {
	const query = `SELECT COALESCE(MAX(escalation_level), 0) FROM ticket_escalations WHERE ticket_id=$1`
	var level int
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(&level); err != nil {
		return 0, err
	}
	return level, nil
}

func (r *escalationRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketEscalation, error) {
	const query = `
        SELECT id, ticket_id, escalated_from, escalated_to, reason, escalation_level, created_at
        FROM ticket_escalations WHERE ticket_id=$1 ORDER BY escalation_level ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketEscalation
	for rows.Next() {
		var e domain.TicketEscalation
		if err := rows.Scan(
			&e.ID,
			&e.TicketID,
			&e.EscalatedFrom,
			&e.EscalatedTo,
			&e.Reason,
			&e.EscalationLevel,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
