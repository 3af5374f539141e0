package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// CalendarRepository reads business hours and holidays.
type CalendarRepository interface {
	// ListBusinessHours returns the sector's rows together with the global rows.
	ListBusinessHours(ctx context.Context, sectorID *string) ([]domain.BusinessHours, error)
	// ListHolidays returns the sector's holidays together with the global ones.
	ListHolidays(ctx context.Context, sectorID *string) ([]domain.Holiday, error)
}

type calendarRepository struct {
	pool *pgxpool.Pool
}

// NewCalendarRepository builds the repository.
func NewCalendarRepository(pool *pgxpool.Pool) CalendarRepository {
	return &calendarRepository{pool: pool}
}

func (r *calendarRepository) ListBusinessHours(ctx context.Context, sectorID *string) ([]domain.BusinessHours, error) {
	const query = `
        SELECT id, sector_id, day_of_week, start_time::text, end_time::text, is_active
        FROM business_hours
        WHERE sector_id IS NULL OR sector_id = $1
        ORDER BY day_of_week, start_time`
	rows, err := r.pool.Query(ctx, query, sectorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.BusinessHours
	for rows.Next() {
		var bh domain.BusinessHours
		if err := rows.Scan(
			&bh.ID,
			&bh.SectorID,
			&bh.DayOfWeek,
			&bh.StartTime,
			&bh.EndTime,
			&bh.IsActive,
		); err != nil {
			return nil, err
		}
		result = append(result, bh)
	}
	return result, rows.Err()
}

func (r *calendarRepository) ListHolidays(ctx context.Context, sectorID *string) ([]domain.Holiday, error) {
	const query = `
        SELECT id, name, date, is_recurring, sector_id
        FROM holidays
        WHERE sector_id IS NULL OR sector_id = $1
        ORDER BY date`
	rows, err := r.pool.Query(ctx, query, sectorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Holiday
	for rows.Next() {
		var h domain.Holiday
		if err := rows.Scan(&h.ID, &h.Name, &h.Date, &h.IsRecurring, &h.SectorID); err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	return result, rows.Err()
}
