package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// SLAConfigRepository reads per-sector SLA overrides.
type SLAConfigRepository interface {
	// FindSectorSLAConfig returns nil, nil when the sector has no row for the priority.
	FindSectorSLAConfig(ctx context.Context, sectorID string, priority domain.TicketPriority) (*domain.SectorSLAConfig, error)
	ListBySector(ctx context.Context, sectorID string) ([]domain.SectorSLAConfig, error)
}

type slaConfigRepository struct {
	pool *pgxpool.Pool
}

// NewSLAConfigRepository builds the repository.
func NewSLAConfigRepository(pool *pgxpool.Pool) SLAConfigRepository {
	return &slaConfigRepository{pool: pool}
}

const slaConfigColumns = `id, sector_id, priority, sla_hours::float8, escalation_hours::float8,
               escalation_to, created_at, updated_at`

func (r *slaConfigRepository) FindSectorSLAConfig(ctx context.Context, sectorID string, priority domain.TicketPriority) (*domain.SectorSLAConfig, error) {
	query := `SELECT ` + slaConfigColumns + ` FROM sector_sla_configs WHERE sector_id=$1 AND priority=$2`
	var cfg domain.SectorSLAConfig
	if err := scanSLAConfig(r.pool.QueryRow(ctx, query, sectorID, priority), &cfg); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func (r *slaConfigRepository) ListBySector(ctx context.Context, sectorID string) ([]domain.SectorSLAConfig, error) {
	query := `SELECT ` + slaConfigColumns + ` FROM sector_sla_configs WHERE sector_id=$1 ORDER BY priority`
	rows, err := r.pool.Query(ctx, query, sectorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SectorSLAConfig
	for rows.Next() {
		var cfg domain.SectorSLAConfig
		if err := scanSLAConfig(rows, &cfg); err != nil {
			return nil, err
		}
		result = append(result, cfg)
	}
	return result, rows.Err()
}

func scanSLAConfig(row pgx.Row, cfg *domain.SectorSLAConfig) error {
	return row.Scan(
		&cfg.ID,
		&cfg.SectorID,
		&cfg.Priority,
		&cfg.SLAHours,
		&cfg.EscalationHours,
		&cfg.EscalationTo,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
}
