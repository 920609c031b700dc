package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"reportd/internal/domain"
)

// CompanyRepositoryPG implements domain.CompanyRepository.
type CompanyRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewCompanyRepository creates a new company repository backed by PostgreSQL.
func NewCompanyRepository(pool *pgxpool.Pool) *CompanyRepositoryPG {
	return &CompanyRepositoryPG{pool: pool}
}

// GetByID fetches a company by its identifier. Metrics are stored as JSONB.
func (r *CompanyRepositoryPG) GetByID(ctx context.Context, id int64) (*domain.Company, error) {
	query := `
SELECT id, name, sector, summary, metrics, updated_at
FROM companies
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, id)
	var company domain.Company
	var metricsJSON []byte
	if err := row.Scan(
		&company.ID,
		&company.Name,
		&company.Sector,
		&company.Summary,
		&metricsJSON,
		&company.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(metricsJSON) > 0 {
		if err := json.Unmarshal(metricsJSON, &company.Metrics); err != nil {
			return nil, fmt.Errorf("decode company metrics: %w", err)
		}
	}
	return &company, nil
}
