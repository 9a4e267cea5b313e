// internal/repository/postgres/plan_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"rebill-service/internal/domain/plan"
	xerrors "rebill-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PlanRepository struct {
	db *pgxpool.Pool
}

func NewPlanRepository(db *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{db: db}
}

// Create creates a new plan. Plans are immutable after creation.
func (r *PlanRepository) Create(ctx context.Context, p *plan.Plan) error {
	query := `
		INSERT INTO plans (name, description, price, currency, billing_cycle, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(
		ctx, query,
		p.Name, p.Description, p.Price, p.Currency, p.BillingCycle, p.Active,
	).Scan(&p.ID, &p.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}

	return nil
}

// FindByID retrieves a plan by ID
func (r *PlanRepository) FindByID(ctx context.Context, id int64) (*plan.Plan, error) {
	query := `
		SELECT id, name, description, price, currency, billing_cycle, active, created_at
		FROM plans
		WHERE id = $1
	`

	var p plan.Plan
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Currency, &p.BillingCycle, &p.Active, &p.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find plan: %w", err)
	}

	return &p, nil
}

// List retrieves plans ordered by price ascending
func (r *PlanRepository) List(ctx context.Context, filters *plan.ListFilters) ([]plan.Plan, error) {
	limit := filters.Limit
	if limit < 1 || limit > 1000 {
		limit = 100
	}

	query := `
		SELECT id, name, description, price, currency, billing_cycle, active, created_at
		FROM plans
	`
	args := []interface{}{}
	if filters.ActiveOnly {
		query += ` WHERE active = true`
	}
	query += ` ORDER BY price ASC LIMIT $1`
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	plans := []plan.Plan{}
	for rows.Next() {
		var p plan.Plan
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Price, &p.Currency, &p.BillingCycle, &p.Active, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, p)
	}

	return plans, rows.Err()
}
