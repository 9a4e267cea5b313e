// internal/service/plan/plan_service.go
package plan

import (
	"context"
	"fmt"

	"rebill-service/internal/domain/plan"
	xerrors "rebill-service/internal/pkg/errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PlanService struct {
	plans  plan.Repository
	logger *zap.Logger
}

func NewPlanService(plans plan.Repository, logger *zap.Logger) *PlanService {
	return &PlanService{plans: plans, logger: logger}
}

// CreatePlan validates and persists a new billing plan. Price arrives as a
// string so amounts never round-trip through floats.
func (s *PlanService) CreatePlan(ctx context.Context, req *plan.CreatePlanRequest) (*plan.Plan, error) {
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid price %q", xerrors.ErrInvalidInput, req.Price)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", xerrors.ErrInvalidInput)
	}

	cycle := plan.BillingCycle(req.BillingCycle)
	if !cycle.Valid() {
		return nil, fmt.Errorf("%w: invalid billing cycle %q", xerrors.ErrInvalidInput, req.BillingCycle)
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	p := &plan.Plan{
		Name:         req.Name,
		Description:  req.Description,
		Price:        price,
		Currency:     currency,
		BillingCycle: cycle,
		Active:       true,
	}

	if err := s.plans.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}

	s.logger.Info("plan created",
		zap.Int64("plan_id", p.ID),
		zap.String("name", p.Name),
		zap.String("billing_cycle", string(p.BillingCycle)))
	return p, nil
}

func (s *PlanService) GetPlan(ctx context.Context, id int64) (*plan.Plan, error) {
	return s.plans.FindByID(ctx, id)
}

func (s *PlanService) ListPlans(ctx context.Context, filters *plan.ListFilters) ([]plan.Plan, error) {
	plans, err := s.plans.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}
