// internal/repository/memory/plan_repo.go
package memory

import (
	"context"
	"sort"
	"sync"

	"rebill-service/internal/domain/plan"
	xerrors "rebill-service/internal/pkg/errors"
)

// PlanRepository is an in-memory plan.Repository.
type PlanRepository struct {
	mu     sync.Mutex
	nextID int64
	plans  map[int64]*plan.Plan
}

func NewPlanRepository() *PlanRepository {
	return &PlanRepository{plans: make(map[int64]*plan.Plan)}
}

func (r *PlanRepository) Create(_ context.Context, p *plan.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	p.ID = r.nextID
	cp := *p
	r.plans[p.ID] = &cp
	return nil
}

func (r *PlanRepository) FindByID(_ context.Context, id int64) (*plan.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.plans[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *PlanRepository) List(_ context.Context, filters *plan.ListFilters) ([]plan.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []plan.Plan{}
	for _, p := range r.plans {
		if filters != nil && filters.ActiveOnly && !p.Active {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	return out, nil
}
