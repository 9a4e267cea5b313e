// internal/domain/plan/repository.go
package plan

import "context"

type Repository interface {
	Create(ctx context.Context, p *Plan) error
	FindByID(ctx context.Context, id int64) (*Plan, error)
	List(ctx context.Context, filters *ListFilters) ([]Plan, error)
}
