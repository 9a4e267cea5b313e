// internal/domain/plan/dto.go
package plan

type CreatePlanRequest struct {
	Name         string       `json:"name" binding:"required,max=255"`
	Description  string       `json:"description"`
	Price        string       `json:"price" binding:"required"`
	Currency     string       `json:"currency" binding:"omitempty,len=3"`
	BillingCycle BillingCycle `json:"billing_cycle" binding:"required"`
}

type ListFilters struct {
	ActiveOnly bool `form:"active_only"`
	Limit      int  `form:"limit"`
}
