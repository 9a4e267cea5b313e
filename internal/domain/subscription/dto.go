// internal/domain/subscription/dto.go
package subscription

type CreateSubscriptionRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
	PlanID int64 `json:"plan_id" binding:"required"`
}

type ListFilters struct {
	UserID *int64  `form:"user_id"`
	Status *Status `form:"status"`
	Limit  int     `form:"limit"`
	Offset int     `form:"offset"`
}
